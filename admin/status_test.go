/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package admin_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/wdproxy/admin"
	"github.com/nabbar/wdproxy/config"
)

func TestGetStatus_UnknownWorkdir(t *testing.T) {
	ctrl, _, _, cancel := newTestController(t)
	defer cancel()

	st := ctrl.GetStatus("nonesuch")
	require.Equal(t, "DOWN", st.Status)
	require.Equal(t, "getStatus", st.Header.Method)
	require.Equal(t, "nonesuch", st.Header.Key)
	require.NotEmpty(t, st.Header.MethodUUID)
	require.NotEmpty(t, st.Header.DataUUID)
	require.Empty(t, st.Services)
}

func TestGetStatus_ReportsProxyAndTargets(t *testing.T) {
	ctrl, globals, ctx, cancel := newTestController(t)
	defer cancel()

	doc := config.Document{
		"localnet": {Port: 19175, Targets: []config.TargetConfig{{URI: "http://127.0.0.1:1"}}},
	}
	require.NoError(t, ctrl.Submit(ctx, admin.Event{Kind: admin.KindUpdate, Doc: doc}))
	require.Eventually(t, func() bool {
		p := globals.Get(19175)
		return p != nil && p.IsProxyServerRunning()
	}, 2*time.Second, 20*time.Millisecond)

	st := ctrl.GetStatus("localnet")
	require.Equal(t, "localnet", st.Header.Key)
	require.Len(t, st.Services, 2)
	require.Equal(t, "multi-link RPC", st.Services[0].Label)
	require.Equal(t, "OK", st.Services[0].Status)
	require.Equal(t, "http://127.0.0.1:1", st.Services[1].Label)
}
