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

// Package netmon is the sole mutator of InputPort and TargetServer stats. It
// consumes a merged stream of per-request telemetry and periodic audit
// ticks, serializing every stat mutation through one goroutine so the
// request path never has to coordinate writes with itself.
package netmon

import (
	"time"

	"github.com/nabbar/wdproxy/managedvec"
)

// Kind identifies what a NetmonMsg reports.
type Kind uint8

const (
	// KindRequestOK reports a successful forward or a successful probe
	// response observed on the request path.
	KindRequestOK Kind = iota + 1
	// KindRequestFail reports a failed forward/probe: transport error or
	// non-2xx status.
	KindRequestFail
	// KindHealthProbe asks RequestWorker to issue an active probe against
	// the TargetServer at (PortIdx, ServerIdx); Para16[0] repeats the
	// InputPort's listening port number.
	KindHealthProbe
	// KindAuditTick drives periodic global recomputation; it carries no
	// per-port payload.
	KindAuditTick
)

// Msg is the wire-shape telemetry event threaded between ProxyServer,
// RequestWorker and the Monitor. PortIdx is the workdir's listening TCP
// port number (Globals is keyed by port number directly, so no separate
// translation table is needed); ServerIdx is the TargetServer's ManagedVec
// index within that port.
type Msg struct {
	Kind      Kind
	PortIdx   uint16
	ServerIdx managedvec.Idx
	Para16    [4]uint16
	Timestamp time.Time
}
