package worker_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/wdproxy/netmon"
	"github.com/nabbar/wdproxy/port"
	"github.com/nabbar/wdproxy/target"
	"github.com/nabbar/wdproxy/worker"
)

// TestWorker_ActiveProbe_ReachesUpstreamAndReportsOK exercises the full
// loop: netmon's audit clock emits a HealthProbe once its first-tick delay
// elapses, Worker drains it and issues the fixed JSON-RPC probe directly
// against the upstream, and a valid envelope is reported back as a success.
func TestWorker_ActiveProbe_ReachesUpstreamAndReportsOK(t *testing.T) {
	var hit atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit.Store(true)
		require.Equal(t, "1", r.Header.Get("X-SBSD-SERVER-HC"))
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	}))
	defer srv.Close()

	globals := port.NewGlobals()
	p := port.New(7000)
	ts, err := target.New(srv.URL, 0, 0)
	require.NoError(t, err)
	ts.Stats().ReportFailed()
	p.PushTarget(ts)
	globals.Put(p)

	mon := netmon.New(globals, nil)
	w := worker.New(globals, mon, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = mon.Run(ctx) }()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return hit.Load()
	}, 8*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		return ts.Stats().IsHealthy()
	}, time.Second, 10*time.Millisecond)
}

func TestWorker_Run_ExitsCleanlyOnCancel(t *testing.T) {
	globals := port.NewGlobals()
	mon := netmon.New(globals, nil)
	w := worker.New(globals, mon, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after cancel")
	}
}
