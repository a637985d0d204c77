package admin_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/wdproxy/admin"
	"github.com/nabbar/wdproxy/config"
	"github.com/nabbar/wdproxy/metrics"
	"github.com/nabbar/wdproxy/netmon"
	"github.com/nabbar/wdproxy/port"
)

func newTestController(t *testing.T) (*admin.AdminController, *port.Globals, context.Context, context.CancelFunc) {
	t.Helper()
	globals := port.NewGlobals()
	mon := netmon.New(globals, nil)
	ctrl := admin.NewController(globals, mon, metrics.New(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = mon.Run(ctx) }()
	go func() { _ = ctrl.Run(ctx) }()

	return ctrl, globals, ctx, cancel
}

func TestAdminController_ReconcileAddsAndStartsPort(t *testing.T) {
	ctrl, globals, ctx, cancel := newTestController(t)
	defer cancel()

	doc := config.Document{
		"localnet": {Port: 19171, Targets: []config.TargetConfig{{URI: "http://127.0.0.1:1", RPS: 5, RPM: 100}}},
	}
	require.NoError(t, ctrl.Submit(ctx, admin.Event{Kind: admin.KindUpdate, Doc: doc}))

	require.Eventually(t, func() bool {
		p := globals.Get(19171)
		return p != nil && p.TargetCount() == 1
	}, 2*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		p := globals.Get(19171)
		return p != nil && p.IsProxyServerRunning()
	}, 2*time.Second, 20*time.Millisecond)
}

func TestAdminController_ReconcileWithdrawsPort(t *testing.T) {
	ctrl, globals, ctx, cancel := newTestController(t)
	defer cancel()

	doc := config.Document{
		"localnet": {Port: 19172, Targets: []config.TargetConfig{{URI: "http://127.0.0.1:1", RPS: 5, RPM: 100}}},
	}
	require.NoError(t, ctrl.Submit(ctx, admin.Event{Kind: admin.KindUpdate, Doc: doc}))
	require.Eventually(t, func() bool {
		return globals.Get(19172) != nil
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, ctrl.Submit(ctx, admin.Event{Kind: admin.KindUpdate, Doc: config.Document{}}))
	require.Eventually(t, func() bool {
		return globals.Get(19172) == nil
	}, 2*time.Second, 20*time.Millisecond)
}
