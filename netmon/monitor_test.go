package netmon_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/wdproxy/netmon"
	"github.com/nabbar/wdproxy/port"
	"github.com/nabbar/wdproxy/target"
)

func TestMonitor_ApplyOK_UpdatesPortAndTarget(t *testing.T) {
	g := port.NewGlobals()
	p := port.New(8080)
	ts, err := target.New("http://a", 0, 0)
	require.NoError(t, err)
	idx := p.PushTarget(ts)
	g.Put(p)

	mon := netmon.New(g, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = mon.Run(ctx) }()

	require.NoError(t, mon.ReportOK(ctx, 8080, uint16(idx), 42))

	require.Eventually(t, func() bool {
		numOK, _, _, _ := p.Counters()
		return numOK == 1
	}, time.Second, 5*time.Millisecond)

	require.True(t, p.Target(idx).Stats().IsHealthy())
}

func TestMonitor_ApplyFail_PortUnhealthyWhenNoTargetHealthy(t *testing.T) {
	g := port.NewGlobals()
	p := port.New(8081)
	ts, err := target.New("http://a", 0, 0)
	require.NoError(t, err)
	idx := p.PushTarget(ts)
	g.Put(p)

	mon := netmon.New(g, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = mon.Run(ctx) }()

	require.NoError(t, mon.ReportOK(ctx, 8081, uint16(idx), 0))
	require.Eventually(t, func() bool { return p.IsHealthy() }, time.Second, 5*time.Millisecond)

	require.NoError(t, mon.ReportFail(ctx, 8081, uint16(idx), 1))
	require.Eventually(t, func() bool { return !p.IsHealthy() }, time.Second, 5*time.Millisecond)
}

func TestMonitor_Probes_ChannelIsReadable(t *testing.T) {
	g := port.NewGlobals()
	mon := netmon.New(g, nil)
	require.NotNil(t, mon.Probes())
}
