package port_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/wdproxy/managedvec"
	"github.com/nabbar/wdproxy/port"
	"github.com/nabbar/wdproxy/target"
)

func mustTarget(t *testing.T, uri string) *target.TargetServer {
	t.Helper()
	ts, err := target.New(uri, 0, 0)
	require.NoError(t, err)
	return ts
}

func TestInputPort_DeactivateIsMonotonic(t *testing.T) {
	p := port.New(8080)
	require.False(t, p.IsDeactivated())
	p.Deactivate()
	require.True(t, p.IsDeactivated())
	p.Deactivate()
	require.True(t, p.IsDeactivated())
}

func TestInputPort_BestTarget_NoneWhenEmpty(t *testing.T) {
	p := port.New(8080)
	idx, ts := p.BestTarget()
	require.Nil(t, ts)
	require.Equal(t, uint8(0), idx)
}

func TestInputPort_BestTarget_HighestScoreWins(t *testing.T) {
	p := port.New(8080)
	a := mustTarget(t, "http://a")
	b := mustTarget(t, "http://b")
	p.PushTarget(a)
	idxB := p.PushTarget(b)

	b.Stats().ReportOK()

	idx, best := p.BestTarget()
	require.Equal(t, idxB, idx)
	require.Equal(t, b.URI(), best.URI())
}

func TestInputPort_BestTarget_TieBreaksLowestIndex(t *testing.T) {
	p := port.New(8080)
	idxA := p.PushTarget(mustTarget(t, "http://a"))
	p.PushTarget(mustTarget(t, "http://b"))

	idx, best := p.BestTarget()
	require.Equal(t, idxA, idx)
	require.Equal(t, "http://a", best.URI())
}

func TestInputPort_RemoveTarget_FreesSlotForReuse(t *testing.T) {
	p := port.New(8080)
	idxA := p.PushTarget(mustTarget(t, "http://a"))
	p.PushTarget(mustTarget(t, "http://b"))

	p.RemoveTarget(idxA)
	require.Nil(t, p.Target(idxA))

	idxC := p.PushTarget(mustTarget(t, "http://c"))
	require.Equal(t, idxA, idxC)
}

func TestInputPort_RecordOK_FlipsHealthyOnEdge(t *testing.T) {
	p := port.New(8080)
	require.False(t, p.IsHealthy())

	p.RecordOK(time.Now())
	require.True(t, p.IsHealthy())

	numOK, numFailed, _, _ := p.Counters()
	require.Equal(t, uint64(1), numOK)
	require.Equal(t, uint64(0), numFailed)
}

func TestInputPort_BestTargetExcluding_SkipsExcludedIndices(t *testing.T) {
	p := port.New(8080)
	idxA := p.PushTarget(mustTarget(t, "http://a"))
	idxB := p.PushTarget(mustTarget(t, "http://b"))

	idx, best := p.BestTargetExcluding(map[managedvec.Idx]struct{}{idxA: {}})
	require.Equal(t, idxB, idx)
	require.Equal(t, "http://b", best.URI())
}

func TestInputPort_BestTargetExcluding_NilWhenAllExcluded(t *testing.T) {
	p := port.New(8080)
	idxA := p.PushTarget(mustTarget(t, "http://a"))

	_, best := p.BestTargetExcluding(map[managedvec.Idx]struct{}{idxA: {}})
	require.Nil(t, best)
}

func TestInputPort_TargetCount(t *testing.T) {
	p := port.New(8080)
	require.Equal(t, 0, p.TargetCount())
	p.PushTarget(mustTarget(t, "http://a"))
	p.PushTarget(mustTarget(t, "http://b"))
	require.Equal(t, 2, p.TargetCount())
}

func TestGlobals_PutGetDelete(t *testing.T) {
	g := port.NewGlobals()
	p := port.New(9000)
	g.Put(p)

	require.Equal(t, p, g.Get(9000))
	require.Len(t, g.Snapshot(), 1)

	g.Delete(9000)
	require.Nil(t, g.Get(9000))
	require.Equal(t, 0, g.Len())
}
