package stats_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/wdproxy/stats"
)

func TestServerStats_NeutralAtConstruction(t *testing.T) {
	s := stats.New()
	require.False(t, s.IsHealthy())
	require.Equal(t, int32(0), s.RelativeHealthScore())
	require.True(t, s.LastTransition().IsZero())
}

func TestServerStats_ReportOK_TransitionsOnEdgeOnly(t *testing.T) {
	s := stats.New()
	s.ReportOK()
	first := s.LastTransition()
	require.False(t, first.IsZero())

	s.ReportOK()
	require.Equal(t, first, s.LastTransition(), "transition only moves on healthy edge")
	require.True(t, s.LastTransition().Before(s.LastRefresh()) || s.LastTransition().Equal(s.LastRefresh()))
}

func TestServerStats_ReportFailed_FlipsHealthy(t *testing.T) {
	s := stats.New()
	s.ReportOK()
	require.True(t, s.IsHealthy())

	s.ReportFailed()
	require.False(t, s.IsHealthy())
}

func TestServerStats_ScoreBounded(t *testing.T) {
	s := stats.New()
	for i := 0; i < 100; i++ {
		s.ReportOK()
	}
	require.Equal(t, int32(100), s.RelativeHealthScore())

	for i := 0; i < 100; i++ {
		s.ReportFailed()
	}
	require.Equal(t, int32(-100), s.RelativeHealthScore())
}

func TestServerStats_ReportLatency_ImpliesOK(t *testing.T) {
	s := stats.New()
	s.ReportLatency(42)
	require.True(t, s.IsHealthy())
	require.Equal(t, int32(42), s.LastLatencyMs())
}

func TestServerStats_DecayTowardNeutral(t *testing.T) {
	s := stats.New()
	s.ReportOK()
	s.ReportOK()
	before := s.RelativeHealthScore()
	require.Equal(t, int32(10), before)

	s.DecayTowardNeutral()
	require.Equal(t, int32(5), s.RelativeHealthScore())
}
