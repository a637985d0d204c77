package admin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoveGenericEventDups_KeepsFirstPositionLatestData(t *testing.T) {
	events := []Event{
		{Kind: KindAudit},
		{Kind: KindUpdate, Doc: nil},
		{Kind: KindAudit},
		{Kind: KindAudit},
		{Kind: KindUpdate, Action: "second"},
		{Kind: KindExec, Action: ExecRestartPort, Port: 9000},
	}

	out := RemoveGenericEventDups(events)

	require.Len(t, out, 3)
	require.Equal(t, KindAudit, out[0].Kind)
	require.Equal(t, KindUpdate, out[1].Kind)
	require.Equal(t, ExecAction("second"), out[1].Action)
	require.Equal(t, KindExec, out[2].Kind)
	require.Equal(t, uint16(9000), out[2].Port)
}

func TestDrainPending_StopsAtEmptyChannel(t *testing.T) {
	ch := make(chan Event, 4)
	ch <- Event{Kind: KindAudit}
	ch <- Event{Kind: KindExec}

	out := DrainPending(ch)
	require.Len(t, out, 2)
	require.Empty(t, DrainPending(ch))
}
