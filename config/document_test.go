package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/wdproxy/config"
)

func TestDocument_Validate_RejectsZeroPort(t *testing.T) {
	doc := config.Document{
		"localnet": {Port: 0, Targets: []config.TargetConfig{{URI: "http://a"}}},
	}
	require.Error(t, doc.Validate())
}

func TestDocument_Validate_RejectsEmptyTargetsUnlessDeactivating(t *testing.T) {
	doc := config.Document{
		"localnet": {Port: 9000},
	}
	require.Error(t, doc.Validate())

	doc["localnet"] = config.PortConfig{Port: 9000, Deactivate: true}
	require.NoError(t, doc.Validate())
}

func TestDocument_ByPort(t *testing.T) {
	doc := config.Document{
		"localnet": {Port: 9000, Targets: []config.TargetConfig{{URI: "http://a"}}},
		"devnet":   {Port: 9001, Targets: []config.TargetConfig{{URI: "http://b"}}},
	}
	byPort := doc.ByPort()
	require.Len(t, byPort, 2)
	require.Equal(t, uint16(9000), byPort[9000].Port)
}
