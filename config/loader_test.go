package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/wdproxy/config"
)

const sampleYAML = `
localnet:
  port: 9000
  deactivate: false
  targets:
    - uri: http://127.0.0.1:9001
      rps: 5
      rpm: 100
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "suibase.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewLoader_DecodesInitialDocument(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	_, doc, err := config.NewLoader(path, nil)
	require.NoError(t, err)
	require.Equal(t, uint16(9000), doc["localnet"].Port)
	require.Len(t, doc["localnet"].Targets, 1)
	require.Equal(t, uint32(5), doc["localnet"].Targets[0].RPS)
}

func TestNewLoader_RejectsMalformedDocument(t *testing.T) {
	path := writeTemp(t, "localnet:\n  port: 0\n")
	_, _, err := config.NewLoader(path, nil)
	require.Error(t, err)
}

func TestLoader_Watch_FiresOnChangeAfterDebounce(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	l, _, err := config.NewLoader(path, nil)
	require.NoError(t, err)

	changed := make(chan config.Document, 1)
	l.Watch(func(doc config.Document, err error) {
		if err == nil {
			changed <- doc
		}
	})

	updated := `
localnet:
  port: 9000
  targets:
    - uri: http://127.0.0.1:9002
      rps: 10
      rpm: 200
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case doc := <-changed:
		require.Equal(t, "http://127.0.0.1:9002", doc["localnet"].Targets[0].URI)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for hot-reload")
	}
}
