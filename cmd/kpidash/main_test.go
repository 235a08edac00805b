package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dashboard:
  title: "Painel de Teste"
  timezone: "UTC"
sample:
  latency: 0s
logger:
  level: error
`), 0o600))
	return path
}

func TestSnapshotCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"snapshot", "--config", writeConfig(t)})
	require.NoError(t, rootCmd.Execute())

	var view struct {
		Title   string `json:"title"`
		Source  string `json:"source"`
		Sectors []struct {
			ID    string            `json:"id"`
			Tiles []json.RawMessage `json:"tiles"`
		} `json:"sectors"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	assert.Equal(t, "Painel de Teste", view.Title)
	assert.Equal(t, "sample", view.Source)
	assert.Len(t, view.Sectors, 10)
}

func TestBadConfigPath(t *testing.T) {
	rootCmd.SetArgs([]string{"snapshot", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, rootCmd.Execute())
}
