// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/apiwatch/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigPath(t *testing.T) {
	t.Run("explicit path wins", func(t *testing.T) {
		assert.Equal(t, "/etc/apiwatch.yaml", resolveConfigPath(" /etc/apiwatch.yaml "))
	})

	t.Run("auto path from data dir", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("interval: 30s\n"), 0o600))
		t.Setenv("APIWATCH_DATA", dir)

		assert.Equal(t, path, resolveConfigPath(""))
	})

	t.Run("missing auto file is skipped", func(t *testing.T) {
		t.Setenv("APIWATCH_DATA", t.TempDir())
		assert.Empty(t, resolveConfigPath(""))
	})
}

func TestValidateCLI(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
interval: 30s
targets:
  - name: Example
    url: https://example.com
`), 0o600))
	assert.Equal(t, 0, runValidateCLI([]string{"-config", good}))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
targets:
  - name: Example
    url: not-a-url
`), 0o600))
	assert.Equal(t, 1, runValidateCLI([]string{"-config", bad}))

	assert.Equal(t, 1, runValidateCLI([]string{"-config", filepath.Join(dir, "missing.yaml")}))
}

func TestVerifyCLI(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "apiwatch.db")

	store, err := history.Open(dbPath, history.DefaultSQLiteConfig())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
history:
  sqlite_path: %s
`, dbPath)), 0o600))

	assert.Equal(t, 0, runVerifyCLI([]string{"-config", cfgPath}))
	assert.Equal(t, 0, runVerifyCLI([]string{"-config", cfgPath, "-mode", "full"}))
	assert.Equal(t, 1, runVerifyCLI([]string{"-config", cfgPath, "-mode", "bogus"}))
}
