package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	content := `
server:
  mode: test
database:
  driver: sqlite
  path: ` + filepath.Join(dir, "bravo.db") + `
jwt:
  secret: bravoctl-test-secret
storage:
  type: local
  local_path: ` + filepath.Join(dir, "uploads") + `
progression:
  timezone: UTC
catalog:
  seed_path: ../../configs/catalog.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSeedAndLeaderboard(t *testing.T) {
	dir := writeConfig(t)

	out, err := run(t, "migrate", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "migrated sqlite")

	out, err = run(t, "seed", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 courses")

	// 重复导入不产生新成就
	out, err = run(t, "seed", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "(0 new)")

	out, err = run(t, "leaderboard", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "RANK")

	_, err = run(t, "rank", "abc", "--config", dir)
	assert.Error(t, err)
}
