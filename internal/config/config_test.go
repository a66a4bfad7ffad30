package config

import (
	"bravolearn_backend/internal/engine"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: sqlite
  path: ":memory:"
storage:
  type: s3
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 72*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 10, cfg.Progression.LeaderboardSize)
	assert.Equal(t, 5*time.Second, cfg.Progression.CompletionLockTTL())

	policy, err := cfg.Progression.Policy()
	require.NoError(t, err)
	assert.Equal(t, engine.RewardFirstCompletionOnly, policy)
}

func TestLoadConfigProgression(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: sqlite
storage:
  type: s3
progression:
  reward_policy: every_completion
  timezone: Asia/Tokyo
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	policy, err := cfg.Progression.Policy()
	require.NoError(t, err)
	assert.Equal(t, engine.RewardEveryCompletion, policy)

	loc, err := cfg.Progression.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: mysql
storage:
  type: s3
`)
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("REWARD_POLICY", "every_completion")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "every_completion", cfg.Progression.RewardPolicy)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"short secret in release": `
server:
  mode: release
jwt:
  secret: short
database:
  driver: sqlite
storage:
  type: s3
`,
		"unknown policy": `
database:
  driver: sqlite
storage:
  type: s3
progression:
  reward_policy: always
`,
		"unknown driver": `
database:
  driver: oracle
storage:
  type: s3
`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
