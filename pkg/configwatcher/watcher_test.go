package configwatcher

import (
	"bravolearn_backend/internal/config"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseConfig = `
database:
  driver: sqlite
storage:
  type: s3
progression:
  reward_policy: %s
`

func TestWatchConfigReloadsRewardPolicy(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	write := func(policy string) {
		body := []byte(fmt.Sprintf(baseConfig, policy))
		require.NoError(t, os.WriteFile(file, body, 0o644))
	}
	write("first_completion_only")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 4)
	require.NoError(t, WatchConfig(ctx, file, func(cfg *config.Config) { reloaded <- cfg }))

	write("every_completion")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "every_completion", cfg.Progression.RewardPolicy)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}
