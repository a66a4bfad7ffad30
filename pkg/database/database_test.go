package database

import (
	"bravolearn_backend/internal/config"
	"bravolearn_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDBSQLiteSeedsAchievementsOnce(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}

	db, err := InitDB(cfg, "release")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&model.Achievement{}).Count(&count).Error)
	assert.Equal(t, int64(len(DefaultAchievements)), count)

	require.NoError(t, Migrate(db))
	require.NoError(t, db.Model(&model.Achievement{}).Count(&count).Error)
	assert.Equal(t, int64(len(DefaultAchievements)), count)
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	_, err := Dialector(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestInitRedisDisabled(t *testing.T) {
	rdb, err := InitRedis(&config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, rdb)
}
