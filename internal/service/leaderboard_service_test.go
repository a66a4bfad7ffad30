package service

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	"bravolearn_backend/internal/testutil"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardRanksByXP(t *testing.T) {
	f := newFixture(t, engine.RewardFirstCompletionOnly)
	ctx := context.Background()

	xp := map[string]int{"ann": 120, "bob": 300, "cat": 120, "dan": 0}
	users := map[string]uint{}
	for _, name := range []string{"ann", "bob", "cat", "dan"} {
		u := testutil.CreateLearner(t, f.db, name)
		users[name] = u.ID
		require.NoError(t, f.db.Model(&model.Profile{}).Where("user_id = ?", u.ID).Update("xp", xp[name]).Error)
	}

	top, err := f.leaderboard.Top(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "bob", top[0].DisplayName)
	assert.Equal(t, "ann", top[1].DisplayName)
	assert.Equal(t, "cat", top[2].DisplayName)
	assert.Equal(t, []int{1, 2, 3}, []int{top[0].Position, top[1].Position, top[2].Position})

	entry, total, err := f.leaderboard.RankOf(ctx, users["dan"])
	require.NoError(t, err)
	assert.Equal(t, 4, entry.Position)
	assert.Equal(t, 4, total)

	_, _, err = f.leaderboard.RankOf(ctx, 9999)
	assert.ErrorIs(t, err, engine.ErrProfileNotFound)
}

func TestLeaderboardReflectsCompletionImmediately(t *testing.T) {
	f := newFixture(t, engine.RewardFirstCompletionOnly)
	ctx := context.Background()
	leader := testutil.CreateLearner(t, f.db, "lea")
	require.NoError(t, f.db.Model(&model.Profile{}).Where("user_id = ?", leader.ID).Update("xp", 40).Error)
	climber := testutil.CreateLearner(t, f.db, "cli")
	c := testutil.SeedCourse(t, f.db, "go", 50)

	entry, _, err := f.leaderboard.RankOf(ctx, climber.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Position)

	_, err = f.courses.Enroll(ctx, climber.ID, c.Course.ID)
	require.NoError(t, err)
	answerAll(t, f, c, climber.ID, c.Lessons[0].ID)
	_, err = f.lessons.CompleteLesson(ctx, climber.ID, c.Lessons[0].ID)
	require.NoError(t, err)

	entry, _, err = f.leaderboard.RankOf(ctx, climber.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Position)
	assert.Equal(t, 50, entry.XP)
}
