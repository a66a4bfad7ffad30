package service

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/testutil"
	"bravolearn_backend/internal/util"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileOverview(t *testing.T) {
	f := newFixture(t, engine.RewardFirstCompletionOnly)
	ctx := context.Background()
	user := testutil.CreateLearner(t, f.db, "pia")
	c := testutil.SeedCourse(t, f.db, "go", 150)
	_, err := f.courses.Enroll(ctx, user.ID, c.Course.ID)
	require.NoError(t, err)

	answerAll(t, f, c, user.ID, c.Lessons[0].ID)
	_, err = f.lessons.CompleteLesson(ctx, user.ID, c.Lessons[0].ID)
	require.NoError(t, err)
	answerAll(t, f, c, user.ID, c.Lessons[1].ID, false, true)
	_, err = f.lessons.CompleteLesson(ctx, user.ID, c.Lessons[1].ID)
	require.NoError(t, err)

	overview, err := f.profiles.Overview(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "pia@example.com", overview.Email)
	assert.Equal(t, 300, overview.Profile.XP)
	assert.Equal(t, 2, overview.Progress.Level)
	assert.Equal(t, 200, overview.Progress.ProgressXP)
	assert.Equal(t, 2, overview.Stats.LessonsCompleted)
	assert.Equal(t, 1, overview.Stats.PerfectLessons)
	assert.Equal(t, 1, overview.Stats.CoursesEnrolled)
	assert.Equal(t, 75, overview.Stats.AverageScore)
	assert.Equal(t, 1, overview.Rank)
	assert.GreaterOrEqual(t, overview.Stats.AchievementsUnlocked, 3)

	_, err = f.profiles.Overview(ctx, 4040)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestDebugState(t *testing.T) {
	f := newFixture(t, engine.RewardFirstCompletionOnly)
	ctx := context.Background()
	user := testutil.CreateLearner(t, f.db, "qi")
	c := testutil.SeedCourse(t, f.db, "go", 10)
	_, err := f.courses.Enroll(ctx, user.ID, c.Course.ID)
	require.NoError(t, err)
	_, err = f.lessons.StartLesson(ctx, user.ID, c.Lessons[0].ID)
	require.NoError(t, err)

	state, err := f.profiles.DebugState(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, state.Enrollments, 1)
	require.Len(t, state.Progress, 1)
	assert.Equal(t, engine.StatusInProgress, state.Progress[0].Status)
	assert.Equal(t, 1, state.Stats.CoursesEnrolled)
}

func TestAchievementListForUser(t *testing.T) {
	f := newFixture(t, engine.RewardFirstCompletionOnly)
	ctx := context.Background()
	user := testutil.CreateLearner(t, f.db, "ra")
	c := testutil.SeedCourse(t, f.db, "go", 10)
	_, err := f.courses.Enroll(ctx, user.ID, c.Course.ID)
	require.NoError(t, err)

	views, err := f.achievements.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, views)

	byCode := map[string]AchievementView{}
	for _, v := range views {
		byCode[v.Code] = v
	}
	assert.True(t, byCode["explorer"].Unlocked)
	assert.NotNil(t, byCode["explorer"].UnlockedAt)
	assert.False(t, byCode["first_steps"].Unlocked)
	assert.Equal(t, 0, byCode["first_steps"].Progress)
	assert.Equal(t, 1, byCode["explorer"].Progress)
}
