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

func TestOutlineResolvesAccessPerLesson(t *testing.T) {
	f := newFixture(t, engine.RewardFirstCompletionOnly)
	ctx := context.Background()
	user := testutil.CreateLearner(t, f.db, "jo")
	c := testutil.SeedCourse(t, f.db, "go", 10)

	outline, err := f.courses.Outline(ctx, user.ID, c.Course.ID)
	require.NoError(t, err)
	assert.False(t, outline.Enrolled)
	for _, l := range outline.Units[0].Lessons {
		assert.Equal(t, engine.StatusLocked, l.Status)
	}

	_, err = f.courses.Enroll(ctx, user.ID, c.Course.ID)
	require.NoError(t, err)
	answerAll(t, f, c, user.ID, c.Lessons[0].ID)
	_, err = f.lessons.CompleteLesson(ctx, user.ID, c.Lessons[0].ID)
	require.NoError(t, err)

	outline, err = f.courses.Outline(ctx, user.ID, c.Course.ID)
	require.NoError(t, err)
	assert.True(t, outline.Enrolled)
	assert.Equal(t, 3, outline.Total)
	assert.Equal(t, 1, outline.Completed)

	statuses := []engine.LessonStatus{}
	for _, l := range outline.Units[0].Lessons {
		statuses = append(statuses, l.Status)
	}
	assert.Equal(t, []engine.LessonStatus{engine.StatusCompleted, engine.StatusUnlocked, engine.StatusLocked}, statuses)

	// 重复计算结果一致
	again, err := f.courses.Outline(ctx, user.ID, c.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, outline, again)
}

func TestEnrollIsIdempotent(t *testing.T) {
	f := newFixture(t, engine.RewardFirstCompletionOnly)
	ctx := context.Background()
	user := testutil.CreateLearner(t, f.db, "ka")
	c := testutil.SeedCourse(t, f.db, "go", 10)

	first, err := f.courses.Enroll(ctx, user.ID, c.Course.ID)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := f.courses.Enroll(ctx, user.ID, c.Course.ID)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Empty(t, second.Achievements)

	count, err := f.courses.EnrollmentRepo.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEnrollUnknownOrUnpublishedCourse(t *testing.T) {
	f := newFixture(t, engine.RewardFirstCompletionOnly)
	ctx := context.Background()
	user := testutil.CreateLearner(t, f.db, "li")
	c := testutil.SeedCourse(t, f.db, "draft", 10)
	require.NoError(t, f.db.Model(c.Course).Update("is_published", false).Error)

	_, err := f.courses.Enroll(ctx, user.ID, c.Course.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
	_, err = f.courses.Enroll(ctx, user.ID, 777)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
	_, err = f.courses.Outline(ctx, user.ID, c.Course.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	list, err := f.courses.ListPublished(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListPublishedMarksEnrollment(t *testing.T) {
	f := newFixture(t, engine.RewardFirstCompletionOnly)
	ctx := context.Background()
	user := testutil.CreateLearner(t, f.db, "mo")
	a := testutil.SeedCourse(t, f.db, "a", 10)
	testutil.SeedCourse(t, f.db, "b", 10)

	_, err := f.courses.Enroll(ctx, user.ID, a.Course.ID)
	require.NoError(t, err)

	list, err := f.courses.ListPublished(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Enrolled)
	assert.False(t, list[1].Enrolled)

	anonymous, err := f.courses.ListPublished(ctx, 0)
	require.NoError(t, err)
	assert.False(t, anonymous[0].Enrolled)
}
