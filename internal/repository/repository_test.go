package repository

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	"bravolearn_backend/internal/testutil"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestEnrollIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateLearner(t, db, "ada")
	course := testutil.SeedCourse(t, db, "go", 10)
	repo := NewEnrollmentRepository(db)

	created, err := repo.Enroll(ctx, user.ID, course.Course.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Enroll(ctx, user.ID, course.Course.ID)
	require.NoError(t, err)
	assert.False(t, created)

	n, err := repo.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := repo.IsEnrolled(ctx, user.ID, course.Course.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProgressLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateLearner(t, db, "ada")
	course := testutil.SeedCourse(t, db, "go", 10)
	repo := NewProgressRepository(db)
	lesson := course.Lessons[0].ID

	p, err := repo.Find(ctx, user.ID, lesson)
	require.NoError(t, err)
	assert.Nil(t, p)

	status, err := repo.MarkInProgress(ctx, user.ID, lesson)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusInProgress, status)

	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveCompletion(ctx, user.ID, lesson, 50, at))
	require.NoError(t, repo.SaveCompletion(ctx, user.ID, lesson, 100, at.Add(time.Hour)))

	// 完成后不回退
	status, err = repo.MarkInProgress(ctx, user.ID, lesson)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusCompleted, status)

	p, err = repo.Find(ctx, user.ID, lesson)
	require.NoError(t, err)
	require.NotNil(t, p.Score)
	assert.Equal(t, 100, *p.Score)

	statuses, err := repo.StatusMap(ctx, user.ID, []uint{course.Lessons[0].ID, course.Lessons[1].ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]engine.LessonStatus{lesson: engine.StatusCompleted}, statuses)

	require.NoError(t, repo.SaveCompletion(ctx, user.ID, course.Lessons[1].ID, 50, at))
	summary, err := repo.Summary(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.LessonsCompleted)
	assert.Equal(t, 1, summary.PerfectLessons)
	assert.InDelta(t, 75.0, summary.AverageScore, 0.001)

	empty, err := repo.Summary(ctx, user.ID+100)
	require.NoError(t, err)
	assert.Equal(t, ProgressSummary{}, empty)
}

func TestAttemptVerdictsInSubmissionOrder(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateLearner(t, db, "ada")
	course := testutil.SeedCourse(t, db, "go", 10)
	repo := NewAttemptRepository(db)
	lesson := course.Lessons[0]
	ex := course.Exercises[lesson.ID][0]

	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	for i, correct := range []bool{false, true} {
		attempt := &model.ExerciseAttempt{
			UserID:     user.ID,
			ExerciseID: ex.ID,
			LessonID:   lesson.ID,
			Answer:     datatypes.NewJSONType(engine.SingleAnswer("x")),
			IsCorrect:  correct,
		}
		attempt.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, attempt))
		assert.NotEmpty(t, attempt.ID)
	}

	verdicts, err := repo.Verdicts(ctx, user.ID, []uint{ex.ID})
	require.NoError(t, err)
	require.Len(t, verdicts, 2)
	assert.False(t, verdicts[0].Correct)
	assert.True(t, verdicts[1].Correct)
	assert.True(t, engine.LatestVerdicts(verdicts)[ex.ID].Correct)

	var sequences []int
	require.NoError(t, db.Model(&model.ExerciseAttempt{}).Order("sequence ASC").Pluck("sequence", &sequences).Error)
	assert.Equal(t, []int{1, 2}, sequences)

	none, err := repo.Verdicts(ctx, user.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProfileRepository(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	ada := testutil.CreateLearner(t, db, "ada")
	testutil.CreateLearner(t, db, "bob")
	repo := NewProfileRepository(db)

	_, err := repo.FindByUserID(ctx, 999)
	assert.ErrorIs(t, err, engine.ErrProfileNotFound)

	profile, err := repo.FindByUserIDForUpdate(ctx, ada.ID)
	require.NoError(t, err)
	profile.XP = 150
	profile.Level = 2
	profile.Streak = 3
	profile.DisplayName = "ignored"
	require.NoError(t, repo.SaveProgression(ctx, profile))

	reloaded, err := repo.FindByUserID(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, reloaded.XP)
	assert.Equal(t, 3, reloaded.Streak)
	assert.Equal(t, "ada", reloaded.DisplayName)

	require.NoError(t, repo.UpdateAvatar(ctx, ada.ID, "/uploads/a.png"))
	assert.ErrorIs(t, repo.UpdateAvatar(ctx, 999, "/uploads/b.png"), engine.ErrProfileNotFound)

	contenders, err := repo.Contenders(ctx)
	require.NoError(t, err)
	standings := engine.RankProfiles(contenders)
	require.Len(t, standings, 2)
	assert.Equal(t, ada.ID, standings[0].UserID)
}

func TestAchievementUnlocksAreUnique(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateLearner(t, db, "ada")
	repo := NewAchievementRepository(db)

	catalog, err := repo.Catalog(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, catalog)

	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	first := catalog[0].ID
	require.NoError(t, repo.Unlock(ctx, user.ID, []uint{first}, at))
	require.NoError(t, repo.Unlock(ctx, user.ID, []uint{first}, at.Add(time.Hour)))

	unlocked, err := repo.ListUnlocked(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.True(t, unlocked[0].UnlockedAt.Equal(at))

	created, err := repo.UpsertByCode(ctx, &model.Achievement{
		Code:             catalog[0].Code,
		Name:             "Renamed",
		RequirementType:  catalog[0].RequirementType,
		RequirementValue: catalog[0].RequirementValue,
	})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAttemptVerdictsBreakTimestampTiesBySequence(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateLearner(t, db, "ada")
	course := testutil.SeedCourse(t, db, "go", 10)
	repo := NewAttemptRepository(db)
	lesson := course.Lessons[0]
	ex := course.Exercises[lesson.ID][0]

	// 同一毫秒内的两次提交，后提交的为准
	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	for _, correct := range []bool{true, false, true, false} {
		attempt := &model.ExerciseAttempt{
			UserID:     user.ID,
			ExerciseID: ex.ID,
			LessonID:   lesson.ID,
			Answer:     datatypes.NewJSONType(engine.SingleAnswer("x")),
			IsCorrect:  correct,
		}
		attempt.CreatedAt = at
		require.NoError(t, repo.Create(ctx, attempt))
	}

	verdicts, err := repo.Verdicts(ctx, user.ID, []uint{ex.ID})
	require.NoError(t, err)
	require.Len(t, verdicts, 4)
	assert.False(t, engine.LatestVerdicts(verdicts)[ex.ID].Correct)
}
