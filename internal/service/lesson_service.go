package service

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	"bravolearn_backend/internal/repository"
	"bravolearn_backend/internal/util"
	"bravolearn_backend/pkg/logger"
	"bravolearn_backend/pkg/messaging"
	"bravolearn_backend/pkg/monitoring"
	"bravolearn_backend/pkg/tracing"
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonServiceOptions struct {
	Policy   engine.RewardPolicy
	Location *time.Location
	LockTTL  time.Duration
}

type LessonService struct {
	DB           *gorm.DB
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	AttemptRepo  *repository.AttemptRepository
	ProfileRepo  *repository.ProfileRepository
	Courses      *CourseService
	Achievements *AchievementService
	Locker       CompletionLocker
	Publisher    messaging.Publisher

	policy   atomic.Value
	location *time.Location
	lockTTL  time.Duration
	now      func() time.Time
}

func NewLessonService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
	attemptRepo *repository.AttemptRepository,
	profileRepo *repository.ProfileRepository,
	courses *CourseService,
	achievements *AchievementService,
	locker CompletionLocker,
	publisher messaging.Publisher,
	opts LessonServiceOptions,
) *LessonService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Second
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}

	s := &LessonService{
		DB:           db,
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		AttemptRepo:  attemptRepo,
		ProfileRepo:  profileRepo,
		Courses:      courses,
		Achievements: achievements,
		Locker:       locker,
		Publisher:    publisher,
		location:     opts.Location,
		lockTTL:      opts.LockTTL,
		now:          time.Now,
	}
	s.SetRewardPolicy(opts.Policy)
	return s
}

// SetRewardPolicy 配置热更新时调用
func (s *LessonService) SetRewardPolicy(p engine.RewardPolicy) {
	if p == "" {
		p = engine.RewardFirstCompletionOnly
	}
	s.policy.Store(p)
}

func (s *LessonService) RewardPolicy() engine.RewardPolicy {
	return s.policy.Load().(engine.RewardPolicy)
}

type ExerciseView struct {
	ID           uint                `json:"id"`
	Type         engine.ExerciseKind `json:"type"`
	Question     string              `json:"question"`
	Instructions string              `json:"instructions,omitempty"`
	Options      []string            `json:"options,omitempty"`
	CodeSnippet  string              `json:"codeSnippet,omitempty"`
	Hints        []string            `json:"hints,omitempty"`
	OrderIndex   int                 `json:"orderIndex"`
	AnswerShape  engine.AnswerShape  `json:"answerShape"`
	Blanks       []string            `json:"blanks,omitempty"`
	Answered     bool                `json:"answered"`
	LastCorrect  *bool               `json:"lastCorrect,omitempty"`
}

type LessonView struct {
	ID          uint                `json:"id"`
	UnitID      uint                `json:"unitId"`
	CourseID    uint                `json:"courseId"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	XPReward    int                 `json:"xpReward"`
	Status      engine.LessonStatus `json:"status"`
	Score       *int                `json:"score,omitempty"`
	Exercises   []ExerciseView      `json:"exercises"`
}

func exerciseViewOf(e model.Exercise, latest map[uint]engine.Verdict) ExerciseView {
	expected := e.CorrectAnswer.Data()
	v := ExerciseView{
		ID:           e.ID,
		Type:         e.Kind,
		Question:     e.Prompt,
		Instructions: e.Instructions,
		Options:      e.Options,
		CodeSnippet:  e.CodeSnippet,
		Hints:        e.Hints,
		OrderIndex:   e.OrderIndex,
		AnswerShape:  expected.Shape,
	}
	if expected.Shape == engine.ShapeKeyed {
		for k := range expected.Keyed {
			v.Blanks = append(v.Blanks, k)
		}
		slices.Sort(v.Blanks)
	}
	if verdict, ok := latest[e.ID]; ok {
		correct := verdict.Correct
		v.Answered = true
		v.LastCorrect = &correct
	}
	return v
}

// accessibleLesson 读取课时并校验当前用户可以进入
func (s *LessonService) accessibleLesson(ctx context.Context, userID, lessonID uint) (*model.Lesson, engine.LessonStatus, error) {
	lesson, err := s.CourseRepo.FindLesson(ctx, lessonID)
	if err != nil {
		return nil, "", err
	}
	status, err := s.Courses.LessonStatus(ctx, userID, lesson)
	if err != nil {
		return nil, "", err
	}
	if !status.Accessible() {
		return nil, status, util.ErrLessonLocked
	}
	return lesson, status, nil
}

// GetLesson 返回课时内容，不包含标准答案
func (s *LessonService) GetLesson(ctx context.Context, userID, lessonID uint) (*LessonView, error) {
	lesson, status, err := s.accessibleLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}

	exercises, err := s.CourseRepo.Exercises(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(exercises))
	for i, e := range exercises {
		ids[i] = e.ID
	}
	verdicts, err := s.AttemptRepo.Verdicts(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	latest := engine.LatestVerdicts(verdicts)

	view := &LessonView{
		ID:          lesson.ID,
		UnitID:      lesson.UnitID,
		CourseID:    lesson.Unit.CourseID,
		Title:       lesson.Title,
		Description: lesson.Description,
		XPReward:    lesson.XPReward,
		Status:      status,
		Exercises:   make([]ExerciseView, len(exercises)),
	}
	for i, e := range exercises {
		view.Exercises[i] = exerciseViewOf(e, latest)
	}

	if status == engine.StatusCompleted {
		progress, err := s.ProgressRepo.Find(ctx, userID, lessonID)
		if err != nil {
			return nil, err
		}
		if progress != nil {
			view.Score = progress.Score
		}
	}
	return view, nil
}

// StartLesson 记录 in_progress，已完成的课时保持 completed
func (s *LessonService) StartLesson(ctx context.Context, userID, lessonID uint) (engine.LessonStatus, error) {
	if _, _, err := s.accessibleLesson(ctx, userID, lessonID); err != nil {
		return "", err
	}
	return s.ProgressRepo.MarkInProgress(ctx, userID, lessonID)
}

type AnswerResult struct {
	AttemptID   string `json:"attemptId"`
	ExerciseID  uint   `json:"exerciseId"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

// SubmitAnswer 判定一次作答并记录
func (s *LessonService) SubmitAnswer(ctx context.Context, userID, exerciseID uint, answer engine.Answer) (result *AnswerResult, err error) {
	ctx, span := tracing.Start(ctx, "lesson.submit_answer", userID, attribute.Int("exercise_id", int(exerciseID)))
	defer func() { tracing.End(span, err) }()

	exercise, err := s.CourseRepo.FindExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.accessibleLesson(ctx, userID, exercise.LessonID); err != nil {
		return nil, err
	}

	correct, err := engine.Evaluate(exercise.ToEngine(), answer)
	if err != nil {
		return nil, err
	}

	attempt := &model.ExerciseAttempt{
		UserID:     userID,
		ExerciseID: exercise.ID,
		LessonID:   exercise.LessonID,
		Answer:     datatypes.NewJSONType(answer),
		IsCorrect:  correct,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.AttemptRepo.WithTx(tx).Create(ctx, attempt); err != nil {
			return err
		}
		_, err := s.ProgressRepo.WithTx(tx).MarkInProgress(ctx, userID, exercise.LessonID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	monitoring.ObserveAnswer(string(exercise.Kind), correct)
	span.SetAttributes(attribute.Bool("correct", correct))

	return &AnswerResult{
		AttemptID:   attempt.ID,
		ExerciseID:  exercise.ID,
		Correct:     correct,
		Explanation: exercise.Explanation,
	}, nil
}

type CompletionResult struct {
	LessonID        uint                `json:"lessonId"`
	Score           int                 `json:"score"`
	XPAwarded       int                 `json:"xpAwarded"`
	XP              int                 `json:"xp"`
	Level           int                 `json:"level"`
	LeveledUp       bool                `json:"leveledUp"`
	Streak          int                 `json:"streak"`
	FirstCompletion bool                `json:"firstCompletion"`
	Status          engine.LessonStatus `json:"status"`
	CompletedAt     time.Time           `json:"completedAt"`
	Achievements    []model.Achievement `json:"newAchievements"`
}

func profileToEngine(p *model.Profile) engine.Profile {
	out := engine.Profile{UserID: p.UserID, XP: p.XP, Level: p.Level, Streak: p.Streak}
	if p.LastActiveDate != nil {
		out.LastActive = *p.LastActiveDate
	}
	return out
}

// CompleteLesson 完成课时：档案和课时进度在同一事务内写入
func (s *LessonService) CompleteLesson(ctx context.Context, userID, lessonID uint) (result *CompletionResult, err error) {
	ctx, span := tracing.Start(ctx, "lesson.complete", userID, attribute.Int("lesson_id", int(lessonID)))
	defer func() { tracing.End(span, err) }()

	key := completionLockKey(userID, lessonID)
	token, ok, err := s.Locker.Acquire(ctx, key, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire completion lock: %w", err)
	}
	if !ok {
		return nil, util.ErrCompletionInProgress
	}
	defer func() {
		if err := s.Locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			logger.Ctx(ctx).Warn("Failed to release completion lock", zap.String("key", key), zap.Error(err))
		}
	}()

	lesson, _, err := s.accessibleLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	policy := s.RewardPolicy()
	var completion engine.Completion
	var unlocked []model.Achievement

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		profiles := s.ProfileRepo.WithTx(tx)
		progress := s.ProgressRepo.WithTx(tx)

		profile, err := profiles.FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		exerciseIDs, err := s.CourseRepo.WithTx(tx).ExerciseIDs(ctx, lessonID)
		if err != nil {
			return err
		}
		verdicts, err := s.AttemptRepo.WithTx(tx).Verdicts(ctx, userID, exerciseIDs)
		if err != nil {
			return err
		}
		previous, err := progress.Find(ctx, userID, lessonID)
		if err != nil {
			return err
		}
		var previousStatus engine.LessonStatus
		if previous != nil {
			previousStatus = previous.Status
		}

		completion, err = engine.CompleteLesson(engine.CompletionInput{
			Profile:        profileToEngine(profile),
			LessonID:       lesson.ID,
			XPReward:       lesson.XPReward,
			ExerciseIDs:    exerciseIDs,
			Verdicts:       verdicts,
			PreviousStatus: previousStatus,
			Policy:         policy,
			Now:            now,
			Location:       s.location,
		})
		if err != nil {
			return err
		}

		profile.XP = completion.Profile.XP
		profile.Level = completion.Profile.Level
		profile.Streak = completion.Profile.Streak
		lastActive := completion.Profile.LastActive
		profile.LastActiveDate = &lastActive
		if err := profiles.SaveProgression(ctx, profile); err != nil {
			return err
		}
		if err := progress.SaveCompletion(ctx, userID, lessonID, completion.Score, completion.CompletedAt); err != nil {
			return err
		}

		achievements := s.Achievements.WithTx(tx)
		stats, err := achievements.Stats(ctx, userID, profile)
		if err != nil {
			return err
		}
		unlocked, err = achievements.Evaluate(ctx, userID, stats, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	monitoring.ObserveCompletion(completion.Score, completion.XPAwarded, completion.FirstCompletion)
	logger.Ctx(ctx).Info("Lesson completed",
		zap.Uint("user_id", userID),
		zap.Uint("lesson_id", lessonID),
		zap.Int("score", completion.Score),
		zap.Int("xp_awarded", completion.XPAwarded),
		zap.String("policy", string(policy)),
	)

	publish(ctx, s.Publisher, SubjectLessonCompleted, LessonCompletedEvent{
		EventMeta:       newEventMeta(now),
		UserID:          userID,
		LessonID:        lessonID,
		Score:           completion.Score,
		XPAwarded:       completion.XPAwarded,
		XP:              completion.Profile.XP,
		Level:           completion.Profile.Level,
		Streak:          completion.Profile.Streak,
		FirstCompletion: completion.FirstCompletion,
		LeveledUp:       completion.LeveledUp,
	})
	s.Courses.announceUnlocks(ctx, userID, unlocked, now)

	if unlocked == nil {
		unlocked = []model.Achievement{}
	}
	return &CompletionResult{
		LessonID:        lessonID,
		Score:           completion.Score,
		XPAwarded:       completion.XPAwarded,
		XP:              completion.Profile.XP,
		Level:           completion.Profile.Level,
		LeveledUp:       completion.LeveledUp,
		Streak:          completion.Profile.Streak,
		FirstCompletion: completion.FirstCompletion,
		Status:          completion.Status,
		CompletedAt:     completion.CompletedAt,
		Achievements:    unlocked,
	}, nil
}
