package service

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	"bravolearn_backend/internal/repository"
	"bravolearn_backend/internal/util"
	"bravolearn_backend/pkg/logger"
	"bravolearn_backend/pkg/messaging"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CourseService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	ProgressRepo   *repository.ProgressRepository
	Achievements   *AchievementService
	Publisher      messaging.Publisher
	now            func() time.Time
}

func NewCourseService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	progressRepo *repository.ProgressRepository,
	achievements *AchievementService,
	publisher messaging.Publisher,
) *CourseService {
	return &CourseService{
		DB:             db,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		ProgressRepo:   progressRepo,
		Achievements:   achievements,
		Publisher:      publisher,
		now:            time.Now,
	}
}

type CourseSummary struct {
	model.Course
	Enrolled bool `json:"enrolled"`
}

type LessonOutline struct {
	ID          uint                `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	OrderIndex  int                 `json:"orderIndex"`
	XPReward    int                 `json:"xpReward"`
	Status      engine.LessonStatus `json:"status"`
}

type UnitOutline struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	OrderIndex  int             `json:"orderIndex"`
	Lessons     []LessonOutline `json:"lessons"`
}

type CourseOutline struct {
	ID          uint          `json:"id"`
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Language    string        `json:"language"`
	Difficulty  string        `json:"difficulty"`
	Color       string        `json:"color"`
	Enrolled    bool          `json:"enrolled"`
	Completed   int           `json:"completedLessons"`
	Total       int           `json:"totalLessons"`
	Units       []UnitOutline `json:"units"`
}

// ListPublished userID 为 0 时表示匿名访问
func (s *CourseService) ListPublished(ctx context.Context, userID uint) ([]CourseSummary, error) {
	courses, err := s.CourseRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}

	enrolled := map[uint]bool{}
	if userID != 0 {
		rows, err := s.EnrollmentRepo.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, e := range rows {
			enrolled[e.CourseID] = true
		}
	}

	out := make([]CourseSummary, len(courses))
	for i, c := range courses {
		out[i] = CourseSummary{Course: c, Enrolled: enrolled[c.ID]}
	}
	return out, nil
}

func (s *CourseService) publishedCourse(ctx context.Context, courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindOutline(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	if !course.IsPublished {
		return nil, util.ErrCourseNotFound
	}
	return course, nil
}

// Outline 课程大纲，每个课时附带当前用户的可访问状态
func (s *CourseService) Outline(ctx context.Context, userID, courseID uint) (*CourseOutline, error) {
	course, err := s.publishedCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.EnrollmentRepo.IsEnrolled(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	var allIDs []uint
	for _, u := range course.Units {
		for _, l := range u.Lessons {
			allIDs = append(allIDs, l.ID)
		}
	}
	recorded, err := s.ProgressRepo.StatusMap(ctx, userID, allIDs)
	if err != nil {
		return nil, err
	}

	out := &CourseOutline{
		ID:          course.ID,
		Slug:        course.Slug,
		Title:       course.Title,
		Description: course.Description,
		Language:    course.Language,
		Difficulty:  course.Difficulty,
		Color:       course.Color,
		Enrolled:    enrolled,
		Total:       len(allIDs),
		Units:       make([]UnitOutline, 0, len(course.Units)),
	}
	for _, u := range course.Units {
		ids := make([]uint, len(u.Lessons))
		for i, l := range u.Lessons {
			ids[i] = l.ID
		}
		access := engine.ResolveAccess(ids, enrolled, recorded)

		unit := UnitOutline{
			ID:          u.ID,
			Title:       u.Title,
			Description: u.Description,
			OrderIndex:  u.OrderIndex,
			Lessons:     make([]LessonOutline, len(u.Lessons)),
		}
		for i, l := range u.Lessons {
			unit.Lessons[i] = LessonOutline{
				ID:          l.ID,
				Title:       l.Title,
				Description: l.Description,
				OrderIndex:  l.OrderIndex,
				XPReward:    l.XPReward,
				Status:      access[i].Status,
			}
			if access[i].Status == engine.StatusCompleted {
				out.Completed++
			}
		}
		out.Units = append(out.Units, unit)
	}
	return out, nil
}

type EnrollResult struct {
	CourseID     uint                `json:"courseId"`
	Created      bool                `json:"created"`
	Achievements []model.Achievement `json:"newAchievements"`
}

// Enroll 幂等报名；新报名会触发成就判定
func (s *CourseService) Enroll(ctx context.Context, userID, courseID uint) (*EnrollResult, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !course.IsPublished) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &EnrollResult{CourseID: courseID, Achievements: []model.Achievement{}}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		created, err := s.EnrollmentRepo.WithTx(tx).Enroll(ctx, userID, courseID)
		if err != nil {
			return err
		}
		result.Created = created
		if !created {
			return nil
		}

		achievements := s.Achievements.WithTx(tx)
		stats, err := achievements.Stats(ctx, userID, nil)
		if err != nil {
			return err
		}
		unlocked, err := achievements.Evaluate(ctx, userID, stats, now)
		if err != nil {
			return err
		}
		result.Achievements = append(result.Achievements, unlocked...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Created {
		logger.Ctx(ctx).Info("Learner enrolled", zap.Uint("user_id", userID), zap.Uint("course_id", courseID))
		publish(ctx, s.Publisher, SubjectCourseEnrolled, CourseEnrolledEvent{
			EventMeta: newEventMeta(now),
			UserID:    userID,
			CourseID:  courseID,
		})
		s.announceUnlocks(ctx, userID, result.Achievements, now)
	}
	return result, nil
}

func (s *CourseService) announceUnlocks(ctx context.Context, userID uint, achievements []model.Achievement, at time.Time) {
	observeUnlocks(achievements)
	for _, a := range achievements {
		publish(ctx, s.Publisher, SubjectAchievementUnlocked, AchievementUnlockedEvent{
			EventMeta:     newEventMeta(at),
			UserID:        userID,
			AchievementID: a.ID,
			Code:          a.Code,
		})
	}
}

// LessonStatus 解析单个课时对当前用户的状态（按所在单元的顺序规则）
func (s *CourseService) LessonStatus(ctx context.Context, userID uint, lesson *model.Lesson) (engine.LessonStatus, error) {
	if lesson.Unit == nil {
		return "", engine.ErrLessonNotFound
	}
	enrolled, err := s.EnrollmentRepo.IsEnrolled(ctx, userID, lesson.Unit.CourseID)
	if err != nil {
		return "", err
	}
	ids, err := s.CourseRepo.LessonIDsInUnit(ctx, lesson.UnitID)
	if err != nil {
		return "", err
	}
	recorded, err := s.ProgressRepo.StatusMap(ctx, userID, ids)
	if err != nil {
		return "", err
	}

	status, ok := engine.AccessOf(engine.ResolveAccess(ids, enrolled, recorded), lesson.ID)
	if !ok {
		return "", engine.ErrLessonNotFound
	}
	return status, nil
}
