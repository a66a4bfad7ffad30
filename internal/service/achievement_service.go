package service

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	"bravolearn_backend/internal/repository"
	"bravolearn_backend/pkg/monitoring"
	"context"
	"time"

	"gorm.io/gorm"
)

type AchievementService struct {
	AchievementRepo *repository.AchievementRepository
	ProgressRepo    *repository.ProgressRepository
	EnrollmentRepo  *repository.EnrollmentRepository
	ProfileRepo     *repository.ProfileRepository
}

func NewAchievementService(
	achievementRepo *repository.AchievementRepository,
	progressRepo *repository.ProgressRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	profileRepo *repository.ProfileRepository,
) *AchievementService {
	return &AchievementService{
		AchievementRepo: achievementRepo,
		ProgressRepo:    progressRepo,
		EnrollmentRepo:  enrollmentRepo,
		ProfileRepo:     profileRepo,
	}
}

// WithTx 返回绑定到事务的副本
func (s *AchievementService) WithTx(tx *gorm.DB) *AchievementService {
	return &AchievementService{
		AchievementRepo: s.AchievementRepo.WithTx(tx),
		ProgressRepo:    s.ProgressRepo.WithTx(tx),
		EnrollmentRepo:  s.EnrollmentRepo.WithTx(tx),
		ProfileRepo:     s.ProfileRepo.WithTx(tx),
	}
}

// Stats 汇总成就判定需要的学习数据；profile 为 nil 时从库中读取
func (s *AchievementService) Stats(ctx context.Context, userID uint, profile *model.Profile) (engine.LearnerStats, error) {
	if profile == nil {
		p, err := s.ProfileRepo.FindByUserID(ctx, userID)
		if err != nil {
			return engine.LearnerStats{}, err
		}
		profile = p
	}

	summary, err := s.ProgressRepo.Summary(ctx, userID)
	if err != nil {
		return engine.LearnerStats{}, err
	}
	enrolled, err := s.EnrollmentRepo.CountByUser(ctx, userID)
	if err != nil {
		return engine.LearnerStats{}, err
	}

	return engine.LearnerStats{
		LessonsCompleted: summary.LessonsCompleted,
		Streak:           profile.Streak,
		XP:               profile.XP,
		Level:            engine.Level(profile.XP),
		PerfectLessons:   summary.PerfectLessons,
		CoursesEnrolled:  enrolled,
	}, nil
}

// Evaluate 判定并写入新解锁的成就，返回本次解锁的成就（按目录顺序）
func (s *AchievementService) Evaluate(ctx context.Context, userID uint, stats engine.LearnerStats, at time.Time) ([]model.Achievement, error) {
	catalog, err := s.AchievementRepo.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.AchievementRepo.UnlockedSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	rules := make([]engine.AchievementRule, len(catalog))
	byID := make(map[uint]model.Achievement, len(catalog))
	for i := range catalog {
		rules[i] = catalog[i].Rule()
		byID[catalog[i].ID] = catalog[i]
	}

	fresh := engine.ResolveAchievements(rules, stats, unlocked)
	if len(fresh) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(fresh))
	out := make([]model.Achievement, len(fresh))
	for i, r := range fresh {
		ids[i] = r.ID
		out[i] = byID[r.ID]
	}
	if err := s.AchievementRepo.Unlock(ctx, userID, ids, at); err != nil {
		return nil, err
	}
	return out, nil
}

func observeUnlocks(achievements []model.Achievement) {
	for _, a := range achievements {
		monitoring.ObserveUnlock(a.Code)
	}
}

type AchievementView struct {
	model.Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
	Progress   int        `json:"progress"`
}

// ListForUser 成就目录及当前用户的解锁情况
func (s *AchievementService) ListForUser(ctx context.Context, userID uint) ([]AchievementView, error) {
	catalog, err := s.AchievementRepo.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.AchievementRepo.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	unlockedAt := make(map[uint]time.Time, len(rows))
	for _, r := range rows {
		unlockedAt[r.AchievementID] = r.UnlockedAt
	}

	views := make([]AchievementView, 0, len(catalog))
	for _, a := range catalog {
		v := AchievementView{Achievement: a, Progress: stats.Value(a.RequirementType)}
		if at, ok := unlockedAt[a.ID]; ok {
			at := at
			v.Unlocked = true
			v.UnlockedAt = &at
		}
		if v.Progress > a.RequirementValue {
			v.Progress = a.RequirementValue
		}
		views = append(views, v)
	}
	return views, nil
}
