package service

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	"bravolearn_backend/internal/repository"
	"bravolearn_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileService struct {
	UserRepo       *repository.UserRepository
	ProfileRepo    *repository.ProfileRepository
	ProgressRepo   *repository.ProgressRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Achievements   *AchievementService
	Leaderboard    *LeaderboardService
	Storage        *StorageService
}

func NewProfileService(
	userRepo *repository.UserRepository,
	profileRepo *repository.ProfileRepository,
	progressRepo *repository.ProgressRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	achievements *AchievementService,
	leaderboard *LeaderboardService,
	storage *StorageService,
) *ProfileService {
	return &ProfileService{
		UserRepo:       userRepo,
		ProfileRepo:    profileRepo,
		ProgressRepo:   progressRepo,
		EnrollmentRepo: enrollmentRepo,
		Achievements:   achievements,
		Leaderboard:    leaderboard,
		Storage:        storage,
	}
}

type ProfileStats struct {
	engine.LearnerStats
	AverageScore         int `json:"averageScore"`
	AchievementsUnlocked int `json:"achievementsUnlocked"`
}

type ProfileOverview struct {
	Email    string               `json:"email"`
	Role     model.UserRole       `json:"role"`
	Profile  *model.Profile       `json:"profile"`
	Progress engine.LevelProgress `json:"levelProgress"`
	Stats    ProfileStats         `json:"stats"`
	Rank     int                  `json:"rank"`
	Ranked   int                  `json:"rankedLearners"`
}

// Overview 个人主页数据：等级进度、学习统计和排名
func (s *ProfileService) Overview(ctx context.Context, userID uint) (*ProfileOverview, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	profile, err := s.ProfileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.Achievements.Stats(ctx, userID, profile)
	if err != nil {
		return nil, err
	}
	summary, err := s.ProgressRepo.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.Achievements.AchievementRepo.UnlockedSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	entry, ranked, err := s.Leaderboard.RankOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ProfileOverview{
		Email:    user.Email,
		Role:     user.Role,
		Profile:  profile,
		Progress: engine.ProgressForXP(profile.XP),
		Stats: ProfileStats{
			LearnerStats:         stats,
			AverageScore:         int(math.Round(summary.AverageScore)),
			AchievementsUnlocked: len(unlocked),
		},
		Rank:   entry.Position,
		Ranked: ranked,
	}, nil
}

// UploadAvatar 校验图片内容后写入存储并更新头像地址
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uint, file *multipart.FileHeader) (string, error) {
	if file.Size > util.MaxAvatarSize {
		return "", util.ErrFileTooLarge
	}
	ext, err := util.AvatarExtension(file.Filename)
	if err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	// 深度验证 MIME 类型
	mimeType, err := util.ValidateMimeType(src, []string{util.MimeImage})
	if err != nil {
		return "", err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("avatars/%d/%s_%s%s", userID, time.Now().Format("20060102150405"), uuid.NewString()[:8], ext)
	url, err := s.Storage.Upload(ctx, filename, src, file.Size, mimeType)
	if err != nil {
		return "", err
	}

	if err := s.ProfileRepo.UpdateAvatar(ctx, userID, url); err != nil {
		return "", err
	}
	return url, nil
}

type DebugState struct {
	Profile      *model.Profile          `json:"profile"`
	Enrollments  []model.Enrollment      `json:"enrollments"`
	Progress     []model.LessonProgress  `json:"progress"`
	Achievements []model.UserAchievement `json:"achievements"`
	Stats        engine.LearnerStats     `json:"stats"`
}

// DebugState 原始学习状态，仅管理员可见
func (s *ProfileService) DebugState(ctx context.Context, userID uint) (*DebugState, error) {
	profile, err := s.ProfileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.EnrollmentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	progress, err := s.ProgressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	achievements, err := s.Achievements.AchievementRepo.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.Achievements.Stats(ctx, userID, profile)
	if err != nil {
		return nil, err
	}

	return &DebugState{
		Profile:      profile,
		Enrollments:  enrollments,
		Progress:     progress,
		Achievements: achievements,
		Stats:        stats,
	}, nil
}
