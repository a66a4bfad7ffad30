package repository

import (
	"bravolearn_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

func (r *AchievementRepository) WithTx(tx *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: tx}
}

// Catalog 成就目录，按门槛升序
func (r *AchievementRepository) Catalog(ctx context.Context) ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.DB.WithContext(ctx).
		Order("requirement_value ASC").Order("id ASC").
		Find(&achievements).Error
	return achievements, err
}

func (r *AchievementRepository) UnlockedSet(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.UserAchievement{}).
		Where("user_id = ?", userID).
		Pluck("achievement_id", &ids).Error
	if err != nil {
		return nil, err
	}

	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// Unlock 追加解锁记录，已存在的忽略
func (r *AchievementRepository) Unlock(ctx context.Context, userID uint, achievementIDs []uint, at time.Time) error {
	if len(achievementIDs) == 0 {
		return nil
	}

	rows := make([]model.UserAchievement, len(achievementIDs))
	for i, id := range achievementIDs {
		rows[i] = model.UserAchievement{UserID: userID, AchievementID: id, UnlockedAt: at}
	}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *AchievementRepository) ListUnlocked(ctx context.Context, userID uint) ([]model.UserAchievement, error) {
	var rows []model.UserAchievement
	err := r.DB.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Order("unlocked_at ASC").
		Find(&rows).Error
	return rows, err
}

// UpsertByCode 按 code 写入成就定义
func (r *AchievementRepository) UpsertByCode(ctx context.Context, a *model.Achievement) (bool, error) {
	db := r.DB.WithContext(ctx)

	var existing model.Achievement
	err := db.Where("code = ?", a.Code).Limit(1).Find(&existing).Error
	if err != nil {
		return false, err
	}
	if existing.ID == 0 {
		return true, db.Create(a).Error
	}

	a.ID = existing.ID
	return false, db.Model(&existing).
		Select("name", "description", "icon", "requirement_type", "requirement_value").
		Updates(a).Error
}
