package repository

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct {
	DB *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

func (r *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	return &ProfileRepository{DB: tx}
}

func (r *ProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	return r.DB.WithContext(ctx).Create(profile).Error
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID uint) (*model.Profile, error) {
	return r.find(r.DB.WithContext(ctx), userID)
}

// FindByUserIDForUpdate 在事务内加行锁读取档案（SQLite 无行锁，整库串行写）
func (r *ProfileRepository) FindByUserIDForUpdate(ctx context.Context, userID uint) (*model.Profile, error) {
	q := r.DB.WithContext(ctx)
	if q.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(q, userID)
}

func (r *ProfileRepository) find(q *gorm.DB, userID uint) (*model.Profile, error) {
	var profile model.Profile
	err := q.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, engine.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// SaveProgression 只写进度相关字段
func (r *ProfileRepository) SaveProgression(ctx context.Context, profile *model.Profile) error {
	return r.DB.WithContext(ctx).Model(profile).
		Select("xp", "level", "streak", "last_active_date").
		Updates(profile).Error
}

func (r *ProfileRepository) UpdateAvatar(ctx context.Context, userID uint, url string) error {
	res := r.DB.WithContext(ctx).Model(&model.Profile{}).
		Where("user_id = ?", userID).
		Update("avatar_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return engine.ErrProfileNotFound
	}
	return nil
}

// Contenders 全量读取排行需要的字段
func (r *ProfileRepository) Contenders(ctx context.Context) ([]engine.Contender, error) {
	var profiles []model.Profile
	err := r.DB.WithContext(ctx).
		Select("user_id", "display_name", "avatar_url", "xp", "level").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}

	out := make([]engine.Contender, len(profiles))
	for i, p := range profiles {
		out[i] = engine.Contender{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
			XP:          p.XP,
			Level:       p.Level,
		}
	}
	return out, nil
}
