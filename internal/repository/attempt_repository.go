package repository

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) WithTx(tx *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: tx}
}

const maxSequenceRetries = 3

// Create 写入作答记录并分配 (user, exercise) 内的递增序号。
// 并发提交撞上唯一索引时在保存点内重试
func (r *AttemptRepository) Create(ctx context.Context, attempt *model.ExerciseAttempt) error {
	var err error
	for i := 0; i < maxSequenceRetries; i++ {
		err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var last int
			err := tx.Model(&model.ExerciseAttempt{}).
				Where("user_id = ? AND exercise_id = ?", attempt.UserID, attempt.ExerciseID).
				Select("COALESCE(MAX(sequence), 0)").
				Scan(&last).Error
			if err != nil {
				return err
			}
			attempt.Sequence = last + 1
			return tx.Create(attempt).Error
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return err
}

// Verdicts 按提交时间升序返回判定结果，同一时间戳按序号排序
func (r *AttemptRepository) Verdicts(ctx context.Context, userID uint, exerciseIDs []uint) ([]engine.Verdict, error) {
	if len(exerciseIDs) == 0 {
		return nil, nil
	}

	var attempts []model.ExerciseAttempt
	err := r.DB.WithContext(ctx).
		Select("exercise_id", "is_correct", "created_at", "sequence").
		Where("user_id = ? AND exercise_id IN ?", userID, exerciseIDs).
		Order("created_at ASC").Order("sequence ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}

	verdicts := make([]engine.Verdict, len(attempts))
	for i := range attempts {
		verdicts[i] = attempts[i].Verdict()
	}
	return verdicts, nil
}
