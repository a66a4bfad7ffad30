package repository

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

// StatusMap 返回 lessonIDs 中已有记录的状态
func (r *ProgressRepository) StatusMap(ctx context.Context, userID uint, lessonIDs []uint) (map[uint]engine.LessonStatus, error) {
	out := make(map[uint]engine.LessonStatus, len(lessonIDs))
	if len(lessonIDs) == 0 {
		return out, nil
	}

	var rows []model.LessonProgress
	err := r.DB.WithContext(ctx).
		Select("lesson_id", "status").
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.LessonID] = row.Status
	}
	return out, nil
}

// Find 无记录时返回 nil, nil
func (r *ProgressRepository) Find(ctx context.Context, userID, lessonID uint) (*model.LessonProgress, error) {
	var p model.LessonProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkInProgress 首次进入课时记录 in_progress，已完成的不回退
func (r *ProgressRepository) MarkInProgress(ctx context.Context, userID, lessonID uint) (engine.LessonStatus, error) {
	db := r.DB.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.LessonProgress{UserID: userID, LessonID: lessonID, Status: engine.StatusInProgress}).Error
	if err != nil {
		return "", err
	}

	err = db.Model(&model.LessonProgress{}).
		Where("user_id = ? AND lesson_id = ? AND status IN ?", userID, lessonID,
			[]engine.LessonStatus{engine.StatusLocked, engine.StatusUnlocked}).
		Update("status", engine.StatusInProgress).Error
	if err != nil {
		return "", err
	}

	p, err := r.Find(ctx, userID, lessonID)
	if err != nil {
		return "", err
	}
	return p.Status, nil
}

// SaveCompletion 写入完成状态，重复完成时覆盖分数和时间
func (r *ProgressRepository) SaveCompletion(ctx context.Context, userID, lessonID uint, score int, at time.Time) error {
	row := model.LessonProgress{
		UserID:      userID,
		LessonID:    lessonID,
		Status:      engine.StatusCompleted,
		Score:       &score,
		CompletedAt: &at,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "score", "completed_at", "updated_at"}),
	}).Create(&row).Error
}

type ProgressSummary struct {
	LessonsCompleted int
	PerfectLessons   int
	AverageScore     float64
}

func (r *ProgressRepository) Summary(ctx context.Context, userID uint) (ProgressSummary, error) {
	var row struct {
		Completed int64
		Perfect   int64
		Average   *float64
	}
	err := r.DB.WithContext(ctx).Model(&model.LessonProgress{}).
		Select("COUNT(*) AS completed, COALESCE(SUM(CASE WHEN score = 100 THEN 1 ELSE 0 END), 0) AS perfect, AVG(score) AS average").
		Where("user_id = ? AND status = ?", userID, engine.StatusCompleted).
		Scan(&row).Error
	if err != nil {
		return ProgressSummary{}, err
	}

	s := ProgressSummary{LessonsCompleted: int(row.Completed), PerfectLessons: int(row.Perfect)}
	if row.Average != nil {
		s.AverageScore = *row.Average
	}
	return s, nil
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID uint) ([]model.LessonProgress, error) {
	var rows []model.LessonProgress
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("lesson_id ASC").Find(&rows).Error
	return rows, err
}
