package repository

import (
	"bravolearn_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

// CatalogRepository 课程目录导入，按自然键幂等写入
type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

func (r *CatalogRepository) WithTx(tx *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: tx}
}

func (r *CatalogRepository) SaveCourse(ctx context.Context, c *model.Course) error {
	return r.DB.WithContext(ctx).
		Where(model.Course{Slug: c.Slug}).
		Assign(map[string]any{
			"title":        c.Title,
			"description":  c.Description,
			"language":     c.Language,
			"difficulty":   c.Difficulty,
			"color":        c.Color,
			"is_published": c.IsPublished,
			"order_index":  c.OrderIndex,
		}).
		FirstOrCreate(c).Error
}

func (r *CatalogRepository) SaveUnit(ctx context.Context, u *model.Unit) error {
	return r.DB.WithContext(ctx).
		Where("course_id = ? AND order_index = ?", u.CourseID, u.OrderIndex).
		Assign(map[string]any{
			"title":       u.Title,
			"description": u.Description,
		}).
		FirstOrCreate(u).Error
}

func (r *CatalogRepository) SaveLesson(ctx context.Context, l *model.Lesson) error {
	return r.DB.WithContext(ctx).
		Where("unit_id = ? AND order_index = ?", l.UnitID, l.OrderIndex).
		Assign(map[string]any{
			"title":       l.Title,
			"description": l.Description,
			"xp_reward":   l.XPReward,
		}).
		FirstOrCreate(l).Error
}

func (r *CatalogRepository) SaveExercise(ctx context.Context, e *model.Exercise) error {
	return r.DB.WithContext(ctx).
		Where("lesson_id = ? AND order_index = ?", e.LessonID, e.OrderIndex).
		Assign(map[string]any{
			"kind":           e.Kind,
			"prompt":         e.Prompt,
			"instructions":   e.Instructions,
			"options":        e.Options,
			"correct_answer": e.CorrectAnswer,
			"code_snippet":   e.CodeSnippet,
			"explanation":    e.Explanation,
			"hints":          e.Hints,
		}).
		FirstOrCreate(e).Error
}

// 目录收缩时物理删除多余的行，顺序号唯一索引不允许软删除残留

// PruneExercises 删除课时中顺序号大于 keep 的练习
func (r *CatalogRepository) PruneExercises(ctx context.Context, lessonID uint, keep int) (int64, error) {
	res := r.DB.WithContext(ctx).Unscoped().
		Where("lesson_id = ? AND order_index > ?", lessonID, keep).
		Delete(&model.Exercise{})
	return res.RowsAffected, res.Error
}

// PruneLessons 删除单元中顺序号大于 keep 的课时及其练习
func (r *CatalogRepository) PruneLessons(ctx context.Context, unitID uint, keep int) (int64, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Unscoped().Model(&model.Lesson{}).
		Where("unit_id = ? AND order_index > ?", unitID, keep).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	return r.deleteLessons(ctx, ids)
}

// PruneUnits 删除课程中顺序号大于 keep 的单元及其课时、练习
func (r *CatalogRepository) PruneUnits(ctx context.Context, courseID uint, keep int) (int64, error) {
	db := r.DB.WithContext(ctx).Unscoped()

	var unitIDs []uint
	err := db.Model(&model.Unit{}).
		Where("course_id = ? AND order_index > ?", courseID, keep).
		Pluck("id", &unitIDs).Error
	if err != nil || len(unitIDs) == 0 {
		return 0, err
	}

	var lessonIDs []uint
	if err := db.Model(&model.Lesson{}).Where("unit_id IN ?", unitIDs).Pluck("id", &lessonIDs).Error; err != nil {
		return 0, err
	}
	removed, err := r.deleteLessons(ctx, lessonIDs)
	if err != nil {
		return 0, err
	}

	res := db.Where("id IN ?", unitIDs).Delete(&model.Unit{})
	return removed + res.RowsAffected, res.Error
}

func (r *CatalogRepository) deleteLessons(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := r.DB.WithContext(ctx).Unscoped()

	exercises := db.Where("lesson_id IN ?", ids).Delete(&model.Exercise{})
	if exercises.Error != nil {
		return 0, exercises.Error
	}
	lessons := db.Where("id IN ?", ids).Delete(&model.Lesson{})
	return exercises.RowsAffected + lessons.RowsAffected, lessons.Error
}
