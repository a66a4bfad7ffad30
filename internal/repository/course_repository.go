package repository

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

func (r *CourseRepository) ListPublished(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.WithContext(ctx).
		Where("is_published = ?", true).
		Order("order_index ASC").Order("id ASC").
		Find(&courses).Error
	return courses, err
}

// FindOutline 加载课程及其单元、课时（按顺序），不含练习题
func (r *CourseRepository) FindOutline(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Units", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC").Order("id ASC")
		}).
		Preload("Units.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC").Order("id ASC")
		}).
		First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	if err := r.DB.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindLesson(ctx context.Context, id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).Preload("Unit").First(&lesson, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, engine.ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// LessonIDsInUnit 单元内课时 ID，按课时顺序
func (r *CourseRepository) LessonIDsInUnit(ctx context.Context, unitID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Lesson{}).
		Where("unit_id = ?", unitID).
		Order("order_index ASC").Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *CourseRepository) Exercises(ctx context.Context, lessonID uint) ([]model.Exercise, error) {
	var exercises []model.Exercise
	err := r.DB.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("order_index ASC").Order("id ASC").
		Find(&exercises).Error
	return exercises, err
}

func (r *CourseRepository) ExerciseIDs(ctx context.Context, lessonID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Exercise{}).
		Where("lesson_id = ?", lessonID).
		Order("order_index ASC").Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *CourseRepository) FindExercise(ctx context.Context, id uint) (*model.Exercise, error) {
	var exercise model.Exercise
	err := r.DB.WithContext(ctx).First(&exercise, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, engine.ErrExerciseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}
