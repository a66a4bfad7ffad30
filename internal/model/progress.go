package model

import (
	"bravolearn_backend/internal/engine"
	"time"

	"gorm.io/datatypes"
)

type Enrollment struct {
	BaseModel
	UserID   uint `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"userId"`
	CourseID uint `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"courseId"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

type LessonProgress struct {
	BaseModel
	UserID      uint                `gorm:"uniqueIndex:idx_progress_user_lesson;not null" json:"userId"`
	LessonID    uint                `gorm:"uniqueIndex:idx_progress_user_lesson;not null" json:"lessonId"`
	Status      engine.LessonStatus `gorm:"size:20;not null" json:"status"`
	Score       *int                `json:"score,omitempty"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}

// ExerciseAttempt 作答记录，每次提交一条
type ExerciseAttempt struct {
	UUIDBase
	UserID     uint                              `gorm:"uniqueIndex:idx_attempt_user_exercise_seq;not null" json:"userId"`
	ExerciseID uint                              `gorm:"uniqueIndex:idx_attempt_user_exercise_seq;not null" json:"exerciseId"`
	Sequence   int                               `gorm:"uniqueIndex:idx_attempt_user_exercise_seq;not null" json:"sequence"` // 同一学习者同一练习内递增
	LessonID   uint                              `gorm:"index;not null" json:"lessonId"`
	Answer     datatypes.JSONType[engine.Answer] `json:"answer"`
	IsCorrect  bool                              `json:"isCorrect"`
}

func (ExerciseAttempt) TableName() string {
	return "exercise_attempts"
}

func (a *ExerciseAttempt) Verdict() engine.Verdict {
	return engine.Verdict{ExerciseID: a.ExerciseID, Correct: a.IsCorrect, At: a.CreatedAt}
}
