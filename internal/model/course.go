package model

import (
	"bravolearn_backend/internal/engine"

	"gorm.io/datatypes"
)

// swagger:model Course
type Course struct {
	BaseModel
	Slug        string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Language    string `gorm:"size:50" json:"language"`
	Difficulty  string `gorm:"size:20" json:"difficulty"`
	Color       string `gorm:"size:20" json:"color"`
	IsPublished bool   `gorm:"default:false;index" json:"isPublished"`
	OrderIndex  int    `gorm:"default:0" json:"orderIndex"`
	Units       []Unit `gorm:"foreignKey:CourseID" json:"units,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

type Unit struct {
	BaseModel
	CourseID    uint     `gorm:"uniqueIndex:idx_unit_course_order;not null" json:"courseId"`
	Title       string   `gorm:"size:200;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	OrderIndex  int      `gorm:"uniqueIndex:idx_unit_course_order" json:"orderIndex"`
	Lessons     []Lesson `gorm:"foreignKey:UnitID" json:"lessons,omitempty"`
}

func (Unit) TableName() string {
	return "units"
}

type Lesson struct {
	BaseModel
	UnitID      uint       `gorm:"uniqueIndex:idx_lesson_unit_order;not null" json:"unitId"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	OrderIndex  int        `gorm:"uniqueIndex:idx_lesson_unit_order" json:"orderIndex"`
	XPReward    int        `gorm:"default:10;not null" json:"xpReward"`
	Unit        *Unit      `gorm:"foreignKey:UnitID" json:"-"`
	Exercises   []Exercise `gorm:"foreignKey:LessonID" json:"exercises,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// Exercise 练习题，CorrectAnswer 不会返回给前端
type Exercise struct {
	BaseModel
	LessonID      uint                              `gorm:"uniqueIndex:idx_exercise_lesson_order;not null" json:"lessonId"`
	Kind          engine.ExerciseKind               `gorm:"size:32;not null" json:"type"`
	Prompt        string                            `gorm:"type:text;not null" json:"question"`
	Instructions  string                            `gorm:"type:text" json:"instructions,omitempty"`
	Options       datatypes.JSONSlice[string]       `json:"options,omitempty"`
	CorrectAnswer datatypes.JSONType[engine.Answer] `json:"-"`
	CodeSnippet   string                            `gorm:"type:text" json:"codeSnippet,omitempty"`
	Explanation   string                            `gorm:"type:text" json:"-"`
	Hints         datatypes.JSONSlice[string]       `json:"hints,omitempty"`
	OrderIndex    int                               `gorm:"uniqueIndex:idx_exercise_lesson_order" json:"orderIndex"`
}

func (Exercise) TableName() string {
	return "exercises"
}

func (e *Exercise) ToEngine() engine.Exercise {
	return engine.Exercise{
		ID:       e.ID,
		Kind:     e.Kind,
		Expected: e.CorrectAnswer.Data(),
	}
}
