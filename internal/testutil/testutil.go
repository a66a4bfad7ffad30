// Package testutil 提供基于内存 SQLite 的测试数据库和课程夹具
package testutil

import (
	"bravolearn_backend/internal/config"
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	"bravolearn_backend/pkg/database"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NewDB 每个测试一个独立的内存库，已迁移并写入默认成就
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, "release")
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateLearner 创建用户和档案
func CreateLearner(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()

	user := &model.User{
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "x",
		Role:     model.Learner,
	}
	require.NoError(t, db.Create(user).Error)
	profile := &model.Profile{UserID: user.ID, DisplayName: name, Level: 1}
	require.NoError(t, db.Create(profile).Error)
	user.Profile = profile
	return user
}

// Course 夹具：一个单元、三个课时，每个课时两道题
type Course struct {
	Course    *model.Course
	Unit      *model.Unit
	Lessons   []*model.Lesson
	Exercises map[uint][]*model.Exercise // 按课时 ID
}

// Correct 返回课时第 i 题的标准答案
func (c *Course) Correct(lessonID uint, i int) engine.Answer {
	return c.Exercises[lessonID][i].CorrectAnswer.Data()
}

// SeedCourse 写入已发布课程，xpReward 作用于每个课时
func SeedCourse(t *testing.T, db *gorm.DB, slug string, xpReward int) *Course {
	t.Helper()

	course := &model.Course{Slug: slug, Title: "Course " + slug, Language: "go", IsPublished: true}
	require.NoError(t, db.Create(course).Error)
	unit := &model.Unit{CourseID: course.ID, Title: "Basics", OrderIndex: 1}
	require.NoError(t, db.Create(unit).Error)

	out := &Course{Course: course, Unit: unit, Exercises: map[uint][]*model.Exercise{}}
	for i := 1; i <= 3; i++ {
		lesson := &model.Lesson{UnitID: unit.ID, Title: fmt.Sprintf("Lesson %d", i), OrderIndex: i, XPReward: xpReward}
		require.NoError(t, db.Create(lesson).Error)
		out.Lessons = append(out.Lessons, lesson)

		exercises := []*model.Exercise{
			{
				LessonID:      lesson.ID,
				Kind:          engine.KindMultipleChoice,
				Prompt:        "Which keyword declares a variable?",
				Options:       datatypes.JSONSlice[string]{"var", "let", "def"},
				CorrectAnswer: datatypes.NewJSONType(engine.SingleAnswer("var")),
				Explanation:   "var declares a variable",
				OrderIndex:    1,
			},
			{
				LessonID:      lesson.ID,
				Kind:          engine.KindFillBlank,
				Prompt:        "for ___ := range ___",
				CorrectAnswer: datatypes.NewJSONType(engine.KeyedAnswer(map[string]string{"blank1": "i", "blank2": "items"})),
				OrderIndex:    2,
			},
		}
		for _, e := range exercises {
			require.NoError(t, db.Create(e).Error)
		}
		out.Exercises[lesson.ID] = exercises
	}
	return out
}
