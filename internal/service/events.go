package service

import (
	"bravolearn_backend/pkg/logger"
	"bravolearn_backend/pkg/messaging"
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SubjectLessonCompleted     = "lesson.completed"
	SubjectAchievementUnlocked = "achievement.unlocked"
	SubjectCourseEnrolled      = "course.enrolled"
)

type EventMeta struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurredAt"`
}

func newEventMeta(at time.Time) EventMeta {
	return EventMeta{ID: uuid.NewString(), OccurredAt: at}
}

type LessonCompletedEvent struct {
	EventMeta
	UserID          uint `json:"userId"`
	LessonID        uint `json:"lessonId"`
	Score           int  `json:"score"`
	XPAwarded       int  `json:"xpAwarded"`
	XP              int  `json:"xp"`
	Level           int  `json:"level"`
	Streak          int  `json:"streak"`
	FirstCompletion bool `json:"firstCompletion"`
	LeveledUp       bool `json:"leveledUp"`
}

type AchievementUnlockedEvent struct {
	EventMeta
	UserID        uint   `json:"userId"`
	AchievementID uint   `json:"achievementId"`
	Code          string `json:"code"`
}

type CourseEnrolledEvent struct {
	EventMeta
	UserID   uint `json:"userId"`
	CourseID uint `json:"courseId"`
}

// publish 事件在事务提交后尽力投递，失败只记日志
func publish(ctx context.Context, p messaging.Publisher, subject string, event any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, event); err != nil {
		logger.Ctx(ctx).Warn("Failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
