package service

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/repository"
	"bravolearn_backend/internal/testutil"
	"bravolearn_backend/pkg/messaging"
	"time"

	"testing"

	"gorm.io/gorm"
)

type fixture struct {
	db           *gorm.DB
	pub          *messaging.MemoryPublisher
	courses      *CourseService
	lessons      *LessonService
	achievements *AchievementService
	leaderboard  *LeaderboardService
	profiles     *ProfileService
	catalog      *CatalogService
	clock        time.Time
}

func newFixture(t *testing.T, policy engine.RewardPolicy) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	pub := messaging.NewMemoryPublisher("bravolearn")

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)

	f := &fixture{
		db:    db,
		pub:   pub,
		clock: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.achievements = NewAchievementService(achievementRepo, progressRepo, enrollmentRepo, profileRepo)
	f.courses = NewCourseService(db, courseRepo, enrollmentRepo, progressRepo, f.achievements, pub)
	f.courses.now = func() time.Time { return f.clock }
	f.lessons = NewLessonService(db, courseRepo, progressRepo, attemptRepo, profileRepo, f.courses, f.achievements,
		NewMemoryLocker(), pub, LessonServiceOptions{Policy: policy, Location: time.UTC})
	f.lessons.now = func() time.Time { return f.clock }
	f.leaderboard = NewLeaderboardService(profileRepo)
	f.profiles = NewProfileService(userRepo, profileRepo, progressRepo, enrollmentRepo, f.achievements, f.leaderboard, nil)
	f.catalog = NewCatalogService(db, repository.NewCatalogRepository(db), achievementRepo)
	return f
}

func (f *fixture) subjects() []string {
	var out []string
	for _, m := range f.pub.Messages() {
		out = append(out, m.Subject)
	}
	return out
}
