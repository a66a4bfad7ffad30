package engine

type RequirementKind string

const (
	RequireLessonsCompleted RequirementKind = "lessons_completed"
	RequireStreak           RequirementKind = "streak"
	RequireXP               RequirementKind = "xp"
	RequireLevel            RequirementKind = "level"
	RequirePerfectLessons   RequirementKind = "perfect_lessons"
	RequireCoursesEnrolled  RequirementKind = "courses_enrolled"
)

func (k RequirementKind) Valid() bool {
	_, ok := LearnerStats{}.value(k)
	return ok
}

type AchievementRule struct {
	ID        uint
	Kind      RequirementKind
	Threshold int
}

type LearnerStats struct {
	LessonsCompleted int `json:"lessonsCompleted"`
	Streak           int `json:"streak"`
	XP               int `json:"xp"`
	Level            int `json:"level"`
	PerfectLessons   int `json:"perfectLessons"`
	CoursesEnrolled  int `json:"coursesEnrolled"`
}

func (s LearnerStats) value(kind RequirementKind) (int, bool) {
	switch kind {
	case RequireLessonsCompleted:
		return s.LessonsCompleted, true
	case RequireStreak:
		return s.Streak, true
	case RequireXP:
		return s.XP, true
	case RequireLevel:
		return s.Level, true
	case RequirePerfectLessons:
		return s.PerfectLessons, true
	case RequireCoursesEnrolled:
		return s.CoursesEnrolled, true
	}
	return 0, false
}

// Value returns the stat a requirement kind measures, 0 for unknown kinds.
func (s LearnerStats) Value(kind RequirementKind) int {
	v, _ := s.value(kind)
	return v
}

// Satisfied reports stat >= threshold. Unknown kinds are never satisfied.
func (r AchievementRule) Satisfied(stats LearnerStats) bool {
	v, ok := stats.value(r.Kind)
	return ok && v >= r.Threshold
}

// ResolveAchievements returns the rules newly met by stats, in catalog order.
// Rules already in unlocked are skipped and never reconsidered.
func ResolveAchievements(catalog []AchievementRule, stats LearnerStats, unlocked map[uint]bool) []AchievementRule {
	var out []AchievementRule
	for _, rule := range catalog {
		if unlocked[rule.ID] {
			continue
		}
		if rule.Satisfied(stats) {
			out = append(out, rule)
		}
	}
	return out
}
