package engine

import (
	"fmt"
	"math"
	"time"
)

// RewardPolicy decides whether finishing an already completed lesson pays XP again.
type RewardPolicy string

const (
	RewardFirstCompletionOnly RewardPolicy = "first_completion_only"
	RewardEveryCompletion     RewardPolicy = "every_completion"
)

func ParseRewardPolicy(s string) (RewardPolicy, error) {
	switch RewardPolicy(s) {
	case "", RewardFirstCompletionOnly:
		return RewardFirstCompletionOnly, nil
	case RewardEveryCompletion:
		return RewardEveryCompletion, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRewardPolicy, s)
}

const xpPerLevelUnit = 100

type Profile struct {
	UserID     uint
	XP         int
	Level      int
	Streak     int
	LastActive time.Time // zero when the learner has never been active
}

// Level 根据经验值计算等级: floor(sqrt(xp/100)) + 1
func Level(xp int) int {
	if xp <= 0 {
		return 1
	}
	l := int(math.Sqrt(float64(xp) / xpPerLevelUnit))
	// 浮点误差修正
	for l > 0 && xpPerLevelUnit*l*l > xp {
		l--
	}
	for xpPerLevelUnit*(l+1)*(l+1) <= xp {
		l++
	}
	return l + 1
}

// XPForLevel is the minimum XP of the given level, 100*(L-1)^2.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return xpPerLevelUnit * (level - 1) * (level - 1)
}

type LevelProgress struct {
	Level          int `json:"level"`
	CurrentLevelXP int `json:"currentLevelXp"`
	NextLevelXP    int `json:"nextLevelXp"`
	ProgressXP     int `json:"progressXp"`
	RequiredXP     int `json:"requiredXp"`
	Percent        int `json:"percent"`
}

// ProgressForXP 计算当前等级内的进度
func ProgressForXP(xp int) LevelProgress {
	if xp < 0 {
		xp = 0
	}
	level := Level(xp)
	current := XPForLevel(level)
	next := XPForLevel(level + 1)
	p := LevelProgress{
		Level:          level,
		CurrentLevelXP: current,
		NextLevelXP:    next,
		ProgressXP:     xp - current,
		RequiredXP:     next - current,
	}
	if p.RequiredXP > 0 {
		p.Percent = p.ProgressXP * 100 / p.RequiredXP
	}
	return p
}

// LessonScore returns round(100*correct/total) using the latest verdict per
// exercise. Every exercise of the lesson must have been answered.
func LessonScore(exerciseIDs []uint, verdicts []Verdict) (int, error) {
	total := len(exerciseIDs)
	if total == 0 {
		return 0, ErrEmptyLesson
	}

	latest := LatestVerdicts(verdicts)
	correct := 0
	for _, id := range exerciseIDs {
		v, ok := latest[id]
		if !ok {
			return 0, fmt.Errorf("%w: exercise %d", ErrLessonNotEvaluated, id)
		}
		if v.Correct {
			correct++
		}
	}
	return roundPercent(correct, total), nil
}

func roundPercent(n, total int) int {
	return (200*n + total) / (2 * total)
}

// CalendarDay truncates t to midnight of its calendar day in loc.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func daysBetween(from, to time.Time, loc *time.Location) int {
	a := CalendarDay(from, loc)
	b := CalendarDay(to, loc)
	// 转成 UTC 日期再相减，避开夏令时导致的 23/25 小时
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

// NextStreak applies one day of activity at now to the current streak.
func NextStreak(streak int, lastActive, now time.Time, loc *time.Location) int {
	if lastActive.IsZero() {
		return 1
	}
	switch d := daysBetween(lastActive, now, loc); {
	case d == 1:
		return streak + 1
	case d <= 0:
		// same day, or a last-active date ahead of the clock
		if streak < 1 {
			return 1
		}
		return streak
	default:
		return 1
	}
}

type CompletionInput struct {
	Profile        Profile
	LessonID       uint
	XPReward       int
	ExerciseIDs    []uint
	Verdicts       []Verdict
	PreviousStatus LessonStatus
	Policy         RewardPolicy
	Now            time.Time
	Location       *time.Location
}

type Completion struct {
	Profile         Profile
	LessonID        uint
	Score           int
	XPAwarded       int
	FirstCompletion bool
	LeveledUp       bool
	Status          LessonStatus
	CompletedAt     time.Time
}

// CompleteLesson computes the profile and lesson state after a lesson is
// finished. It does not touch storage; the caller writes the result in one
// transaction.
func CompleteLesson(in CompletionInput) (Completion, error) {
	if in.LessonID == 0 {
		return Completion{}, ErrLessonNotFound
	}
	if in.Profile.UserID == 0 {
		return Completion{}, ErrProfileNotFound
	}
	policy, err := ParseRewardPolicy(string(in.Policy))
	if err != nil {
		return Completion{}, err
	}

	score, err := LessonScore(in.ExerciseIDs, in.Verdicts)
	if err != nil {
		return Completion{}, err
	}

	loc := in.Location
	if loc == nil {
		loc = in.Now.Location()
	}

	first := in.PreviousStatus != StatusCompleted
	award := 0
	if in.XPReward > 0 && (first || policy == RewardEveryCompletion) {
		award = in.XPReward
	}

	// 等级只由 XP 推导，存储值仅作展示缓存
	p := in.Profile
	oldLevel := Level(p.XP)
	p.XP += award
	p.Level = Level(p.XP)
	p.Streak = NextStreak(p.Streak, p.LastActive, in.Now, loc)
	p.LastActive = CalendarDay(in.Now, loc)

	return Completion{
		Profile:         p,
		LessonID:        in.LessonID,
		Score:           score,
		XPAwarded:       award,
		FirstCompletion: first,
		LeveledUp:       p.Level > oldLevel,
		Status:          StatusCompleted,
		CompletedAt:     in.Now,
	}, nil
}
