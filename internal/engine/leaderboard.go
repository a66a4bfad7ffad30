package engine

import (
	"cmp"
	"slices"
)

type Contender struct {
	UserID      uint
	DisplayName string
	AvatarURL   string
	XP          int
	Level       int
}

type Standing struct {
	Contender
	Position int
}

// RankProfiles orders learners by XP descending, ties by user ID ascending.
// Positions are 1-based and unique.
func RankProfiles(contenders []Contender) []Standing {
	sorted := slices.Clone(contenders)
	slices.SortFunc(sorted, func(a, b Contender) int {
		if c := cmp.Compare(b.XP, a.XP); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})

	out := make([]Standing, len(sorted))
	for i, c := range sorted {
		out[i] = Standing{Contender: c, Position: i + 1}
	}
	return out
}

// PositionOf returns the learner's position, or false when unranked.
func PositionOf(standings []Standing, userID uint) (int, bool) {
	for _, s := range standings {
		if s.UserID == userID {
			return s.Position, true
		}
	}
	return 0, false
}

// Top returns at most n leading standings.
func Top(standings []Standing, n int) []Standing {
	if n < 0 || n >= len(standings) {
		return standings
	}
	return standings[:n]
}
