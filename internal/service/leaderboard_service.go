package service

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/repository"
	"context"
)

type LeaderboardEntry struct {
	Position    int    `json:"position"`
	UserID      uint   `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	XP          int    `json:"xp"`
	Level       int    `json:"level"`
}

func entryOf(s engine.Standing) LeaderboardEntry {
	return LeaderboardEntry{
		Position:    s.Position,
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
		AvatarURL:   s.AvatarURL,
		XP:          s.XP,
		Level:       s.Level,
	}
}

// LeaderboardService 每次请求从档案重新计算排名，不缓存
type LeaderboardService struct {
	ProfileRepo *repository.ProfileRepository
}

func NewLeaderboardService(profileRepo *repository.ProfileRepository) *LeaderboardService {
	return &LeaderboardService{ProfileRepo: profileRepo}
}

func (s *LeaderboardService) standings(ctx context.Context) ([]engine.Standing, error) {
	contenders, err := s.ProfileRepo.Contenders(ctx)
	if err != nil {
		return nil, err
	}
	return engine.RankProfiles(contenders), nil
}

func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	standings, err := s.standings(ctx)
	if err != nil {
		return nil, err
	}

	top := engine.Top(standings, limit)
	entries := make([]LeaderboardEntry, len(top))
	for i, st := range top {
		entries[i] = entryOf(st)
	}
	return entries, nil
}

// RankOf 返回学习者当前名次，没有档案时返回 ErrProfileNotFound
func (s *LeaderboardService) RankOf(ctx context.Context, userID uint) (LeaderboardEntry, int, error) {
	standings, err := s.standings(ctx)
	if err != nil {
		return LeaderboardEntry{}, 0, err
	}
	pos, ok := engine.PositionOf(standings, userID)
	if !ok {
		return LeaderboardEntry{}, len(standings), engine.ErrProfileNotFound
	}
	return entryOf(standings[pos-1]), len(standings), nil
}
