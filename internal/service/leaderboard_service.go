package service

import (
	"context"

	"github.com/examforge/examforge-backend/internal/repository"
)

const defaultLeaderboardSize = 50

// LeaderboardService exposes announced results across exams.
type LeaderboardService struct {
	attemptRepo *repository.AttemptRepository
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(attemptRepo *repository.AttemptRepository) *LeaderboardService {
	return &LeaderboardService{attemptRepo: attemptRepo}
}

// Top returns the highest announced scores, best first. Rows predating
// a rank backfill fall back to their dense position in the ordered
// list.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error) {
	if limit < 1 || limit > 200 {
		limit = defaultLeaderboardSize
	}
	entries, err := s.attemptRepo.ListLeaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	rank := 0
	prev := 0.0
	for i := range entries {
		if i == 0 || entries[i].TotalScore != prev {
			rank = i + 1
			prev = entries[i].TotalScore
		}
		if entries[i].Rank == 0 {
			entries[i].Rank = rank
		}
	}
	return entries, nil
}
