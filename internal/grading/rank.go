package grading

import "github.com/google/uuid"

// ScoreEntry pairs an attempt with its persisted total score.
type ScoreEntry struct {
	AttemptID uuid.UUID
	Score     float64
}

// AssignRanks maps attempts to dense competition ranks. Entries must be
// pre-sorted by score descending.
//
// Equal scores share a rank; the next distinct score resumes at its
// 1-based position, so rank(i) = 1 + count of strictly greater scores.
// Scores are compared exactly: they derive from discrete mark
// arithmetic, so ties are exact and no epsilon is wanted.
func AssignRanks(entries []ScoreEntry) map[uuid.UUID]int {
	ranks := make(map[uuid.UUID]int, len(entries))

	rank := 0
	var prev float64
	for i, e := range entries {
		if i == 0 || e.Score != prev {
			rank = i + 1
			prev = e.Score
		}
		ranks[e.AttemptID] = rank
	}
	return ranks
}
