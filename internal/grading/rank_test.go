package grading

import (
	"testing"

	"github.com/google/uuid"
)

func TestAssignRanks_TieGroups(t *testing.T) {
	x := uuid.New()
	y := uuid.New()
	z := uuid.New()

	entries := []ScoreEntry{
		{AttemptID: x, Score: 100},
		{AttemptID: y, Score: 100},
		{AttemptID: z, Score: 90},
	}

	ranks := AssignRanks(entries)

	// The tie shares rank 1; the next distinct score resumes at its
	// position, not at 2.
	want := map[uuid.UUID]int{x: 1, y: 1, z: 3}
	for id, r := range want {
		if ranks[id] != r {
			t.Errorf("rank[%s] = %d, want %d", id, ranks[id], r)
		}
	}
}

func TestAssignRanks_NoTies(t *testing.T) {
	entries := []ScoreEntry{
		{AttemptID: uuid.New(), Score: 10},
		{AttemptID: uuid.New(), Score: 8.5},
		{AttemptID: uuid.New(), Score: 3},
	}

	ranks := AssignRanks(entries)
	for i, e := range entries {
		if ranks[e.AttemptID] != i+1 {
			t.Errorf("rank at position %d = %d, want %d", i, ranks[e.AttemptID], i+1)
		}
	}
}

func TestAssignRanks_Monotonic(t *testing.T) {
	entries := []ScoreEntry{
		{AttemptID: uuid.New(), Score: 7},
		{AttemptID: uuid.New(), Score: 7},
		{AttemptID: uuid.New(), Score: 7},
		{AttemptID: uuid.New(), Score: 5},
		{AttemptID: uuid.New(), Score: 5},
		{AttemptID: uuid.New(), Score: 0},
	}

	ranks := AssignRanks(entries)

	prev := 0
	for i, e := range entries {
		r := ranks[e.AttemptID]
		if r < prev {
			t.Fatalf("rank decreased at position %d: %d < %d", i, r, prev)
		}
		want := 0
		for _, other := range entries {
			if other.Score > e.Score {
				want++
			}
		}
		if r != want+1 {
			t.Errorf("rank at position %d = %d, want %d", i, r, want+1)
		}
		prev = r
	}
}

func TestAssignRanks_Deterministic(t *testing.T) {
	entries := []ScoreEntry{
		{AttemptID: uuid.New(), Score: 42},
		{AttemptID: uuid.New(), Score: 42},
		{AttemptID: uuid.New(), Score: 17},
	}

	first := AssignRanks(entries)
	second := AssignRanks(entries)

	for id, r := range first {
		if second[id] != r {
			t.Errorf("rank[%s] changed across calls: %d then %d", id, r, second[id])
		}
	}
}

func TestAssignRanks_Empty(t *testing.T) {
	if ranks := AssignRanks(nil); len(ranks) != 0 {
		t.Errorf("AssignRanks(nil) = %v, want empty", ranks)
	}
}
