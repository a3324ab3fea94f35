// Package grading holds the pure scoring and ranking rules. Nothing in
// here touches the database or Redis; both the live submission path and
// the results job call into it.
package grading

import (
	"github.com/google/uuid"

	"github.com/examforge/examforge-backend/internal/model"
)

// Score computes the raw total for one attempt.
//
// Per question: the correct selection earns Marks; a wrong non-empty
// selection loses NegativeMarks when the question carries a penalty;
// an empty or missing selection contributes nothing. Answers for
// question ids not in the question set are ignored.
//
// The result may be negative. Callers persist Clamp(Score(...)).
func Score(questions []model.Question, answers map[uuid.UUID]model.OptionLabel) float64 {
	var total float64
	for _, q := range questions {
		selected := answers[q.ID]
		switch {
		case selected == model.OptionNone:
			// unanswered
		case selected == q.CorrectOption:
			total += q.Marks
		case q.NegativeMarks > 0:
			total -= q.NegativeMarks
		}
	}
	return total
}

// Clamp floors a raw total at zero. Applied uniformly wherever a score
// is persisted.
func Clamp(raw float64) float64 {
	if raw < 0 {
		return 0
	}
	return raw
}
