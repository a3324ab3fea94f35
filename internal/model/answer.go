package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerRecord is the persisted answer for one question of one attempt.
// Exactly one record exists per (attempt, question) pair after
// submission, including unanswered questions (Selected empty). Records
// are written in bulk at submission; a retried submission overwrites.
type AnswerRecord struct {
	AttemptID       uuid.UUID   `json:"attempt_id"`
	QuestionID      uuid.UUID   `json:"question_id"`
	Selected        OptionLabel `json:"selected_answer"`
	MarkedForReview bool        `json:"is_marked_for_review"`
	AnsweredAt      time.Time   `json:"answered_at"`
}
