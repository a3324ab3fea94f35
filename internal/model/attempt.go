package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates exam attempt states. An attempt moves from
// IN_PROGRESS to COMPLETED exactly once; there are no other transitions.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// ExamAttempt represents one student's run through one exam.
// TotalScore is set at submission; Rank is set by the results job.
type ExamAttempt struct {
	ID         uuid.UUID     `json:"id"`
	ExamID     uuid.UUID     `json:"exam_id"`
	UserID     uuid.UUID     `json:"user_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Status     AttemptStatus `json:"status"`
	TotalScore *float64      `json:"total_score,omitempty"`
	Rank       *int          `json:"rank,omitempty"`
}
