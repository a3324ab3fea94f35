package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the exam lifecycle.
type ExamStatus string

const (
	ExamStatusDraft            ExamStatus = "DRAFT"
	ExamStatusActive           ExamStatus = "ACTIVE"
	ExamStatusCompleted        ExamStatus = "COMPLETED"
	ExamStatusResultsAnnounced ExamStatus = "RESULTS_ANNOUNCED"
)

// ValidExamStatus reports whether s is a known lifecycle state.
func ValidExamStatus(s ExamStatus) bool {
	switch s {
	case ExamStatusDraft, ExamStatusActive, ExamStatusCompleted, ExamStatusResultsAnnounced:
		return true
	}
	return false
}

// Exam represents an exam entity.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	AuthorID        uuid.UUID  `json:"author_id"`
	DurationMinutes int        `json:"duration_minutes"`
	TotalMarks      float64    `json:"total_marks"`
	Status          ExamStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam. Total
// marks are derived from the question set at activation.
type CreateExamRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=255"`
	Description     string `json:"description" binding:"max=2000"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
}

// UpdateExamRequest is the payload for updating a draft exam. The
// whole metadata set is replaced.
type UpdateExamRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=255"`
	Description     string `json:"description" binding:"max=2000"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
}

// UpdateExamStatusRequest is the payload for an admin lifecycle transition.
// RESULTS_ANNOUNCED is reserved for the results job and rejected here.
type UpdateExamStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE COMPLETED"`
}

// ExamPaper is the student-facing exam payload, cached in Redis while
// the exam is active. Correct answers never appear here.
type ExamPaper struct {
	ExamID          uuid.UUID            `json:"exam_id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	DurationMinutes int                  `json:"duration_minutes"`
	TotalMarks      float64              `json:"total_marks"`
	Questions       []QuestionForStudent `json:"questions"`
}
