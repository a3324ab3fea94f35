package model

import (
	"fmt"

	"github.com/google/uuid"
)

// OptionLabel identifies one of the four answer options of a question.
// The empty label means "no selection".
type OptionLabel string

const (
	OptionNone OptionLabel = ""
	OptionA    OptionLabel = "A"
	OptionB    OptionLabel = "B"
	OptionC    OptionLabel = "C"
	OptionD    OptionLabel = "D"
)

// OptionLabels lists the selectable labels in display order.
var OptionLabels = []OptionLabel{OptionA, OptionB, OptionC, OptionD}

// ParseOptionLabel validates a client-supplied option string. Only A-D
// are accepted; the empty selection is produced by toggling, never sent
// directly.
func ParseOptionLabel(s string) (OptionLabel, error) {
	switch OptionLabel(s) {
	case OptionA, OptionB, OptionC, OptionD:
		return OptionLabel(s), nil
	}
	return OptionNone, fmt.Errorf("invalid option label %q", s)
}

// Question represents a single multiple-choice exam question.
type Question struct {
	ID            uuid.UUID   `json:"id"`
	ExamID        uuid.UUID   `json:"exam_id"`
	QuestionText  string      `json:"question_text"`
	OptionA       string      `json:"option_a"`
	OptionB       string      `json:"option_b"`
	OptionC       string      `json:"option_c"`
	OptionD       string      `json:"option_d"`
	CorrectOption OptionLabel `json:"correct_option,omitempty"`
	Marks         float64     `json:"marks"`
	NegativeMarks float64     `json:"negative_marks"`
	QuestionOrder int         `json:"question_order"`
}

// OptionText returns the display text for a label, or "" for an unknown label.
func (q *Question) OptionText(label OptionLabel) string {
	switch label {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

// CreateQuestionRequest is the payload for adding a question to an exam.
type CreateQuestionRequest struct {
	QuestionText  string  `json:"question_text" binding:"required,min=1,max=2000"`
	OptionA       string  `json:"option_a" binding:"required,max=1000"`
	OptionB       string  `json:"option_b" binding:"required,max=1000"`
	OptionC       string  `json:"option_c" binding:"required,max=1000"`
	OptionD       string  `json:"option_d" binding:"required,max=1000"`
	CorrectOption string  `json:"correct_option" binding:"required,oneof=A B C D"`
	Marks         float64 `json:"marks" binding:"required,gt=0"`
	NegativeMarks float64 `json:"negative_marks" binding:"min=0"`
	QuestionOrder int     `json:"question_order" binding:"min=0"`
}

// UpdateQuestionRequest is the payload for editing a draft exam's
// question. The whole question is replaced.
type UpdateQuestionRequest struct {
	QuestionText  string  `json:"question_text" binding:"required,min=1,max=2000"`
	OptionA       string  `json:"option_a" binding:"required,max=1000"`
	OptionB       string  `json:"option_b" binding:"required,max=1000"`
	OptionC       string  `json:"option_c" binding:"required,max=1000"`
	OptionD       string  `json:"option_d" binding:"required,max=1000"`
	CorrectOption string  `json:"correct_option" binding:"required,oneof=A B C D"`
	Marks         float64 `json:"marks" binding:"required,gt=0"`
	NegativeMarks float64 `json:"negative_marks" binding:"min=0"`
	QuestionOrder int     `json:"question_order" binding:"min=0"`
}

// QuestionForStudent is a question stripped of grading fields, safe to
// send to an exam taker.
type QuestionForStudent struct {
	ID            uuid.UUID `json:"id"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	Marks         float64   `json:"marks"`
	QuestionOrder int       `json:"question_order"`
}
