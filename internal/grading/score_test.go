package grading

import (
	"testing"

	"github.com/google/uuid"

	"github.com/examforge/examforge-backend/internal/model"
)

func question(id uuid.UUID, correct model.OptionLabel, marks, negative float64) model.Question {
	return model.Question{
		ID:            id,
		CorrectOption: correct,
		Marks:         marks,
		NegativeMarks: negative,
	}
}

func TestScore(t *testing.T) {
	q1 := uuid.New()
	q2 := uuid.New()
	q3 := uuid.New()

	questions := []model.Question{
		question(q1, model.OptionA, 2, 0.5),
		question(q2, model.OptionB, 2, 0.5),
		question(q3, model.OptionC, 1, 0),
	}

	tests := []struct {
		name    string
		answers map[uuid.UUID]model.OptionLabel
		want    float64
	}{
		{
			name:    "all correct",
			answers: map[uuid.UUID]model.OptionLabel{q1: model.OptionA, q2: model.OptionB, q3: model.OptionC},
			want:    5,
		},
		{
			name:    "one correct one wrong one blank",
			answers: map[uuid.UUID]model.OptionLabel{q1: model.OptionA, q2: model.OptionC},
			want:    1.5,
		},
		{
			name:    "all blank",
			answers: map[uuid.UUID]model.OptionLabel{},
			want:    0,
		},
		{
			name:    "explicit empty selection counts as blank",
			answers: map[uuid.UUID]model.OptionLabel{q1: model.OptionNone},
			want:    0,
		},
		{
			name:    "all wrong goes negative",
			answers: map[uuid.UUID]model.OptionLabel{q1: model.OptionB, q2: model.OptionA, q3: model.OptionD},
			want:    -1,
		},
		{
			name:    "answer for unknown question is ignored",
			answers: map[uuid.UUID]model.OptionLabel{uuid.New(): model.OptionA},
			want:    0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(questions, tc.answers); got != tc.want {
				t.Errorf("Score() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScore_ZeroNegativeMarksNeverPenalizes(t *testing.T) {
	qID := uuid.New()
	questions := []model.Question{question(qID, model.OptionA, 3, 0)}

	for _, wrong := range []model.OptionLabel{model.OptionB, model.OptionC, model.OptionD} {
		if got := Score(questions, map[uuid.UUID]model.OptionLabel{qID: wrong}); got != 0 {
			t.Errorf("wrong pick %s: Score() = %v, want 0", wrong, got)
		}
	}
}

func TestScore_NoQuestions(t *testing.T) {
	if got := Score(nil, map[uuid.UUID]model.OptionLabel{uuid.New(): model.OptionA}); got != 0 {
		t.Errorf("Score() = %v, want 0", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{raw: 1.5, want: 1.5},
		{raw: 0, want: 0},
		{raw: -0.5, want: 0},
		{raw: -100, want: 0},
	}
	for _, tc := range tests {
		if got := Clamp(tc.raw); got != tc.want {
			t.Errorf("Clamp(%v) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
