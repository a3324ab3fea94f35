package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/examforge/examforge-backend/internal/grading"
	"github.com/examforge/examforge-backend/internal/model"
)

// ErrExamNotFinished is returned when results are requested for an exam
// that students can still take.
var ErrExamNotFinished = errors.New("exam must be completed before computing results")

// Stores the results job reads and writes through. Narrow interfaces so
// the job logic tests against fakes.
type (
	ResultExamStore interface {
		GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error
	}

	ResultQuestionStore interface {
		ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	}

	ResultAttemptStore interface {
		ListCompletedByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamAttempt, error)
		ListCompletedScores(ctx context.Context, examID uuid.UUID) ([]grading.ScoreEntry, error)
		UpdateScore(ctx context.Context, attemptID uuid.UUID, score float64) error
		UpdateRank(ctx context.Context, attemptID uuid.UUID, rank int) error
	}

	ResultAnswerStore interface {
		ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerRecord, error)
	}
)

// ResultSummary reports what a results run touched.
type ResultSummary struct {
	ExamID         uuid.UUID `json:"exam_id"`
	AttemptsScored int       `json:"attempts_scored"`
	AttemptsRanked int       `json:"attempts_ranked"`
}

// ResultService recomputes scores and ranks for a finished exam and
// announces its results.
type ResultService struct {
	exams     ResultExamStore
	questions ResultQuestionStore
	attempts  ResultAttemptStore
	answers   ResultAnswerStore
	log       zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(exams ResultExamStore, questions ResultQuestionStore, attempts ResultAttemptStore, answers ResultAnswerStore, log zerolog.Logger) *ResultService {
	return &ResultService{
		exams:     exams,
		questions: questions,
		attempts:  attempts,
		answers:   answers,
		log:       log.With().Str("component", "result_service").Logger(),
	}
}

// ComputeResults rescores every completed attempt of the exam from the
// persisted answer sheets, assigns ranks, and moves the exam to
// RESULTS_ANNOUNCED. The run is sequential and stops at the first
// failure; rerunning it recomputes everything from scratch, so a
// partial run is repaired by the next one.
func (s *ResultService) ComputeResults(ctx context.Context, examID uuid.UUID) (*ResultSummary, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusCompleted && exam.Status != model.ExamStatusResultsAnnounced {
		return nil, ErrExamNotFinished
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	attempts, err := s.attempts.ListCompletedByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	summary := &ResultSummary{ExamID: examID}
	for _, attempt := range attempts {
		records, err := s.answers.ListByAttempt(ctx, attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("list answers for attempt %s: %w", attempt.ID, err)
		}

		selected := make(map[uuid.UUID]model.OptionLabel, len(records))
		for _, rec := range records {
			selected[rec.QuestionID] = rec.Selected
		}

		score := grading.Clamp(grading.Score(questions, selected))
		if err := s.attempts.UpdateScore(ctx, attempt.ID, score); err != nil {
			return nil, fmt.Errorf("update score for attempt %s: %w", attempt.ID, err)
		}
		summary.AttemptsScored++
	}

	entries, err := s.attempts.ListCompletedScores(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	for attemptID, rank := range grading.AssignRanks(entries) {
		if err := s.attempts.UpdateRank(ctx, attemptID, rank); err != nil {
			return nil, fmt.Errorf("update rank for attempt %s: %w", attemptID, err)
		}
		summary.AttemptsRanked++
	}

	if err := s.exams.UpdateStatus(ctx, examID, model.ExamStatusResultsAnnounced); err != nil {
		return nil, fmt.Errorf("announce results: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("attempts_scored", summary.AttemptsScored).
		Int("attempts_ranked", summary.AttemptsRanked).
		Msg("exam results computed")
	return summary, nil
}
