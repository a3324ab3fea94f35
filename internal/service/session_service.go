package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/repository"
	"github.com/examforge/examforge-backend/internal/session"
)

// Common session errors.
var (
	ErrAttemptCompleted = errors.New("exam already submitted")
	ErrTimeElapsed      = errors.New("exam time has already elapsed")
)

// submissionStore joins the attempt and answer repositories into the
// single store the session machine persists through.
type submissionStore struct {
	attempts *repository.AttemptRepository
	answers  *repository.AnswerRepository
}

func (s *submissionStore) CompleteAttempt(ctx context.Context, attemptID uuid.UUID, finishedAt time.Time, totalScore float64) error {
	return s.attempts.CompleteAttempt(ctx, attemptID, finishedAt, totalScore)
}

func (s *submissionStore) InsertAnswers(ctx context.Context, records []model.AnswerRecord) error {
	return s.answers.InsertAnswers(ctx, records)
}

// SessionService starts and resumes live exam sessions.
type SessionService struct {
	examSvc      *ExamService
	questionRepo *repository.QuestionRepository
	attemptRepo  *repository.AttemptRepository
	answerRepo   *repository.AnswerRepository
	manager      *session.Manager
	log          zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(examSvc *ExamService, questionRepo *repository.QuestionRepository, attemptRepo *repository.AttemptRepository, answerRepo *repository.AnswerRepository, manager *session.Manager, log zerolog.Logger) *SessionService {
	return &SessionService{
		examSvc:      examSvc,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		answerRepo:   answerRepo,
		manager:      manager,
		log:          log.With().Str("component", "session_service").Logger(),
	}
}

// Begin starts or resumes a live session for a student on an exam.
// Reconnecting to a session already held in memory returns that
// session; otherwise the attempt row is created (or found) and a fresh
// machine is built with the remaining time derived from the original
// start.
func (s *SessionService) Begin(ctx context.Context, examID, userID uuid.UUID) (*session.Session, error) {
	if live := s.manager.Get(examID, userID); live != nil {
		return live, nil
	}

	exam, err := s.examSvc.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusActive {
		return nil, ErrExamNotActive
	}

	attempt, err := s.createOrResumeAttempt(ctx, examID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptStatusCompleted {
		return nil, ErrAttemptCompleted
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrExamHasNoQuestion
	}

	// Remaining time always derives from the recorded start, so a
	// reconnect after a crash never resets the clock.
	deadline := attempt.StartedAt.Add(time.Duration(exam.DurationMinutes) * time.Minute)
	remaining := int(time.Until(deadline).Seconds())
	if remaining <= 0 {
		// The clock ran out while no process held the session. Close the
		// attempt with whatever was persisted, which is nothing.
		if err := s.attemptRepo.CompleteAttempt(ctx, attempt.ID, time.Now(), 0); err != nil {
			return nil, fmt.Errorf("close expired attempt: %w", err)
		}
		return nil, ErrTimeElapsed
	}

	store := &submissionStore{attempts: s.attemptRepo, answers: s.answerRepo}
	sess := session.New(attempt.ID, examID, questions, remaining, store, s.log)
	s.manager.Put(examID, userID, sess)

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("user_id", userID.String()).
		Str("attempt_id", attempt.ID.String()).
		Int("remaining_seconds", remaining).
		Msg("exam session started")
	return sess, nil
}

// Release drops a terminated session from the in-memory registry.
func (s *SessionService) Release(examID, userID uuid.UUID) {
	s.manager.Remove(examID, userID)
}

// MyAttempts lists a student's attempts across exams.
func (s *SessionService) MyAttempts(ctx context.Context, userID uuid.UUID) ([]repository.MyAttempt, error) {
	return s.attemptRepo.ListByUser(ctx, userID)
}

// createOrResumeAttempt inserts the attempt row, falling back to the
// existing one when the student already started this exam.
func (s *SessionService) createOrResumeAttempt(ctx context.Context, examID, userID uuid.UUID) (*model.ExamAttempt, error) {
	attempt := &model.ExamAttempt{
		ExamID: examID,
		UserID: userID,
		Status: model.AttemptStatusInProgress,
	}
	err := s.attemptRepo.Create(ctx, attempt)
	if err == nil {
		return attempt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	// Conflict: the attempt already exists, resume it.
	existing, err := s.attemptRepo.GetByExamAndUser(ctx, examID, userID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return existing, nil
}
