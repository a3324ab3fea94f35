package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/repository"
)

// ErrQuestionNotFound is returned when a question id matches nothing.
var ErrQuestionNotFound = errors.New("question not found")

// QuestionService handles question authoring. Mutations are only
// allowed while the owning exam is still a draft.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	examRepo     *repository.ExamRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, examRepo *repository.ExamRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo, examRepo: examRepo}
}

// ListQuestions returns an exam's questions in paper order, with
// correct answers included (admin view).
func (s *QuestionService) ListQuestions(ctx context.Context, authorID, examID uuid.UUID) ([]model.Question, error) {
	if _, err := s.ownedExam(ctx, authorID, examID); err != nil {
		return nil, err
	}
	return s.questionRepo.ListByExam(ctx, examID)
}

// CreateQuestion appends a question to a draft exam.
func (s *QuestionService) CreateQuestion(ctx context.Context, authorID, examID uuid.UUID, req *model.CreateQuestionRequest) (*model.Question, error) {
	if _, err := s.draftExam(ctx, authorID, examID); err != nil {
		return nil, err
	}

	correct, err := model.ParseOptionLabel(req.CorrectOption)
	if err != nil {
		return nil, err
	}

	q := &model.Question{
		ExamID:        examID,
		QuestionText:  req.QuestionText,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectOption: correct,
		Marks:         req.Marks,
		NegativeMarks: req.NegativeMarks,
		QuestionOrder: req.QuestionOrder,
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// UpdateQuestion edits a question of a draft exam.
func (s *QuestionService) UpdateQuestion(ctx context.Context, authorID, questionID uuid.UUID, req *model.UpdateQuestionRequest) (*model.Question, error) {
	q, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	if _, err := s.draftExam(ctx, authorID, q.ExamID); err != nil {
		return nil, err
	}

	correct, err := model.ParseOptionLabel(req.CorrectOption)
	if err != nil {
		return nil, err
	}

	q.QuestionText = req.QuestionText
	q.OptionA = req.OptionA
	q.OptionB = req.OptionB
	q.OptionC = req.OptionC
	q.OptionD = req.OptionD
	q.CorrectOption = correct
	q.Marks = req.Marks
	q.NegativeMarks = req.NegativeMarks
	q.QuestionOrder = req.QuestionOrder
	if err := s.questionRepo.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// DeleteQuestion removes a question from a draft exam.
func (s *QuestionService) DeleteQuestion(ctx context.Context, authorID, questionID uuid.UUID) error {
	q, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("get question: %w", err)
	}
	if _, err := s.draftExam(ctx, authorID, q.ExamID); err != nil {
		return err
	}
	return s.questionRepo.Delete(ctx, questionID)
}

func (s *QuestionService) ownedExam(ctx context.Context, authorID, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	return exam, nil
}

func (s *QuestionService) draftExam(ctx context.Context, authorID, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.ownedExam(ctx, authorID, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusDraft {
		return nil, ErrExamNotEditable
	}
	return exam, nil
}
