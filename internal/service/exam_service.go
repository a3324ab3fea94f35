package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/repository"
)

// Common exam errors.
var (
	ErrExamNotFound      = errors.New("exam not found")
	ErrExamNotEditable   = errors.New("exam can only be edited in draft status")
	ErrExamNotActive     = errors.New("exam is not active")
	ErrExamHasNoQuestion = errors.New("exam has no questions")
	ErrNotExamAuthor     = errors.New("only the exam author can modify it")
	ErrInvalidTransition = errors.New("invalid exam status transition")
)

// ExamService handles exam lifecycle and the cached exam paper.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(examRepo *repository.ExamRepository, questionRepo *repository.QuestionRepository, rdb *redis.Client, log zerolog.Logger) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetExam loads an exam by id.
func (s *ExamService) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam, nil
}

// ListExams returns a paginated exam list, optionally scoped to an
// author. Pass uuid.Nil to list every author's exams.
func (s *ExamService) ListExams(ctx context.Context, authorID uuid.UUID, page, limit int) ([]model.Exam, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.examRepo.ListPaginated(ctx, authorID, limit, (page-1)*limit)
}

// ListAvailableExams returns the exams a student may see: active ones
// to take and announced ones to review.
func (s *ExamService) ListAvailableExams(ctx context.Context) ([]model.Exam, error) {
	return s.examRepo.ListByStatus(ctx, model.ExamStatusActive, model.ExamStatusResultsAnnounced)
}

// CreateExam creates a draft exam owned by the caller.
func (s *ExamService) CreateExam(ctx context.Context, authorID uuid.UUID, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Title:           req.Title,
		Description:     req.Description,
		AuthorID:        authorID,
		DurationMinutes: req.DurationMinutes,
		Status:          model.ExamStatusDraft,
	}
	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	return exam, nil
}

// UpdateExam edits a draft exam's metadata.
func (s *ExamService) UpdateExam(ctx context.Context, authorID, examID uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.editableExam(ctx, authorID, examID)
	if err != nil {
		return nil, err
	}

	exam.Title = req.Title
	exam.Description = req.Description
	exam.DurationMinutes = req.DurationMinutes
	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	return exam, nil
}

// DeleteExam removes a draft exam and its questions.
func (s *ExamService) DeleteExam(ctx context.Context, authorID, examID uuid.UUID) error {
	if _, err := s.editableExam(ctx, authorID, examID); err != nil {
		return err
	}
	return s.examRepo.Delete(ctx, examID)
}

// UpdateStatus moves an exam through its lifecycle. Only two manual
// transitions exist: DRAFT -> ACTIVE and ACTIVE -> COMPLETED. Results
// announcement happens through the results job.
func (s *ExamService) UpdateStatus(ctx context.Context, authorID, examID uuid.UUID, target model.ExamStatus) (*model.Exam, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}

	switch {
	case exam.Status == model.ExamStatusDraft && target == model.ExamStatusActive:
		return s.activate(ctx, exam)
	case exam.Status == model.ExamStatusActive && target == model.ExamStatusCompleted:
		if err := s.examRepo.UpdateStatus(ctx, examID, target); err != nil {
			return nil, fmt.Errorf("update status: %w", err)
		}
		exam.Status = target
		return exam, nil
	default:
		return nil, ErrInvalidTransition
	}
}

// activate publishes a draft exam: the question set is frozen, total
// marks recomputed, and the paper cached for the session path.
func (s *ExamService) activate(ctx context.Context, exam *model.Exam) (*model.Exam, error) {
	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrExamHasNoQuestion
	}

	total := 0.0
	for _, q := range questions {
		total += q.Marks
	}
	exam.TotalMarks = total
	exam.Status = model.ExamStatusActive

	// Recomputed marks and the ACTIVE status land in the same UPDATE.
	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}

	if err := s.cachePaper(ctx, exam, questions); err != nil {
		// Cache warm failure is not fatal: GetPaper rebuilds from the DB.
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("failed to warm exam paper cache")
	}
	return exam, nil
}

// GetPaper returns the student-facing exam paper, preferring the Redis
// cache and rebuilding it from the database on a miss.
func (s *ExamService) GetPaper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	key := config.CacheKey.ExamPaperKey(examID)
	cached, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		paper := &model.ExamPaper{}
		if err := json.Unmarshal([]byte(cached), paper); err == nil {
			return paper, nil
		}
		s.log.Warn().Str("exam_id", examID.String()).Msg("corrupt exam paper cache entry, rebuilding")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("exam paper cache read failed, falling back to database")
	}

	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusActive {
		return nil, ErrExamNotActive
	}
	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	if err := s.cachePaper(ctx, exam, questions); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("failed to re-warm exam paper cache")
	}
	return buildPaper(exam, questions), nil
}

func (s *ExamService) cachePaper(ctx context.Context, exam *model.Exam, questions []model.Question) error {
	payload, err := json.Marshal(buildPaper(exam, questions))
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}
	return s.rdb.Set(ctx, config.CacheKey.ExamPaperKey(exam.ID), payload, 0).Err()
}

func buildPaper(exam *model.Exam, questions []model.Question) *model.ExamPaper {
	paper := &model.ExamPaper{
		ExamID:          exam.ID,
		Title:           exam.Title,
		Description:     exam.Description,
		DurationMinutes: exam.DurationMinutes,
		TotalMarks:      exam.TotalMarks,
		Questions:       make([]model.QuestionForStudent, 0, len(questions)),
	}
	for _, q := range questions {
		paper.Questions = append(paper.Questions, model.QuestionForStudent{
			ID:            q.ID,
			QuestionText:  q.QuestionText,
			OptionA:       q.OptionA,
			OptionB:       q.OptionB,
			OptionC:       q.OptionC,
			OptionD:       q.OptionD,
			Marks:         q.Marks,
			QuestionOrder: q.QuestionOrder,
		})
	}
	return paper
}

func (s *ExamService) editableExam(ctx context.Context, authorID, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusDraft {
		return nil, ErrExamNotEditable
	}
	return exam, nil
}
