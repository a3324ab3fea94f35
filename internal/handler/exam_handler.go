package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examforge/examforge-backend/internal/middleware"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/repository"
	"github.com/examforge/examforge-backend/internal/response"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/examforge/examforge-backend/internal/validator"
	"github.com/examforge/examforge-backend/internal/worker"
)

// ExamHandler handles admin exam management endpoints.
type ExamHandler struct {
	examService *service.ExamService
	attemptRepo *repository.AttemptRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, attemptRepo *repository.AttemptRepository, rdb *redis.Client, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		attemptRepo: attemptRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/v1/admin/exams?page=1&limit=20
func (h *ExamHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	exams, total, err := h.examService.ListExams(c.Request.Context(), claims.UserID, page, limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams},
		response.NewPagination(page, limit, total))
}

// GetExam godoc
// GET /api/v1/admin/exams/:exam_id
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, ok := parseIDParam(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.examService.GetExam(c.Request.Context(), examID)
	if err != nil {
		h.failExam(c, err)
		return
	}
	response.OK(c, gin.H{"exam": exam})
}

// CreateExam godoc
// POST /api/v1/admin/exams
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.CreateExam(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Created(c, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/admin/exams/:exam_id
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseIDParam(c, "exam_id")
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.UpdateExam(c.Request.Context(), claims.UserID, examID, &req)
	if err != nil {
		h.failExam(c, err)
		return
	}
	response.OK(c, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/admin/exams/:exam_id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseIDParam(c, "exam_id")
	if !ok {
		return
	}

	if err := h.examService.DeleteExam(c.Request.Context(), claims.UserID, examID); err != nil {
		h.failExam(c, err)
		return
	}
	response.OK(c, gin.H{})
}

// UpdateStatus godoc
// POST /api/v1/admin/exams/:exam_id/status
// Moves an exam DRAFT -> ACTIVE or ACTIVE -> COMPLETED.
func (h *ExamHandler) UpdateStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseIDParam(c, "exam_id")
	if !ok {
		return
	}

	var req model.UpdateExamStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.UpdateStatus(c.Request.Context(), claims.UserID, examID, model.ExamStatus(req.Status))
	if err != nil {
		h.failExam(c, err)
		return
	}
	response.OK(c, gin.H{"exam": exam})
}

// ListAttempts godoc
// GET /api/v1/admin/exams/:exam_id/attempts
// Lists every attempt of an exam with student identity for review.
func (h *ExamHandler) ListAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseIDParam(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.examService.GetExam(c.Request.Context(), examID)
	if err != nil {
		h.failExam(c, err)
		return
	}
	if exam.AuthorID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
		return
	}

	attempts, err := h.attemptRepo.ListByExam(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.OK(c, gin.H{"attempts": attempts})
}

// ComputeResults godoc
// POST /api/v1/admin/exams/:exam_id/results
// Queues the results job. Replies 202; the worker scores, ranks, and
// announces asynchronously.
func (h *ExamHandler) ComputeResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseIDParam(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.examService.GetExam(c.Request.Context(), examID)
	if err != nil {
		h.failExam(c, err)
		return
	}
	if exam.AuthorID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
		return
	}
	if exam.Status != model.ExamStatusCompleted && exam.Status != model.ExamStatusResultsAnnounced {
		response.Fail(c, http.StatusConflict, response.ErrExamNotFinished)
		return
	}

	if err := worker.Enqueue(c.Request.Context(), h.rdb, examID); err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to enqueue results job")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Accepted(c, gin.H{"status": "queued"})
}

func (h *ExamHandler) failExam(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotExamAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
	case errors.Is(err, service.ErrExamNotEditable):
		response.Fail(c, http.StatusConflict, response.ErrExamNotDraft)
	case errors.Is(err, service.ErrExamHasNoQuestion):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case errors.Is(err, service.ErrInvalidTransition):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
	default:
		h.log.Error().Err(err).Msg("Exam operation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// parseIDParam parses a UUID path parameter, replying 400 on failure.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
