package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/examforge/examforge-backend/internal/middleware"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/response"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/examforge/examforge-backend/internal/validator"
)

// QuestionHandler handles admin question authoring endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
	log             zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		log:             log.With().Str("component", "question_handler").Logger(),
	}
}

// ListQuestions godoc
// GET /api/v1/admin/exams/:exam_id/questions
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseIDParam(c, "exam_id")
	if !ok {
		return
	}

	questions, err := h.questionService.ListQuestions(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		h.failQuestion(c, err)
		return
	}
	response.OK(c, gin.H{"questions": questions})
}

// CreateQuestion godoc
// POST /api/v1/admin/exams/:exam_id/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseIDParam(c, "exam_id")
	if !ok {
		return
	}

	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.CreateQuestion(c.Request.Context(), claims.UserID, examID, &req)
	if err != nil {
		h.failQuestion(c, err)
		return
	}
	response.Created(c, gin.H{"question": question})
}

// UpdateQuestion godoc
// PUT /api/v1/admin/questions/:question_id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	questionID, ok := parseIDParam(c, "question_id")
	if !ok {
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.UpdateQuestion(c.Request.Context(), claims.UserID, questionID, &req)
	if err != nil {
		h.failQuestion(c, err)
		return
	}
	response.OK(c, gin.H{"question": question})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/questions/:question_id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	questionID, ok := parseIDParam(c, "question_id")
	if !ok {
		return
	}

	if err := h.questionService.DeleteQuestion(c.Request.Context(), claims.UserID, questionID); err != nil {
		h.failQuestion(c, err)
		return
	}
	response.OK(c, gin.H{})
}

func (h *QuestionHandler) failQuestion(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound), errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotExamAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
	case errors.Is(err, service.ErrExamNotEditable):
		response.Fail(c, http.StatusConflict, response.ErrExamNotDraft)
	default:
		h.log.Error().Err(err).Msg("Question operation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
