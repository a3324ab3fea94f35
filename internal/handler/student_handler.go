package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/examforge/examforge-backend/internal/middleware"
	"github.com/examforge/examforge-backend/internal/response"
	"github.com/examforge/examforge-backend/internal/service"
)

// StudentHandler handles the student-facing exam endpoints.
type StudentHandler struct {
	examService    *service.ExamService
	sessionService *service.SessionService
	log            zerolog.Logger
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(examService *service.ExamService, sessionService *service.SessionService, log zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		examService:    examService,
		sessionService: sessionService,
		log:            log.With().Str("component", "student_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/v1/student/exams
// Lists exams a student can take or review.
func (h *StudentHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.ListAvailableExams(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list available exams")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.OK(c, gin.H{"exams": exams})
}

// GetPaper godoc
// GET /api/v1/student/exams/:exam_id/paper
// Returns the exam paper without correct answers.
func (h *StudentHandler) GetPaper(c *gin.Context) {
	examID, ok := parseIDParam(c, "exam_id")
	if !ok {
		return
	}

	paper, err := h.examService.GetPaper(c.Request.Context(), examID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrExamNotActive):
			response.Fail(c, http.StatusConflict, response.ErrExamNotActive)
		default:
			h.log.Error().Err(err).Msg("Failed to load exam paper")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.OK(c, gin.H{"paper": paper})
}

// MyAttempts godoc
// GET /api/v1/student/attempts
// Lists the caller's attempts. Scores and ranks appear only once
// results are announced.
func (h *StudentHandler) MyAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attempts, err := h.sessionService.MyAttempts(c.Request.Context(), claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list attempts")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.OK(c, gin.H{"attempts": attempts})
}
