package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/examforge/examforge-backend/internal/middleware"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/examforge/examforge-backend/internal/session"
	ws "github.com/examforge/examforge-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the live exam stream.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// wsConn serializes writes: the read loop and the termination watcher
// both write to the same connection.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ws.WriteTyped(c.conn, v)
}

func (c *wsConn) writeError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ws.WriteError(c.conn, msg)
}

// ExamStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Upgrades to WebSocket and drives the live exam session.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer rawConn.Close()
	conn := &wsConn{conn: rawConn}

	sess, err := h.sessionService.Begin(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		conn.writeError(beginErrorMessage(err))
		return
	}

	// The timer outlives this connection so a dropped client is still
	// auto-submitted at the deadline.
	if sess.Phase() == session.PhaseLoading {
		if err := sess.Activate(context.Background()); err != nil {
			conn.writeError("failed to start session")
			return
		}
	}

	wsLog := h.log.With().
		Str("user_id", claims.UserID.String()).
		Str("exam_id", examID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	var submittedOnce sync.Once
	notifySubmitted := func() {
		submittedOnce.Do(func() {
			res := sess.Result()
			conn.write(ws.SubmittedResponse{
				Event:  ws.EventSubmitted,
				Reason: string(res.Reason),
				Score:  res.Score,
			})
		})
	}

	// Watch for termination from outside the read loop (timeout). The
	// request context never fires once the upgrader hijacks the
	// connection, so closing stop on read-loop exit is the only
	// disconnect signal; the session timer keeps running in the manager.
	stop := make(chan struct{})
	watcherDone := watchTermination(sess, stop, func() {
		notifySubmitted()
		h.sessionService.Release(examID, claims.UserID)
		rawConn.Close()
	})
	defer func() {
		close(stop)
		<-watcherDone
	}()

	conn.write(ws.StateResponse{Event: ws.EventState, Snapshot: sess.Snapshot()})

	for {
		msg, raw, err := ws.ReadEnvelope(rawConn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionSelectAnswer:
			h.handleSelectAnswer(conn, sess, raw)
		case ws.ActionToggleReview:
			h.handleToggleReview(conn, sess, raw)
		case ws.ActionNavigate:
			h.handleNavigate(conn, sess, raw)
		case ws.ActionSubmit:
			if h.handleSubmit(conn, wsLog, sess, raw, notifySubmitted) {
				h.sessionService.Release(examID, claims.UserID)
				return
			}
		case ws.ActionPing:
			conn.write(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.writeError("unknown action: " + string(msg.Action))
		}
	}
}

func (h *WSHandler) handleSelectAnswer(conn *wsConn, sess *session.Session, raw []byte) {
	var req ws.SelectAnswerRequest
	if err := unmarshalAction(raw, &req); err != nil {
		conn.writeError("invalid select_answer payload")
		return
	}
	qid, err := uuid.Parse(req.QuestionID)
	if err != nil {
		conn.writeError("invalid question_id format")
		return
	}
	option, err := model.ParseOptionLabel(req.Option)
	if err != nil {
		conn.writeError(err.Error())
		return
	}

	snap, err := sess.SelectAnswer(qid, option)
	if err != nil {
		conn.writeError(sessionErrorMessage(err))
		return
	}
	conn.write(ws.StateResponse{Event: ws.EventState, Snapshot: snap})
}

func (h *WSHandler) handleToggleReview(conn *wsConn, sess *session.Session, raw []byte) {
	var req ws.ToggleReviewRequest
	if err := unmarshalAction(raw, &req); err != nil {
		conn.writeError("invalid toggle_review payload")
		return
	}
	qid, err := uuid.Parse(req.QuestionID)
	if err != nil {
		conn.writeError("invalid question_id format")
		return
	}

	snap, err := sess.ToggleReview(qid)
	if err != nil {
		conn.writeError(sessionErrorMessage(err))
		return
	}
	conn.write(ws.StateResponse{Event: ws.EventState, Snapshot: snap})
}

func (h *WSHandler) handleNavigate(conn *wsConn, sess *session.Session, raw []byte) {
	var req ws.NavigateRequest
	if err := unmarshalAction(raw, &req); err != nil {
		conn.writeError("invalid navigate payload")
		return
	}

	var snap session.Snapshot
	var err error
	switch req.Direction {
	case "next":
		snap, err = sess.Next()
	case "prev":
		snap, err = sess.Prev()
	case "goto":
		snap, err = sess.GoTo(req.Index)
	default:
		conn.writeError("direction must be next, prev, or goto")
		return
	}
	if err != nil {
		conn.writeError(sessionErrorMessage(err))
		return
	}
	conn.write(ws.StateResponse{Event: ws.EventState, Snapshot: snap})
}

// handleSubmit finishes the attempt. Returns true when the session
// terminated and the connection should close.
func (h *WSHandler) handleSubmit(conn *wsConn, wsLog zerolog.Logger, sess *session.Session, raw []byte, notifySubmitted func()) bool {
	var req ws.SubmitRequest
	if err := unmarshalAction(raw, &req); err != nil {
		conn.writeError("invalid submit payload")
		return false
	}

	if unanswered := sess.UnansweredCount(); unanswered > 0 && !req.Confirmed {
		conn.write(ws.ConfirmRequiredResponse{
			Event:      ws.EventConfirmRequired,
			Unanswered: unanswered,
		})
		return false
	}

	res, err := sess.Submit(context.Background())
	if err != nil {
		if errors.Is(err, session.ErrNotActive) {
			// A timeout beat the manual submit; the watcher already
			// notified the client.
			return true
		}
		wsLog.Error().Err(err).Msg("Submit failed")
		conn.writeError("submission could not be saved")
		return true
	}

	wsLog.Info().Float64("score", res.Score).Str("reason", string(res.Reason)).Msg("Exam submitted")
	notifySubmitted()
	return true
}

// watchTermination waits for the session to terminate from outside the
// read loop and invokes onTerminated; closing stop unwinds it without
// touching the session. The returned channel closes when the watcher
// has exited.
func watchTermination(sess *session.Session, stop <-chan struct{}, onTerminated func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-sess.Done():
			onTerminated()
		case <-stop:
		}
	}()
	return done
}

func unmarshalAction(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}

func beginErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return "exam not found"
	case errors.Is(err, service.ErrExamNotActive):
		return "exam is not active"
	case errors.Is(err, service.ErrAttemptCompleted):
		return "exam already submitted"
	case errors.Is(err, service.ErrTimeElapsed):
		return "exam time has already elapsed"
	default:
		return "failed to start session"
	}
}

func sessionErrorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNotActive):
		return "session is no longer active"
	case errors.Is(err, session.ErrUnknownQuestion):
		return "question does not belong to this exam"
	default:
		return "action failed"
	}
}
