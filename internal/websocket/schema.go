package websocket

import "github.com/examforge/examforge-backend/internal/session"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelectAnswer Action = "select_answer"
	ActionToggleReview Action = "toggle_review"
	ActionNavigate     Action = "navigate"
	ActionSubmit       Action = "submit"
	ActionPing         Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SelectAnswerRequest selects (or re-selects to clear) an option.
type SelectAnswerRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
	Option     string `json:"option"`
}

// ToggleReviewRequest flips the review flag on a question.
type ToggleReviewRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
}

// NavigateRequest moves the current question pointer. Direction is
// "next", "prev", or "goto" with a zero-based index.
type NavigateRequest struct {
	Action    Action `json:"action"`
	Direction string `json:"direction"`
	Index     int    `json:"index"`
}

// SubmitRequest finishes the exam. When questions remain unanswered the
// server replies with confirm_required unless Confirmed is set.
type SubmitRequest struct {
	Action    Action `json:"action"`
	Confirmed bool   `json:"confirmed"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState           Event = "state"
	EventSubmitted       Event = "submitted"
	EventConfirmRequired Event = "confirm_required"
	EventError           Event = "error"
	EventPong            Event = "pong"
)

// StateResponse carries the full session snapshot after every action
// and on connect.
type StateResponse struct {
	Event    Event            `json:"event"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// SubmittedResponse announces that the attempt is finished, whether by
// manual submit or timeout.
type SubmittedResponse struct {
	Event  Event   `json:"event"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}

// ConfirmRequiredResponse asks the client to confirm a submit that
// would leave questions unanswered.
type ConfirmRequiredResponse struct {
	Event      Event `json:"event"`
	Unanswered int   `json:"unanswered"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
