// Package session holds the in-memory state machine for one student's
// exam attempt: answer and review state, question navigation, the
// countdown, and the single-use submission path. Nothing is persisted
// until submit; persistence goes through the Store interface.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examforge/examforge-backend/internal/grading"
	"github.com/examforge/examforge-backend/internal/model"
)

// Phase enumerates the session lifecycle. ACTIVE is re-entrant across
// navigation and toggle actions; SUBMITTING is entered exactly once and
// always reaches TERMINATED, even when the final write fails.
type Phase string

const (
	PhaseLoading    Phase = "LOADING"
	PhaseActive     Phase = "ACTIVE"
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseTerminated Phase = "TERMINATED"
)

// Reason records what triggered a submission.
type Reason string

const (
	ReasonManual  Reason = "manual"
	ReasonTimeout Reason = "timeout"
)

var (
	// ErrNotActive is returned by every operation once the session has
	// left the ACTIVE phase, including a second submit.
	ErrNotActive = errors.New("exam session is not active")

	// ErrUnknownQuestion is returned for question ids outside the exam.
	ErrUnknownQuestion = errors.New("question does not belong to this exam")
)

// AnswerState tracks one question's in-memory selection and review flag.
type AnswerState struct {
	Selected        model.OptionLabel `json:"selected_answer"`
	MarkedForReview bool              `json:"is_marked_for_review"`
}

// Store persists the outcome of a finished session.
type Store interface {
	CompleteAttempt(ctx context.Context, attemptID uuid.UUID, finishedAt time.Time, totalScore float64) error
	InsertAnswers(ctx context.Context, records []model.AnswerRecord) error
}

// Result is the outcome of a submission.
type Result struct {
	Score  float64 `json:"score"`
	Reason Reason  `json:"reason"`
}

// Snapshot is a read-only view of the session, pushed to the client
// after every action. The counts are recomputed on demand, never stored.
type Snapshot struct {
	Phase            Phase                  `json:"phase"`
	CurrentIndex     int                    `json:"current_index"`
	RemainingSeconds int                    `json:"remaining_seconds"`
	Answered         int                    `json:"answered"`
	Marked           int                    `json:"marked"`
	Unanswered       int                    `json:"unanswered"`
	Progress         float64                `json:"progress"`
	Answers          map[string]AnswerState `json:"answers"`
}

// Session is the single-writer state object for one attempt. All
// mutation goes through its methods; the mutex serializes the ticker
// goroutine against client actions.
type Session struct {
	mu sync.Mutex

	attemptID uuid.UUID
	examID    uuid.UUID
	questions []model.Question
	known     map[uuid.UUID]struct{}

	answers   map[uuid.UUID]AnswerState
	current   int
	remaining int
	phase     Phase

	cancelTimer context.CancelFunc
	done        chan struct{}
	result      Result

	store Store
	log   zerolog.Logger
}

// New builds a session in the LOADING phase. remainingSeconds is the
// full exam duration for a fresh attempt, or what is left of it when a
// student reconnects to an attempt already under way.
func New(attemptID, examID uuid.UUID, questions []model.Question, remainingSeconds int, store Store, log zerolog.Logger) *Session {
	known := make(map[uuid.UUID]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}
	return &Session{
		attemptID: attemptID,
		examID:    examID,
		questions: questions,
		known:     known,
		answers:   make(map[uuid.UUID]AnswerState, len(questions)),
		remaining: remainingSeconds,
		phase:     PhaseLoading,
		done:      make(chan struct{}),
		store:     store,
		log: log.With().
			Str("component", "exam_session").
			Str("attempt_id", attemptID.String()).
			Logger(),
	}
}

// Activate transitions LOADING to ACTIVE and starts the one-second
// countdown. The ticker is cancelled on every exit from ACTIVE.
func (s *Session) Activate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseLoading {
		return ErrNotActive
	}
	s.phase = PhaseActive

	tctx, cancel := context.WithCancel(ctx)
	s.cancelTimer = cancel
	go s.runTimer(tctx)
	return nil
}

func (s *Session) runTimer(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Persistence on timeout must not ride the timer's own
			// context: submit cancels it.
			if s.Tick(context.Background()) {
				return
			}
		}
	}
}

// Tick decrements the countdown by one second. At zero it triggers a
// timeout submission with the answers held at that instant. Returns
// true once the session has left ACTIVE, telling the tick source to stop.
func (s *Session) Tick(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return true
	}

	s.remaining--
	if s.remaining > 0 {
		return false
	}
	s.remaining = 0

	if _, err := s.submitLocked(ctx, ReasonTimeout); err != nil {
		s.log.Error().Err(err).Msg("Timeout submission persist failed")
	}
	return true
}

// SelectAnswer toggles a selection: picking the already-selected option
// clears it, picking a different one replaces it. The review flag is
// untouched.
func (s *Session) SelectAnswer(questionID uuid.UUID, option model.OptionLabel) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return Snapshot{}, ErrNotActive
	}
	if _, ok := s.known[questionID]; !ok {
		return Snapshot{}, ErrUnknownQuestion
	}

	st := s.answers[questionID]
	if st.Selected == option {
		st.Selected = model.OptionNone
	} else {
		st.Selected = option
	}
	s.answers[questionID] = st
	return s.snapshotLocked(), nil
}

// ToggleReview flips the marked-for-review flag without touching the
// selected option.
func (s *Session) ToggleReview(questionID uuid.UUID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return Snapshot{}, ErrNotActive
	}
	if _, ok := s.known[questionID]; !ok {
		return Snapshot{}, ErrUnknownQuestion
	}

	st := s.answers[questionID]
	st.MarkedForReview = !st.MarkedForReview
	s.answers[questionID] = st
	return s.snapshotLocked(), nil
}

// GoTo moves the current-question pointer. Indexes outside
// [0, len(questions)-1] are a no-op: no wraparound, no error.
func (s *Session) GoTo(index int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return Snapshot{}, ErrNotActive
	}
	if index >= 0 && index < len(s.questions) {
		s.current = index
	}
	return s.snapshotLocked(), nil
}

// Next advances to the following question, clamped at the last one.
func (s *Session) Next() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return Snapshot{}, ErrNotActive
	}
	if s.current+1 < len(s.questions) {
		s.current++
	}
	return s.snapshotLocked(), nil
}

// Prev moves back one question, clamped at the first one.
func (s *Session) Prev() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return Snapshot{}, ErrNotActive
	}
	if s.current > 0 {
		s.current--
	}
	return s.snapshotLocked(), nil
}

// Submit finishes the attempt manually. Repeated or concurrent calls
// after the first are rejected with ErrNotActive. Confirmation of
// unanswered questions is the caller's concern, not enforced here.
func (s *Session) Submit(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return Result{}, ErrNotActive
	}
	return s.submitLocked(ctx, ReasonManual)
}

// submitLocked runs the one-shot submission path: score, clamp, persist
// the attempt completion and the full answer batch. The session reaches
// TERMINATED regardless of persistence failure; the error is returned
// for the caller to surface.
func (s *Session) submitLocked(ctx context.Context, reason Reason) (Result, error) {
	s.phase = PhaseSubmitting
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}

	selected := make(map[uuid.UUID]model.OptionLabel, len(s.answers))
	for qid, st := range s.answers {
		if st.Selected != model.OptionNone {
			selected[qid] = st.Selected
		}
	}
	score := grading.Clamp(grading.Score(s.questions, selected))
	finishedAt := time.Now()

	// One record per question, answered or not.
	records := make([]model.AnswerRecord, 0, len(s.questions))
	for _, q := range s.questions {
		st := s.answers[q.ID]
		records = append(records, model.AnswerRecord{
			AttemptID:       s.attemptID,
			QuestionID:      q.ID,
			Selected:        st.Selected,
			MarkedForReview: st.MarkedForReview,
			AnsweredAt:      finishedAt,
		})
	}

	var err error
	if perr := s.store.CompleteAttempt(ctx, s.attemptID, finishedAt, score); perr != nil {
		err = fmt.Errorf("complete attempt: %w", perr)
	} else if perr := s.store.InsertAnswers(ctx, records); perr != nil {
		err = fmt.Errorf("insert answers: %w", perr)
	}

	s.phase = PhaseTerminated
	s.result = Result{Score: score, Reason: reason}
	close(s.done)

	s.log.Info().
		Float64("score", score).
		Str("reason", string(reason)).
		Err(err).
		Msg("Exam submitted")
	return s.result, err
}

// Done is closed once the session reaches TERMINATED, whichever path
// got it there.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result returns the submission outcome. Only meaningful after Done()
// is closed.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// UnansweredCount reports how many questions have no selection. The WS
// handler uses it to demand confirmation before a manual submit.
func (s *Session) UnansweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unansweredLocked()
}

// Snapshot returns the current read-only view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) unansweredLocked() int {
	answered := 0
	for _, st := range s.answers {
		if st.Selected != model.OptionNone {
			answered++
		}
	}
	return len(s.questions) - answered
}

func (s *Session) snapshotLocked() Snapshot {
	answered := 0
	marked := 0
	answers := make(map[string]AnswerState, len(s.answers))
	for qid, st := range s.answers {
		if st.Selected != model.OptionNone {
			answered++
		}
		if st.MarkedForReview {
			marked++
		}
		answers[qid.String()] = st
	}

	progress := 0.0
	if len(s.questions) > 0 {
		progress = float64(answered) / float64(len(s.questions))
	}

	return Snapshot{
		Phase:            s.phase,
		CurrentIndex:     s.current,
		RemainingSeconds: s.remaining,
		Answered:         answered,
		Marked:           marked,
		Unanswered:       len(s.questions) - answered,
		Progress:         progress,
		Answers:          answers,
	}
}
