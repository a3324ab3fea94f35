package handler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/session"
)

type noopStore struct{}

func (noopStore) CompleteAttempt(ctx context.Context, attemptID uuid.UUID, finishedAt time.Time, totalScore float64) error {
	return nil
}

func (noopStore) InsertAnswers(ctx context.Context, records []model.AnswerRecord) error {
	return nil
}

func newActiveSession(t *testing.T) *session.Session {
	t.Helper()
	examID := uuid.New()
	q := model.Question{ID: uuid.New(), ExamID: examID, CorrectOption: model.OptionA, Marks: 1}
	sess := session.New(uuid.New(), examID, []model.Question{q}, 600, noopStore{}, zerolog.Nop())
	if err := sess.Activate(context.Background()); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	return sess
}

func TestWatchTerminationUnwindsOnDisconnect(t *testing.T) {
	sess := newActiveSession(t)
	defer sess.Submit(context.Background())

	var fired atomic.Bool
	stop := make(chan struct{})
	done := watchTermination(sess, stop, func() { fired.Store(true) })

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher still running after stop closed")
	}
	if fired.Load() {
		t.Fatal("onTerminated fired for a disconnect")
	}
	if got := sess.Phase(); got != session.PhaseActive {
		t.Fatalf("session phase = %s, want %s", got, session.PhaseActive)
	}
}

func TestWatchTerminationFiresOnSessionEnd(t *testing.T) {
	sess := newActiveSession(t)

	var fired atomic.Bool
	stop := make(chan struct{})
	done := watchTermination(sess, stop, func() { fired.Store(true) })

	if _, err := sess.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher still running after session terminated")
	}
	if !fired.Load() {
		t.Fatal("onTerminated did not fire on session end")
	}
	close(stop)
}
