package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examforge/examforge-backend/internal/model"
)

type fakeStore struct {
	mu            sync.Mutex
	completeCalls int
	insertCalls   int
	score         float64
	records       []model.AnswerRecord
	completeErr   error
	insertErr     error
}

func (f *fakeStore) CompleteAttempt(_ context.Context, _ uuid.UUID, _ time.Time, totalScore float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	f.score = totalScore
	return f.completeErr
}

func (f *fakeStore) InsertAnswers(_ context.Context, records []model.AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	f.records = records
	return f.insertErr
}

func testQuestions() []model.Question {
	return []model.Question{
		{ID: uuid.New(), CorrectOption: model.OptionA, Marks: 2, NegativeMarks: 0.5, QuestionOrder: 1},
		{ID: uuid.New(), CorrectOption: model.OptionB, Marks: 2, NegativeMarks: 0.5, QuestionOrder: 2},
		{ID: uuid.New(), CorrectOption: model.OptionC, Marks: 1, QuestionOrder: 3},
	}
}

func activeSession(t *testing.T, questions []model.Question, store Store, remaining int) *Session {
	t.Helper()
	s := New(uuid.New(), uuid.New(), questions, remaining, store, zerolog.Nop())
	if err := s.Activate(context.Background()); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	return s
}

func TestSelectAnswer_Toggles(t *testing.T) {
	qs := testQuestions()
	s := activeSession(t, qs, &fakeStore{}, 600)
	qid := qs[0].ID

	snap, err := s.SelectAnswer(qid, model.OptionA)
	if err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if got := snap.Answers[qid.String()].Selected; got != model.OptionA {
		t.Fatalf("selected = %q, want A", got)
	}

	// Same option again clears the selection.
	snap, err = s.SelectAnswer(qid, model.OptionA)
	if err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if got := snap.Answers[qid.String()].Selected; got != model.OptionNone {
		t.Fatalf("selected = %q, want empty after re-select", got)
	}

	// A different option replaces.
	s.SelectAnswer(qid, model.OptionB)
	snap, _ = s.SelectAnswer(qid, model.OptionC)
	if got := snap.Answers[qid.String()].Selected; got != model.OptionC {
		t.Fatalf("selected = %q, want C", got)
	}
}

func TestSelectAnswer_PreservesReviewFlag(t *testing.T) {
	qs := testQuestions()
	s := activeSession(t, qs, &fakeStore{}, 600)
	qid := qs[0].ID

	s.ToggleReview(qid)
	snap, _ := s.SelectAnswer(qid, model.OptionB)
	st := snap.Answers[qid.String()]
	if !st.MarkedForReview {
		t.Error("review flag lost by SelectAnswer")
	}
	if st.Selected != model.OptionB {
		t.Errorf("selected = %q, want B", st.Selected)
	}
}

func TestToggleReview_FlipsTwiceBackToOriginal(t *testing.T) {
	qs := testQuestions()
	s := activeSession(t, qs, &fakeStore{}, 600)
	qid := qs[1].ID

	s.SelectAnswer(qid, model.OptionD)
	snap, _ := s.ToggleReview(qid)
	if !snap.Answers[qid.String()].MarkedForReview {
		t.Fatal("first toggle should mark for review")
	}
	snap, _ = s.ToggleReview(qid)
	st := snap.Answers[qid.String()]
	if st.MarkedForReview {
		t.Error("second toggle should clear the flag")
	}
	if st.Selected != model.OptionD {
		t.Errorf("selected = %q, ToggleReview must not alter it", st.Selected)
	}
}

func TestSelectAnswer_UnknownQuestion(t *testing.T) {
	s := activeSession(t, testQuestions(), &fakeStore{}, 600)
	if _, err := s.SelectAnswer(uuid.New(), model.OptionA); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("err = %v, want ErrUnknownQuestion", err)
	}
}

func TestNavigation_Clamps(t *testing.T) {
	qs := testQuestions()
	s := activeSession(t, qs, &fakeStore{}, 600)

	// Prev from index 0 is a no-op.
	snap, _ := s.Prev()
	if snap.CurrentIndex != 0 {
		t.Errorf("Prev at 0: index = %d, want 0", snap.CurrentIndex)
	}

	last := len(qs) - 1
	snap, _ = s.GoTo(last)
	if snap.CurrentIndex != last {
		t.Fatalf("GoTo(%d): index = %d", last, snap.CurrentIndex)
	}

	// Next from the last index is a no-op.
	snap, _ = s.Next()
	if snap.CurrentIndex != last {
		t.Errorf("Next at last: index = %d, want %d", snap.CurrentIndex, last)
	}

	// Out-of-range explicit index is ignored.
	snap, _ = s.GoTo(99)
	if snap.CurrentIndex != last {
		t.Errorf("GoTo(99): index = %d, want %d", snap.CurrentIndex, last)
	}
	snap, _ = s.GoTo(-1)
	if snap.CurrentIndex != last {
		t.Errorf("GoTo(-1): index = %d, want %d", snap.CurrentIndex, last)
	}
}

func TestSubmit_ScoresAndWritesAllAnswers(t *testing.T) {
	qs := testQuestions()
	store := &fakeStore{}
	s := activeSession(t, qs, store, 600)

	s.SelectAnswer(qs[0].ID, model.OptionA) // correct: +2
	s.SelectAnswer(qs[1].ID, model.OptionC) // wrong: -0.5
	// qs[2] left unanswered: 0

	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 1.5 {
		t.Errorf("score = %v, want 1.5", res.Score)
	}
	if res.Reason != ReasonManual {
		t.Errorf("reason = %q, want manual", res.Reason)
	}
	if store.score != 1.5 {
		t.Errorf("persisted score = %v, want 1.5", store.score)
	}
	if len(store.records) != len(qs) {
		t.Fatalf("records = %d, want one per question (%d)", len(store.records), len(qs))
	}
	for _, rec := range store.records {
		if rec.QuestionID == qs[2].ID && rec.Selected != model.OptionNone {
			t.Errorf("unanswered question persisted with selection %q", rec.Selected)
		}
	}
}

func TestSubmit_ClampsNegativeTotal(t *testing.T) {
	qs := testQuestions()
	store := &fakeStore{}
	s := activeSession(t, qs, store, 600)

	s.SelectAnswer(qs[0].ID, model.OptionB)
	s.SelectAnswer(qs[1].ID, model.OptionA)

	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 0 {
		t.Errorf("score = %v, want 0 after clamp", res.Score)
	}
}

func TestSubmit_SingleUse(t *testing.T) {
	store := &fakeStore{}
	s := activeSession(t, testQuestions(), store, 600)

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Fatalf("second Submit err = %v, want ErrNotActive", err)
	}
	if store.completeCalls != 1 {
		t.Errorf("completeCalls = %d, want 1", store.completeCalls)
	}
	if store.insertCalls != 1 {
		t.Errorf("insertCalls = %d, want 1", store.insertCalls)
	}
}

func TestTick_TimeoutAutoSubmits(t *testing.T) {
	qs := testQuestions()
	store := &fakeStore{}
	s := activeSession(t, qs, store, 2)

	s.SelectAnswer(qs[0].ID, model.OptionA)

	if done := s.Tick(context.Background()); done {
		t.Fatal("tick with time left should not finish the session")
	}
	if done := s.Tick(context.Background()); !done {
		t.Fatal("tick reaching zero should finish the session")
	}

	if s.Phase() != PhaseTerminated {
		t.Fatalf("phase = %s, want TERMINATED", s.Phase())
	}
	if got := s.Result(); got.Reason != ReasonTimeout {
		t.Errorf("reason = %q, want timeout", got.Reason)
	}
	if store.score != 2 {
		t.Errorf("persisted score = %v, want 2", store.score)
	}

	// Further ticks are ignored and do not resubmit.
	if done := s.Tick(context.Background()); !done {
		t.Error("tick after termination should report done")
	}
	if store.completeCalls != 1 {
		t.Errorf("completeCalls = %d, want 1", store.completeCalls)
	}
}

func TestSubmit_StoreFailureStillTerminates(t *testing.T) {
	store := &fakeStore{completeErr: errors.New("connection reset")}
	s := activeSession(t, testQuestions(), store, 600)

	_, err := s.Submit(context.Background())
	if err == nil {
		t.Fatal("Submit should surface the persist error")
	}
	if s.Phase() != PhaseTerminated {
		t.Fatalf("phase = %s, want TERMINATED despite persist failure", s.Phase())
	}

	select {
	case <-s.Done():
	default:
		t.Error("Done() must be closed after a failed submit")
	}

	// No retry on the failed write.
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Errorf("resubmit err = %v, want ErrNotActive", err)
	}
}

func TestOperationsRejectedAfterTerminate(t *testing.T) {
	qs := testQuestions()
	s := activeSession(t, qs, &fakeStore{}, 600)
	s.Submit(context.Background())

	if _, err := s.SelectAnswer(qs[0].ID, model.OptionA); !errors.Is(err, ErrNotActive) {
		t.Errorf("SelectAnswer err = %v, want ErrNotActive", err)
	}
	if _, err := s.ToggleReview(qs[0].ID); !errors.Is(err, ErrNotActive) {
		t.Errorf("ToggleReview err = %v, want ErrNotActive", err)
	}
	if _, err := s.Next(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Next err = %v, want ErrNotActive", err)
	}
}

func TestSnapshot_DerivedCounts(t *testing.T) {
	qs := testQuestions()
	s := activeSession(t, qs, &fakeStore{}, 600)

	s.SelectAnswer(qs[0].ID, model.OptionA)
	s.SelectAnswer(qs[1].ID, model.OptionD)
	s.ToggleReview(qs[2].ID)

	snap := s.Snapshot()
	if snap.Answered != 2 {
		t.Errorf("answered = %d, want 2", snap.Answered)
	}
	if snap.Marked != 1 {
		t.Errorf("marked = %d, want 1", snap.Marked)
	}
	if snap.Unanswered != 1 {
		t.Errorf("unanswered = %d, want 1", snap.Unanswered)
	}
	if want := 2.0 / 3.0; snap.Progress != want {
		t.Errorf("progress = %v, want %v", snap.Progress, want)
	}
}

func TestManager_DropsTerminatedSessions(t *testing.T) {
	m := NewManager()
	examID := uuid.New()
	userID := uuid.New()

	s := activeSession(t, testQuestions(), &fakeStore{}, 600)
	m.Put(examID, userID, s)

	if got := m.Get(examID, userID); got != s {
		t.Fatal("Get should return the live session")
	}

	s.Submit(context.Background())
	if got := m.Get(examID, userID); got != nil {
		t.Error("Get should drop a terminated session")
	}
}
