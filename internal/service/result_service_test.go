package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examforge/examforge-backend/internal/grading"
	"github.com/examforge/examforge-backend/internal/model"
)

type fakeResultStore struct {
	exam      *model.Exam
	questions []model.Question
	attempts  []model.ExamAttempt
	answers   map[uuid.UUID][]model.AnswerRecord

	scores map[uuid.UUID]float64
	ranks  map[uuid.UUID]int

	scoreErr error
	rankErr  error
}

func newFakeResultStore(exam *model.Exam) *fakeResultStore {
	return &fakeResultStore{
		exam:    exam,
		answers: make(map[uuid.UUID][]model.AnswerRecord),
		scores:  make(map[uuid.UUID]float64),
		ranks:   make(map[uuid.UUID]int),
	}
}

func (f *fakeResultStore) GetByID(_ context.Context, _ uuid.UUID) (*model.Exam, error) {
	return f.exam, nil
}

func (f *fakeResultStore) UpdateStatus(_ context.Context, _ uuid.UUID, status model.ExamStatus) error {
	f.exam.Status = status
	return nil
}

func (f *fakeResultStore) ListByExam(_ context.Context, _ uuid.UUID) ([]model.Question, error) {
	return f.questions, nil
}

func (f *fakeResultStore) ListCompletedByExam(_ context.Context, _ uuid.UUID) ([]model.ExamAttempt, error) {
	return f.attempts, nil
}

func (f *fakeResultStore) ListCompletedScores(_ context.Context, _ uuid.UUID) ([]grading.ScoreEntry, error) {
	entries := make([]grading.ScoreEntry, 0, len(f.scores))
	for id, score := range f.scores {
		entries = append(entries, grading.ScoreEntry{AttemptID: id, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	return entries, nil
}

func (f *fakeResultStore) UpdateScore(_ context.Context, attemptID uuid.UUID, score float64) error {
	if f.scoreErr != nil {
		return f.scoreErr
	}
	f.scores[attemptID] = score
	return nil
}

func (f *fakeResultStore) UpdateRank(_ context.Context, attemptID uuid.UUID, rank int) error {
	if f.rankErr != nil {
		return f.rankErr
	}
	f.ranks[attemptID] = rank
	return nil
}

func (f *fakeResultStore) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.AnswerRecord, error) {
	return f.answers[attemptID], nil
}

func (f *fakeResultStore) addAttempt(records ...model.AnswerRecord) uuid.UUID {
	id := uuid.New()
	f.attempts = append(f.attempts, model.ExamAttempt{
		ID:     id,
		ExamID: f.exam.ID,
		UserID: uuid.New(),
		Status: model.AttemptStatusCompleted,
	})
	for i := range records {
		records[i].AttemptID = id
	}
	f.answers[id] = records
	return id
}

func newResultService(f *fakeResultStore) *ResultService {
	return NewResultService(f, f, f, f, zerolog.Nop())
}

func twoQuestionExam() (*model.Exam, []model.Question) {
	exam := &model.Exam{ID: uuid.New(), Status: model.ExamStatusCompleted}
	questions := []model.Question{
		{ID: uuid.New(), ExamID: exam.ID, CorrectOption: model.OptionA, Marks: 2, NegativeMarks: 0.5},
		{ID: uuid.New(), ExamID: exam.ID, CorrectOption: model.OptionB, Marks: 2, NegativeMarks: 0.5},
	}
	return exam, questions
}

func TestComputeResultsScoresAndAnnounces(t *testing.T) {
	exam, questions := twoQuestionExam()
	f := newFakeResultStore(exam)
	f.questions = questions

	// One correct, one wrong: 2 - 0.5 = 1.5.
	attemptID := f.addAttempt(
		model.AnswerRecord{QuestionID: questions[0].ID, Selected: model.OptionA},
		model.AnswerRecord{QuestionID: questions[1].ID, Selected: model.OptionC},
	)

	summary, err := newResultService(f).ComputeResults(context.Background(), exam.ID)
	if err != nil {
		t.Fatalf("ComputeResults: %v", err)
	}
	if summary.AttemptsScored != 1 || summary.AttemptsRanked != 1 {
		t.Errorf("summary = %+v, want 1 scored, 1 ranked", summary)
	}
	if got := f.scores[attemptID]; got != 1.5 {
		t.Errorf("score = %v, want 1.5", got)
	}
	if got := f.ranks[attemptID]; got != 1 {
		t.Errorf("rank = %v, want 1", got)
	}
	if exam.Status != model.ExamStatusResultsAnnounced {
		t.Errorf("exam status = %s, want %s", exam.Status, model.ExamStatusResultsAnnounced)
	}
}

func TestComputeResultsClampsNegativeTotals(t *testing.T) {
	exam, questions := twoQuestionExam()
	f := newFakeResultStore(exam)
	f.questions = questions

	// Both wrong: raw -1.0 clamps to 0.
	attemptID := f.addAttempt(
		model.AnswerRecord{QuestionID: questions[0].ID, Selected: model.OptionD},
		model.AnswerRecord{QuestionID: questions[1].ID, Selected: model.OptionD},
	)

	if _, err := newResultService(f).ComputeResults(context.Background(), exam.ID); err != nil {
		t.Fatalf("ComputeResults: %v", err)
	}
	if got := f.scores[attemptID]; got != 0 {
		t.Errorf("score = %v, want 0", got)
	}
}

func TestComputeResultsAssignsDenseRanks(t *testing.T) {
	exam, questions := twoQuestionExam()
	f := newFakeResultStore(exam)
	f.questions = questions

	// Two perfect sheets tie at rank 1, one blank sheet lands at rank 3.
	perfect := []model.AnswerRecord{
		{QuestionID: questions[0].ID, Selected: model.OptionA},
		{QuestionID: questions[1].ID, Selected: model.OptionB},
	}
	first := f.addAttempt(perfect[0], perfect[1])
	second := f.addAttempt(perfect[0], perfect[1])
	blank := f.addAttempt()

	if _, err := newResultService(f).ComputeResults(context.Background(), exam.ID); err != nil {
		t.Fatalf("ComputeResults: %v", err)
	}
	if f.ranks[first] != 1 || f.ranks[second] != 1 {
		t.Errorf("tied ranks = %d, %d, want 1, 1", f.ranks[first], f.ranks[second])
	}
	if f.ranks[blank] != 3 {
		t.Errorf("blank sheet rank = %d, want 3", f.ranks[blank])
	}
}

func TestComputeResultsIsRepeatable(t *testing.T) {
	exam, questions := twoQuestionExam()
	f := newFakeResultStore(exam)
	f.questions = questions
	attemptID := f.addAttempt(
		model.AnswerRecord{QuestionID: questions[0].ID, Selected: model.OptionA},
	)

	svc := newResultService(f)
	if _, err := svc.ComputeResults(context.Background(), exam.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// Second run over an announced exam produces identical results.
	if _, err := svc.ComputeResults(context.Background(), exam.ID); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := f.scores[attemptID]; got != 2 {
		t.Errorf("score after rerun = %v, want 2", got)
	}
	if got := f.ranks[attemptID]; got != 1 {
		t.Errorf("rank after rerun = %v, want 1", got)
	}
}

func TestComputeResultsRejectsRunningExam(t *testing.T) {
	exam, _ := twoQuestionExam()
	exam.Status = model.ExamStatusActive
	f := newFakeResultStore(exam)

	if _, err := newResultService(f).ComputeResults(context.Background(), exam.ID); !errors.Is(err, ErrExamNotFinished) {
		t.Errorf("err = %v, want ErrExamNotFinished", err)
	}
}

func TestComputeResultsAbortsOnFirstWriteError(t *testing.T) {
	exam, questions := twoQuestionExam()
	f := newFakeResultStore(exam)
	f.questions = questions
	f.addAttempt(model.AnswerRecord{QuestionID: questions[0].ID, Selected: model.OptionA})
	f.scoreErr = errors.New("connection reset")

	_, err := newResultService(f).ComputeResults(context.Background(), exam.ID)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(f.ranks) != 0 {
		t.Errorf("ranks written after aborted run: %v", f.ranks)
	}
	if exam.Status != model.ExamStatusCompleted {
		t.Errorf("exam status = %s, want unchanged %s", exam.Status, model.ExamStatusCompleted)
	}
}
