package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examforge/examforge-backend/internal/grading"
	"github.com/examforge/examforge-backend/internal/model"
)

// AttemptReview combines an attempt with its student for the admin
// submissions view.
type AttemptReview struct {
	AttemptID  uuid.UUID           `json:"attempt_id"`
	UserID     uuid.UUID           `json:"user_id"`
	FullName   string              `json:"full_name"`
	Email      string              `json:"email"`
	Status     model.AttemptStatus `json:"status"`
	TotalScore *float64            `json:"total_score,omitempty"`
	Rank       *int                `json:"rank,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// MyAttempt is a student's own attempt with exam metadata.
type MyAttempt struct {
	AttemptID  uuid.UUID           `json:"attempt_id"`
	ExamID     uuid.UUID           `json:"exam_id"`
	ExamTitle  string              `json:"exam_title"`
	ExamStatus model.ExamStatus    `json:"exam_status"`
	Status     model.AttemptStatus `json:"status"`
	TotalScore *float64            `json:"total_score,omitempty"`
	Rank       *int                `json:"rank,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	Rank       int       `json:"rank"`
	UserID     uuid.UUID `json:"user_id"`
	FullName   string    `json:"full_name"`
	ExamID     uuid.UUID `json:"exam_id"`
	ExamTitle  string    `json:"exam_title"`
	TotalScore float64   `json:"total_score"`
}

// AttemptRepository handles exam attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a new attempt for (exam, user). The unique constraint
// keeps concurrent starts (two open tabs) down to a single row; on
// conflict the insert returns pgx.ErrNoRows and the caller fetches the
// existing attempt instead.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (exam_id, user_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (exam_id, user_id) DO NOTHING
		 RETURNING id, started_at`,
		a.ExamID, a.UserID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.StartedAt)
}

// GetByExamAndUser retrieves the attempt for an exam-user pair.
func (r *AttemptRepository) GetByExamAndUser(ctx context.Context, examID, userID uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, started_at, finished_at, status, total_score, rank
		 FROM exam_attempts
		 WHERE exam_id = $1 AND user_id = $2`, examID, userID,
	).Scan(&a.ID, &a.ExamID, &a.UserID, &a.StartedAt, &a.FinishedAt, &a.Status, &a.TotalScore, &a.Rank)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CompleteAttempt marks an attempt submitted: end time, final score,
// COMPLETED status. Satisfies session.Store.
func (r *AttemptRepository) CompleteAttempt(ctx context.Context, attemptID uuid.UUID, finishedAt time.Time, totalScore float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $1, total_score = $2, finished_at = $3
		 WHERE id = $4`,
		model.AttemptStatusCompleted, totalScore, finishedAt, attemptID)
	return err
}

// ListCompletedByExam retrieves every completed attempt of an exam.
func (r *AttemptRepository) ListCompletedByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, user_id, started_at, finished_at, status, total_score, rank
		 FROM exam_attempts
		 WHERE exam_id = $1 AND status = $2
		 ORDER BY started_at`, examID, model.AttemptStatusCompleted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		var a model.ExamAttempt
		if err := rows.Scan(&a.ID, &a.ExamID, &a.UserID, &a.StartedAt, &a.FinishedAt, &a.Status, &a.TotalScore, &a.Rank); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListCompletedScores retrieves (attempt, score) pairs for an exam's
// completed attempts, sorted by score descending as the ranking engine
// expects.
func (r *AttemptRepository) ListCompletedScores(ctx context.Context, examID uuid.UUID) ([]grading.ScoreEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, total_score
		 FROM exam_attempts
		 WHERE exam_id = $1 AND status = $2 AND total_score IS NOT NULL
		 ORDER BY total_score DESC`, examID, model.AttemptStatusCompleted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []grading.ScoreEntry
	for rows.Next() {
		var e grading.ScoreEntry
		if err := rows.Scan(&e.AttemptID, &e.Score); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpdateScore overwrites an attempt's total score (results job path).
func (r *AttemptRepository) UpdateScore(ctx context.Context, attemptID uuid.UUID, score float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts SET total_score = $1 WHERE id = $2`, score, attemptID)
	return err
}

// UpdateRank sets an attempt's rank.
func (r *AttemptRepository) UpdateRank(ctx context.Context, attemptID uuid.UUID, rank int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts SET rank = $1 WHERE id = $2`, rank, attemptID)
	return err
}

// ListByUser retrieves a student's attempts with exam metadata, newest
// first. Score and rank are masked until results are announced.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]MyAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, e.id, e.title, e.status, a.status, a.total_score, a.rank, a.started_at, a.finished_at
		 FROM exam_attempts a
		 JOIN exams e ON a.exam_id = e.id
		 WHERE a.user_id = $1
		 ORDER BY a.started_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []MyAttempt
	for rows.Next() {
		var rec MyAttempt
		if err := rows.Scan(&rec.AttemptID, &rec.ExamID, &rec.ExamTitle, &rec.ExamStatus,
			&rec.Status, &rec.TotalScore, &rec.Rank, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		if rec.ExamStatus != model.ExamStatusResultsAnnounced {
			rec.TotalScore = nil
			rec.Rank = nil
		}
		attempts = append(attempts, rec)
	}
	return attempts, rows.Err()
}

// ListByExam retrieves all attempts of an exam with student identity,
// for the admin submissions review.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]AttemptReview, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.user_id, u.full_name, u.email, a.status, a.total_score, a.rank, a.started_at, a.finished_at
		 FROM exam_attempts a
		 JOIN users u ON a.user_id = u.id
		 WHERE a.exam_id = $1
		 ORDER BY a.started_at`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []AttemptReview
	for rows.Next() {
		var rec AttemptReview
		if err := rows.Scan(&rec.AttemptID, &rec.UserID, &rec.FullName, &rec.Email,
			&rec.Status, &rec.TotalScore, &rec.Rank, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, rec)
	}
	return attempts, rows.Err()
}

// ListLeaderboard retrieves announced results across exams, ordered by
// score descending.
func (r *AttemptRepository) ListLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT COALESCE(a.rank, 0), a.user_id, u.full_name, e.id, e.title, a.total_score
		 FROM exam_attempts a
		 JOIN exams e ON a.exam_id = e.id
		 JOIN users u ON a.user_id = u.id
		 WHERE a.status = $1 AND a.total_score IS NOT NULL AND e.status = $2
		 ORDER BY a.total_score DESC
		 LIMIT $3`,
		model.AttemptStatusCompleted, model.ExamStatusResultsAnnounced, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.UserID, &e.FullName, &e.ExamID, &e.ExamTitle, &e.TotalScore); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
