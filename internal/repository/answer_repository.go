package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examforge/examforge-backend/internal/model"
)

// AnswerRepository handles submitted answer data access.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// InsertAnswers writes the full answer sheet of an attempt in one
// batch. A resubmitted sheet (crash between attempt update and answer
// insert) overwrites the previous rows. Satisfies session.Store.
func (r *AnswerRepository) InsertAnswers(ctx context.Context, records []model.AnswerRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(
			`INSERT INTO answers (attempt_id, question_id, selected_option, marked_for_review, answered_at)
			 VALUES ($1, $2, NULLIF($3, ''), $4, $5)
			 ON CONFLICT (attempt_id, question_id) DO UPDATE
			 SET selected_option = EXCLUDED.selected_option,
			     marked_for_review = EXCLUDED.marked_for_review,
			     answered_at = EXCLUDED.answered_at`,
			rec.AttemptID, rec.QuestionID, string(rec.Selected), rec.MarkedForReview, rec.AnsweredAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

// ListByAttempt retrieves the answer sheet of an attempt.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, question_id, COALESCE(selected_option, ''), marked_for_review, answered_at
		 FROM answers
		 WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AnswerRecord
	for rows.Next() {
		var rec model.AnswerRecord
		var selected string
		if err := rows.Scan(&rec.AttemptID, &rec.QuestionID, &selected, &rec.MarkedForReview, &rec.AnsweredAt); err != nil {
			return nil, err
		}
		rec.Selected = model.OptionLabel(selected)
		records = append(records, rec)
	}
	return records, rows.Err()
}
