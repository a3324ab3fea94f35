package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/service"
)

// ResultsPollTimeout bounds each queue poll so shutdown is prompt.
const ResultsPollTimeout = 1 * time.Second

// ResultsWorker drains the compute-results queue and runs the results
// job for each requested exam. A failed run is logged and dropped, not
// requeued; the admin re-triggers it after fixing the cause.
type ResultsWorker struct {
	results *service.ResultService
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewResultsWorker creates a new ResultsWorker.
func NewResultsWorker(results *service.ResultService, rdb *redis.Client, log zerolog.Logger) *ResultsWorker {
	return &ResultsWorker{
		results: results,
		rdb:     rdb,
		log:     log.With().Str("component", "results_worker").Logger(),
	}
}

type resultsPayload struct {
	ExamID string `json:"exam_id"`
}

// Enqueue pushes an exam onto the compute-results queue.
func Enqueue(ctx context.Context, rdb *redis.Client, examID uuid.UUID) error {
	raw, err := json.Marshal(resultsPayload{ExamID: examID.String()})
	if err != nil {
		return err
	}
	return rdb.RPush(ctx, config.WorkerKey.ComputeResultsQueue, raw).Err()
}

// Start runs the worker loop until the context is cancelled.
func (w *ResultsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultsWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. ResultsWorker stopping")
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultsPollTimeout, config.WorkerKey.ComputeResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p resultsPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			w.run(ctx, p)
		}
	}
}

func (w *ResultsWorker) run(ctx context.Context, p resultsPayload) {
	examID, err := uuid.Parse(p.ExamID)
	if err != nil {
		w.log.Error().Err(err).Str("exam_id", p.ExamID).Msg("Invalid exam id in payload")
		return
	}

	start := time.Now()
	summary, err := w.results.ComputeResults(ctx, examID)
	if err != nil {
		w.log.Error().Err(err).Str("exam_id", p.ExamID).Msg("Results computation failed")
		return
	}

	w.log.Info().
		Str("exam_id", p.ExamID).
		Int("attempts_scored", summary.AttemptsScored).
		Dur("elapsed", time.Since(start)).
		Msg("Results computation finished")
}
