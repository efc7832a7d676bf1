// Package worker runs background consumers fed through Redis lists.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/pickline/backend/internal/config"
	"github.com/pickline/backend/internal/metrics"
	"github.com/pickline/backend/internal/models"
	"github.com/pickline/backend/internal/services"
)

// SettlementJob settles either a single entry or every active entry of a
// contest.
type SettlementJob struct {
	EntryID   *uuid.UUID     `json:"entryId,omitempty"`
	ContestID *uuid.UUID     `json:"contestId,omitempty"`
	Outcome   models.Outcome `json:"outcome" swaggertype:"object,string"`
}

// Validate requires exactly one target and a non-empty outcome.
func (j *SettlementJob) Validate() error {
	if (j.EntryID == nil) == (j.ContestID == nil) {
		return fmt.Errorf("%w: exactly one of entryId or contestId is required", services.ErrValidation)
	}
	if len(j.Outcome) == 0 {
		return fmt.Errorf("%w: outcome is required", services.ErrValidation)
	}
	return nil
}

// DeadLetter wraps a job that could not be processed.
type DeadLetter struct {
	Payload  string    `json:"payload"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failedAt"`
}

// Settler is the part of the ledger the worker drives.
type Settler interface {
	SettleEntry(ctx context.Context, entryID uuid.UUID, outcome models.Outcome) (*models.Entry, error)
	SettleContest(ctx context.Context, contestID uuid.UUID, outcome models.Outcome) (*models.SettlementSummary, error)
}

// SettlementQueue is the producer side used by the admin API.
type SettlementQueue struct {
	rdb *redis.Client
	key string
}

func NewSettlementQueue(rdb *redis.Client, cfg config.SettlementConfig) *SettlementQueue {
	return &SettlementQueue{rdb: rdb, key: cfg.QueueKey}
}

// Enqueue appends job to the settlement queue.
func (q *SettlementQueue) Enqueue(ctx context.Context, job SettlementJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if q.rdb == nil {
		return errors.New("settlement queue unavailable")
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement job: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue settlement job: %w", err)
	}
	return nil
}

const writeTimeout = 5 * time.Second

type SettlementWorker struct {
	rdb         *redis.Client
	settler     Settler
	queueKey    string
	deadKey     string
	pollTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewSettlementWorker(rdb *redis.Client, settler Settler, cfg config.SettlementConfig, logger *slog.Logger) *SettlementWorker {
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &SettlementWorker{
		rdb:         rdb,
		settler:     settler,
		queueKey:    cfg.QueueKey,
		deadKey:     cfg.QueueKey + ":dead",
		pollTimeout: poll,
		logger:      logger.With(slog.String("component", "settlement_worker")),
		now:         time.Now,
	}
}

// Run consumes jobs until ctx is cancelled.
func (w *SettlementWorker) Run(ctx context.Context) {
	w.logger.Info("settlement worker started", slog.String("queue", w.queueKey))
	for {
		if ctx.Err() != nil {
			w.logger.Info("settlement worker stopped")
			return
		}
		if _, err := w.ProcessNext(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("failed to read settlement queue", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessNext waits up to the poll timeout for one job and handles it. It
// reports whether a job was taken off the queue.
func (w *SettlementWorker) ProcessNext(ctx context.Context) (bool, error) {
	res, err := w.rdb.BLPop(ctx, w.pollTimeout, w.queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(res) != 2 {
		return false, fmt.Errorf("unexpected BLPOP reply of length %d", len(res))
	}

	payload := res[1]
	if err := w.handle(ctx, payload); err != nil {
		if ctx.Err() != nil {
			// Interrupted by shutdown. Entries settled so far are skipped
			// when the job runs again.
			metrics.SettlementJobsTotal.WithLabelValues("requeued").Inc()
			w.logger.Warn("settlement job interrupted, requeueing",
				slog.String("payload", payload),
				slog.String("error", err.Error()),
			)
			w.requeue(ctx, payload)
			return true, nil
		}
		metrics.SettlementJobsTotal.WithLabelValues("dead").Inc()
		w.logger.Error("settlement job failed",
			slog.String("payload", payload),
			slog.String("error", err.Error()),
		)
		w.deadLetter(ctx, payload, err)
		return true, nil
	}
	metrics.SettlementJobsTotal.WithLabelValues("ok").Inc()
	return true, nil
}

func (w *SettlementWorker) handle(ctx context.Context, payload string) error {
	var job SettlementJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return fmt.Errorf("%w: malformed job: %v", services.ErrValidation, err)
	}
	if err := job.Validate(); err != nil {
		return err
	}

	if job.EntryID != nil {
		entry, err := w.settler.SettleEntry(ctx, *job.EntryID, job.Outcome)
		if errors.Is(err, services.ErrAlreadySettled) {
			w.logger.Info("entry already settled", slog.String("entry_id", job.EntryID.String()))
			return nil
		}
		if err != nil {
			return err
		}
		w.logger.Info("entry settled",
			slog.String("entry_id", entry.ID.String()),
			slog.String("status", entry.Status),
		)
		return nil
	}

	summary, err := w.settler.SettleContest(ctx, *job.ContestID, job.Outcome)
	if err != nil {
		return err
	}
	w.logger.Info("contest settled",
		slog.String("contest_id", job.ContestID.String()),
		slog.Any("settled", summary.Settled),
		slog.Int("skipped", summary.Skipped),
	)
	return nil
}

// writeContext outlives cancellation of ctx so a job already popped off the
// queue can still be written back during shutdown.
func writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
}

func (w *SettlementWorker) requeue(ctx context.Context, payload string) {
	ctx, cancel := writeContext(ctx)
	defer cancel()
	if err := w.rdb.LPush(ctx, w.queueKey, payload).Err(); err != nil {
		w.logger.Error("failed to requeue settlement job",
			slog.String("payload", payload),
			slog.String("error", err.Error()),
		)
	}
}

func (w *SettlementWorker) deadLetter(ctx context.Context, payload string, cause error) {
	data, err := json.Marshal(DeadLetter{Payload: payload, Error: cause.Error(), FailedAt: w.now().UTC()})
	if err != nil {
		return
	}
	ctx, cancel := writeContext(ctx)
	defer cancel()
	if err := w.rdb.RPush(ctx, w.deadKey, data).Err(); err != nil {
		w.logger.Error("failed to dead-letter settlement job",
			slog.String("payload", payload),
			slog.String("error", err.Error()),
		)
	}
}
