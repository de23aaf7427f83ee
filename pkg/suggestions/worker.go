package suggestions

import (
	"context"
	"errors"
	"time"

	"github.com/opsfloor/sophub/pkg/ai"
	"github.com/opsfloor/sophub/pkg/async"
	"github.com/opsfloor/sophub/pkg/observability"
)

const (
	summarizeTimeout = 45 * time.Second
	sweepBatchSize   = 50
	sweepWorkers     = 4
)

// Worker summarizes queued suggestions through the AI client. Each new
// suggestion gets an immediate asynchronous kick; the periodic sweep picks up
// anything the kick missed (process restarts, upstream hiccups).
type Worker struct {
	store   *Store
	client  *ai.Client
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewWorker creates a summarization worker
func NewWorker(store *Store, client *ai.Client, logger *observability.Logger) *Worker {
	return &Worker{
		store:  store,
		client: client,
		logger: logger,
	}
}

// WithMetrics attaches metrics to the worker
func (w *Worker) WithMetrics(m *observability.Metrics) *Worker {
	w.metrics = m
	return w
}

// Kick schedules an immediate summarization attempt for a new suggestion
func (w *Worker) Kick(id int64) {
	if !w.client.Configured() {
		return
	}
	async.SafeGo(context.Background(), summarizeTimeout, "suggestion summarization",
		func(ctx context.Context) error {
			return w.Summarize(ctx, id)
		})
}

// Summarize processes one suggestion. A suggestion that is no longer queued
// is left alone.
func (w *Worker) Summarize(ctx context.Context, id int64) error {
	suggestion, err := w.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if suggestion.Status != StatusQueued {
		return nil
	}

	summary, err := w.client.Summarize(ctx, suggestion.RawText)
	if err != nil {
		w.logger.WithField("suggestion_id", id).WithError(err).Warn("summarization failed")
		return w.settle(ctx, id, "", StatusFailed)
	}
	return w.settle(ctx, id, summary, StatusSummarized)
}

// settle writes the worker's outcome. A reviewer settling the suggestion
// between the queued-status check and the write wins silently.
func (w *Worker) settle(ctx context.Context, id int64, summary, status string) error {
	err := w.store.SetSummary(ctx, id, summary, status)
	if errors.Is(err, ErrSuggestionSettled) {
		return nil
	}
	if err != nil {
		return err
	}
	w.observe(status)
	return nil
}

// Sweep summarizes every still-queued suggestion. Safe to run on a schedule;
// does nothing when the AI client has no key.
func (w *Worker) Sweep(ctx context.Context) {
	if !w.client.Configured() {
		return
	}

	pending, err := w.store.ListQueued(ctx, sweepBatchSize)
	if err != nil {
		w.logger.WithError(err).Error("failed to list queued suggestions")
		return
	}
	if len(pending) == 0 {
		return
	}

	w.logger.WithField("count", len(pending)).Info("sweeping queued suggestions")
	errs := async.Batch(ctx, pending, sweepWorkers, "summarize sweep", summarizeTimeout,
		func(ctx context.Context, s *Suggestion) error {
			return w.Summarize(ctx, s.ID)
		})
	for _, err := range errs {
		w.logger.WithError(err).Warn("sweep summarization error")
	}
}

func (w *Worker) observe(status string) {
	if w.metrics == nil {
		return
	}
	w.metrics.SuggestionsSummarizedTotal.WithLabelValues(status).Inc()
}
