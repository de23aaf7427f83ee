package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// Use this instead of bare `go func()` to prevent goroutine leaks and crashes.
//
// Example:
//
//	SafeGo(context.Background(), 30*time.Second, "suggestion summarization", func(ctx context.Context) error {
//	    return worker.Summarize(ctx, suggestionID)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logrus.WithFields(logrus.Fields{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			// Log and keep going; the caller decides whether the task is
			// critical enough to retry.
			logrus.WithField("task", taskName).WithError(err).Warn("background task failed")
		}
	}()
}

// Batch processes a slice of items concurrently with a bounded number of
// workers. Each item gets its own timeout; a panic in one item is converted
// to an error without taking down the batch. Returns the errors encountered.
//
// Example:
//
//	errs := Batch(ctx, pending, 4, "summarize sweep", 30*time.Second,
//	    func(ctx context.Context, s *suggestions.Suggestion) error {
//	        return worker.Summarize(ctx, s.ID)
//	    })
func Batch[T any](ctx context.Context, items []T, workers int, taskName string, timeout time.Duration,
	fn func(context.Context, T) error) []error {

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	errCh := make(chan error, len(items))
	for _, item := range items {
		item := item
		group.Go(func() (err error) {
			taskCtx, cancel := context.WithTimeout(groupCtx, timeout)
			defer cancel()

			defer func() {
				if r := recover(); r != nil {
					logrus.WithFields(logrus.Fields{
						"task":  taskName,
						"panic": r,
						"stack": string(debug.Stack()),
					}).Error("panic in batch task")
				}
			}()

			if taskErr := fn(taskCtx, item); taskErr != nil {
				errCh <- taskErr
			}
			// Individual failures are collected, not fatal to the group.
			return nil
		})
	}

	group.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errs
}
