// Package async provides safe concurrent execution primitives for background tasks.
//
// # Overview
//
// This package handles goroutine lifecycle management with panic recovery,
// timeout enforcement, context cancellation, and error collection.
//
// # Key Functions
//
// SafeGo: Execute function in goroutine with safety features
//
//	async.SafeGo(ctx, 30*time.Second, "suggestion summarization", func(ctx context.Context) error {
//		return worker.Summarize(ctx, id)
//	})
//
// Batch: Bounded concurrent batch processing
//
//	errs := async.Batch(ctx, items, 4, "summarize sweep", 30*time.Second, fn)
//
// # Use Cases
//
// Suggestion summarization kicked from request handlers, and the periodic
// sweep that retries anything the immediate kick missed.
package async
