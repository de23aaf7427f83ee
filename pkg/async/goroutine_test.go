package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSafeGo_Success(t *testing.T) {
	ctx := context.Background()
	executed := atomic.Bool{}

	SafeGo(ctx, 1*time.Second, "test task", func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})

	// Wait for goroutine to complete
	time.Sleep(100 * time.Millisecond)

	if !executed.Load() {
		t.Error("SafeGo did not execute function")
	}
}

func TestSafeGo_WithError(t *testing.T) {
	ctx := context.Background()
	executed := atomic.Bool{}

	SafeGo(ctx, 1*time.Second, "test task", func(ctx context.Context) error {
		executed.Store(true)
		return errors.New("test error")
	})

	// Wait for goroutine to complete
	time.Sleep(100 * time.Millisecond)

	if !executed.Load() {
		t.Error("SafeGo did not execute function despite error")
	}
	// Error should be logged but not crash
}

func TestSafeGo_Timeout(t *testing.T) {
	ctx := context.Background()
	timedOut := atomic.Bool{}

	SafeGo(ctx, 50*time.Millisecond, "test task", func(ctx context.Context) error {
		select {
		case <-time.After(500 * time.Millisecond):
			return nil
		case <-ctx.Done():
			timedOut.Store(true)
			return ctx.Err()
		}
	})

	time.Sleep(200 * time.Millisecond)

	if !timedOut.Load() {
		t.Error("Expected task context to time out")
	}
}

func TestSafeGo_PanicRecovery(t *testing.T) {
	ctx := context.Background()

	SafeGo(ctx, 1*time.Second, "panicking task", func(ctx context.Context) error {
		panic("boom")
	})

	// The panic must not crash the test process
	time.Sleep(100 * time.Millisecond)
}

func TestBatch_ProcessesAllItems(t *testing.T) {
	ctx := context.Background()
	var processed atomic.Int32

	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	errs := Batch(ctx, items, 3, "test batch", time.Second, func(ctx context.Context, item int) error {
		processed.Add(1)
		return nil
	})

	if len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}
	if processed.Load() != int32(len(items)) {
		t.Errorf("Expected %d items processed, got %d", len(items), processed.Load())
	}
}

func TestBatch_CollectsErrors(t *testing.T) {
	ctx := context.Background()

	items := []int{1, 2, 3, 4}
	errs := Batch(ctx, items, 2, "test batch", time.Second, func(ctx context.Context, item int) error {
		if item%2 == 0 {
			return errors.New("even item")
		}
		return nil
	})

	if len(errs) != 2 {
		t.Errorf("Expected 2 errors, got %d: %v", len(errs), errs)
	}
}

func TestBatch_PanicDoesNotKillBatch(t *testing.T) {
	ctx := context.Background()
	var processed atomic.Int32

	items := []int{1, 2, 3}
	Batch(ctx, items, 1, "test batch", time.Second, func(ctx context.Context, item int) error {
		if item == 2 {
			panic("boom")
		}
		processed.Add(1)
		return nil
	})

	if processed.Load() != 2 {
		t.Errorf("Expected 2 items processed around the panic, got %d", processed.Load())
	}
}

func TestBatch_EmptyItems(t *testing.T) {
	errs := Batch(context.Background(), []int{}, 4, "test batch", time.Second,
		func(ctx context.Context, item int) error { return nil })
	if len(errs) != 0 {
		t.Errorf("Expected no errors for empty batch, got %v", errs)
	}
}
