package providers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	t.Run("full bucket does not block", func(t *testing.T) {
		limiter := NewRateLimiter(600)

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("took too long: %v", elapsed)
		}
	})

	t.Run("status", func(t *testing.T) {
		limiter := NewRateLimiter(60)
		if !limiter.TryConsume() {
			t.Fatal("first TryConsume should succeed")
		}
		status := limiter.Status()
		if status.PerMinute != 60 || status.Consumed != 1 {
			t.Errorf("unexpected status: %+v", status)
		}
		if status.TokensAvailable <= 0 || status.NextToken != 0 {
			t.Errorf("expected tokens available: %+v", status)
		}
	})

	t.Run("429 empties the bucket", func(t *testing.T) {
		limiter := NewRateLimiter(60)
		limiter.Record429()

		if limiter.Status().Last429.IsZero() {
			t.Error("Last429 should be set")
		}
		if limiter.TryConsume() {
			t.Error("TryConsume should fail right after a 429")
		}
	})

	t.Run("deadline shorter than next token", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		limiter.Wait(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := limiter.Wait(ctx)
		if !errors.Is(err, ErrRateLimited) || !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		if time.Since(start) > 40*time.Millisecond {
			t.Error("Wait should fail without sleeping")
		}
		if limiter.Status().Rejected != 1 {
			t.Errorf("Rejected = %d, want 1", limiter.Status().Rejected)
		}
	})

	t.Run("rejected caller does not hold a slot", func(t *testing.T) {
		limiter := NewRateLimiter(600) // one token per 100ms
		for limiter.TryConsume() {
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		for i := 0; i < 3; i++ {
			if err := limiter.Wait(ctx); !errors.Is(err, ErrRateLimited) {
				t.Fatalf("attempt %d: expected ErrRateLimited, got %v", i, err)
			}
		}

		if next := limiter.Status().NextToken; next > 100*time.Millisecond {
			t.Errorf("NextToken = %v, rejected reservations were not returned", next)
		}
	})

	t.Run("cancelled waiter returns its slot", func(t *testing.T) {
		limiter := NewRateLimiter(60)
		for limiter.TryConsume() {
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- limiter.Wait(ctx) }()

		for limiter.Status().Waiting == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
		if err := <-done; err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		status := limiter.Status()
		if status.Waiting != 0 || status.NextToken > time.Second {
			t.Errorf("unexpected status after cancel: %+v", status)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		limiter.Wait(context.Background())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := limiter.Wait(ctx); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("waits for refill", func(t *testing.T) {
		limiter := NewRateLimiter(600) // one token per 100ms
		for limiter.TryConsume() {
		}

		start := time.Now()
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("refill took %v", elapsed)
		}
		if limiter.Status().Waiting != 0 {
			t.Error("no caller should still be waiting")
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		limiter := NewRateLimiter(6000)

		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := limiter.Wait(context.Background()); err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		if failures.Load() > 0 {
			t.Errorf("had %d errors", failures.Load())
		}
		if status := limiter.Status(); status.Consumed != 10 {
			t.Errorf("Consumed = %d, want 10", status.Consumed)
		}
	})
}
