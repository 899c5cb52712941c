package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when the next request slot opens after the
// caller's deadline. It is a form of ErrUnavailable: the backend was never
// called.
var ErrRateLimited = fmt.Errorf("%w: local rate limit exhausted", ErrUnavailable)

// RateLimiter throttles one provider to a per-minute budget with bursts up
// to the full minute. It delays calls and never repeats them.
type RateLimiter struct {
	limiter   *rate.Limiter
	perMinute int

	mu       sync.Mutex
	consumed int64
	rejected int64
	waiting  int
	waited   time.Duration
	last429  time.Time
}

// RateLimiterStatus is a snapshot reported by /api/status.
type RateLimiterStatus struct {
	PerMinute       int           `json:"per_minute"`
	TokensAvailable int           `json:"tokens_available"`
	Waiting         int           `json:"waiting"`
	NextToken       time.Duration `json:"next_token_ns"`
	Consumed        int64         `json:"consumed"`
	Rejected        int64         `json:"rejected"`
	Waited          time.Duration `json:"waited_ns"`
	Last429         time.Time     `json:"last_429,omitempty"`
}

// NewRateLimiter starts with a full bucket. A non-positive rate means 60/min.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute),
		perMinute: perMinute,
	}
}

// Wait takes a token, blocking until one is available. When ctx carries a
// deadline that the next token cannot meet it returns ErrRateLimited at once
// instead of sleeping into a timeout.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	res := r.limiter.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	if delay == 0 {
		r.mu.Lock()
		r.consumed++
		r.mu.Unlock()
		return nil
	}
	if deadline, ok := ctx.Deadline(); ok && deadline.Sub(now) < delay {
		res.CancelAt(now)
		r.mu.Lock()
		r.rejected++
		r.mu.Unlock()
		return fmt.Errorf("%w: next slot in %s", ErrRateLimited, delay.Round(time.Millisecond))
	}

	r.mu.Lock()
	r.waiting++
	r.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		res.Cancel()
		r.mu.Lock()
		r.waiting--
		r.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
		r.mu.Lock()
		r.waiting--
		r.consumed++
		r.waited += delay
		r.mu.Unlock()
		return nil
	}
}

// TryConsume takes a token if one is available without blocking.
func (r *RateLimiter) TryConsume() bool {
	if !r.limiter.Allow() {
		return false
	}
	r.mu.Lock()
	r.consumed++
	r.mu.Unlock()
	return true
}

// Record429 empties the bucket after the upstream reported rate limiting.
func (r *RateLimiter) Record429() {
	now := time.Now()
	if n := int(r.limiter.TokensAt(now)); n > 0 {
		r.limiter.ReserveN(now, n)
	}

	r.mu.Lock()
	r.last429 = now
	r.mu.Unlock()
}

func (r *RateLimiter) Status() RateLimiterStatus {
	tokens := r.limiter.TokensAt(time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()

	status := RateLimiterStatus{
		PerMinute:       r.perMinute,
		TokensAvailable: max(int(tokens), 0),
		Waiting:         r.waiting,
		Consumed:        r.consumed,
		Rejected:        r.rejected,
		Waited:          r.waited,
		Last429:         r.last429,
	}
	if tokens < 1 {
		perSecond := float64(r.perMinute) / 60
		status.NextToken = time.Duration((1 - tokens) / perSecond * float64(time.Second))
	}
	return status
}

// Limited is implemented by clients that throttle their own calls.
type Limited interface {
	RateLimiter() *RateLimiter
}
