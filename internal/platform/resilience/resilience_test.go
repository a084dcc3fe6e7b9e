// internal/platform/resilience/resilience_test.go
package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"proxylens/internal/testutil"
)

var errFlaky = errors.New("flaky")

func TestRetrier_SucceedsAfterRetries(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(0, 0))
	r := NewRetrier(Policy{MaxAttempts: 3, Backoff: ConstantBackoff(time.Second)}, clock, nil)

	calls := 0
	err := r.Do(context.Background(), "fetch", func(ctx context.Context, attempt int) error {
		calls++
		testutil.AssertEqual(t, attempt, calls, "attempt should be 1-based and sequential")
		if attempt < 3 {
			return errFlaky
		}
		return nil
	})

	testutil.AssertNoError(t, err, "third attempt succeeds")
	testutil.AssertEqual(t, calls, 3, "calls")
	testutil.AssertLen(t, clock.Sleeps(), 2, "one backoff between attempts")
}

func TestRetrier_Exhausted(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(0, 0))
	r := NewRetrier(Policy{MaxAttempts: 4, Backoff: ExponentialBackoff(time.Second, 2, 0)}, clock, nil)

	err := r.Do(context.Background(), "submit", func(context.Context, int) error { return errFlaky })

	var ex *ExhaustedError
	testutil.AssertTrue(t, errors.As(err, &ex), "should be ExhaustedError")
	testutil.AssertEqual(t, ex.Attempts, 4, "attempts")
	testutil.AssertErrorIs(t, err, errFlaky, "cause preserved")

	sleeps := clock.Sleeps()
	testutil.AssertLen(t, sleeps, 3, "sleeps")
	testutil.AssertEqual(t, sleeps[0], time.Second, "first backoff")
	testutil.AssertEqual(t, sleeps[1], 2*time.Second, "second backoff")
	testutil.AssertEqual(t, sleeps[2], 4*time.Second, "third backoff")
}

func TestRetrier_PermanentStops(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(0, 0))
	r := NewRetrier(Policy{MaxAttempts: 3}, clock, nil)

	calls := 0
	err := r.Do(context.Background(), "auth", func(context.Context, int) error {
		calls++
		return Permanent(errFlaky)
	})

	testutil.AssertEqual(t, calls, 1, "permanent errors are not retried")
	testutil.AssertEqual(t, err, errFlaky, "permanent wrapper is removed")
	testutil.AssertLen(t, clock.Sleeps(), 0, "no backoff")
}

func TestRetrier_NotRetryable(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(0, 0))
	errBad := errors.New("bad request")
	r := NewRetrier(Policy{
		MaxAttempts: 3,
		Retryable:   func(err error) bool { return !errors.Is(err, errBad) },
	}, clock, nil)

	calls := 0
	err := r.Do(context.Background(), "op", func(context.Context, int) error {
		calls++
		return errBad
	})
	testutil.AssertEqual(t, calls, 1, "calls")
	testutil.AssertErrorIs(t, err, errBad, "error")
}

func TestRetrier_StopsWhenCancelled(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(0, 0))
	r := NewRetrier(Policy{MaxAttempts: 3}, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	err := r.Do(ctx, "op", func(context.Context, int) error {
		cancel()
		return errFlaky
	})
	testutil.AssertErrorIs(t, err, errFlaky, "cancellation returns the last error")
}

func TestStepBackoff(t *testing.T) {
	b := StepBackoff([]time.Duration{2 * time.Second, 4 * time.Second}, time.Second, 3*time.Second, nil)
	for retry, base := range map[int]time.Duration{1: 2 * time.Second, 2: 4 * time.Second, 3: 4 * time.Second} {
		for i := 0; i < 50; i++ {
			d := b(retry)
			testutil.AssertTrue(t, d >= base+time.Second && d <= base+3*time.Second, "delay within jitter range")
		}
	}
}

func TestJitter_Degenerate(t *testing.T) {
	testutil.AssertEqual(t, Jitter(nil, time.Second, time.Second), time.Second, "equal bounds")
	testutil.AssertEqual(t, Jitter(nil, time.Second, 0), time.Second, "inverted bounds")
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := NewCircuitBreaker(2, 10*time.Second, 1).WithClock(func() time.Time { return now })

	testutil.AssertTrue(t, cb.Allow(), "closed allows")
	cb.RecordFailure()
	cb.RecordFailure()
	testutil.AssertEqual(t, cb.State(), StateOpen, "opens at threshold")
	testutil.AssertFalse(t, cb.Allow(), "open rejects")

	now = now.Add(11 * time.Second)
	testutil.AssertTrue(t, cb.Allow(), "half-open lets one probe through")
	testutil.AssertEqual(t, cb.State(), StateHalfOpen, "half-open")
	testutil.AssertFalse(t, cb.Allow(), "second probe rejected")

	cb.RecordSuccess()
	testutil.AssertEqual(t, cb.State(), StateClosed, "success closes")
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := NewCircuitBreaker(1, time.Second, 2).WithClock(func() time.Time { return now })

	cb.RecordFailure()
	now = now.Add(2 * time.Second)
	testutil.AssertTrue(t, cb.Allow(), "half-open")
	cb.RecordFailure()
	testutil.AssertEqual(t, cb.State(), StateOpen, "reopened")
}

func TestCircuitBreaker_Execute(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute, 1)

	err := cb.Execute(context.Background(), func(context.Context) error { return errFlaky })
	testutil.AssertErrorIs(t, err, errFlaky, "error returned")
	testutil.AssertEqual(t, cb.State(), StateOpen, "opened")

	err = cb.Execute(context.Background(), func(context.Context) error { return nil })
	testutil.AssertErrorIs(t, err, ErrCircuitOpen, "rejected while open")

	cb.Reset()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	testutil.AssertErrorIs(t, err, context.Canceled, "caller cancellation")
	testutil.AssertEqual(t, cb.State(), StateClosed, "cancellation does not count as failure")
}
