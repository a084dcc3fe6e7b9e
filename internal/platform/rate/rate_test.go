// internal/platform/rate/rate_test.go
package rate

import (
	"context"
	"sync"
	"testing"
	"time"

	"proxylens/internal/testutil"
)

// manualTime avanza solo cuando el limiter espera.
type manualTime struct {
	mu    sync.Mutex
	t     time.Time
	waits []time.Duration
}

func newManualTime() *manualTime {
	return &manualTime{t: time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)}
}

func (m *manualTime) now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

func (m *manualTime) after(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	m.waits = append(m.waits, d)
	m.t = m.t.Add(d)
	now := m.t
	m.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (m *manualTime) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = m.t.Add(d)
}

// tokens lee el bucket tras reponer lo transcurrido.
func tokens(l *Limiter) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance(l.now())
	return l.tokens
}

// drain deja el bucket vacío.
func drain(l *Limiter) {
	for l.Allow() {
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		burst     int
		wantRate  float64
		wantBurst int
	}{
		{"valid rate and burst", 10, 5, 10, 5},
		{"zero rate defaults to 1", 0, 5, 1, 5},
		{"negative burst defaults to 1", 10, -5, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.rate, tt.burst)
			testutil.AssertEqual(t, l.Rate(), tt.wantRate, "rate")
			testutil.AssertEqual(t, l.burst, tt.wantBurst, "burst")
			testutil.AssertEqual(t, tokens(l) >= float64(tt.wantBurst)-0.001, true, "starts full")
		})
	}
}

func TestPer(t *testing.T) {
	l := Per(45, time.Minute)
	testutil.AssertEqual(t, l.burst, 45, "burst equals window quota")
	testutil.AssertTrue(t, l.Rate() > 0.749 && l.Rate() < 0.751, "0.75 tokens per second")

	fallback := Per(0, time.Minute)
	testutil.AssertEqual(t, fallback.Rate(), 1.0, "invalid quota falls back")
}

func TestLimiter_AllowConsumesBurst(t *testing.T) {
	clock := newManualTime()
	l := New(1, 3).WithClock(clock.now, clock.after)

	for i := 0; i < 3; i++ {
		testutil.AssertTrue(t, l.Allow(), "burst token")
	}
	testutil.AssertFalse(t, l.Allow(), "bucket empty")

	clock.advance(time.Second)
	testutil.AssertTrue(t, l.Allow(), "one token refilled")
	testutil.AssertFalse(t, l.Allow(), "only one")
}

func TestLimiter_WaitSleepsForNextToken(t *testing.T) {
	clock := newManualTime()
	l := Per(45, time.Minute).WithClock(clock.now, clock.after)
	drain(l)

	err := l.Wait(context.Background())
	testutil.AssertNoError(t, err, "wait")

	testutil.AssertLen(t, clock.waits, 1, "one wait")
	want := time.Second * 4 / 3
	diff := clock.waits[0] - want
	testutil.AssertTrue(t, diff > -time.Millisecond && diff < time.Millisecond, "waits 1/rate")
}

func TestLimiter_WaitCancelled(t *testing.T) {
	l := New(0.001, 1)
	drain(l)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	testutil.AssertErrorIs(t, err, context.Canceled, "cancelled wait")
}

func TestLimiter_TokensCappedAtBurst(t *testing.T) {
	clock := newManualTime()
	l := New(100, 2).WithClock(clock.now, clock.after)

	clock.advance(time.Hour)
	testutil.AssertEqual(t, tokens(l), 2.0, "capped")
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	l := New(1, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	testutil.AssertTrue(t, allowed >= 50 && allowed <= 51, "burst respected under contention")
}

func BenchmarkLimiter_Allow(b *testing.B) {
	l := New(1e9, 1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Allow()
	}
}
