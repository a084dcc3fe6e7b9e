// internal/platform/resilience/retry.go
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"proxylens/internal/platform/logx"
)

// Sleeper espera d o hasta que ctx termine. ports.Clock lo satisface.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// permanentError marca un error que no debe reintentarse.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent envuelve err para cortar los reintentos. errors.Is/As siguen
// viendo la causa.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent indica si err fue marcado con Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// BackoffFunc retorna la espera antes del reintento número retry (1-based).
type BackoffFunc func(retry int) time.Duration

// Policy describe cuántas veces y con qué espera se reintenta una operación.
type Policy struct {
	// MaxAttempts intentos totales, incluido el primero
	MaxAttempts int

	// Backoff espera entre intentos
	Backoff BackoffFunc

	// Retryable decide si un error es transitorio; nil reintenta todo lo no Permanent
	Retryable func(error) bool
}

// Retrier ejecuta operaciones con la política dada. Es stateless por llamada y
// seguro para uso concurrente.
type Retrier struct {
	policy Policy
	sleep  Sleeper
	logger logx.Logger
}

// NewRetrier crea un Retrier.
func NewRetrier(policy Policy, sleeper Sleeper, logger logx.Logger) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.Backoff == nil {
		policy.Backoff = ExponentialBackoff(time.Second, 2.0, time.Minute)
	}
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &Retrier{
		policy: policy,
		sleep:  sleeper,
		logger: logger.With("component", "retrier"),
	}
}

// Do ejecuta fn hasta que tenga éxito, retorne un error permanente o no
// transitorio, o se agoten los intentos. attempt empieza en 1.
func (r *Retrier) Do(ctx context.Context, name string, fn func(ctx context.Context, attempt int) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.policy.Backoff(attempt - 1)
			r.logger.Debug("backing off before retry",
				"operation", name,
				"attempt", attempt,
				"delay_ms", delay.Milliseconds(),
			)
			if err := r.sleep.Sleep(ctx, delay); err != nil {
				return fmt.Errorf("%s: cancelled during backoff: %w", name, err)
			}
		}

		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("operation succeeded after retry", "operation", name, "attempts", attempt)
			}
			return nil
		}
		lastErr = err

		if IsPermanent(err) || ctx.Err() != nil {
			return unwrapPermanent(err)
		}
		if r.policy.Retryable != nil && !r.policy.Retryable(err) {
			return err
		}

		r.logger.Warn("operation failed",
			"operation", name,
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"error", err.Error(),
		)
	}

	return &ExhaustedError{Attempts: r.policy.MaxAttempts, Err: lastErr}
}

// ExhaustedError indica que se agotaron los intentos.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

func unwrapPermanent(err error) error {
	if p, ok := err.(*permanentError); ok {
		return p.err
	}
	return err
}

// ExponentialBackoff espera base * multiplier^(retry-1), con tope limit.
func ExponentialBackoff(base time.Duration, multiplier float64, limit time.Duration) BackoffFunc {
	if base <= 0 {
		base = time.Second
	}
	if multiplier < 1.0 {
		multiplier = 2.0
	}
	return func(retry int) time.Duration {
		d := time.Duration(float64(base) * math.Pow(multiplier, float64(retry-1)))
		if limit > 0 && d > limit {
			d = limit
		}
		return d
	}
}

// StepBackoff usa steps[retry-1] (el último se repite) más un jitter uniforme
// en [jitterMin, jitterMax].
func StepBackoff(steps []time.Duration, jitterMin, jitterMax time.Duration, rnd *rand.Rand) BackoffFunc {
	return func(retry int) time.Duration {
		if len(steps) == 0 {
			return 0
		}
		idx := retry - 1
		if idx >= len(steps) {
			idx = len(steps) - 1
		}
		if idx < 0 {
			idx = 0
		}
		return steps[idx] + Jitter(rnd, jitterMin, jitterMax)
	}
}

// ConstantBackoff siempre espera d.
func ConstantBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// Jitter retorna una duración uniforme en [lo, hi]. rnd nil usa la fuente
// global; un *rand.Rand propio no es seguro para uso concurrente.
func Jitter(rnd *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	span := int64(hi - lo + 1)
	if rnd == nil {
		return lo + time.Duration(rand.Int64N(span))
	}
	return lo + time.Duration(rnd.Int64N(span))
}
