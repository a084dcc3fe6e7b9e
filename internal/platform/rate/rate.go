// internal/platform/rate/rate.go
package rate

import (
	"context"
	"math"
	"sync"
	"time"
)

// epsilon absorbe el redondeo al convertir esperas a time.Duration.
const epsilon = 1e-9

// Limiter es un token bucket. Lo comparten todas las sesiones que consultan un
// mismo servicio externo, así que es seguro para uso concurrente.
type Limiter struct {
	mu     sync.Mutex
	rate   float64 // tokens por segundo
	burst  int
	tokens float64
	last   time.Time

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

// New crea un limiter de rate tokens/s con capacidad burst. Empieza lleno.
// Valores <= 0 se normalizan a 1.
func New(rate float64, burst int) *Limiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		rate:   rate,
		burst:  burst,
		tokens: float64(burst),
		last:   time.Now(),
		now:    time.Now,
		after:  time.After,
	}
}

// Per crea un limiter de n operaciones por ventana, con ráfaga n.
//
//	rate.Per(45, time.Minute) // cuota gratuita de ip-api.com
func Per(n int, window time.Duration) *Limiter {
	if n <= 0 || window <= 0 {
		return New(1, 1)
	}
	return New(float64(n)/window.Seconds(), n)
}

// WithClock reemplaza la fuente de tiempo y la espera (tests).
func (l *Limiter) WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) *Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	l.after = after
	l.last = now()
	return l
}

// Wait bloquea hasta obtener un token o hasta que ctx termine.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait, ok := l.reserve()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.after(wait):
		}
	}
}

// Allow consume un token si hay disponible.
func (l *Limiter) Allow() bool {
	_, ok := l.reserve()
	return ok
}

// reserve consume un token o retorna cuánto falta para el siguiente.
func (l *Limiter) reserve() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance(l.now())
	if l.tokens >= 1-epsilon {
		l.tokens--
		return 0, true
	}
	missing := 1.0 - l.tokens
	return time.Duration(math.Ceil(missing / l.rate * float64(time.Second))), false
}

func (l *Limiter) Rate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rate
}

// advance repone tokens según el tiempo transcurrido. Requiere l.mu.
func (l *Limiter) advance(now time.Time) {
	if elapsed := now.Sub(l.last).Seconds(); elapsed > 0 {
		l.tokens += elapsed * l.rate
		if l.tokens > float64(l.burst) {
			l.tokens = float64(l.burst)
		}
	}
	l.last = now
}
