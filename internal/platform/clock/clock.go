// internal/platform/clock/clock.go
package clock

import (
	"context"
	"time"
)

// Real es el reloj del sistema. Implementa ports.Clock.
type Real struct{}

// New retorna el reloj del sistema.
func New() Real { return Real{} }

// Now retorna la hora actual.
func (Real) Now() time.Time { return time.Now() }

// Sleep espera d o hasta que ctx termine; en ese caso retorna ctx.Err().
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
