// internal/testutil/mocks.go
package testutil

import (
	"context"
	"sync"
	"time"
)

// Nota: los mocks de ports (transport, resolvers) están en los _test.go de cada paquete.
// Este archivo contiene solo utilidades genéricas sin dependencias circulares.

// FakeClock es un reloj manual: Sleep avanza el tiempo sin bloquear.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewFakeClock crea un reloj detenido en start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now retorna el instante actual del reloj.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep avanza el reloj d y registra la espera. Respeta la cancelación del contexto.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

// Advance mueve el reloj sin registrar una espera.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleeps retorna una copia de las esperas registradas.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}
