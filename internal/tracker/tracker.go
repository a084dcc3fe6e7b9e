// internal/tracker/tracker.go

// Package tracker contabiliza el ancho de banda y los tiempos de petición de una
// sesión envolviendo su transporte.
package tracker

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
)

// Sobrecoste de framing WebSocket en mensajes pequeños: el frame del cliente lleva
// 2 bytes de cabecera más 4 de máscara, el del servidor solo la cabecera. El close
// del cliente añade el código de estado.
const (
	ClientFrameOverhead = 6
	ServerFrameOverhead = 2
	CloseFrameSize      = ClientFrameOverhead + 2
)

// Tracker mantiene contadores monótonos crecientes. Todos los métodos son seguros
// para uso concurrente.
type Tracker struct {
	sent     atomic.Int64
	received atomic.Int64
	requests atomic.Int64

	mu      sync.Mutex
	timings []domain.RequestTiming
}

// New retorna un tracker vacío.
func New() *Tracker {
	return &Tracker{}
}

// AddSent registra bytes escritos.
func (t *Tracker) AddSent(n int64) {
	if n > 0 {
		t.sent.Add(n)
	}
}

// AddReceived registra bytes leídos.
func (t *Tracker) AddReceived(n int64) {
	if n > 0 {
		t.received.Add(n)
	}
}

// Snapshot retorna los totales actuales.
func (t *Tracker) Snapshot() domain.BandwidthStats {
	return domain.BandwidthStats{
		BytesSent:     t.sent.Load(),
		BytesReceived: t.received.Load(),
		Requests:      t.requests.Load(),
	}
}

// Timings retorna una copia de los tiempos registrados, en orden de finalización.
func (t *Tracker) Timings() []domain.RequestTiming {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.RequestTiming(nil), t.timings...)
}

func (t *Tracker) record(rt domain.RequestTiming) {
	t.requests.Add(1)
	t.note(rt)
}

// note guarda el tiempo sin contar la petición.
func (t *Tracker) note(rt domain.RequestTiming) {
	t.mu.Lock()
	t.timings = append(t.timings, rt)
	t.mu.Unlock()
}

// Wrap retorna un transporte que reporta cada byte a t.
func (t *Tracker) Wrap(inner ports.Transport) ports.Transport {
	return &trackedTransport{inner: inner, t: t}
}

type trackedTransport struct {
	inner ports.Transport
	t     *Tracker
}

func (tt *trackedTransport) Do(ctx context.Context, req ports.Request) (*ports.Response, error) {
	reqSize := req.WireSize()
	start := time.Now()
	resp, err := tt.inner.Do(ctx, req)

	rt := domain.RequestTiming{
		Method:   req.Method,
		URL:      req.URL,
		Duration: time.Since(start),
	}
	if err != nil {
		rt.Err = err.Error()
		// si falló antes de salir a la red los contadores no cambian
		if ports.Sent(err) {
			rt.BytesSent = reqSize
			tt.t.AddSent(reqSize)
			tt.t.record(rt)
		} else {
			tt.t.note(rt)
		}
		return nil, err
	}

	rt.BytesSent = reqSize
	tt.t.AddSent(reqSize)

	rt.Status = resp.StatusCode
	rt.BytesReceived = resp.WireSize
	if resp.Duration > 0 {
		rt.Duration = resp.Duration
	}
	tt.t.AddReceived(resp.WireSize)
	tt.t.record(rt)
	return resp, nil
}

func (tt *trackedTransport) OpenStream(ctx context.Context, rawURL string, headers []domain.Header) (ports.Stream, error) {
	start := time.Now()
	s, err := tt.inner.OpenStream(ctx, rawURL, headers)
	rt := domain.RequestTiming{Method: "GET", URL: rawURL, Duration: time.Since(start)}
	if err != nil {
		rt.Err = err.Error()
		if ports.Sent(err) {
			tt.t.record(rt)
		} else {
			tt.t.note(rt)
		}
		return nil, err
	}

	sent, recv := s.HandshakeSize()
	tt.t.AddSent(sent)
	tt.t.AddReceived(recv)
	rt.Status = 101
	rt.BytesSent = sent
	rt.BytesReceived = recv
	tt.t.record(rt)
	return &trackedStream{inner: s, t: tt.t}, nil
}

func (tt *trackedTransport) DialTCP(ctx context.Context, addr string) (net.Conn, error) {
	conn, err := tt.inner.DialTCP(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &trackedConn{Conn: conn, t: tt.t}, nil
}

type trackedStream struct {
	inner ports.Stream
	t     *Tracker
	once  sync.Once
}

func (s *trackedStream) Send(ctx context.Context, msg []byte) error {
	if err := s.inner.Send(ctx, msg); err != nil {
		return err
	}
	s.t.AddSent(int64(len(msg)) + ClientFrameOverhead)
	return nil
}

func (s *trackedStream) Receive(ctx context.Context) ([]byte, error) {
	msg, err := s.inner.Receive(ctx)
	if err != nil {
		return nil, err
	}
	s.t.AddReceived(int64(len(msg)) + ServerFrameOverhead)
	return msg, nil
}

func (s *trackedStream) HandshakeSize() (int64, int64) {
	return s.inner.HandshakeSize()
}

func (s *trackedStream) Close() error {
	s.once.Do(func() { s.t.AddSent(CloseFrameSize) })
	return s.inner.Close()
}

type trackedConn struct {
	net.Conn
	t *Tracker
}

func (c *trackedConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	c.t.AddReceived(int64(n))
	return n, err
}

func (c *trackedConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	c.t.AddSent(int64(n))
	return n, err
}
