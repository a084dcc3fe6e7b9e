// internal/core/usecases/probes.go
package usecases

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
)

// Overhead de framing websocket para mensajes pequeños (cabecera + máscara en
// los frames del cliente, solo cabecera en los del servidor, cierre con código).
const (
	wsClientFrame = 6
	wsServerFrame = 2
	wsCloseFrame  = wsClientFrame + 2
)

// runProbes lanza todos los probes de la configuración en paralelo y espera a
// que terminen todos. Requiere al menos una medición exitosa.
func (s *Session) runProbes(ctx context.Context, cfg domain.SessionConfig) ([]domain.LatencyMeasurement, error) {
	var wg sync.WaitGroup

	for _, target := range cfg.Probes {
		wg.Add(1)
		go func(target domain.ProbeTarget) {
			defer wg.Done()

			var m domain.LatencyMeasurement
			switch target.Kind {
			case domain.ProbeWebSocket:
				m = s.probeWebSocket(ctx, target, cfg.SessionID)
			case domain.ProbeImage:
				m = s.probeImage(ctx, target)
			case domain.ProbeTCP:
				m = s.probeTCP(ctx, target)
			}
			m.Kind, m.Name, m.Target = target.Kind, target.Name, target.Target()
			m.CompletedAt = s.deps.Clock.Now()

			s.mu.Lock()
			s.measurements = append(s.measurements, m)
			s.mu.Unlock()

			s.logger.Debug("probe finished",
				"probe", target.Name,
				"kind", string(target.Kind),
				"success", m.Success,
				"rtt_ms", m.Millis(),
				"error", m.Error,
			)
			s.notify(ctx, ports.NewEvent(ports.EventTypeProbeCompleted, "session", ports.ProbeEvent{Measurement: m}))
		}(target)
	}
	wg.Wait()

	s.mu.Lock()
	measurements := append([]domain.LatencyMeasurement(nil), s.measurements...)
	s.mu.Unlock()

	if ctx.Err() != nil {
		return nil, s.failure(ctx, domain.PhaseProbing, domain.ErrCancelled, ctx.Err())
	}
	if domain.CountSuccessful(measurements) == 0 {
		errs := make([]error, 0, len(measurements))
		for _, m := range measurements {
			errs = append(errs, fmt.Errorf("%s: %s", m.Name, m.Error))
		}
		return nil, s.failure(ctx, domain.PhaseProbing, domain.ErrAllProbesFailed, errors.Join(errs...))
	}
	return measurements, nil
}

// probeImage mide el RTT de una descarga de imagen.
func (s *Session) probeImage(ctx context.Context, target domain.ProbeTarget) domain.LatencyMeasurement {
	req := ports.Request{
		Method:  http.MethodGet,
		URL:     target.URL,
		Headers: s.deps.Profile.Headers(domain.ContextImage),
		Timeout: s.opts.ProbeTimeout,
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.transport.Do(ctx, req)
	rtt := time.Since(start)

	var m domain.LatencyMeasurement
	if err != nil {
		if ports.Sent(err) {
			m.BytesSent = req.WireSize()
		}
		m.Error = err.Error()
		return m
	}
	m.BytesSent = req.WireSize()
	m.BytesReceived = resp.WireSize
	if resp.StatusCode >= 400 {
		m.Error = fmt.Sprintf("status %d", resp.StatusCode)
		return m
	}
	if resp.Duration > 0 {
		rtt = resp.Duration
	}
	m.RTT = rtt
	m.Success = true
	return m
}

// probeTCP mide el tiempo de conexión a través del proxy.
func (s *Session) probeTCP(ctx context.Context, target domain.ProbeTarget) domain.LatencyMeasurement {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()

	var m domain.LatencyMeasurement
	start := time.Now()
	conn, err := s.transport.DialTCP(ctx, target.Addr)
	if err != nil {
		m.Error = err.Error()
		return m
	}
	m.RTT = time.Since(start)
	m.Success = true
	_ = conn.Close()
	return m
}

// probeWebSocket hace WSRounds ecos de {"uuid":...}. Una ronda fallida corta
// el probe; las muestras ya tomadas cuentan.
func (s *Session) probeWebSocket(ctx context.Context, target domain.ProbeTarget, sessionID string) domain.LatencyMeasurement {
	var m domain.LatencyMeasurement

	dialCtx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	stream, err := s.transport.OpenStream(dialCtx, target.URL, s.deps.Profile.Headers(domain.ContextWebSocket))
	cancel()
	if err != nil {
		m.Error = err.Error()
		return m
	}
	defer func() {
		_ = stream.Close()
	}()

	hsSent, hsRecv := stream.HandshakeSize()
	m.BytesSent, m.BytesReceived = hsSent+wsCloseFrame, hsRecv

	msg := []byte(fmt.Sprintf(`{"uuid":%q}`, sessionID))
	for round := 0; round < s.opts.WSRounds; round++ {
		sample, err := s.echo(ctx, stream, msg, &m)
		if err != nil {
			m.Error = fmt.Sprintf("round %d: %v", round+1, err)
			break
		}
		m.Samples = append(m.Samples, sample)
	}

	if len(m.Samples) > 0 {
		m.RTT = domain.MeanDuration(m.Samples)
		m.Success = true
	}
	return m
}

// echo envía msg y espera la respuesta, sumando a m los bytes de cada frame
// que llegó a transmitirse.
func (s *Session) echo(ctx context.Context, stream ports.Stream, msg []byte, m *domain.LatencyMeasurement) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.WSRecvTimeout)
	defer cancel()

	start := time.Now()
	if err := stream.Send(ctx, msg); err != nil {
		return 0, err
	}
	m.BytesSent += int64(len(msg) + wsClientFrame)

	reply, err := stream.Receive(ctx)
	if err != nil {
		return 0, err
	}
	m.BytesReceived += int64(len(reply) + wsServerFrame)
	return time.Since(start), nil
}
