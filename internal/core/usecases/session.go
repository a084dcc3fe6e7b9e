// internal/core/usecases/session.go
package usecases

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
	"proxylens/internal/platform/logx"
	"proxylens/internal/platform/resilience"
)

// Valores por defecto de una sesión.
const (
	DefaultWSRounds        = 5
	DefaultProbeTimeout    = 10 * time.Second
	DefaultWSRecvTimeout   = 5 * time.Second
	DefaultConfigAttempts  = 3
	DefaultSubmitAttempts  = 4
	DefaultTelemetryJitter = 350 * time.Millisecond
)

// SessionOptions configura una sesión de detección.
type SessionOptions struct {
	// Proxy por el que sale la sesión (nil = conexión directa)
	Proxy *domain.ProxyConfig

	// Timezone zona IANA forzada; vacío = resolver por IP de salida
	Timezone string

	// WSRounds rondas de eco del probe websocket
	WSRounds int

	// ProbeTimeout límite de conexión/petición de cada probe
	ProbeTimeout time.Duration

	// WSRecvTimeout espera máxima de cada eco
	WSRecvTimeout time.Duration

	// ConfigAttempts intentos de la fase 1
	ConfigAttempts int

	// SubmitAttempts intentos de la fase 3
	SubmitAttempts int

	// TelemetryJitter espera media antes del envío (±50%); 0 = valor por
	// defecto, negativo = sin espera
	TelemetryJitter time.Duration
}

// Dependencies son los colaboradores de una sesión. Transport, Profile, Engine,
// Collector, Sealer y Meter son obligatorios.
type Dependencies struct {
	Transport ports.Transport
	Profile   ports.Profile
	Engine    ports.Engine
	Collector ports.TelemetryCollector
	Sealer    ports.Sealer
	Meter     ports.Meter
	Clock     ports.Clock

	// Opcionales
	Timezones ports.TimezoneResolver
	Intel     ports.IntelProvider
	Notifier  ports.Notifier
	Logger    logx.Logger
}

// Session ejecuta una vez el protocolo de cuatro fases contra el motor.
type Session struct {
	opts      SessionOptions
	deps      Dependencies
	transport ports.Transport
	logger    logx.Logger
	target    string

	configRetrier *resilience.Retrier
	submitRetrier *resilience.Retrier

	used atomic.Bool

	mu           sync.Mutex
	state        domain.SessionState
	measurements []domain.LatencyMeasurement
	cancelled    bool
	startedAt    time.Time
}

// NewSession valida las dependencias y crea una sesión en estado Created.
func NewSession(opts SessionOptions, deps Dependencies) (*Session, error) {
	switch {
	case deps.Transport == nil:
		return nil, errors.New("session: transport is required")
	case deps.Profile == nil:
		return nil, errors.New("session: profile is required")
	case deps.Engine == nil:
		return nil, errors.New("session: engine is required")
	case deps.Collector == nil:
		return nil, errors.New("session: telemetry collector is required")
	case deps.Sealer == nil:
		return nil, errors.New("session: sealer is required")
	case deps.Meter == nil:
		return nil, errors.New("session: meter is required")
	case deps.Clock == nil:
		return nil, errors.New("session: clock is required")
	}

	if opts.WSRounds <= 0 {
		opts.WSRounds = DefaultWSRounds
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.WSRecvTimeout <= 0 {
		opts.WSRecvTimeout = DefaultWSRecvTimeout
	}
	if opts.ConfigAttempts <= 0 {
		opts.ConfigAttempts = DefaultConfigAttempts
	}
	if opts.SubmitAttempts <= 0 {
		opts.SubmitAttempts = DefaultSubmitAttempts
	}
	switch {
	case opts.TelemetryJitter == 0:
		opts.TelemetryJitter = DefaultTelemetryJitter
	case opts.TelemetryJitter < 0:
		opts.TelemetryJitter = 0
	}
	if deps.Logger == nil {
		deps.Logger = logx.NewSilent()
	}

	target := "direct"
	if opts.Proxy != nil {
		target = opts.Proxy.Masked()
	}
	logger := deps.Logger.With("component", "session", "proxy", target)

	return &Session{
		opts:      opts,
		deps:      deps,
		transport: deps.Meter.Wrap(deps.Transport),
		logger:    logger,
		target:    target,
		state:     domain.StateCreated,
		configRetrier: resilience.NewRetrier(resilience.Policy{
			MaxAttempts: opts.ConfigAttempts,
			Backoff:     resilience.ExponentialBackoff(500*time.Millisecond, 2.0, 4*time.Second),
		}, deps.Clock, logger),
		submitRetrier: resilience.NewRetrier(resilience.Policy{
			MaxAttempts: opts.SubmitAttempts,
			Backoff: resilience.StepBackoff(
				[]time.Duration{2 * time.Second, 4 * time.Second},
				time.Second, 3*time.Second, nil,
			),
		}, deps.Clock, logger),
	}, nil
}

// State retorna el estado actual.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Bandwidth retorna el snapshot de consumo. false si la sesión fue cancelada:
// los contadores de una sesión interrumpida no son fiables.
func (s *Session) Bandwidth() (domain.BandwidthStats, bool) {
	s.mu.Lock()
	cancelled := s.cancelled
	s.mu.Unlock()
	if cancelled {
		return domain.BandwidthStats{}, false
	}
	return s.deps.Meter.Snapshot(), true
}

// Measurements retorna una copia de las mediciones en orden de finalización
// (nil si la sesión fue cancelada).
func (s *Session) Measurements() []domain.LatencyMeasurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return nil
	}
	return append([]domain.LatencyMeasurement(nil), s.measurements...)
}

// Run ejecuta las cuatro fases. Solo puede llamarse una vez. El error, si lo hay,
// es siempre un *domain.PhaseError.
func (s *Session) Run(ctx context.Context) (*domain.Report, error) {
	if !s.used.CompareAndSwap(false, true) {
		return nil, domain.ErrSessionUsed
	}

	s.mu.Lock()
	s.startedAt = s.deps.Clock.Now()
	s.mu.Unlock()

	s.logger.Info("session started", "profile", s.deps.Profile.Name())
	s.notify(ctx, ports.NewEvent(ports.EventTypeSessionStarted, "session", nil))

	report, err := s.run(ctx)
	if err != nil {
		s.setState(domain.StateFailed)
		phase, _ := domain.PhaseOf(err)
		s.logger.Warn("session failed",
			"phase", phase.String(),
			"kind", domain.KindName(err),
			"error", err.Error(),
		)
		event := ports.NewEvent(ports.EventTypeSessionFailed, "session", ports.SessionFinishedEvent{Err: err})
		event.Severity = ports.EventSeverityError
		s.notify(ctx, event)
		return nil, err
	}

	s.logger.Info("session completed",
		"classification", string(report.Verdict.Classification),
		"confidence", report.Verdict.Confidence,
		"polls", report.Polls,
		"duration_ms", report.Duration().Milliseconds(),
	)
	s.notify(ctx, ports.NewEvent(ports.EventTypeSessionCompleted, "session", ports.SessionFinishedEvent{Report: report}))
	return report, nil
}

func (s *Session) run(ctx context.Context) (*domain.Report, error) {
	// Fase 1
	start := s.enter(ctx, domain.PhaseConfiguring)
	cfg, err := s.fetchConfig(ctx)
	if err != nil {
		return nil, err
	}
	timezone, err := s.resolveTimezone(ctx, cfg.ExitIP)
	if err != nil {
		return nil, err
	}
	loaded := s.deps.Clock.Now().Sub(s.startedAt)
	s.leave(ctx, domain.PhaseConfiguring, start)

	// Fase 2
	start = s.enter(ctx, domain.PhaseProbing)
	measurements, err := s.runProbes(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.leave(ctx, domain.PhaseProbing, start)

	// Fase 3
	start = s.enter(ctx, domain.PhaseSubmittingTelemetry)
	if err := s.submitTelemetry(ctx, cfg, timezone, measurements, loaded); err != nil {
		return nil, err
	}
	s.leave(ctx, domain.PhaseSubmittingTelemetry, start)

	// Fase 4
	start = s.enter(ctx, domain.PhaseAnalyzing)
	verdict, polls, err := s.pollVerdict(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.leave(ctx, domain.PhaseAnalyzing, start)

	var intel *domain.IPIntel
	if s.deps.Intel != nil {
		intel, err = s.deps.Intel.Lookup(ctx, s.transport, s.deps.Profile)
		if err != nil {
			s.logger.Warn("ip intel lookup failed", "error", err.Error())
			intel = nil
		}
	}

	if err := s.setState(domain.StateCompleted); err != nil {
		return nil, err
	}

	return &domain.Report{
		Verdict:      *verdict,
		Config:       cfg,
		Profile:      s.deps.Profile.Name(),
		Proxy:        s.target,
		Timezone:     timezone,
		Measurements: measurements,
		Bandwidth:    s.deps.Meter.Snapshot(),
		Polls:        polls,
		StartedAt:    s.startedAt,
		FinishedAt:   s.deps.Clock.Now(),
		Intel:        intel,
	}, nil
}

// fetchConfig descarga el script de la página y obtiene la configuración de sesión.
func (s *Session) fetchConfig(ctx context.Context) (domain.SessionConfig, error) {
	var cfg domain.SessionConfig

	err := s.configRetrier.Do(ctx, "fetch config", func(ctx context.Context, attempt int) error {
		resp, err := s.transport.Do(ctx, ports.Request{
			Method:  http.MethodGet,
			URL:     s.deps.Engine.ScriptURL(),
			Headers: s.deps.Profile.Headers(domain.ContextScript),
		})
		if err != nil {
			if errors.Is(err, domain.ErrProxyAuth) {
				return resilience.Permanent(err)
			}
			return err
		}
		if err := statusError(resp.StatusCode, domain.ErrConfigFetch); err != nil {
			return err
		}

		decoded, err := s.deps.Engine.DecodeConfig(resp.Body)
		if err != nil {
			return resilience.Permanent(err)
		}
		cfg = decoded
		return nil
	})
	if err != nil {
		kind := domain.ErrConfigFetch
		if errors.Is(err, domain.ErrProxyAuth) {
			kind = domain.ErrProxyAuth
		}
		return domain.SessionConfig{}, s.failure(ctx, domain.PhaseConfiguring, kind, err)
	}

	s.logger.Debug("session config received",
		"session_id", cfg.SessionID,
		"exit_ip", cfg.ExitIP,
		"probes", len(cfg.Probes),
	)
	return cfg, nil
}

// resolveTimezone decide la zona que reporta la telemetría: la forzada, la de
// la IP de salida o UTC.
func (s *Session) resolveTimezone(ctx context.Context, exitIP string) (string, error) {
	if s.opts.Timezone != "" {
		return s.opts.Timezone, nil
	}
	if s.deps.Timezones == nil {
		return "UTC", nil
	}

	tz, err := s.deps.Timezones.LookupTimezone(ctx, exitIP)
	if err != nil {
		if ctx.Err() != nil {
			return "", s.failure(ctx, domain.PhaseConfiguring, domain.ErrCancelled, err)
		}
		s.logger.Warn("timezone lookup failed, using UTC", "exit_ip", exitIP, "error", err.Error())
		return "UTC", nil
	}
	if tz == "" {
		return "UTC", nil
	}
	return tz, nil
}

// submitTelemetry construye, sella y envía el documento de telemetría.
func (s *Session) submitTelemetry(ctx context.Context, cfg domain.SessionConfig, timezone string, ms []domain.LatencyMeasurement, loaded time.Duration) error {
	payload, err := s.deps.Collector.Collect(ports.TelemetryInput{
		Config:       cfg,
		Timezone:     timezone,
		Measurements: ms,
		Loaded:       loaded,
		Elapsed:      s.deps.Clock.Now().Sub(s.startedAt),
	})
	if err != nil {
		return s.failure(ctx, domain.PhaseSubmittingTelemetry, domain.ErrTelemetryEncoding, err)
	}

	sealed, err := s.deps.Sealer.Seal(payload, cfg.SessionID)
	if err != nil {
		return s.failure(ctx, domain.PhaseSubmittingTelemetry, domain.ErrTelemetryEncoding, err)
	}

	if s.opts.TelemetryJitter > 0 {
		jitter := resilience.Jitter(nil, s.opts.TelemetryJitter/2, s.opts.TelemetryJitter*3/2)
		if err := s.deps.Clock.Sleep(ctx, jitter); err != nil {
			return s.failure(ctx, domain.PhaseSubmittingTelemetry, domain.ErrCancelled, err)
		}
	}

	headers := s.deps.Profile.Headers(domain.ContextBeacon,
		domain.Header{Name: "content-type", Value: sealed.ContentType},
	)
	err = s.submitRetrier.Do(ctx, "submit telemetry", func(ctx context.Context, attempt int) error {
		resp, err := s.transport.Do(ctx, ports.Request{
			Method:  http.MethodPost,
			URL:     s.deps.Engine.SubmitURL(),
			Headers: headers,
			Body:    sealed.Body,
		})
		if err != nil {
			if errors.Is(err, domain.ErrProxyAuth) {
				return resilience.Permanent(err)
			}
			return err
		}
		return statusError(resp.StatusCode, domain.ErrTelemetrySubmit)
	})
	if err != nil {
		kind := domain.ErrTelemetrySubmit
		if errors.Is(err, domain.ErrProxyAuth) {
			kind = domain.ErrProxyAuth
		}
		return s.failure(ctx, domain.PhaseSubmittingTelemetry, kind, err)
	}

	s.logger.Debug("telemetry submitted", "sealer", s.deps.Sealer.Name(), "bytes", len(sealed.Body))
	return nil
}

// pollVerdict consulta el análisis siguiendo la agenda de la configuración hasta
// obtener veredicto, rechazo o agotar PollTimeout en el reloj inyectado.
func (s *Session) pollVerdict(ctx context.Context, cfg domain.SessionConfig) (*domain.Verdict, int, error) {
	deadline := s.deps.Clock.Now().Add(cfg.PollTimeout)
	polls := 0

	for attempt := 0; ; attempt++ {
		delay := cfg.PollDelay(attempt)
		if s.deps.Clock.Now().Add(delay).After(deadline) {
			break
		}
		if delay > 0 {
			if err := s.deps.Clock.Sleep(ctx, delay); err != nil {
				return nil, polls, s.failure(ctx, domain.PhaseAnalyzing, domain.ErrCancelled, err)
			}
		}

		polls++
		analysis, err := s.poll(ctx, cfg.SessionID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, polls, s.failure(ctx, domain.PhaseAnalyzing, domain.ErrCancelled, err)
			}
			s.logger.Warn("poll failed", "attempt", polls, "error", err.Error())
			continue
		}

		s.notify(ctx, ports.NewEvent(ports.EventTypePollTick, "session", ports.PollEvent{
			Attempt: polls,
			Delay:   delay,
			Pending: analysis.State == domain.AnalysisPending,
		}))

		switch analysis.State {
		case domain.AnalysisComplete:
			return analysis.Verdict, polls, nil
		case domain.AnalysisRejected:
			return nil, polls, s.failure(ctx, domain.PhaseAnalyzing, domain.ErrAnalysisRejected,
				fmt.Errorf("engine: %s", analysis.Reason))
		default:
			s.logger.Debug("analysis pending", "attempt", polls, "tests_done", analysis.TestsDone)
		}
	}

	return nil, polls, s.failure(ctx, domain.PhaseAnalyzing, domain.ErrAnalysisTimeout,
		fmt.Errorf("no verdict after %d polls in %s", polls, cfg.PollTimeout))
}

func (s *Session) poll(ctx context.Context, sessionID string) (domain.Analysis, error) {
	resp, err := s.transport.Do(ctx, ports.Request{
		Method:  http.MethodGet,
		URL:     s.deps.Engine.PollURL(sessionID),
		Headers: s.deps.Profile.Headers(domain.ContextPoll),
	})
	if err != nil {
		return domain.Analysis{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Analysis{}, fmt.Errorf("poll: unexpected status %d", resp.StatusCode)
	}
	return s.deps.Engine.DecodeAnalysis(resp.Body)
}

// enter cambia al estado de la fase y notifica su inicio.
func (s *Session) enter(ctx context.Context, phase domain.Phase) time.Time {
	if err := s.setState(phase.State()); err != nil {
		s.logger.Err(err, "phase", phase.String())
	}
	s.logger.Debug("phase started", "phase", phase.String(), "number", phase.Number())
	s.notify(ctx, ports.NewEvent(ports.EventTypePhaseStarted, "session", ports.PhaseEvent{Phase: phase}))
	return s.deps.Clock.Now()
}

func (s *Session) leave(ctx context.Context, phase domain.Phase, start time.Time) {
	d := s.deps.Clock.Now().Sub(start)
	s.logger.Debug("phase completed", "phase", phase.String(), "duration_ms", d.Milliseconds())
	s.notify(ctx, ports.NewEvent(ports.EventTypePhaseCompleted, "session", ports.PhaseEvent{Phase: phase, Duration: d}))
}

func (s *Session) setState(to domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := domain.ValidateTransition(s.state, to); err != nil {
		return err
	}
	s.state = to
	return nil
}

// failure construye el error terminal de la fase. Si el contexto del llamador
// terminó, el tipo es siempre Cancelled y la sesión deja de exponer mediciones.
func (s *Session) failure(ctx context.Context, phase domain.Phase, kind, cause error) error {
	if ctx.Err() != nil || errors.Is(cause, context.Canceled) {
		s.mu.Lock()
		s.cancelled = true
		s.mu.Unlock()
		if cause == nil {
			cause = ctx.Err()
		}
		return domain.NewPhaseError(phase, domain.ErrCancelled, cause)
	}
	return domain.NewPhaseError(phase, kind, cause)
}

func (s *Session) notify(ctx context.Context, event ports.Event) {
	if s.deps.Notifier == nil {
		return
	}
	event.Target = s.target
	if err := s.deps.Notifier.Notify(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Debug("notifier error", "event", string(event.Type), "error", err.Error())
	}
}

// statusError clasifica un código HTTP: 407 es ProxyAuth, 5xx es transitorio y
// el resto de 4xx es permanente con el tipo kind.
func statusError(code int, kind error) error {
	switch {
	case code == http.StatusProxyAuthRequired:
		return resilience.Permanent(fmt.Errorf("%w: status %d", domain.ErrProxyAuth, code))
	case code >= 500:
		return fmt.Errorf("%w: status %d", kind, code)
	case code >= 400:
		return resilience.Permanent(fmt.Errorf("%w: status %d", kind, code))
	default:
		return nil
	}
}
