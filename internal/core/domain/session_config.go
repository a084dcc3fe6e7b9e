// internal/core/domain/session_config.go
package domain

import (
	"fmt"
	"time"

	"proxylens/internal/platform/validator"
)

// Header es un par nombre/valor. Las plantillas de cabeceras son slices ordenados:
// el orden forma parte de la huella del navegador.
type Header struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// ProbeKind clasifica los probes de latencia.
type ProbeKind string

const (
	ProbeWebSocket ProbeKind = "websocket"
	ProbeImage     ProbeKind = "image"
	ProbeTCP       ProbeKind = "tcp"
)

// IsValid verifica si el tipo de probe es válido.
func (k ProbeKind) IsValid() bool {
	switch k {
	case ProbeWebSocket, ProbeImage, ProbeTCP:
		return true
	default:
		return false
	}
}

// ProbeTarget es un objetivo de medición entregado por el motor en la fase 1.
type ProbeTarget struct {
	// Kind tipo de probe
	Kind ProbeKind `json:"kind"`

	// Name identificador legible (image-1, ws-echo, ...)
	Name string `json:"name"`

	// URL para probes websocket e image
	URL string `json:"url,omitempty"`

	// Addr host:port para probes tcp
	Addr string `json:"addr,omitempty"`
}

// Target retorna la URL o la dirección según el tipo.
func (t ProbeTarget) Target() string {
	if t.Kind == ProbeTCP {
		return t.Addr
	}
	return t.URL
}

// Validate verifica que el objetivo sea utilizable.
func (t ProbeTarget) Validate() error {
	switch t.Kind {
	case ProbeWebSocket:
		if !validator.IsURLWithScheme(t.URL, "ws", "wss") {
			return fmt.Errorf("%w: websocket target %q", ErrInvalidSessionConfig, t.URL)
		}
	case ProbeImage:
		if !validator.IsURLWithScheme(t.URL, "http", "https") {
			return fmt.Errorf("%w: image target %q", ErrInvalidSessionConfig, t.URL)
		}
	case ProbeTCP:
		if !validator.IsHostPort(t.Addr) {
			return fmt.Errorf("%w: tcp target %q", ErrInvalidSessionConfig, t.Addr)
		}
	default:
		return fmt.Errorf("%w: probe kind %q", ErrInvalidSessionConfig, t.Kind)
	}
	return nil
}

// SessionConfig es la configuración emitida por el motor en la fase 1.
// Inmutable una vez obtenida.
type SessionConfig struct {
	// SessionID identificador de sesión emitido por el motor
	SessionID string `json:"session_id"`

	// ExitIP es la IP de salida observada por el motor
	ExitIP string `json:"exit_ip"`

	// Probes objetivos de la fase 2
	Probes []ProbeTarget `json:"probes"`

	// PollInterval espera entre polls una vez agotado PollSchedule
	PollInterval time.Duration `json:"poll_interval"`

	// PollTimeout tiempo máximo de la fase 4
	PollTimeout time.Duration `json:"poll_timeout"`

	// PollSchedule esperas progresivas antes de cada poll (opcional)
	PollSchedule []time.Duration `json:"poll_schedule,omitempty"`
}

// Validate verifica que la configuración tenga todo lo que necesitan las fases 2-4.
func (c *SessionConfig) Validate() error {
	if !validator.IsSessionID(c.SessionID) {
		return fmt.Errorf("%w: session id %q", ErrInvalidSessionConfig, c.SessionID)
	}
	if !validator.IsIP(c.ExitIP) {
		return fmt.Errorf("%w: exit ip %q", ErrInvalidSessionConfig, c.ExitIP)
	}
	if len(c.Probes) == 0 {
		return fmt.Errorf("%w: no probe targets", ErrInvalidSessionConfig)
	}
	for _, p := range c.Probes {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if c.PollInterval <= 0 || c.PollTimeout <= 0 {
		return fmt.Errorf("%w: poll interval and timeout must be positive", ErrInvalidSessionConfig)
	}
	return nil
}

// PollDelay retorna la espera antes del poll número attempt (0-based).
func (c *SessionConfig) PollDelay(attempt int) time.Duration {
	if attempt < len(c.PollSchedule) {
		return c.PollSchedule[attempt]
	}
	if attempt == 0 {
		return 0
	}
	return c.PollInterval
}
