// internal/engine/endpoints.go

// Package engine conoce el servicio remoto de análisis: dónde están sus endpoints
// y cómo leer los documentos que devuelve.
package engine

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"proxylens/internal/platform/validator"
)

const (
	DefaultBase          = "https://engine.proxydetect.live"
	DefaultWebSocketPort = 7630
	DefaultImageProbes   = 3

	DefaultPollInterval = 12 * time.Second
	DefaultPollTimeout  = 3 * time.Minute
)

// DefaultPollSchedule es la espera progresiva antes de cada uno de los primeros polls.
var DefaultPollSchedule = []time.Duration{
	0,
	200 * time.Millisecond,
	400 * time.Millisecond,
	650 * time.Millisecond,
	900 * time.Millisecond,
	1200 * time.Millisecond,
	1600 * time.Millisecond,
	2100 * time.Millisecond,
	2700 * time.Millisecond,
	3500 * time.Millisecond,
	4500 * time.Millisecond,
	6000 * time.Millisecond,
	8000 * time.Millisecond,
	10000 * time.Millisecond,
	12000 * time.Millisecond,
}

// Endpoints son las direcciones del motor con las que habla una sesión.
type Endpoints struct {
	// Base origen HTTPS del script, las imágenes, el beacon y el poll
	Base string

	// WebSocket endpoint de eco para las rondas de latencia
	WebSocket string

	// TCP host:port opcional medido con un connect simple
	TCP string

	// ImageProbes cuántas imágenes recibe una configuración en forma de script
	ImageProbes int
}

// DefaultEndpoints apunta al motor público.
func DefaultEndpoints() Endpoints {
	ep, _ := NewEndpoints(DefaultBase)
	return ep
}

// NewEndpoints deriva los endpoints de la URL base del motor. El eco WebSocket
// vive en el mismo host, en DefaultWebSocketPort.
func NewEndpoints(base string) (Endpoints, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if !validator.IsURLWithScheme(base, "http", "https") {
		return Endpoints{}, fmt.Errorf("invalid engine base url %q", base)
	}
	u, err := url.Parse(base)
	if err != nil {
		return Endpoints{}, fmt.Errorf("parse engine base url: %w", err)
	}

	wsScheme := "wss"
	if u.Scheme == "http" {
		wsScheme = "ws"
	}
	ws := url.URL{
		Scheme: wsScheme,
		Host:   net.JoinHostPort(u.Hostname(), strconv.Itoa(DefaultWebSocketPort)),
	}

	return Endpoints{
		Base:        base,
		WebSocket:   ws.String(),
		ImageProbes: DefaultImageProbes,
	}, nil
}

// Validate comprueba cada dirección configurada.
func (e Endpoints) Validate() error {
	if !validator.IsURLWithScheme(e.Base, "http", "https") {
		return fmt.Errorf("invalid engine base url %q", e.Base)
	}
	if e.WebSocket != "" && !validator.IsURLWithScheme(e.WebSocket, "ws", "wss") {
		return fmt.Errorf("invalid engine websocket url %q", e.WebSocket)
	}
	if e.TCP != "" && !validator.IsHostPort(e.TCP) {
		return fmt.Errorf("invalid engine tcp target %q", e.TCP)
	}
	if e.ImageProbes < 0 {
		return fmt.Errorf("negative image probe count %d", e.ImageProbes)
	}
	return nil
}

// ScriptURL sirve la configuración de sesión (fase 1).
func (e Endpoints) ScriptURL() string { return e.Base + "/pd-lib.js" }

// ImageURL es la imagen número n; nonce evita cachés.
func (e Endpoints) ImageURL(n int, nonce string) string {
	return fmt.Sprintf("%s/images/small.png?n=%d&r=%s", e.Base, n, nonce)
}

// SubmitURL recibe el beacon de telemetría (fase 3).
func (e Endpoints) SubmitURL() string { return e.Base + "/s" }

// PollURL retorna el estado del análisis de una sesión (fase 4).
func (e Endpoints) PollURL(sessionID string) string {
	return e.Base + "/i?&uuid=" + url.QueryEscape(sessionID)
}
