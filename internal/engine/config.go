// internal/engine/config.go
package engine

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"proxylens/internal/core/domain"
)

var (
	scriptUUID = regexp.MustCompile(`uuid:"([a-f0-9]{16})"`)
	scriptRIP  = regexp.MustCompile(`rip:"([^"]+)"`)
)

// configDocument es la forma JSON de la configuración de sesión. Acepta uuid y
// rip como alias, igual que en el script.
type configDocument struct {
	SessionID      string        `json:"session_id"`
	UUID           string        `json:"uuid"`
	ExitIP         string        `json:"exit_ip"`
	RIP            string        `json:"rip"`
	Probes         []probeTarget `json:"probes"`
	PollIntervalMS int64         `json:"poll_interval_ms"`
	PollTimeoutMS  int64         `json:"poll_timeout_ms"`
	PollScheduleMS []int64       `json:"poll_schedule_ms"`
}

type probeTarget struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Addr string `json:"addr"`
}

// DecodeConfig lee la respuesta de la fase 1. Un cuerpo que empieza por '{' es la
// forma JSON; cualquier otro se escanea como el script de la página. Los objetivos
// que el motor no lista salen de ep, con nonces anti-caché tomados de rnd
// (crypto/rand si es nil). El resultado se valida.
func DecodeConfig(body []byte, ep Endpoints, rnd io.Reader) (domain.SessionConfig, error) {
	if rnd == nil {
		rnd = rand.Reader
	}

	var (
		cfg domain.SessionConfig
		err error
	)
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		cfg, err = decodeJSONConfig(trimmed)
	} else {
		cfg, err = decodeScriptConfig(trimmed)
	}
	if err != nil {
		return domain.SessionConfig{}, err
	}

	if len(cfg.Probes) == 0 {
		cfg.Probes, err = DefaultProbes(ep, rnd)
		if err != nil {
			return domain.SessionConfig{}, err
		}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.PollSchedule == nil {
		cfg.PollSchedule = append([]time.Duration(nil), DefaultPollSchedule...)
	}

	if err := cfg.Validate(); err != nil {
		return domain.SessionConfig{}, fmt.Errorf("%w: %v", domain.ErrConfigFetch, err)
	}
	return cfg, nil
}

func decodeScriptConfig(body []byte) (domain.SessionConfig, error) {
	uuid := scriptUUID.FindSubmatch(body)
	if uuid == nil {
		return domain.SessionConfig{}, fmt.Errorf("%w: session id not found in script", domain.ErrConfigFetch)
	}
	rip := scriptRIP.FindSubmatch(body)
	if rip == nil {
		return domain.SessionConfig{}, fmt.Errorf("%w: exit ip not found in script", domain.ErrConfigFetch)
	}
	return domain.SessionConfig{
		SessionID: string(uuid[1]),
		ExitIP:    string(rip[1]),
	}, nil
}

func decodeJSONConfig(body []byte) (domain.SessionConfig, error) {
	var doc configDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.SessionConfig{}, fmt.Errorf("%w: decode config: %v", domain.ErrConfigFetch, err)
	}

	cfg := domain.SessionConfig{
		SessionID:    firstNonEmpty(doc.SessionID, doc.UUID),
		ExitIP:       firstNonEmpty(doc.ExitIP, doc.RIP),
		PollInterval: time.Duration(doc.PollIntervalMS) * time.Millisecond,
		PollTimeout:  time.Duration(doc.PollTimeoutMS) * time.Millisecond,
	}
	if doc.PollScheduleMS != nil {
		cfg.PollSchedule = make([]time.Duration, len(doc.PollScheduleMS))
		for i, ms := range doc.PollScheduleMS {
			if ms < 0 {
				return domain.SessionConfig{}, fmt.Errorf("%w: negative poll delay %d", domain.ErrConfigFetch, ms)
			}
			cfg.PollSchedule[i] = time.Duration(ms) * time.Millisecond
		}
	}
	for i, p := range doc.Probes {
		name := p.Name
		if name == "" {
			name = p.Kind + "-" + strconv.Itoa(i+1)
		}
		cfg.Probes = append(cfg.Probes, domain.ProbeTarget{
			Kind: domain.ProbeKind(p.Kind),
			Name: name,
			URL:  p.URL,
			Addr: p.Addr,
		})
	}
	return cfg, nil
}

// DefaultProbes lista los objetivos estándar del motor: las imágenes, el eco
// WebSocket y el objetivo TCP si está configurado.
func DefaultProbes(ep Endpoints, rnd io.Reader) ([]domain.ProbeTarget, error) {
	probes := make([]domain.ProbeTarget, 0, ep.ImageProbes+2)
	for i := 0; i < ep.ImageProbes; i++ {
		nonce, err := randomHex(rnd)
		if err != nil {
			return nil, err
		}
		probes = append(probes, domain.ProbeTarget{
			Kind: domain.ProbeImage,
			Name: "image-" + strconv.Itoa(i+1),
			URL:  ep.ImageURL(i, nonce),
		})
	}
	if ep.WebSocket != "" {
		probes = append(probes, domain.ProbeTarget{Kind: domain.ProbeWebSocket, Name: "ws-echo", URL: ep.WebSocket})
	}
	if ep.TCP != "" {
		probes = append(probes, domain.ProbeTarget{Kind: domain.ProbeTCP, Name: "tcp-connect", Addr: ep.TCP})
	}
	return probes, nil
}

func randomHex(rnd io.Reader) (string, error) {
	var b [8]byte
	if _, err := io.ReadFull(rnd, b[:]); err != nil {
		return "", fmt.Errorf("probe nonce: %w", err)
	}
	return strconv.FormatUint(binary.BigEndian.Uint64(b[:]), 16), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
