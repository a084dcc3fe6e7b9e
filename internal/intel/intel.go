// internal/intel/intel.go

// Package intel completa una sesión con lo que ipapi.is sabe de su IP de salida.
// La consulta usa el transporte de la propia sesión, así que ipapi.is ve la misma
// salida y la misma huella que el motor de detección.
package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
	"proxylens/internal/platform/clock"
	"proxylens/internal/platform/errors"
	"proxylens/internal/platform/logx"
	"proxylens/internal/platform/resilience"
)

const (
	DefaultURL        = "https://api.ipapi.is/"
	DefaultRetryDelay = 250 * time.Millisecond
	DefaultJitter     = 120 * time.Millisecond
)

// Options configura un Provider. Los valores cero toman los defaults.
type Options struct {
	URL        string
	RetryDelay time.Duration

	// Jitter espera media antes de cada petición (±40%); negativo la desactiva
	Jitter time.Duration

	Clock  ports.Clock
	Logger logx.Logger
}

// Provider implementa ports.IntelProvider contra ipapi.is.
type Provider struct {
	url     string
	jitter  time.Duration
	clock   ports.Clock
	retrier *resilience.Retrier
	logger  logx.Logger
}

var _ ports.IntelProvider = (*Provider)(nil)

// New construye un Provider.
func New(opts Options) *Provider {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Jitter == 0 {
		opts.Jitter = DefaultJitter
	}
	if opts.Jitter < 0 {
		opts.Jitter = 0
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = logx.NewSilent()
	}
	logger := opts.Logger.With("component", "intel")

	return &Provider{
		url:    opts.URL,
		jitter: opts.Jitter,
		clock:  opts.Clock,
		retrier: resilience.NewRetrier(resilience.Policy{
			MaxAttempts: 2,
			Backoff:     resilience.ConstantBackoff(opts.RetryDelay),
		}, opts.Clock, logger),
		logger: logger,
	}
}

// Lookup consulta ipapi.is y reintenta una sola vez ante cualquier fallo.
func (p *Provider) Lookup(ctx context.Context, t ports.Transport, profile ports.Profile) (*domain.IPIntel, error) {
	var info *domain.IPIntel
	err := p.retrier.Do(ctx, "ipapi lookup", func(ctx context.Context, _ int) error {
		var err error
		info, err = p.fetch(ctx, t, profile)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("intel: %w", err)
	}
	p.logger.Debug("exit ip intel",
		"ip", info.IP,
		"abuser_score", info.AbuserScore,
		"datacenter", info.IsDatacenter,
	)
	return info, nil
}

func (p *Provider) fetch(ctx context.Context, t ports.Transport, profile ports.Profile) (*domain.IPIntel, error) {
	if p.jitter > 0 {
		lo, hi := p.jitter*6/10, p.jitter*14/10
		if err := p.clock.Sleep(ctx, resilience.Jitter(nil, lo, hi)); err != nil {
			return nil, err
		}
	}

	resp, err := t.Do(ctx, ports.Request{
		Method:  http.MethodGet,
		URL:     p.url,
		Headers: profile.Headers(domain.ContextIntel),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewStatusError(resp.StatusCode, p.url, resp.Body)
	}
	return Parse(resp.Body)
}

// document es el subconjunto de la respuesta de ipapi.is que se conserva.
type document struct {
	IP           string `json:"ip"`
	IsProxy      bool   `json:"is_proxy"`
	IsVPN        bool   `json:"is_vpn"`
	IsDatacenter bool   `json:"is_datacenter"`
	IsTor        bool   `json:"is_tor"`
	IsAbuser     bool   `json:"is_abuser"`
	Company      struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		AbuserScore string `json:"abuser_score"`
	} `json:"company"`
	ASN struct {
		Org string `json:"org"`
	} `json:"asn"`
	Location struct {
		Country string `json:"country"`
		City    string `json:"city"`
	} `json:"location"`
}

// Parse decodifica el cuerpo de una respuesta de ipapi.is.
func Parse(body []byte) (*domain.IPIntel, error) {
	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(errors.Join(errors.ErrInvalidResponse, err), "decode ipapi.is response")
	}
	score, label := ParseAbuserScore(doc.Company.AbuserScore)
	return &domain.IPIntel{
		IP:           doc.IP,
		IsProxy:      doc.IsProxy,
		IsVPN:        doc.IsVPN,
		IsDatacenter: doc.IsDatacenter,
		IsTor:        doc.IsTor,
		IsAbuser:     doc.IsAbuser,
		AbuserScore:  score,
		AbuserLabel:  label,
		Company:      doc.Company.Name,
		CompanyType:  doc.Company.Type,
		ASNOrg:       doc.ASN.Org,
		Country:      doc.Location.Country,
		City:         doc.Location.City,
	}, nil
}

// ParseAbuserScore separa "0.0039 (Low)" en 0.0039 y "Low". Un score ilegible
// vale 0.
func ParseAbuserScore(raw string) (float64, string) {
	s := strings.TrimSpace(raw)
	label := ""
	if open := strings.IndexByte(s, '('); open >= 0 {
		if end := strings.LastIndexByte(s, ')'); end > open {
			label = strings.TrimSpace(s[open+1 : end])
			s = strings.TrimSpace(s[:open])
		}
	}
	score, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, label
	}
	return score, label
}
