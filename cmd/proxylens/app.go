// cmd/proxylens/app.go
package main

import (
	"crypto/rand"
	"fmt"
	"io"

	"proxylens/internal/browser"
	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
	"proxylens/internal/core/usecases"
	"proxylens/internal/engine"
	"proxylens/internal/geo"
	"proxylens/internal/intel"
	"proxylens/internal/platform/clock"
	"proxylens/internal/platform/config"
	"proxylens/internal/platform/logx"
	"proxylens/internal/telemetry"
	"proxylens/internal/tracker"
	"proxylens/internal/transport"
)

// app agrupa los servicios compartidos por todas las sesiones de una ejecución.
// Sólo contiene piezas inmutables o seguras para uso concurrente.
type app struct {
	cfg       config.Config
	profile   *browser.Profile
	protocol  *engine.Protocol
	sealer    ports.Sealer
	timezones ports.TimezoneResolver
	intel     ports.IntelProvider
	clock     clock.Real
	logger    logx.Logger
	closers   []io.Closer
}

// newApp resuelve perfil, motor, sealer, geolocalización e intel a partir de cfg.
func newApp(cfg config.Config, logger logx.Logger) (*app, error) {
	a := &app{cfg: cfg, clock: clock.New(), logger: logger}

	catalog := browser.DefaultCatalog()
	if cfg.Session.Profiles != "" {
		specs, err := browser.LoadProfiles(cfg.Session.Profiles)
		if err != nil {
			return nil, err
		}
		if catalog, err = catalog.With(specs...); err != nil {
			return nil, fmt.Errorf("profiles %s: %w", cfg.Session.Profiles, err)
		}
	}
	profile, err := catalog.Resolve(cfg.Session.Browser)
	if err != nil {
		return nil, err
	}
	a.profile = profile

	ep, err := engine.NewEndpoints(cfg.Session.Engine)
	if err != nil {
		return nil, err
	}
	a.protocol = engine.NewProtocol(ep, rand.Reader)

	switch cfg.Session.Seal {
	case "aead":
		sealer, err := telemetry.NewAEADSealer([]byte(cfg.Session.SealSecret))
		if err != nil {
			return nil, err
		}
		a.sealer = sealer
	default:
		a.sealer = telemetry.NewPlainSealer()
	}

	// Con zona forzada no se consulta ningún servicio de geolocalización
	if cfg.Session.Timezone == "" {
		var chain geo.Chain
		if cfg.Geo.DB != "" {
			mm, err := geo.OpenMaxMind(cfg.Geo.DB)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, mm)
			chain = append(chain, mm)
		}
		if cfg.Geo.Online {
			chain = append(chain, geo.NewIPAPIResolver(geo.IPAPIOptions{
				BaseURL:  cfg.Geo.IPAPIURL,
				Timeout:  cfg.Transport.Timeout,
				CacheTTL: cfg.Geo.CacheTTL,
				Logger:   logger,
			}))
		}
		if len(chain) > 0 {
			a.timezones = chain
		}
		logger.Debug("timezone resolvers", "count", len(chain))
	}

	if cfg.Intel.Enabled {
		a.intel = intel.New(intel.Options{
			URL:    cfg.Intel.URL,
			Clock:  a.clock,
			Logger: logger,
		})
	}

	logger.Debug("services ready",
		"profile", profile.Name(),
		"sealer", a.sealer.Name(),
		"intel", a.intel != nil,
	)
	return a, nil
}

// sessionOptions traduce la sección Session de la configuración.
func (a *app) sessionOptions(proxy *domain.ProxyConfig) usecases.SessionOptions {
	s := a.cfg.Session
	return usecases.SessionOptions{
		Proxy:           proxy,
		Timezone:        s.Timezone,
		WSRounds:        s.WSRounds,
		ProbeTimeout:    s.ProbeTimeout,
		WSRecvTimeout:   s.WSRecvTimeout,
		ConfigAttempts:  s.ConfigAttempts,
		SubmitAttempts:  s.SubmitAttempts,
		TelemetryJitter: s.TelemetryJitter,
	}
}

// dependencies construye el transporte y el medidor propios de una sesión.
// Implementa usecases.DependencyFactory.
func (a *app) dependencies(proxy *domain.ProxyConfig) (usecases.Dependencies, func(), error) {
	client, err := transport.New(a.profile, proxy, transport.Options{
		Timeout:            a.cfg.Transport.Timeout,
		DialTimeout:        a.cfg.Transport.DialTimeout,
		InsecureSkipVerify: a.cfg.Transport.InsecureSkipVerify,
	}, a.logger)
	if err != nil {
		return usecases.Dependencies{}, nil, err
	}

	release := func() {
		if err := client.Close(); err != nil {
			a.logger.Debug("transport close failed", "error", err.Error())
		}
	}

	return usecases.Dependencies{
		Transport: client,
		Profile:   a.profile,
		Engine:    a.protocol,
		Collector: telemetry.NewCollector(a.profile, a.clock, a.logger),
		Sealer:    a.sealer,
		Meter:     tracker.New(),
		Clock:     a.clock,
		Timezones: a.timezones,
		Logger:    a.logger,
	}, release, nil
}

// Close libera las bases de datos abiertas.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to close resource", "error", err.Error())
		}
	}
}
