// internal/telemetry/collector.go
package telemetry

import (
	"time"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
	"proxylens/internal/platform/logx"
)

const (
	pageLocation = "https://proxydetect.live/"

	// Tiempos que reporta el script de la página de sus propias comprobaciones de red
	dnsResolvingPerf = 215
	uncommonPortPerf = 622

	webrtcNotSupported = "notSupported"
)

// Collector arma el documento de telemetría de una sesión. No toca la red y es
// seguro para uso concurrente.
type Collector struct {
	profile ports.Profile
	clock   ports.Clock
	logger  logx.Logger
}

// NewCollector retorna un collector para profile.
func NewCollector(profile ports.Profile, clock ports.Clock, logger logx.Logger) *Collector {
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &Collector{
		profile: profile,
		clock:   clock,
		logger:  logger.With("component", "telemetry"),
	}
}

// Collect implementa ports.TelemetryCollector.
func (c *Collector) Collect(in ports.TelemetryInput) (*domain.TelemetryPayload, error) {
	now := c.clock.Now()
	zone, err := Resolve(in.Timezone, now)
	if err != nil {
		c.logger.Warn("unknown time zone, reporting UTC", "zone", in.Timezone, "error", err.Error())
		zone = MustResolveUTC(now)
	}

	images, ws := splitLatencies(in.Measurements)
	if len(ws) == 0 {
		ws = images
	}

	return &domain.TelemetryPayload{
		UUID:      in.Config.SessionID,
		Idx:       1,
		Loaded:    millis(in.Loaded),
		Elapsed:   millis(in.Elapsed),
		Location:  pageLocation,
		UserAgent: c.profile.UserAgent(),
		Time: domain.TimeData{
			Timestamp: zone.Timestamp,
			TimeStr:   zone.Date,
			TimeZone:  zone.IANA,
		},
		Net: domain.NetData{
			DNSResolving: domain.NetTestResult{Res: 0, Perf: dnsResolvingPerf},
			UncommonPort: domain.NetTestResult{Res: 1, Perf: uncommonPortPerf},
		},
		TimezoneDetails: domain.TimezoneDetails{
			Valid: domain.TimezoneValid{
				Time:           true,
				Clock:          true,
				Date:           true,
				InvalidDate:    true,
				Offset:         true,
				MatchingOffset: true,
				NowTime:        true,
				UTCTime:        true,
			},
			Date:             zone.Date,
			Time:             zone.Time,
			Zone:             zone.Windows,
			ReportedOffset:   zone.Offset,
			ComputedOffset:   zone.Offset,
			ReportedLocation: zone.IANA,
			ResolvedEpoch:    zone.ResolvedEpoch,
			SystemEpoch:      zone.SystemEpoch,
		},
		WebRTC: domain.WebRTCData{
			IPs:         []string{},
			FinishEvent: webrtcNotSupported,
		},
		Machine:        domain.MachineData{},
		ImageLatencies: images,
		WSLatencies:    ws,
		Fingerprint:    c.profile.Fingerprint(),
	}, nil
}

// splitLatencies retorna los RTT de imagen exitosos y cada muestra de ronda
// WebSocket, en milisegundos y en orden de medición.
func splitLatencies(ms []domain.LatencyMeasurement) (images, ws []float64) {
	images = []float64{}
	for _, m := range ms {
		if !m.Success {
			continue
		}
		switch m.Kind {
		case domain.ProbeImage:
			images = append(images, m.Millis())
		case domain.ProbeWebSocket:
			ws = append(ws, m.SampleMillis()...)
		}
	}
	return images, ws
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
