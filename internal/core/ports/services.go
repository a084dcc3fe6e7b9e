// internal/core/ports/services.go
package ports

import (
	"context"
	"time"

	"proxylens/internal/core/domain"
)

// Clock abstrae el tiempo para que el polling y los reintentos sean deterministas en tests.
type Clock interface {
	Now() time.Time

	// Sleep espera d o hasta que ctx termine
	Sleep(ctx context.Context, d time.Duration) error
}

// Profile es la vista del perfil de navegador que necesitan las fases.
// La implementación concreta (TLS, HTTP/2) vive en el paquete browser.
type Profile interface {
	Name() string
	UserAgent() string

	// Headers retorna una copia ordenada de la plantilla del contexto;
	// los overrides reemplazan valores sin reordenar
	Headers(rc domain.RequestContext, overrides ...domain.Header) []domain.Header

	// Fingerprint hash del navegador emulado
	Fingerprint() uint32
}

// Engine describe el servicio de análisis remoto: sus direcciones y el formato
// de sus documentos.
type Engine interface {
	ScriptURL() string
	SubmitURL() string
	PollURL(sessionID string) string

	// DecodeConfig interpreta la respuesta de la fase 1 y valida el resultado
	DecodeConfig(body []byte) (domain.SessionConfig, error)

	// DecodeAnalysis interpreta la respuesta de un poll
	DecodeAnalysis(body []byte) (domain.Analysis, error)
}

// Meter contabiliza bytes y peticiones de una sesión envolviendo su transporte.
type Meter interface {
	Wrap(inner Transport) Transport
	Snapshot() domain.BandwidthStats
	Timings() []domain.RequestTiming
}

// TelemetryInput son los datos locales que necesita el colector.
type TelemetryInput struct {
	Config       domain.SessionConfig
	Timezone     string
	Measurements []domain.LatencyMeasurement
	Loaded       time.Duration
	Elapsed      time.Duration
}

// TelemetryCollector construye el payload sin acceso a red.
type TelemetryCollector interface {
	Collect(in TelemetryInput) (*domain.TelemetryPayload, error)
}

// Sealer serializa y cifra el payload ligado a la clave de sesión.
type Sealer interface {
	Name() string
	Seal(payload *domain.TelemetryPayload, sessionKey string) (domain.SealedTelemetry, error)
}

// TimezoneResolver obtiene la zona IANA de una IP de salida.
// Debe ser seguro para uso concurrente: se comparte entre sesiones en modo bulk.
type TimezoneResolver interface {
	LookupTimezone(ctx context.Context, ip string) (string, error)
}

// IntelProvider consulta la reputación de la IP de salida a través del transporte de la sesión.
type IntelProvider interface {
	Lookup(ctx context.Context, t Transport, p Profile) (*domain.IPIntel, error)
}

// ResultSink recibe los resultados de un escaneo bulk a medida que terminan.
type ResultSink interface {
	Write(ctx context.Context, rec *domain.ScanRecord) error
	Close() error
}
