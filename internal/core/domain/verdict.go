// internal/core/domain/verdict.go
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Classification es la clasificación final del motor.
type Classification string

const (
	ClassificationClean   Classification = "clean"
	ClassificationProxy   Classification = "proxy"
	ClassificationVPN     Classification = "vpn"
	ClassificationTor     Classification = "tor"
	ClassificationUnknown Classification = "unknown"
)

// IsDetected indica si la clasificación señala un intermediario.
func (c Classification) IsDetected() bool {
	return c == ClassificationProxy || c == ClassificationVPN || c == ClassificationTor
}

// TestResult es el resultado de una prueba individual del motor.
type TestResult struct {
	Key     string          `json:"key"`
	Name    string          `json:"name,omitempty"`
	IsProxy *bool           `json:"is_proxy,omitempty"`
	IsVPN   *bool           `json:"is_vpn,omitempty"`
	IsTor   *bool           `json:"is_tor,omitempty"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// Flagged indica si la prueba marcó proxy, vpn o tor.
func (t TestResult) Flagged() bool {
	return isTrue(t.IsProxy) || isTrue(t.IsVPN) || isTrue(t.IsTor)
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

// Score agregado (proxy o vpn) del motor.
type Score struct {
	Detected bool    `json:"detected"`
	Score    float64 `json:"score"`
	Informal string  `json:"informal,omitempty"`

	// Positive y Total pruebas positivas sobre las evaluadas
	Positive int `json:"positive_tests"`
	Total    int `json:"total_tests"`
}

// Ratio formatea Positive/Total.
func (s *Score) Ratio() string {
	if s == nil {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d", s.Positive, s.Total)
}

// Verdict es el resultado terminal de la fase 4.
type Verdict struct {
	// Classification clasificación final
	Classification Classification `json:"classification"`

	// Confidence en [0,1]
	Confidence float64 `json:"confidence"`

	// Signals nombres de las señales disparadas
	Signals []string `json:"signals,omitempty"`

	// Proxy y VPN agregados del motor (si los reporta)
	Proxy *Score `json:"proxy,omitempty"`
	VPN   *Score `json:"vpn,omitempty"`

	// Tests resultados individuales en orden de presentación
	Tests []TestResult `json:"tests,omitempty"`

	// Raw documento original del motor
	Raw json.RawMessage `json:"raw,omitempty"`
}

// AnalysisState estado del análisis remoto según un poll.
type AnalysisState string

const (
	AnalysisPending  AnalysisState = "pending"
	AnalysisComplete AnalysisState = "complete"
	AnalysisRejected AnalysisState = "rejected"
)

// Analysis es la respuesta decodificada de un poll de la fase 4.
type Analysis struct {
	State AnalysisState

	// Verdict presente cuando State es AnalysisComplete
	Verdict *Verdict

	// Reason motivo del rechazo
	Reason string

	// TestsDone pruebas ya presentes en un documento pendiente
	TestsDone int
}

// IPIntel es la reputación de la IP de salida (ipapi.is).
type IPIntel struct {
	IP           string  `json:"ip"`
	IsProxy      bool    `json:"is_proxy"`
	IsVPN        bool    `json:"is_vpn"`
	IsDatacenter bool    `json:"is_datacenter"`
	IsTor        bool    `json:"is_tor"`
	IsAbuser     bool    `json:"is_abuser"`
	AbuserScore  float64 `json:"abuser_score"`
	AbuserLabel  string  `json:"abuser_label,omitempty"`
	Company      string  `json:"company,omitempty"`
	CompanyType  string  `json:"company_type,omitempty"`
	ASNOrg       string  `json:"asn_org,omitempty"`
	Country      string  `json:"country,omitempty"`
	City         string  `json:"city,omitempty"`
}

// Report es lo que produce una sesión Completed.
type Report struct {
	Verdict      Verdict              `json:"verdict"`
	Config       SessionConfig        `json:"session"`
	Profile      string               `json:"profile"`
	Proxy        string               `json:"proxy"`
	Timezone     string               `json:"timezone"`
	Measurements []LatencyMeasurement `json:"measurements"`
	Bandwidth    BandwidthStats       `json:"bandwidth"`
	Polls        int                  `json:"polls"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   time.Time            `json:"finished_at"`
	Intel        *IPIntel             `json:"intel,omitempty"`
}

// Duration retorna la duración total de la sesión.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
