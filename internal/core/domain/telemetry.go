// internal/core/domain/telemetry.go
package domain

// TelemetryPayload es el documento de entorno de cliente enviado en la fase 3.
// Los nombres JSON son los que espera el motor.
type TelemetryPayload struct {
	UUID            string          `json:"uuid"`
	Idx             int             `json:"idx"`
	Loaded          float64         `json:"loaded"`
	Elapsed         float64         `json:"elapsed"`
	Location        string          `json:"location"`
	UserAgent       string          `json:"userAgent"`
	Time            TimeData        `json:"time"`
	Net             NetData         `json:"net"`
	TimezoneDetails TimezoneDetails `json:"timezone_details"`
	WebRTC          WebRTCData      `json:"webrtc"`
	Machine         MachineData     `json:"machine"`
	ImageLatencies  []float64       `json:"imageLatencies"`
	WSLatencies     []float64       `json:"wsLatencies"`
	Fingerprint     uint32          `json:"fp"`
}

// TimeData hora local reportada por el cliente.
type TimeData struct {
	Timestamp int64  `json:"timestamp"`
	TimeStr   string `json:"time_str"`
	TimeZone  string `json:"time_zone"`
}

// NetData resultados de las pruebas de red del script.
type NetData struct {
	DNSResolving NetTestResult `json:"dnsResolving"`
	UncommonPort NetTestResult `json:"canLoadScriptFromUncommonPort"`
}

// NetTestResult resultado y duración de una prueba de red.
type NetTestResult struct {
	Res  int     `json:"res"`
	Perf float64 `json:"perf"`
}

// TimezoneDetails coherencia de la zona horaria reportada.
type TimezoneDetails struct {
	Valid            TimezoneValid `json:"valid"`
	Date             string        `json:"date"`
	Time             string        `json:"time"`
	Zone             string        `json:"zone"`
	ReportedOffset   int           `json:"reported_offset"`
	ComputedOffset   int           `json:"computed_offset"`
	ReportedLocation string        `json:"reported_location"`
	ResolvedEpoch    int64         `json:"resolvedOptionsEpoch"`
	SystemEpoch      int64         `json:"systemEpoch"`
}

// TimezoneValid banderas de validez de las APIs de fecha.
type TimezoneValid struct {
	Time           bool `json:"time"`
	Clock          bool `json:"clock"`
	Date           bool `json:"date"`
	InvalidDate    bool `json:"invalidDate"`
	Offset         bool `json:"offset"`
	MatchingOffset bool `json:"matchingOffset"`
	NowTime        bool `json:"nowTime"`
	UTCTime        bool `json:"utcTime"`
}

// WebRTCData resultado de la recolección de candidatos WebRTC.
type WebRTCData struct {
	IPs         []string `json:"ips"`
	FinishEvent string   `json:"finishEvent"`
	Elapsed     float64  `json:"elapsed"`
}

// MachineData banderas de características instaladas que delatan automatización.
type MachineData struct {
	UAIdentifiers       bool `json:"uaIdentifiers"`
	Core                bool `json:"core"`
	System              bool `json:"system"`
	Device              bool `json:"device"`
	Platform            bool `json:"platform"`
	SpeechSynthesis     bool `json:"speechSynthesis"`
	DeviceMemory        bool `json:"deviceMemory"`
	HardwareConcurrency bool `json:"hardwareConcurrency"`
	GPU                 bool `json:"gpu"`
}

// SealedTelemetry es el cuerpo listo para enviar y su Content-Type.
type SealedTelemetry struct {
	Body        []byte
	ContentType string
}
