// internal/core/domain/measurement.go
package domain

import "time"

// LatencyMeasurement es el resultado de un probe, exitoso o no.
type LatencyMeasurement struct {
	// Kind tipo de probe
	Kind ProbeKind `json:"kind"`

	// Target URL o host:port medido
	Target string `json:"target"`

	// Name identificador del objetivo
	Name string `json:"name"`

	// RTT tiempo de ida y vuelta (media de Samples para websocket)
	RTT time.Duration `json:"rtt"`

	// Samples RTT individuales (rondas websocket)
	Samples []time.Duration `json:"samples,omitempty"`

	// Success indica si el probe obtuvo una medición válida
	Success bool `json:"success"`

	// Error descripción del fallo (vacío si Success)
	Error string `json:"error,omitempty"`

	// BytesSent y BytesReceived transferidos por este probe
	BytesSent     int64 `json:"bytes_sent"`
	BytesReceived int64 `json:"bytes_received"`

	// CompletedAt momento en el que el probe terminó
	CompletedAt time.Time `json:"completed_at"`
}

// Millis retorna el RTT en milisegundos con decimales.
func (m LatencyMeasurement) Millis() float64 {
	return float64(m.RTT) / float64(time.Millisecond)
}

// SampleMillis retorna las muestras en milisegundos; si no hay, el RTT como única muestra.
func (m LatencyMeasurement) SampleMillis() []float64 {
	if len(m.Samples) == 0 {
		return []float64{m.Millis()}
	}
	out := make([]float64, len(m.Samples))
	for i, s := range m.Samples {
		out[i] = float64(s) / float64(time.Millisecond)
	}
	return out
}

// MeanDuration calcula la media de una lista de duraciones.
func MeanDuration(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}

// CountSuccessful cuenta las mediciones exitosas.
func CountSuccessful(ms []LatencyMeasurement) int {
	n := 0
	for _, m := range ms {
		if m.Success {
			n++
		}
	}
	return n
}

// BandwidthStats son los totales acumulados de una sesión. Se expone por valor (snapshot).
type BandwidthStats struct {
	BytesSent     int64 `json:"bytes_sent"`
	BytesReceived int64 `json:"bytes_received"`
	Requests      int64 `json:"requests"`
}

// Total retorna bytes enviados + recibidos.
func (b BandwidthStats) Total() int64 {
	return b.BytesSent + b.BytesReceived
}

// RequestTiming registra una petición individual pasada por el tracker.
type RequestTiming struct {
	Method        string        `json:"method"`
	URL           string        `json:"url"`
	Status        int           `json:"status"`
	Duration      time.Duration `json:"duration"`
	BytesSent     int64         `json:"bytes_sent"`
	BytesReceived int64         `json:"bytes_received"`
	Err           string        `json:"error,omitempty"`
}
