// internal/core/domain/scan_record.go
package domain

import "time"

// ScanRecord es el resultado de un objetivo dentro de un escaneo bulk.
type ScanRecord struct {
	// RunID identificador del escaneo bulk
	RunID string

	// Index posición del objetivo en la lista
	Index int

	// Proxy dirección enmascarada
	Proxy string

	// Report presente si la sesión terminó en Completed
	Report *Report

	// Intel reputación de la IP de salida (opcional)
	Intel *IPIntel

	// Err error terminal de la sesión
	Err error

	// Filtered indica que el resultado no pasó los filtros del escaneo
	Filtered bool

	// Elapsed duración de la sesión
	Elapsed time.Duration
}

// OK indica si la sesión produjo un veredicto.
func (r *ScanRecord) OK() bool {
	return r.Err == nil && r.Report != nil
}

// ExitIP retorna la IP de salida conocida (del motor o de la reputación).
func (r *ScanRecord) ExitIP() string {
	if r.Report != nil && r.Report.Config.ExitIP != "" {
		return r.Report.Config.ExitIP
	}
	if r.Intel != nil {
		return r.Intel.IP
	}
	return ""
}

// Status resume el resultado: clasificación, "filtered" o el tipo de error.
func (r *ScanRecord) Status() string {
	switch {
	case r.Err != nil:
		return KindName(r.Err)
	case r.Filtered:
		return "filtered"
	case r.Report != nil:
		return string(r.Report.Verdict.Classification)
	default:
		return "unknown"
	}
}
