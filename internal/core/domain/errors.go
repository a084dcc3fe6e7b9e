// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Taxonomía de errores de una sesión de detección.
var (
	ErrConfigFetch       = errors.New("config fetch failed")
	ErrProxyAuth         = errors.New("proxy authentication failed")
	ErrTimeout           = errors.New("request timed out")
	ErrAllProbesFailed   = errors.New("all latency probes failed")
	ErrTelemetryEncoding = errors.New("telemetry encoding failed")
	ErrTelemetrySubmit   = errors.New("telemetry submission failed")
	ErrAnalysisTimeout   = errors.New("analysis timed out")
	ErrAnalysisRejected  = errors.New("analysis rejected by engine")
	ErrUnknownProfile    = errors.New("unknown browser profile")
	ErrCancelled         = errors.New("session cancelled")
)

// Errores de validación de entidades.
var (
	ErrInvalidProxy         = errors.New("invalid proxy")
	ErrInvalidSessionConfig = errors.New("invalid session config")
	ErrInvalidTransition    = errors.New("invalid session state transition")
	ErrSessionUsed          = errors.New("session already run")
)

// PhaseError es el error terminal de una sesión: indica la fase en la que ocurrió,
// el tipo (uno de los Err* de la taxonomía) y la causa concreta.
type PhaseError struct {
	Phase Phase
	Kind  error
	Err   error
}

func (e *PhaseError) Error() string {
	if e.Err == nil || e.Err == e.Kind {
		return fmt.Sprintf("%s: %v", e.Phase, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Phase, e.Kind, e.Err)
}

// Unwrap expone tanto el tipo como la causa para errors.Is / errors.As.
func (e *PhaseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewPhaseError construye un PhaseError.
func NewPhaseError(phase Phase, kind, cause error) *PhaseError {
	return &PhaseError{Phase: phase, Kind: kind, Err: cause}
}

// KindOf retorna el tipo de error de la taxonomía contenido en err, o nil.
func KindOf(err error) error {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	for _, kind := range []error{
		ErrCancelled, ErrProxyAuth, ErrTimeout, ErrConfigFetch, ErrAllProbesFailed,
		ErrTelemetryEncoding, ErrTelemetrySubmit, ErrAnalysisTimeout,
		ErrAnalysisRejected, ErrUnknownProfile,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName retorna un identificador estable del tipo de error (para CSV/JSON).
func KindName(err error) string {
	switch KindOf(err) {
	case ErrConfigFetch:
		return "ConfigFetchError"
	case ErrProxyAuth:
		return "ProxyAuthError"
	case ErrTimeout:
		return "Timeout"
	case ErrAllProbesFailed:
		return "AllProbesFailedError"
	case ErrTelemetryEncoding:
		return "TelemetryEncodingError"
	case ErrTelemetrySubmit:
		return "TelemetrySubmitError"
	case ErrAnalysisTimeout:
		return "AnalysisTimeout"
	case ErrAnalysisRejected:
		return "AnalysisRejected"
	case ErrUnknownProfile:
		return "UnknownProfile"
	case ErrCancelled:
		return "Cancelled"
	default:
		if err == nil {
			return ""
		}
		return "Error"
	}
}

// PhaseOf retorna la fase en la que falló la sesión, si err es un PhaseError.
func PhaseOf(err error) (Phase, bool) {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Phase, true
	}
	return "", false
}
