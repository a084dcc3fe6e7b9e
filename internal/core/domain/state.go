// internal/core/domain/state.go
package domain

import "fmt"

// SessionState es el estado de la máquina de estados de una sesión.
type SessionState string

const (
	StateCreated             SessionState = "created"
	StateConfiguring         SessionState = "configuring"
	StateProbing             SessionState = "probing"
	StateSubmittingTelemetry SessionState = "submitting_telemetry"
	StateAnalyzing           SessionState = "analyzing"
	StateCompleted           SessionState = "completed"
	StateFailed              SessionState = "failed"
)

// Phase identifica una de las cuatro fases del protocolo.
type Phase string

const (
	PhaseConfiguring         Phase = "configuring"
	PhaseProbing             Phase = "probing"
	PhaseSubmittingTelemetry Phase = "submitting_telemetry"
	PhaseAnalyzing           Phase = "analyzing"
)

// Phases en orden de ejecución.
var Phases = []Phase{PhaseConfiguring, PhaseProbing, PhaseSubmittingTelemetry, PhaseAnalyzing}

// String retorna la representación string de la fase.
func (p Phase) String() string {
	return string(p)
}

// Number retorna el número de fase (1-4), 0 si no es válida.
func (p Phase) Number() int {
	for i, ph := range Phases {
		if ph == p {
			return i + 1
		}
	}
	return 0
}

// State retorna el estado de sesión asociado a la fase.
func (p Phase) State() SessionState {
	return SessionState(p)
}

// String retorna la representación string del estado.
func (s SessionState) String() string {
	return string(s)
}

// IsTerminal indica si el estado es final (Completed o Failed).
func (s SessionState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Phase retorna la fase activa en el estado, si la hay.
func (s SessionState) Phase() (Phase, bool) {
	switch s {
	case StateConfiguring, StateProbing, StateSubmittingTelemetry, StateAnalyzing:
		return Phase(s), true
	default:
		return "", false
	}
}

// transitions lista los cambios de estado permitidos. Cualquier estado no terminal
// puede pasar a Failed; el resto es estrictamente secuencial.
var transitions = map[SessionState]SessionState{
	StateCreated:             StateConfiguring,
	StateConfiguring:         StateProbing,
	StateProbing:             StateSubmittingTelemetry,
	StateSubmittingTelemetry: StateAnalyzing,
	StateAnalyzing:           StateCompleted,
}

// CanTransition verifica si el cambio from -> to está permitido.
func CanTransition(from, to SessionState) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return transitions[from] == to
}

// ValidateTransition retorna ErrInvalidTransition si el cambio no está permitido.
func ValidateTransition(from, to SessionState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
