// internal/platform/ui/symbols.go
package ui

import (
	"github.com/pterm/pterm"

	"proxylens/internal/core/domain"
)

// Status representa el estado de una fase, probe u objetivo
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSuccess
	StatusDetected
	StatusFiltered
	StatusError
)

// String convierte el status a string
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusDetected:
		return "detected"
	case StatusFiltered:
		return "filtered"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Symbol retorna el símbolo Unicode para cada estado
func (s Status) Symbol() string {
	switch s {
	case StatusPending:
		return "⏸"
	case StatusRunning:
		return "⣾"
	case StatusSuccess:
		return "✓"
	case StatusDetected:
		return "⚠"
	case StatusFiltered:
		return "⊘"
	case StatusError:
		return "✗"
	default:
		return "?"
	}
}

// Tag retorna la etiqueta ASCII usada en las líneas bulk
func (s Status) Tag() string {
	switch s {
	case StatusSuccess:
		return "[ok]"
	case StatusDetected:
		return "[!!]"
	case StatusFiltered:
		return "[--]"
	case StatusError:
		return "[ER]"
	default:
		return "[..]"
	}
}

// Style retorna el estilo de la paleta para el estado
func (s Status) Style() pterm.RGBStyle {
	switch s {
	case StatusPending:
		return StyleSecondary
	case StatusRunning:
		return StyleActive
	case StatusSuccess:
		return StyleSuccess
	case StatusDetected:
		return StyleWarning
	case StatusFiltered:
		return StyleSecondary
	case StatusError:
		return StyleError
	default:
		return StyleText
	}
}

// RecordStatus clasifica el resultado de un objetivo bulk
func RecordStatus(rec *domain.ScanRecord) Status {
	switch {
	case rec == nil:
		return StatusPending
	case rec.Filtered:
		return StatusFiltered
	case rec.Err != nil:
		return StatusError
	case rec.Report == nil:
		return StatusPending
	case detected(&rec.Report.Verdict):
		return StatusDetected
	default:
		return StatusSuccess
	}
}

// MeasurementStatus clasifica un probe terminado
func MeasurementStatus(m domain.LatencyMeasurement) Status {
	if m.Success {
		return StatusSuccess
	}
	return StatusError
}

func detected(v *domain.Verdict) bool {
	if v.Classification.IsDetected() {
		return true
	}
	return (v.Proxy != nil && v.Proxy.Detected) || (v.VPN != nil && v.VPN.Detected)
}

// Icons globales para diferentes elementos de la UI
var (
	IconProxy   = "🔌"
	IconPhase   = "🔄"
	IconProbe   = "📡"
	IconVerdict = "🔍"
	IconTime    = "⏱"
	IconWorkers = "⚙️"
	IconProfile = "🧭"
	IconStats   = "📊"
)

// Separadores
var (
	SeparatorHeavy = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
	SeparatorLight = "────────────────────────────────────────────────────────────────"
)
