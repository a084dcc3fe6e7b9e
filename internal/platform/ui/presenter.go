// internal/platform/ui/presenter.go
package ui

import (
	"io"
	"time"

	"proxylens/internal/core/ports"
)

// Mode define el modo de visualización
type Mode string

const (
	ModeInteractive Mode = "interactive" // Spinners y barra de progreso (default)
	ModeRaw         Mode = "raw"         // Una línea por evento, sin ANSI
	ModeQuiet       Mode = "quiet"       // Sin UI visual
)

// Presenter presenta el progreso de una sesión o de un escaneo bulk.
// Recibe los eventos del dominio a través de ports.Notifier.
type Presenter interface {
	ports.Notifier

	// Start inicia la presentación con información de la ejecución
	Start(info RunInfo)

	// Info muestra un mensaje informativo
	Info(msg string)

	// Warning muestra una advertencia
	Warning(msg string)

	// Error muestra un error
	Error(msg string)

	// Finish finaliza la presentación con estadísticas finales
	Finish(stats RunStats)
}

// RunInfo contiene información inicial de la ejecución
type RunInfo struct {
	// Proxy dirección enmascarada (modo single)
	Proxy string

	// Targets número de proxies (modo bulk)
	Targets int

	Profile        string
	Engine         string
	Concurrency    int
	TimeoutSeconds int
	Intel          bool

	// MaxFraudScore umbral de filtrado, 0 = sin filtro
	MaxFraudScore float64
}

// Bulk indica si la ejecución es un escaneo de lista.
func (i RunInfo) Bulk() bool {
	return i.Targets > 0
}

// RunStats contiene estadísticas finales
type RunStats struct {
	Duration time.Duration
	Total    int
	Clean    int
	Detected int
	Filtered int
	Errors   int
	Skipped  int
}

// SelectMode elige el modo: quiet si la salida es JSON, raw si stderr no es terminal.
func SelectMode(jsonOutput, terminal bool) Mode {
	switch {
	case jsonOutput:
		return ModeQuiet
	case !terminal:
		return ModeRaw
	default:
		return ModeInteractive
	}
}

// New construye el presenter del modo indicado. out sólo aplica al modo raw.
func New(mode Mode, verbose bool, out io.Writer, format LogFormat) Presenter {
	switch mode {
	case ModeQuiet:
		return NewNoopPresenter()
	case ModeRaw:
		return NewRawPresenter(out, format)
	default:
		return NewPTermPresenter(verbose)
	}
}
