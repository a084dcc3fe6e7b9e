// internal/platform/ui/pterm_presenter.go
package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
)

// PTermPresenter implementa Presenter usando la biblioteca pterm
// para renderizar spinners por fase, colores y la barra de progreso bulk.
type PTermPresenter struct {
	mu sync.Mutex

	info      RunInfo
	verbose   bool
	startTime time.Time

	// Spinner de la fase en curso (modo single)
	spinner *pterm.SpinnerPrinter
	phase   domain.Phase

	// Barra de progreso y métricas (modo bulk)
	bar     *pterm.ProgressbarPrinter
	metrics *BulkMetrics
}

// NewPTermPresenter crea una nueva instancia del presenter con pterm.
// verbose muestra además cada probe terminado.
func NewPTermPresenter(verbose bool) *PTermPresenter {
	return &PTermPresenter{verbose: verbose}
}

// Start inicia la presentación mostrando el header de la ejecución
func (p *PTermPresenter) Start(info RunInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.info = info
	p.startTime = time.Now()

	pterm.Println(StyleActive.Sprint(Banner(pterm.GetTerminalWidth())))
	pterm.Println()

	infoPanel := pterm.DefaultBox.
		WithTitle("Run Configuration").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgCyan))

	var content string
	if info.Bulk() {
		content = fmt.Sprintf("%s Targets: %s\n", IconProxy, pterm.Cyan(info.Targets))
		content += fmt.Sprintf("%s Concurrency: %d\n", IconWorkers, info.Concurrency)
		if info.MaxFraudScore > 0 {
			content += fmt.Sprintf("   Max fraud score: %.4f\n", info.MaxFraudScore)
		}
	} else {
		content = fmt.Sprintf("%s Proxy: %s\n", IconProxy, pterm.Cyan(info.Proxy))
	}
	content += fmt.Sprintf("%s Profile: %s\n", IconProfile, pterm.Yellow(info.Profile))
	content += fmt.Sprintf("   Engine: %s\n", info.Engine)
	content += fmt.Sprintf("   Intel: %s", boolToString(info.Intel))
	if info.TimeoutSeconds > 0 {
		content += fmt.Sprintf("\n%s Timeout: %ds", IconTime, info.TimeoutSeconds)
	}
	infoPanel.Println(content)

	pterm.Println()
	pterm.Println(pterm.LightBlue(SeparatorHeavy))
	pterm.Println()

	if info.Bulk() {
		p.metrics = NewBulkMetrics(info.Targets)
		p.bar, _ = pterm.DefaultProgressbar.
			WithTotal(info.Targets).
			WithTitle("Scanning").
			WithRemoveWhenDone(true).
			Start()
	}
}

// Notify traduce los eventos de sesión y bulk a la terminal
func (p *PTermPresenter) Notify(_ context.Context, event ports.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch data := event.Data.(type) {
	case ports.PhaseEvent:
		switch event.Type {
		case ports.EventTypePhaseStarted:
			p.startPhase(data.Phase)
		case ports.EventTypePhaseCompleted:
			p.finishPhase(data.Phase, data.Duration)
		}

	case ports.ProbeEvent:
		if p.verbose {
			p.renderProbe(data.Measurement)
		}

	case ports.PollEvent:
		if p.spinner != nil {
			p.spinner.UpdateText(fmt.Sprintf("%s (poll %d, next in %s)",
				phaseTitle(domain.PhaseAnalyzing), data.Attempt, formatDuration(data.Delay)))
		}

	case ports.SessionFinishedEvent:
		if event.Type == ports.EventTypeSessionFailed {
			p.failPhase(data.Err)
		}

	case ports.TargetFinishedEvent:
		p.renderTarget(data)
	}
	return nil
}

func (p *PTermPresenter) startPhase(phase domain.Phase) {
	p.stopSpinner()
	p.phase = phase
	p.spinner, _ = pterm.DefaultSpinner.
		WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷").
		WithRemoveWhenDone(false).
		Start(fmt.Sprintf("%s %s...", IconPhase, phaseTitle(phase)))
}

func (p *PTermPresenter) finishPhase(phase domain.Phase, d time.Duration) {
	if p.spinner == nil || p.phase != phase {
		pterm.Success.Printf("%s (%s)\n", phaseTitle(phase), formatDuration(d))
		return
	}
	p.spinner.Success(fmt.Sprintf("%s (%s)", phaseTitle(phase), formatDuration(d)))
	p.spinner = nil
}

func (p *PTermPresenter) failPhase(err error) {
	msg := "session failed"
	if err != nil {
		msg = fmt.Sprintf("%s: %v", domain.KindName(err), err)
	}
	if p.spinner != nil {
		p.spinner.Fail(fmt.Sprintf("%s: %s", phaseTitle(p.phase), msg))
		p.spinner = nil
		return
	}
	pterm.Error.Println(msg)
}

func (p *PTermPresenter) stopSpinner() {
	if p.spinner != nil {
		_ = p.spinner.Stop()
		p.spinner = nil
	}
}

// renderProbe imprime una línea por probe terminado
func (p *PTermPresenter) renderProbe(m domain.LatencyMeasurement) {
	status := MeasurementStatus(m)
	line := fmt.Sprintf("    %s %-9s %-28s", status.Symbol(), m.Kind, m.Name)
	if m.Success {
		line += fmt.Sprintf(" %7.1fms", m.Millis())
		if len(m.Samples) > 1 {
			line += fmt.Sprintf(" (%d samples)", len(m.Samples))
		}
	} else {
		line += " " + m.Error
	}
	pterm.Println(status.Style().Sprint(line))
}

// renderTarget avanza la barra e imprime la línea del objetivo
func (p *PTermPresenter) renderTarget(ev ports.TargetFinishedEvent) {
	if ev.Record == nil {
		return
	}
	if p.metrics != nil {
		p.metrics.Record(ev.Record)
	}

	status := RecordStatus(ev.Record)
	pterm.Println(status.Style().Sprint(FormatTargetLine(ev.Record, ev.Done, ev.Total, p.info.MaxFraudScore)))

	if p.bar != nil {
		pm := p.metrics.Snapshot()
		p.bar.UpdateTitle(fmt.Sprintf("Scanning (%d ok, %d detected, %d errors)", pm.Clean, pm.Detected, pm.Errors))
		p.bar.Increment()
	}
}

// Info muestra un mensaje informativo
func (p *PTermPresenter) Info(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Info.Println(msg)
}

// Warning muestra una advertencia
func (p *PTermPresenter) Warning(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Warning.Println(msg)
}

// Error muestra un error
func (p *PTermPresenter) Error(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Error.Println(msg)
}

// Finish finaliza la presentación con estadísticas finales
func (p *PTermPresenter) Finish(stats RunStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopSpinner()
	if p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}

	pterm.Println()
	if !p.info.Bulk() {
		pterm.Info.Printf("Session finished in %s\n", formatDuration(stats.Duration))
		return
	}

	statsPanel := pterm.DefaultBox.
		WithTitle("Scan Statistics").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgGreen))

	content := fmt.Sprintf("%s Duration: %s\n", IconTime, StyleSuccess.Sprint(formatDuration(stats.Duration)))
	content += fmt.Sprintf("%s Targets: %d\n", IconStats, stats.Total)
	content += fmt.Sprintf("   Clean: %s\n", StyleSuccess.Sprint(stats.Clean))
	content += fmt.Sprintf("   Detected: %s\n", StyleWarning.Sprint(stats.Detected))
	content += fmt.Sprintf("   Filtered: %s\n", StyleSecondary.Sprint(stats.Filtered))
	content += fmt.Sprintf("   Errors: %s", StyleError.Sprint(stats.Errors))
	if stats.Skipped > 0 {
		content += fmt.Sprintf("\n   Skipped: %d", stats.Skipped)
	}
	statsPanel.Println(content)
}

// Close limpia recursos del presenter
func (p *PTermPresenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopSpinner()
	if p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}
	return nil
}
