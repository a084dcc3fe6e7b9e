// internal/platform/ui/raw_presenter.go
package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"proxylens/internal/core/ports"
)

// LogFormat define el formato de salida para el modo raw
type LogFormat string

const (
	LogFormatText LogFormat = "text" // Formato logfmt (default)
	LogFormatJSON LogFormat = "json" // Formato JSON estructurado
)

// RawPresenter implementa el Presenter para salidas sin terminal (pipes, CI).
// En texto, los objetivos bulk se imprimen con FormatTargetLine.
type RawPresenter struct {
	out    io.Writer
	format LogFormat
	now    func() time.Time

	mu        sync.Mutex
	info      RunInfo
	startTime time.Time
}

// NewRawPresenter crea un nuevo RawPresenter que escribe en out
func NewRawPresenter(out io.Writer, format LogFormat) *RawPresenter {
	return &RawPresenter{
		out:       out,
		format:    format,
		now:       time.Now,
		startTime: time.Now(),
	}
}

// log escribe un log en el formato configurado
func (r *RawPresenter) log(level, message string, fields map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timestamp := r.now().UTC().Format(time.RFC3339)

	if r.format == LogFormatJSON {
		r.logJSON(timestamp, level, message, fields)
	} else {
		r.logText(timestamp, level, message, fields)
	}
}

// logText escribe en formato logfmt: timestamp LEVEL message key=value key2=value2
func (r *RawPresenter) logText(timestamp, level, message string, fields map[string]interface{}) {
	parts := []string{timestamp, fmt.Sprintf("%-5s", level), message}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, r.formatValue(fields[k])))
	}

	fmt.Fprintln(r.out, strings.Join(parts, " "))
}

// logJSON escribe en formato JSON estructurado
func (r *RawPresenter) logJSON(timestamp, level, message string, fields map[string]interface{}) {
	logEntry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"message":   message,
	}

	if len(fields) > 0 {
		logEntry["data"] = fields
	}

	jsonBytes, _ := json.Marshal(logEntry)
	fmt.Fprintln(r.out, string(jsonBytes))
}

// formatValue formatea valores para logfmt (entrecomilla strings con espacios)
func (r *RawPresenter) formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		if strings.Contains(val, " ") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case time.Duration:
		return val.String()
	case float64:
		return fmt.Sprintf("%.4f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Start inicia la presentación
func (r *RawPresenter) Start(info RunInfo) {
	r.mu.Lock()
	r.info = info
	r.startTime = r.now()
	r.mu.Unlock()

	fields := map[string]interface{}{
		"profile": info.Profile,
		"engine":  info.Engine,
		"intel":   info.Intel,
	}
	if info.Bulk() {
		fields["targets"] = info.Targets
		fields["concurrency"] = info.Concurrency
	} else {
		fields["proxy"] = info.Proxy
	}
	r.log("INFO", "run_started", fields)
}

// Notify escribe una línea por evento
func (r *RawPresenter) Notify(_ context.Context, event ports.Event) error {
	switch data := event.Data.(type) {
	case ports.PhaseEvent:
		fields := map[string]interface{}{"phase": data.Phase.String()}
		if event.Type == ports.EventTypePhaseCompleted {
			fields["duration"] = data.Duration
			r.log("INFO", "phase_completed", fields)
		} else {
			r.log("INFO", "phase_started", fields)
		}

	case ports.ProbeEvent:
		m := data.Measurement
		fields := map[string]interface{}{
			"kind":    string(m.Kind),
			"name":    m.Name,
			"success": m.Success,
		}
		level := "INFO"
		if m.Success {
			fields["rtt"] = m.RTT
		} else {
			fields["error"] = m.Error
			level = "WARN"
		}
		r.log(level, "probe_completed", fields)

	case ports.PollEvent:
		r.log("DEBUG", "poll", map[string]interface{}{
			"attempt": data.Attempt,
			"delay":   data.Delay,
			"pending": data.Pending,
		})

	case ports.SessionFinishedEvent:
		if event.Type == ports.EventTypeSessionFailed {
			r.log("ERROR", "session_failed", map[string]interface{}{"error": fmt.Sprint(data.Err)})
		} else if data.Report != nil {
			r.log("INFO", "session_completed", map[string]interface{}{
				"classification": string(data.Report.Verdict.Classification),
				"exit_ip":        data.Report.Config.ExitIP,
				"duration":       data.Report.Duration(),
			})
		}

	case ports.TargetFinishedEvent:
		if data.Record == nil {
			return nil
		}
		r.targetLine(data)
	}
	return nil
}

func (r *RawPresenter) targetLine(ev ports.TargetFinishedEvent) {
	r.mu.Lock()
	threshold := r.info.MaxFraudScore
	r.mu.Unlock()

	if r.format == LogFormatJSON {
		rec := ev.Record
		fields := map[string]interface{}{
			"done":    ev.Done,
			"total":   ev.Total,
			"proxy":   rec.Proxy,
			"exit_ip": rec.ExitIP(),
			"status":  rec.Status(),
			"elapsed": rec.Elapsed.Seconds(),
		}
		if rec.Intel != nil {
			fields["abuser_score"] = rec.Intel.AbuserScore
		}
		r.log("INFO", "target_finished", fields)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, FormatTargetLine(ev.Record, ev.Done, ev.Total, threshold))
}

// Info muestra un mensaje informativo
func (r *RawPresenter) Info(msg string) {
	r.log("INFO", msg, nil)
}

// Warning muestra una advertencia
func (r *RawPresenter) Warning(msg string) {
	r.log("WARN", msg, nil)
}

// Error muestra un error
func (r *RawPresenter) Error(msg string) {
	r.log("ERROR", msg, nil)
}

// Finish finaliza la presentación con estadísticas finales
func (r *RawPresenter) Finish(stats RunStats) {
	fields := map[string]interface{}{"duration": stats.Duration}
	if stats.Total > 0 {
		fields["total"] = stats.Total
		fields["clean"] = stats.Clean
		fields["detected"] = stats.Detected
		fields["filtered"] = stats.Filtered
		fields["errors"] = stats.Errors
		fields["skipped"] = stats.Skipped
	}
	r.log("INFO", "run_completed", fields)
}

// Close limpia recursos
func (r *RawPresenter) Close() error {
	return nil
}
