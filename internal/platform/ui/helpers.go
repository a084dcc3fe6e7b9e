// internal/platform/ui/helpers.go
package ui

import (
	"fmt"
	"time"

	"proxylens/internal/core/domain"
)

// formatDuration formatea una duración de manera legible
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
}

// boolToString convierte booleano a string visual
func boolToString(b bool) string {
	if b {
		return StyleSuccess.Sprint("ON")
	}
	return StyleSecondary.Sprint("OFF")
}

// BoolFlag convierte booleano a Y/N
func BoolFlag(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

func detectedTag(b bool) string {
	if b {
		return "detected"
	}
	return "clean"
}

// scoreField muestra DETECTED(p/t) o clean para un score agregado del motor
func scoreField(s *domain.Score) string {
	if s != nil && s.Detected {
		return fmt.Sprintf("DETECTED(%s)", s.Ratio())
	}
	return "clean"
}

// phaseTitle formatea "Phase n/4: nombre"
func phaseTitle(p domain.Phase) string {
	return fmt.Sprintf("Phase %d/%d: %s", p.Number(), len(domain.Phases), phaseLabel(p))
}

func phaseLabel(p domain.Phase) string {
	switch p {
	case domain.PhaseConfiguring:
		return "session config"
	case domain.PhaseProbing:
		return "latency probes"
	case domain.PhaseSubmittingTelemetry:
		return "telemetry"
	case domain.PhaseAnalyzing:
		return "verdict"
	default:
		return string(p)
	}
}

// FormatTargetLine genera la línea de un objetivo bulk terminado, sin colores.
// threshold es el umbral de abuso usado para filtrar (0 = sin filtro).
func FormatTargetLine(rec *domain.ScanRecord, done, total int, threshold float64) string {
	progress := fmt.Sprintf("[%d/%d]", done, total)
	status := RecordStatus(rec)
	elapsed := rec.Elapsed.Seconds()

	var abuse float64
	if rec.Intel != nil {
		abuse = rec.Intel.AbuserScore
	}

	switch {
	case status == StatusFiltered && rec.Err == nil && threshold > 0:
		return fmt.Sprintf("%s %s %-30s exit=%-15s FILTERED (abuse=%.4f > %.4f) %.1fs",
			progress, status.Tag(), rec.Proxy, rec.ExitIP(), abuse, threshold, elapsed)

	case status == StatusFiltered && rec.Err == nil:
		return fmt.Sprintf("%s %s %-30s exit=%-15s FILTERED (%s, abuse=%.4f) %.1fs",
			progress, status.Tag(), rec.Proxy, rec.ExitIP(), verdictName(rec), abuse, elapsed)

	case rec.Err != nil:
		msg := domain.KindName(rec.Err)
		if rec.Intel != nil {
			return fmt.Sprintf("%s %s %-30s error: %-28s abuse=%-7.4f %.1fs",
				progress, StatusError.Tag(), rec.Proxy, msg, abuse, elapsed)
		}
		return fmt.Sprintf("%s %s %-30s error: %-39s %.1fs",
			progress, StatusError.Tag(), rec.Proxy, msg, elapsed)

	case rec.Intel != nil:
		return fmt.Sprintf("%s %s %-30s exit=%-15s proxy=%-8s vpn=%-8s dc=%s abuse=%-7.4f %.1fs",
			progress, status.Tag(), rec.Proxy, rec.ExitIP(),
			detectedTag(rec.Intel.IsProxy),
			detectedTag(rec.Intel.IsVPN),
			BoolFlag(rec.Intel.IsDatacenter),
			abuse, elapsed)

	default:
		var proxy, vpn *domain.Score
		if rec.Report != nil {
			proxy, vpn = rec.Report.Verdict.Proxy, rec.Report.Verdict.VPN
		}
		return fmt.Sprintf("%s %s %-30s exit=%-15s proxy=%-16s vpn=%-16s %.1fs",
			progress, status.Tag(), rec.Proxy, rec.ExitIP(), scoreField(proxy), scoreField(vpn), elapsed)
	}
}

func verdictName(rec *domain.ScanRecord) string {
	if rec.Report == nil {
		return "no verdict"
	}
	return string(rec.Report.Verdict.Classification)
}
