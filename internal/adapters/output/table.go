// internal/adapters/output/table.go
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/usecases"
)

var (
	divider  = strings.Repeat("=", 64)
	thinRule = strings.Repeat("-", 64)
)

// RenderReport imprime el informe de una sesión en terminal.
// verbose añade la tabla de probes.
func RenderReport(w io.Writer, report *domain.Report, verbose bool) error {
	v := report.Verdict

	fmt.Fprintln(w)
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "  Proxy Detection Results for %s\n", valueOrUnknown(report.Config.ExitIP))
	fmt.Fprintln(w, divider)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s %-20s %s (confidence %.2f)\n",
		classificationIcon(v.Classification), "Verdict", VerdictLabel(v.Classification), v.Confidence)
	renderScore(w, "Proxy Score", v.Proxy)
	renderScore(w, "VPN Score", v.VPN)
	fmt.Fprintf(w, "  [ ] %-20s %s via %s, timezone %s\n", "Session", report.Profile, report.Proxy, report.Timezone)

	fmt.Fprintln(w)
	fmt.Fprintln(w, thinRule)
	fmt.Fprintln(w, "  Individual Tests")
	fmt.Fprintln(w, thinRule)

	if len(v.Tests) == 0 {
		fmt.Fprintln(w, "  No test data available")
	} else {
		data := pterm.TableData{{"", "Test", "Result"}}
		for _, t := range v.Tests {
			label, icon := TestVerdict(t)
			name := t.Name
			if name == "" {
				name = t.Key
			}
			data = append(data, []string{icon, name, label})
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return fmt.Errorf("failed to render tests table: %w", err)
		}
		fmt.Fprintln(w, table)
	}

	if verbose && len(report.Measurements) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, thinRule)
		fmt.Fprintf(w, "  Latency Probes (%d/%d successful)\n",
			domain.CountSuccessful(report.Measurements), len(report.Measurements))
		fmt.Fprintln(w, thinRule)

		data := pterm.TableData{{"Kind", "Name", "RTT", "Samples", "Error"}}
		for _, m := range report.Measurements {
			rtt := "-"
			if m.Success {
				rtt = fmt.Sprintf("%.1fms", m.Millis())
			}
			data = append(data, []string{string(m.Kind), m.Name, rtt, fmt.Sprint(len(m.Samples)), m.Error})
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return fmt.Errorf("failed to render probes table: %w", err)
		}
		fmt.Fprintln(w, table)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, thinRule)
	total := report.Bandwidth.Total()
	fmt.Fprintf(w, "  Bandwidth Used: %d bytes (%.2f KB), %d requests, %d polls, %.1fs\n",
		total, float64(total)/1024, report.Bandwidth.Requests, report.Polls, report.Duration().Seconds())
	fmt.Fprintln(w, divider)
	return nil
}

// RenderIntel imprime la sección de reputación de la IP de salida.
func RenderIntel(w io.Writer, in *domain.IPIntel) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, thinRule)
	fmt.Fprintln(w, "  IP Intelligence (ipapi.is)")
	fmt.Fprintln(w, thinRule)
	fmt.Fprintf(w, "  [ ] %-20s %s\n", "Exit IP", valueOrUnknown(in.IP))
	fmt.Fprintf(w, "  [ ] %-20s proxy=%s vpn=%s datacenter=%s tor=%s abuser=%s\n", "Threat Flags",
		boolFlag(in.IsProxy), boolFlag(in.IsVPN), boolFlag(in.IsDatacenter), boolFlag(in.IsTor), boolFlag(in.IsAbuser))

	label := ""
	if in.AbuserLabel != "" {
		label = fmt.Sprintf(" (%s)", in.AbuserLabel)
	}
	fmt.Fprintf(w, "  [ ] %-20s %.4f%s\n", "Abuser Score", in.AbuserScore, label)
	fmt.Fprintf(w, "  [ ] %-20s %s (%s)\n", "Company", valueOrUnknown(in.Company), valueOrUnknown(in.CompanyType))
	fmt.Fprintf(w, "  [ ] %-20s %s\n", "ASN Org", valueOrUnknown(in.ASNOrg))
	fmt.Fprintf(w, "  [ ] %-20s %s, %s\n", "Location", valueOrUnknown(in.City), valueOrUnknown(in.Country))
}

// RenderSummary imprime el bloque final de un escaneo bulk.
func RenderSummary(w io.Writer, s usecases.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, divider)
	fmt.Fprintln(w, "  Bulk Scan Summary")
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "  Total:    %d\n", s.Total)
	fmt.Fprintf(w, "  Clean:    %d\n", s.Clean)
	fmt.Fprintf(w, "  Detected: %d\n", s.Detected)
	fmt.Fprintf(w, "  Filtered: %d\n", s.Filtered)
	fmt.Fprintf(w, "  Errors:   %d\n", s.Errors)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped:  %d\n", s.Skipped)
	}
	if avg, ok := s.AvgAbuserScore(); ok {
		fmt.Fprintf(w, "  Avg Abuser Score: %.4f (%d lookups)\n", avg, s.AbuserLookups)
	} else {
		fmt.Fprintln(w, "  Avg Abuser Score: n/a (0 lookups)")
	}
	fmt.Fprintln(w, divider)
}

// VerdictLabel etiqueta legible de una clasificación.
func VerdictLabel(c domain.Classification) string {
	switch c {
	case domain.ClassificationClean:
		return "CLEAN"
	case domain.ClassificationProxy:
		return "PROXY DETECTED"
	case domain.ClassificationVPN:
		return "VPN DETECTED"
	case domain.ClassificationTor:
		return "TOR DETECTED"
	default:
		return "UNKNOWN"
	}
}

// TestVerdict etiqueta e icono de una prueba individual.
func TestVerdict(t domain.TestResult) (label, icon string) {
	proxy := t.IsProxy != nil && *t.IsProxy
	vpn := t.IsVPN != nil && *t.IsVPN

	switch {
	case t.IsTor != nil && *t.IsTor:
		return "TOR DETECTED", "[!!]"
	case proxy && vpn:
		return "PROXY+VPN DETECTED", "[!!]"
	case proxy:
		return "PROXY DETECTED", "[!!]"
	case vpn:
		return "VPN DETECTED", "[!!]"
	case t.IsProxy == nil && t.IsVPN == nil:
		return "N/A", "[ ]"
	default:
		return "clean", "[ok]"
	}
}

func renderScore(w io.Writer, label string, s *domain.Score) {
	if s == nil {
		return
	}
	icon := "[ok]"
	if s.Detected || s.Score > 0 {
		icon = "[!!]"
	}
	fmt.Fprintf(w, "  %s %-20s %s (%s positive)\n", icon, label, valueOrUnknown(s.Informal), s.Ratio())
}

func classificationIcon(c domain.Classification) string {
	switch {
	case c.IsDetected():
		return "[!!]"
	case c == domain.ClassificationClean:
		return "[ok]"
	default:
		return "[? ]"
	}
}

func boolFlag(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
