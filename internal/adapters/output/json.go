// internal/adapters/output/json.go
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"proxylens/internal/core/domain"
)

// WriteReportJSON exporta el informe de una sesión en formato JSON.
func WriteReportJSON(w io.Writer, report *domain.Report, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// JSONLine es una línea NDJSON de un escaneo bulk.
type JSONLine struct {
	Proxy         string          `json:"proxy"`
	ExitIP        *string         `json:"exit_ip"`
	Status        string          `json:"status"`
	Result        json.RawMessage `json:"result"`
	IPAPI         *domain.IPIntel `json:"ipapi"`
	Filtered      bool            `json:"filtered"`
	MaxFraudScore *float64        `json:"max_fraud_score"`
	Error         *string         `json:"error"`
	ElapsedMS     int64           `json:"elapsed_ms"`
}

// NewJSONLine construye la línea de un registro. threshold 0 se serializa como null.
func NewJSONLine(rec *domain.ScanRecord, threshold float64) JSONLine {
	line := JSONLine{
		Proxy:     rec.Proxy,
		Status:    rec.Status(),
		Result:    json.RawMessage("null"),
		IPAPI:     rec.Intel,
		Filtered:  rec.Filtered,
		ElapsedMS: rec.Elapsed.Milliseconds(),
	}
	if ip := rec.ExitIP(); ip != "" {
		line.ExitIP = &ip
	}
	if rec.Report != nil && len(rec.Report.Verdict.Raw) > 0 {
		line.Result = rec.Report.Verdict.Raw
	}
	if threshold > 0 {
		line.MaxFraudScore = &threshold
	}
	if rec.Err != nil {
		msg := rec.Err.Error()
		line.Error = &msg
	}
	return line
}
