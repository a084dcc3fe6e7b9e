// internal/adapters/output/csv.go
package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"proxylens/internal/core/domain"
	"proxylens/internal/platform/logx"
)

var csvBaseHeader = []string{
	"proxy", "exit_ip", "status",
	"proxy_detected", "vpn_detected", "proxy_score", "vpn_score",
	"proxy_positive_tests", "proxy_total_tests", "vpn_positive_tests", "vpn_total_tests",
	"error",
}

var csvIntelHeader = []string{
	"ipapi_proxy", "ipapi_vpn", "ipapi_datacenter", "ipapi_abuser", "abuser_score",
	"company", "company_type", "asn_org", "country", "city",
}

// CSVHeader retorna la cabecera; las columnas ipapi sólo con intel.
func CSVHeader(withIntel bool) []string {
	h := append([]string(nil), csvBaseHeader...)
	if withIntel {
		h = append(h, csvIntelHeader...)
	}
	return h
}

// CSVRow convierte un registro en una fila con el mismo número de columnas que la cabecera.
func CSVRow(rec *domain.ScanRecord, withIntel bool) []string {
	row := make([]string, len(csvBaseHeader))
	row[0] = rec.Proxy

	if rec.Err != nil || rec.Report == nil {
		row[2] = "error"
		if rec.Err != nil {
			row[11] = rec.Err.Error()
		}
	} else {
		v := rec.Report.Verdict
		row[1] = rec.ExitIP()
		row[2] = csvStatus(rec)
		row[3] = strconv.FormatBool(v.Proxy != nil && v.Proxy.Detected)
		row[4] = strconv.FormatBool(v.VPN != nil && v.VPN.Detected)
		row[5], row[7], row[8] = scoreColumns(v.Proxy)
		row[6], row[9], row[10] = scoreColumns(v.VPN)
	}

	if withIntel {
		row = append(row, intelColumns(rec.Intel)...)
	}
	return row
}

func csvStatus(rec *domain.ScanRecord) string {
	switch {
	case rec.Filtered:
		return "filtered"
	case rec.Report.Verdict.Classification.IsDetected():
		return "detected"
	case rec.Report.Verdict.Proxy != nil && rec.Report.Verdict.Proxy.Detected,
		rec.Report.Verdict.VPN != nil && rec.Report.Verdict.VPN.Detected:
		return "detected"
	default:
		return "clean"
	}
}

func scoreColumns(s *domain.Score) (score, positive, total string) {
	if s == nil {
		return "0", "0", "0"
	}
	return strconv.FormatFloat(s.Score, 'f', -1, 64), strconv.Itoa(s.Positive), strconv.Itoa(s.Total)
}

func intelColumns(in *domain.IPIntel) []string {
	if in == nil {
		return make([]string, len(csvIntelHeader))
	}
	return []string{
		strconv.FormatBool(in.IsProxy),
		strconv.FormatBool(in.IsVPN),
		strconv.FormatBool(in.IsDatacenter),
		strconv.FormatBool(in.IsAbuser),
		strconv.FormatFloat(in.AbuserScore, 'f', 4, 64),
		in.Company,
		in.CompanyType,
		in.ASNOrg,
		in.Country,
		in.City,
	}
}

// CSVSink escribe los resultados bulk como CSV, una fila por objetivo.
type CSVSink struct {
	mu        sync.Mutex
	w         *csv.Writer
	closer    io.Closer
	withIntel bool
	rows      int
	logger    logx.Logger
}

// NewCSVSink crea (o trunca) path y escribe la cabecera.
func NewCSVSink(path string, withIntel bool, logger logx.Logger) (*CSVSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv file: %w", err)
	}

	sink, err := NewCSVWriter(f, withIntel, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	sink.closer = f
	return sink, nil
}

// NewCSVWriter escribe la cabecera en w; Close no cierra w.
func NewCSVWriter(w io.Writer, withIntel bool, logger logx.Logger) (*CSVSink, error) {
	if logger == nil {
		logger = logx.NewSilent()
	}
	sink := &CSVSink{
		w:         csv.NewWriter(w),
		withIntel: withIntel,
		logger:    logger.With("component", "csv-sink"),
	}
	if err := sink.writeRecord(CSVHeader(withIntel)); err != nil {
		return nil, err
	}
	return sink, nil
}

// Write implementa ports.ResultSink.
func (s *CSVSink) Write(_ context.Context, rec *domain.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeRecord(CSVRow(rec, s.withIntel)); err != nil {
		return err
	}
	s.rows++
	return nil
}

func (s *CSVSink) writeRecord(fields []string) error {
	if err := s.w.Write(fields); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	s.w.Flush()
	return s.w.Error()
}

// Close vuelca y cierra el archivo subyacente.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
		s.closer = nil
	}
	s.logger.Debug("csv sink closed", "rows", s.rows)
	return err
}
