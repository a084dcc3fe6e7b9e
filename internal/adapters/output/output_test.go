// internal/adapters/output/output_test.go
package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/usecases"
	"proxylens/internal/testutil"
)

func boolPtr(b bool) *bool { return &b }

func sampleReport() *domain.Report {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Report{
		Verdict: domain.Verdict{
			Classification: domain.ClassificationProxy,
			Confidence:     0.75,
			Signals:        []string{"latency_vs_ping"},
			Proxy:          &domain.Score{Detected: true, Score: 75, Informal: "likely proxy", Positive: 3, Total: 9},
			VPN:            &domain.Score{Score: 0, Informal: "no vpn", Positive: 0, Total: 9},
			Tests: []domain.TestResult{
				{Key: "latency_vs_ping", Name: "Latency vs Ping", IsProxy: boolPtr(true)},
				{Key: "timezone", Name: "Timezone", IsProxy: boolPtr(false), IsVPN: boolPtr(false)},
				{Key: "webrtc"},
			},
			Raw: json.RawMessage(`{"finished":true}`),
		},
		Config:  domain.SessionConfig{SessionID: "s-1", ExitIP: "203.0.113.7"},
		Profile: "chrome-143",
		Proxy:   "http://***@198.51.100.11:3128",
		Measurements: []domain.LatencyMeasurement{
			{Kind: domain.ProbeWebSocket, Name: "ws-echo", RTT: 42 * time.Millisecond, Success: true,
				Samples: []time.Duration{40 * time.Millisecond, 44 * time.Millisecond}},
			{Kind: domain.ProbeImage, Name: "image-1", Error: "status 404"},
		},
		Bandwidth:  domain.BandwidthStats{BytesSent: 1024, BytesReceived: 1024, Requests: 7},
		Polls:      3,
		Timezone:   "Europe/Madrid",
		StartedAt:  start,
		FinishedAt: start.Add(8 * time.Second),
	}
}

func okRecord() *domain.ScanRecord {
	return &domain.ScanRecord{
		Index:   0,
		Proxy:   "http://***@198.51.100.11:3128",
		Report:  sampleReport(),
		Elapsed: 8 * time.Second,
	}
}

func failedRecord() *domain.ScanRecord {
	return &domain.ScanRecord{
		Index:   1,
		Proxy:   "socks5h://203.0.113.5:1080",
		Err:     domain.NewPhaseError(domain.PhaseConfiguring, domain.ErrProxyAuth, errors.New("407")),
		Elapsed: time.Second,
	}
}

func TestCSVRow(t *testing.T) {
	row := CSVRow(okRecord(), false)
	testutil.AssertLen(t, row, len(CSVHeader(false)), "row width")
	testutil.AssertEqual(t, strings.Join(row, ","),
		"http://***@198.51.100.11:3128,203.0.113.7,detected,true,false,75,0,3,9,0,9,",
		"success row")

	row = CSVRow(failedRecord(), true)
	testutil.AssertLen(t, row, len(CSVHeader(true)), "row width with intel")
	testutil.AssertEqual(t, row[2], "error", "status")
	testutil.AssertEqual(t, row[11], "configuring: proxy authentication failed: 407", "error column")
	testutil.AssertEqual(t, row[12], "", "empty intel columns")

	rec := okRecord()
	rec.Filtered = true
	rec.Intel = &domain.IPIntel{IsDatacenter: true, AbuserScore: 0.00391, Company: "Hosting, Inc", Country: "DE"}
	row = CSVRow(rec, true)
	testutil.AssertEqual(t, row[2], "filtered", "filtered status")
	testutil.AssertEqual(t, row[14], "true", "datacenter")
	testutil.AssertEqual(t, row[16], "0.0039", "abuser score")
	testutil.AssertEqual(t, row[17], "Hosting, Inc", "company")
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.csv")

	sink, err := NewCSVSink(path, true, nil)
	testutil.AssertNoError(t, err, "open sink")
	testutil.AssertNoError(t, sink.Write(context.Background(), okRecord()), "write ok")
	testutil.AssertNoError(t, sink.Write(context.Background(), failedRecord()), "write failed")
	testutil.AssertNoError(t, sink.Close(), "close")

	f, err := os.Open(path)
	testutil.AssertNoError(t, err, "open csv")
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	testutil.AssertNoError(t, err, "parse csv")
	testutil.AssertLen(t, records, 3, "header plus two rows")
	testutil.AssertEqual(t, records[0][0], "proxy", "header")
	testutil.AssertEqual(t, records[0][21], "city", "intel header")
	testutil.AssertEqual(t, records[2][0], "socks5h://203.0.113.5:1080", "second row")
}

func TestJSONLSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLWriter(&buf, 0.05, nil)

	rec := okRecord()
	rec.Intel = &domain.IPIntel{IP: "203.0.113.7", AbuserScore: 0.2}
	rec.Filtered = true
	testutil.AssertNoError(t, sink.Write(context.Background(), rec), "write ok")
	testutil.AssertNoError(t, sink.Write(context.Background(), failedRecord()), "write failed")
	testutil.AssertNoError(t, sink.Close(), "close")
	testutil.AssertEqual(t, sink.Written(), 2, "lines written")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	testutil.AssertLen(t, lines, 2, "ndjson lines")

	var first map[string]interface{}
	testutil.AssertNoError(t, json.Unmarshal([]byte(lines[0]), &first), "decode first")
	testutil.AssertEqual(t, first["exit_ip"], "203.0.113.7", "exit ip")
	testutil.AssertEqual(t, first["status"], "filtered", "status")
	testutil.AssertEqual(t, first["filtered"], true, "filtered")
	testutil.AssertEqual(t, first["max_fraud_score"], 0.05, "threshold")
	testutil.AssertTrue(t, first["error"] == nil, "no error")
	result, ok := first["result"].(map[string]interface{})
	testutil.AssertTrue(t, ok, "raw engine result embedded")
	testutil.AssertEqual(t, result["finished"], true, "raw content")

	var second map[string]interface{}
	testutil.AssertNoError(t, json.Unmarshal([]byte(lines[1]), &second), "decode second")
	testutil.AssertTrue(t, second["exit_ip"] == nil, "no exit ip")
	testutil.AssertTrue(t, second["result"] == nil, "no result")
	testutil.AssertTrue(t, second["ipapi"] == nil, "no intel")
	testutil.AssertEqual(t, second["status"], "ProxyAuthError", "status")
	testutil.AssertContains(t, second["error"].(string), "proxy authentication failed", "error text")
}

func TestNewJSONLine_NoThreshold(t *testing.T) {
	line := NewJSONLine(okRecord(), 0)
	testutil.AssertTrue(t, line.MaxFraudScore == nil, "no threshold")
	testutil.AssertEqual(t, *line.ExitIP, "203.0.113.7", "exit ip")
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	testutil.AssertNoError(t, WriteReportJSON(&buf, sampleReport(), true), "encode")

	var doc map[string]interface{}
	testutil.AssertNoError(t, json.Unmarshal(buf.Bytes(), &doc), "decode")
	verdict := doc["verdict"].(map[string]interface{})
	testutil.AssertEqual(t, verdict["classification"], "proxy", "classification")
	testutil.AssertEqual(t, doc["profile"], "chrome-143", "profile")
	testutil.AssertContains(t, buf.String(), "\n  \"", "pretty printed")
}

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	testutil.AssertNoError(t, RenderReport(&buf, sampleReport(), true), "render")
	out := buf.String()

	testutil.AssertContains(t, out, "Proxy Detection Results for 203.0.113.7", "header")
	testutil.AssertContains(t, out, "PROXY DETECTED (confidence 0.75)", "verdict")
	testutil.AssertContains(t, out, "likely proxy (3/9 positive)", "proxy score")
	testutil.AssertContains(t, out, "Latency vs Ping", "test name")
	testutil.AssertContains(t, out, "webrtc", "test key fallback")
	testutil.AssertContains(t, out, "Latency Probes (1/2 successful)", "verbose probes")
	testutil.AssertContains(t, out, "status 404", "probe error")
	testutil.AssertContains(t, out, "Bandwidth Used: 2048 bytes (2.00 KB), 7 requests, 3 polls, 8.0s", "bandwidth")
}

func TestRenderReport_NoTests(t *testing.T) {
	report := sampleReport()
	report.Verdict.Tests = nil

	var buf bytes.Buffer
	testutil.AssertNoError(t, RenderReport(&buf, report, false), "render")
	testutil.AssertContains(t, buf.String(), "No test data available", "empty tests")
	testutil.AssertFalse(t, strings.Contains(buf.String(), "Latency Probes"), "probes only when verbose")
}

func TestRenderIntel(t *testing.T) {
	var buf bytes.Buffer
	RenderIntel(&buf, &domain.IPIntel{
		IP: "203.0.113.7", IsVPN: true, AbuserScore: 0.0039, AbuserLabel: "Low",
		Company: "Example Hosting", CompanyType: "hosting", Country: "DE",
	})
	out := buf.String()

	testutil.AssertContains(t, out, "proxy=N vpn=Y datacenter=N tor=N abuser=N", "flags")
	testutil.AssertContains(t, out, "0.0039 (Low)", "abuser score")
	testutil.AssertContains(t, out, "Example Hosting (hosting)", "company")
	testutil.AssertContains(t, out, "unknown, DE", "location")
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, usecases.Summary{Total: 4, Clean: 2, Detected: 1, Errors: 1, AbuserScoreSum: 0.3, AbuserLookups: 3})
	testutil.AssertContains(t, buf.String(), "Avg Abuser Score: 0.1000 (3 lookups)", "average")
	testutil.AssertContains(t, buf.String(), "Detected: 1", "detected")

	buf.Reset()
	RenderSummary(&buf, usecases.Summary{Total: 1, Errors: 1})
	testutil.AssertContains(t, buf.String(), "Avg Abuser Score: n/a (0 lookups)", "no lookups")
}

func TestTestVerdict(t *testing.T) {
	tests := []struct {
		name      string
		in        domain.TestResult
		wantLabel string
		wantIcon  string
	}{
		{"both", domain.TestResult{IsProxy: boolPtr(true), IsVPN: boolPtr(true)}, "PROXY+VPN DETECTED", "[!!]"},
		{"vpn", domain.TestResult{IsVPN: boolPtr(true)}, "VPN DETECTED", "[!!]"},
		{"tor", domain.TestResult{IsTor: boolPtr(true)}, "TOR DETECTED", "[!!]"},
		{"clean", domain.TestResult{IsProxy: boolPtr(false)}, "clean", "[ok]"},
		{"no data", domain.TestResult{}, "N/A", "[ ]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, icon := TestVerdict(tt.in)
			testutil.AssertEqual(t, label, tt.wantLabel, "label")
			testutil.AssertEqual(t, icon, tt.wantIcon, "icon")
		})
	}
	testutil.AssertEqual(t, VerdictLabel(domain.ClassificationVPN), "VPN DETECTED", "verdict label")
}
