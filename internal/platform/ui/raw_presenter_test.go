// internal/platform/ui/raw_presenter_test.go
package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
	"proxylens/internal/testutil"
)

func newTestRaw(format LogFormat) (*RawPresenter, *bytes.Buffer) {
	var buf bytes.Buffer
	r := NewRawPresenter(&buf, format)
	r.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r, &buf
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestRawPresenter_SessionEvents(t *testing.T) {
	r, buf := newTestRaw(LogFormatText)
	ctx := context.Background()

	r.Start(RunInfo{Proxy: "http://***@198.51.100.11:3128", Profile: "chrome-143", Engine: "https://proxydetect.live"})
	_ = r.Notify(ctx, ports.NewEvent(ports.EventTypePhaseStarted, "session", ports.PhaseEvent{Phase: domain.PhaseProbing}))
	_ = r.Notify(ctx, ports.NewEvent(ports.EventTypeProbeCompleted, "session", ports.ProbeEvent{
		Measurement: domain.LatencyMeasurement{Kind: domain.ProbeImage, Name: "image-1", Error: "status 404"},
	}))
	_ = r.Notify(ctx, ports.NewEvent(ports.EventTypePhaseCompleted, "session", ports.PhaseEvent{
		Phase: domain.PhaseProbing, Duration: 1500 * time.Millisecond,
	}))

	out := lines(buf)
	testutil.AssertLen(t, out, 4, "one line per call")
	testutil.AssertEqual(t, out[0],
		"2025-03-01T12:00:00Z INFO  run_started engine=https://proxydetect.live intel=false profile=chrome-143 proxy=http://***@198.51.100.11:3128",
		"start line")
	testutil.AssertEqual(t, out[1], "2025-03-01T12:00:00Z INFO  phase_started phase=probing", "phase start")
	testutil.AssertEqual(t, out[2],
		`2025-03-01T12:00:00Z WARN  probe_completed error="status 404" kind=image name=image-1 success=false`,
		"failed probe")
	testutil.AssertEqual(t, out[3], "2025-03-01T12:00:00Z INFO  phase_completed duration=1.5s phase=probing", "phase done")
}

func TestRawPresenter_TargetLines(t *testing.T) {
	r, buf := newTestRaw(LogFormatText)
	r.Start(RunInfo{Targets: 2, Concurrency: 10, MaxFraudScore: 0.01})
	buf.Reset()

	rec := completedRecord(domain.ClassificationClean)
	rec.Intel = &domain.IPIntel{AbuserScore: 0.5}
	rec.Filtered = true
	_ = r.Notify(context.Background(), ports.NewEvent(ports.EventTypeTargetFinished, "bulk",
		ports.TargetFinishedEvent{Record: rec, Done: 1, Total: 2}))

	testutil.AssertEqual(t, strings.TrimSpace(buf.String()), FormatTargetLine(rec, 1, 2, 0.01), "bulk line")
}

func TestRawPresenter_JSON(t *testing.T) {
	r, buf := newTestRaw(LogFormatJSON)

	rec := completedRecord(domain.ClassificationVPN)
	_ = r.Notify(context.Background(), ports.NewEvent(ports.EventTypeTargetFinished, "bulk",
		ports.TargetFinishedEvent{Record: rec, Done: 1, Total: 1}))
	r.Finish(RunStats{Duration: time.Second, Total: 1, Detected: 1})

	out := lines(buf)
	testutil.AssertLen(t, out, 2, "lines")

	var entry struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	testutil.AssertNoError(t, json.Unmarshal([]byte(out[0]), &entry), "decode")
	testutil.AssertEqual(t, entry.Message, "target_finished", "message")
	testutil.AssertEqual(t, entry.Data["status"], "vpn", "status")
	testutil.AssertEqual(t, entry.Data["exit_ip"], "203.0.113.7", "exit ip")

	testutil.AssertNoError(t, json.Unmarshal([]byte(out[1]), &entry), "decode finish")
	testutil.AssertEqual(t, entry.Message, "run_completed", "finish message")
	testutil.AssertEqual(t, entry.Data["detected"], 1.0, "detected count")
}

func TestNoopPresenter(t *testing.T) {
	var p Presenter = NewNoopPresenter()
	p.Start(RunInfo{Targets: 3})
	testutil.AssertNoError(t, p.Notify(context.Background(), ports.NewEvent(ports.EventTypePollTick, "session", ports.PollEvent{})), "notify")
	p.Finish(RunStats{})
	testutil.AssertNoError(t, p.Close(), "close")
}

func TestSelectModeAndNew(t *testing.T) {
	testutil.AssertEqual(t, SelectMode(true, true), ModeQuiet, "json wins")
	testutil.AssertEqual(t, SelectMode(false, false), ModeRaw, "pipe")
	testutil.AssertEqual(t, SelectMode(false, true), ModeInteractive, "terminal")

	_, ok := New(ModeQuiet, false, nil, LogFormatText).(*NoopPresenter)
	testutil.AssertTrue(t, ok, "quiet is noop")
	_, ok = New(ModeRaw, false, &bytes.Buffer{}, LogFormatJSON).(*RawPresenter)
	testutil.AssertTrue(t, ok, "raw presenter")
	_, ok = New(ModeInteractive, true, nil, LogFormatText).(*PTermPresenter)
	testutil.AssertTrue(t, ok, "pterm presenter")
}
