// internal/engine/engine_test.go
package engine

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxylens/internal/core/domain"
)

func fixedRand() *bytes.Reader {
	return bytes.NewReader(bytes.Repeat([]byte{0xab}, 64))
}

const script = `!function(){var e={uuid:"0123456789abcdef",rip:"203.0.113.7",region:"eu"};window.pd=e}();`

func TestNewEndpoints(t *testing.T) {
	ep, err := NewEndpoints("https://engine.proxydetect.live/")
	require.NoError(t, err)
	assert.Equal(t, "https://engine.proxydetect.live", ep.Base)
	assert.Equal(t, "wss://engine.proxydetect.live:7630", ep.WebSocket)
	assert.Equal(t, "https://engine.proxydetect.live/pd-lib.js", ep.ScriptURL())
	assert.Equal(t, "https://engine.proxydetect.live/s", ep.SubmitURL())
	assert.Equal(t, "https://engine.proxydetect.live/i?&uuid=0123456789abcdef", ep.PollURL("0123456789abcdef"))
	assert.Equal(t, "https://engine.proxydetect.live/images/small.png?n=2&r=ff", ep.ImageURL(2, "ff"))
	require.NoError(t, ep.Validate())

	local, err := NewEndpoints("http://127.0.0.1:8080")
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:7630", local.WebSocket)

	_, err = NewEndpoints("ftp://engine")
	assert.Error(t, err)
}

func TestEndpoints_Validate(t *testing.T) {
	ep := DefaultEndpoints()
	ep.TCP = "engine.proxydetect.live"
	assert.Error(t, ep.Validate())

	ep = DefaultEndpoints()
	ep.WebSocket = "https://engine.proxydetect.live"
	assert.Error(t, ep.Validate())
}

func TestDecodeConfig_Script(t *testing.T) {
	cfg, err := DecodeConfig([]byte(script), DefaultEndpoints(), fixedRand())
	require.NoError(t, err)

	assert.Equal(t, "0123456789abcdef", cfg.SessionID)
	assert.Equal(t, "203.0.113.7", cfg.ExitIP)
	require.Len(t, cfg.Probes, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, domain.ProbeImage, cfg.Probes[i].Kind)
	}
	assert.Equal(t, "https://engine.proxydetect.live/images/small.png?n=0&r=abababababababab", cfg.Probes[0].URL)
	assert.Equal(t, "image-3", cfg.Probes[2].Name)
	assert.Equal(t, domain.ProbeTarget{Kind: domain.ProbeWebSocket, Name: "ws-echo", URL: "wss://engine.proxydetect.live:7630"}, cfg.Probes[3])

	assert.Equal(t, DefaultPollSchedule, cfg.PollSchedule)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultPollTimeout, cfg.PollTimeout)
}

func TestDecodeConfig_ScriptWithTCP(t *testing.T) {
	ep := DefaultEndpoints()
	ep.TCP = "engine.proxydetect.live:443"
	ep.ImageProbes = 1

	cfg, err := DecodeConfig([]byte(script), ep, fixedRand())
	require.NoError(t, err)
	require.Len(t, cfg.Probes, 3)
	assert.Equal(t, domain.ProbeTCP, cfg.Probes[2].Kind)
	assert.Equal(t, "engine.proxydetect.live:443", cfg.Probes[2].Target())
}

func TestDecodeConfig_JSON(t *testing.T) {
	body := `{
		"session_id": "sess-1",
		"exit_ip": "198.51.100.4",
		"probes": [
			{"kind": "websocket", "url": "wss://probe.example:7630"},
			{"kind": "tcp", "name": "edge", "addr": "probe.example:443"}
		],
		"poll_interval_ms": 500,
		"poll_timeout_ms": 10000,
		"poll_schedule_ms": [0, 100]
	}`
	cfg, err := DecodeConfig([]byte(body), DefaultEndpoints(), fixedRand())
	require.NoError(t, err)

	assert.Equal(t, "sess-1", cfg.SessionID)
	assert.Equal(t, "198.51.100.4", cfg.ExitIP)
	require.Len(t, cfg.Probes, 2)
	assert.Equal(t, "websocket-1", cfg.Probes[0].Name)
	assert.Equal(t, "edge", cfg.Probes[1].Name)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.PollTimeout)
	assert.Equal(t, []time.Duration{0, 100 * time.Millisecond}, cfg.PollSchedule)
}

func TestDecodeConfig_JSONAliasesAndDefaults(t *testing.T) {
	cfg, err := DecodeConfig([]byte(`{"uuid":"0123456789abcdef","rip":"2001:db8::1"}`), DefaultEndpoints(), fixedRand())
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef", cfg.SessionID)
	assert.Equal(t, "2001:db8::1", cfg.ExitIP)
	assert.Len(t, cfg.Probes, 4)
}

func TestDecodeConfig_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"no uuid", `{rip:"203.0.113.7"}`},
		{"short uuid", `uuid:"0123",rip:"203.0.113.7"`},
		{"no rip", `uuid:"0123456789abcdef"`},
		{"bad ip", `uuid:"0123456789abcdef",rip:"not-an-ip"`},
		{"broken json", `{"session_id":`},
		{"json bad probe", `{"session_id":"s","exit_ip":"203.0.113.7","probes":[{"kind":"udp","url":"x"}]}`},
		{"json negative delay", `{"session_id":"s","exit_ip":"203.0.113.7","poll_schedule_ms":[-1]}`},
		{"json unsafe session id", `{"session_id":"s&uuid=x","exit_ip":"203.0.113.7"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeConfig([]byte(tt.body), DefaultEndpoints(), fixedRand())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfigFetch), "got %v", err)
		})
	}
}

func TestDecodeAnalysis_StatusForm(t *testing.T) {
	a, err := DecodeAnalysis([]byte(`{"status":"pending"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisPending, a.State)
	assert.Nil(t, a.Verdict)

	a, err = DecodeAnalysis([]byte(`{"status":"complete","verdict":{"classification":"proxy","confidence":0.93,"signals":["tcpip_fp"]}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisComplete, a.State)
	require.NotNil(t, a.Verdict)
	assert.Equal(t, domain.ClassificationProxy, a.Verdict.Classification)
	assert.InDelta(t, 0.93, a.Verdict.Confidence, 1e-9)
	assert.Equal(t, []string{"tcpip_fp"}, a.Verdict.Signals)
	assert.NotEmpty(t, a.Verdict.Raw)

	a, err = DecodeAnalysis([]byte(`{"status":"failed","reason":"telemetry mismatch"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisRejected, a.State)
	assert.Equal(t, "telemetry mismatch", a.Reason)

	_, err = DecodeAnalysis([]byte(`{"status":"complete"}`))
	assert.Error(t, err)
	_, err = DecodeAnalysis([]byte(`{"status":"sleeping"}`))
	assert.Error(t, err)
}

func TestDecodeAnalysis_LegacyPending(t *testing.T) {
	a, err := DecodeAnalysis([]byte(`{"finished":false,"tests":{"net":{"is_proxy":false},"webrtc":{}}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisPending, a.State)
	assert.Equal(t, 2, a.TestsDone)
}

func TestDecodeAnalysis_LegacyProxy(t *testing.T) {
	body := `{
		"finished": true,
		"tests": {
			"zz_custom": {"name": "Custom", "is_proxy": false},
			"tcpip_fp": {"name": "TCP/IP Fingerprint", "is_proxy": true, "info": {"os": "Linux"}},
			"latency_vs_ping": {"name": "Latency vs Ping", "is_proxy": true},
			"timezone": {"name": "Timezone", "is_proxy": false, "is_vpn": false}
		},
		"proxy": {"isProxy": true, "score": 87, "informal": "Likely proxy", "numPositiveTests": 2, "numTests": 9},
		"vpn": {"isVpn": false, "score": 5, "numPositiveTests": 0, "numTests": 6}
	}`
	a, err := DecodeAnalysis([]byte(body))
	require.NoError(t, err)
	require.Equal(t, domain.AnalysisComplete, a.State)
	v := a.Verdict

	assert.Equal(t, domain.ClassificationProxy, v.Classification)
	assert.InDelta(t, 0.87, v.Confidence, 1e-9)
	assert.Equal(t, []string{"latency_vs_ping", "tcpip_fp"}, v.Signals)

	keys := make([]string, len(v.Tests))
	for i, tr := range v.Tests {
		keys[i] = tr.Key
	}
	assert.Equal(t, []string{"latency_vs_ping", "tcpip_fp", "timezone", "zz_custom"}, keys)
	assert.Contains(t, string(v.Tests[1].Raw), `"os": "Linux"`)

	require.NotNil(t, v.Proxy)
	assert.Equal(t, "2/9", v.Proxy.Ratio())
	assert.Equal(t, "Likely proxy", v.Proxy.Informal)
	require.NotNil(t, v.VPN)
	assert.False(t, v.VPN.Detected)
}

func TestDecodeAnalysis_LegacyClassification(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		class      domain.Classification
		confidence float64
	}{
		{
			name:       "clean",
			body:       `{"finished":true,"tests":{"net":{"is_proxy":false}},"proxy":{"isProxy":false,"score":10},"vpn":{"isVpn":false,"score":20}}`,
			class:      domain.ClassificationClean,
			confidence: 0.8,
		},
		{
			name:       "vpn",
			body:       `{"finished":true,"tests":{},"proxy":{"isProxy":false,"score":0},"vpn":{"isVpn":true,"score":64}}`,
			class:      domain.ClassificationVPN,
			confidence: 0.64,
		},
		{
			name:       "tor wins",
			body:       `{"finished":true,"tests":{"tor_detection":{"is_tor":true}},"proxy":{"isProxy":true,"score":90}}`,
			class:      domain.ClassificationTor,
			confidence: 0.9,
		},
		{
			name:  "nothing reported",
			body:  `{"finished":true}`,
			class: domain.ClassificationUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := DecodeAnalysis([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.class, a.Verdict.Classification)
			assert.InDelta(t, tt.confidence, a.Verdict.Confidence, 1e-9)
		})
	}
}

func TestDecodeAnalysis_Malformed(t *testing.T) {
	for _, body := range []string{``, `[]`, `{"other":1}`, `{"finished":true,"tests":{"net":"yes"}}`} {
		_, err := DecodeAnalysis([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestProtocol(t *testing.T) {
	p := NewProtocol(DefaultEndpoints(), fixedRand())
	assert.Equal(t, DefaultBase+"/s", p.SubmitURL())
	assert.Equal(t, DefaultBase+"/i?&uuid=x", p.PollURL("x"))

	cfg, err := p.DecodeConfig([]byte(script))
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef", cfg.SessionID)

	a, err := p.DecodeAnalysis([]byte(`{"status":"running"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisPending, a.State)
}
