// internal/engine/analysis.go
package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"proxylens/internal/core/domain"
)

// TestDisplayOrder es el orden en que se presentan las pruebas conocidas del motor.
// Las desconocidas van detrás, por nombre.
var TestDisplayOrder = []string{
	"latency_vs_ping",
	"http_headers",
	"datacenter_ip",
	"proxy_ip",
	"vpn_ip",
	"enumerated_vpn_ip",
	"tcpip_fp",
	"timezone",
	"net",
	"webrtc",
	"latency",
	"flow_pattern",
	"high_latencies",
	"proxy_ai",
	"vpn_ai",
	"tor_detection",
}

type statusDocument struct {
	Status  string          `json:"status"`
	Verdict json.RawMessage `json:"verdict"`
	Reason  string          `json:"reason"`
	Error   string          `json:"error"`
}

type legacyDocument struct {
	Finished *bool                      `json:"finished"`
	Tests    map[string]json.RawMessage `json:"tests"`
	Proxy    *legacyScore               `json:"proxy"`
	VPN      *legacyScore               `json:"vpn"`
}

type legacyScore struct {
	IsProxy  bool    `json:"isProxy"`
	IsVPN    bool    `json:"isVpn"`
	Score    float64 `json:"score"`
	Informal string  `json:"informal"`
	Positive int     `json:"numPositiveTests"`
	Total    int     `json:"numTests"`
}

type legacyTest struct {
	Name    string `json:"name"`
	IsProxy *bool  `json:"is_proxy"`
	IsVPN   *bool  `json:"is_vpn"`
	IsTor   *bool  `json:"is_tor"`
}

// DecodeAnalysis lee una respuesta de poll en la forma con status
// ({"status":"pending"|"complete"|"failed"|"rejected"}) o en la forma antigua
// ({"finished":bool,"tests":{...},"proxy":{...},"vpn":{...}}).
func DecodeAnalysis(body []byte) (domain.Analysis, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}

	if _, ok := probe["status"]; ok {
		return decodeStatus(body)
	}
	if _, ok := probe["finished"]; ok {
		return decodeLegacy(body)
	}
	return domain.Analysis{}, fmt.Errorf("decode analysis: neither status nor finished present")
}

func decodeStatus(body []byte) (domain.Analysis, error) {
	var doc statusDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode analysis status: %w", err)
	}

	switch strings.ToLower(doc.Status) {
	case "pending", "running", "processing":
		return domain.Analysis{State: domain.AnalysisPending}, nil
	case "failed", "rejected", "error":
		return domain.Analysis{State: domain.AnalysisRejected, Reason: firstNonEmpty(doc.Reason, doc.Error, doc.Status)}, nil
	case "complete", "completed", "done":
		if len(doc.Verdict) == 0 || string(doc.Verdict) == "null" {
			return domain.Analysis{}, fmt.Errorf("decode analysis: complete without verdict")
		}
		var v domain.Verdict
		if err := json.Unmarshal(doc.Verdict, &v); err != nil {
			return domain.Analysis{}, fmt.Errorf("decode verdict: %w", err)
		}
		if v.Classification == "" {
			v.Classification = domain.ClassificationUnknown
		}
		v.Confidence = clamp01(v.Confidence)
		v.Raw = append(json.RawMessage(nil), body...)
		return domain.Analysis{State: domain.AnalysisComplete, Verdict: &v}, nil
	default:
		return domain.Analysis{}, fmt.Errorf("decode analysis: unknown status %q", doc.Status)
	}
}

func decodeLegacy(body []byte) (domain.Analysis, error) {
	var doc legacyDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode legacy analysis: %w", err)
	}
	if doc.Finished == nil || !*doc.Finished {
		return domain.Analysis{State: domain.AnalysisPending, TestsDone: len(doc.Tests)}, nil
	}

	v := &domain.Verdict{Raw: append(json.RawMessage(nil), body...)}
	tor := false
	for _, key := range orderedTestKeys(doc.Tests) {
		var lt legacyTest
		if err := json.Unmarshal(doc.Tests[key], &lt); err != nil {
			return domain.Analysis{}, fmt.Errorf("decode test %q: %w", key, err)
		}
		tr := domain.TestResult{
			Key:     key,
			Name:    lt.Name,
			IsProxy: lt.IsProxy,
			IsVPN:   lt.IsVPN,
			IsTor:   lt.IsTor,
			Raw:     append(json.RawMessage(nil), doc.Tests[key]...),
		}
		v.Tests = append(v.Tests, tr)
		if tr.Flagged() {
			v.Signals = append(v.Signals, key)
		}
		if lt.IsTor != nil && *lt.IsTor {
			tor = true
		}
	}

	if doc.Proxy != nil {
		v.Proxy = &domain.Score{
			Detected: doc.Proxy.IsProxy,
			Score:    doc.Proxy.Score,
			Informal: doc.Proxy.Informal,
			Positive: doc.Proxy.Positive,
			Total:    doc.Proxy.Total,
		}
	}
	if doc.VPN != nil {
		v.VPN = &domain.Score{
			Detected: doc.VPN.IsVPN,
			Score:    doc.VPN.Score,
			Informal: doc.VPN.Informal,
			Positive: doc.VPN.Positive,
			Total:    doc.VPN.Total,
		}
	}

	classify(v, tor)
	return domain.Analysis{State: domain.AnalysisComplete, Verdict: v}, nil
}

// classify deriva la clasificación y la confianza de los agregados: tor gana a
// proxy y proxy a vpn. La confianza de un veredicto limpio es el complemento del
// agregado más fuerte.
func classify(v *domain.Verdict, tor bool) {
	proxyScore, vpnScore := scoreOf(v.Proxy), scoreOf(v.VPN)
	switch {
	case tor:
		v.Classification = domain.ClassificationTor
		v.Confidence = clamp01(math.Max(proxyScore, vpnScore) / 100)
		if v.Confidence == 0 {
			v.Confidence = 1
		}
	case v.Proxy != nil && v.Proxy.Detected:
		v.Classification = domain.ClassificationProxy
		v.Confidence = clamp01(proxyScore / 100)
	case v.VPN != nil && v.VPN.Detected:
		v.Classification = domain.ClassificationVPN
		v.Confidence = clamp01(vpnScore / 100)
	case v.Proxy == nil && v.VPN == nil && len(v.Tests) == 0:
		v.Classification = domain.ClassificationUnknown
	default:
		v.Classification = domain.ClassificationClean
		v.Confidence = clamp01(1 - math.Max(proxyScore, vpnScore)/100)
	}
}

func orderedTestKeys(tests map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(tests))
	seen := make(map[string]bool, len(tests))
	for _, k := range TestDisplayOrder {
		if _, ok := tests[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range tests {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func scoreOf(s *domain.Score) float64 {
	if s == nil {
		return 0
	}
	return s.Score
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
