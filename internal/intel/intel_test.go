// internal/intel/intel_test.go
package intel

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
	"proxylens/internal/testutil"
)

const sampleBody = `{
  "ip": "203.0.113.7",
  "is_bogon": false,
  "is_datacenter": true,
  "is_tor": false,
  "is_proxy": false,
  "is_vpn": true,
  "is_abuser": false,
  "company": {"name": "Example Hosting", "abuser_score": "0.0039 (Low)", "domain": "example.net", "type": "hosting"},
  "asn": {"asn": 64500, "org": "Example Hosting LLC"},
  "location": {"country": "Netherlands", "city": "Amsterdam"}
}`

type replyTransport struct {
	replies  []func() (*ports.Response, error)
	requests []ports.Request
}

func (r *replyTransport) Do(_ context.Context, req ports.Request) (*ports.Response, error) {
	r.requests = append(r.requests, req)
	next := r.replies[0]
	if len(r.replies) > 1 {
		r.replies = r.replies[1:]
	}
	return next()
}

func (r *replyTransport) OpenStream(context.Context, string, []domain.Header) (ports.Stream, error) {
	return nil, errors.New("not supported")
}

func (r *replyTransport) DialTCP(context.Context, string) (net.Conn, error) {
	return nil, errors.New("not supported")
}

func ok(body string) func() (*ports.Response, error) {
	return func() (*ports.Response, error) {
		return &ports.Response{StatusCode: 200, Body: []byte(body)}, nil
	}
}

func fail(err error) func() (*ports.Response, error) {
	return func() (*ports.Response, error) { return nil, err }
}

type intelProfile struct{}

func (intelProfile) Name() string        { return "stub" }
func (intelProfile) UserAgent() string   { return "Mozilla/5.0" }
func (intelProfile) Fingerprint() uint32 { return 1 }
func (intelProfile) Headers(rc domain.RequestContext, _ ...domain.Header) []domain.Header {
	return []domain.Header{{Name: "origin", Value: "https://ipapi.is"}, {Name: "sec-fetch-dest", Value: string(rc)}}
}

func newProvider() (*Provider, *testutil.FakeClock) {
	clock := testutil.NewFakeClock(time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC))
	return New(Options{Clock: clock, Jitter: -1}), clock
}

func TestParseAbuserScore(t *testing.T) {
	tests := []struct {
		raw       string
		wantScore float64
		wantLabel string
	}{
		{"0.0039 (Low)", 0.0039, "Low"},
		{"  0.5 ( Very High ) ", 0.5, "Very High"},
		{"0.0001", 0.0001, ""},
		{"", 0, ""},
		{"n/a (Unknown)", 0, "Unknown"},
		{"0.2 (unterminated", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			score, label := ParseAbuserScore(tt.raw)
			assert.InDelta(t, tt.wantScore, score, 1e-12)
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}

func TestParse(t *testing.T) {
	info, err := Parse([]byte(sampleBody))
	require.NoError(t, err)

	assert.Equal(t, &domain.IPIntel{
		IP:           "203.0.113.7",
		IsVPN:        true,
		IsDatacenter: true,
		AbuserScore:  0.0039,
		AbuserLabel:  "Low",
		Company:      "Example Hosting",
		CompanyType:  "hosting",
		ASNOrg:       "Example Hosting LLC",
		Country:      "Netherlands",
		City:         "Amsterdam",
	}, info)

	_, err = Parse([]byte("<html>"))
	assert.Error(t, err)
}

func TestProvider_Lookup(t *testing.T) {
	p, clock := newProvider()
	tr := &replyTransport{replies: []func() (*ports.Response, error){ok(sampleBody)}}

	info, err := p.Lookup(context.Background(), tr, intelProfile{})
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", info.IP)
	assert.Empty(t, clock.Sleeps())

	require.Len(t, tr.requests, 1)
	req := tr.requests[0]
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, DefaultURL, req.URL)
	assert.Equal(t, "intel", req.Headers[1].Value)
}

func TestProvider_RetriesOnceAfterDelay(t *testing.T) {
	p, clock := newProvider()
	tr := &replyTransport{replies: []func() (*ports.Response, error){
		fail(errors.New("connection reset")),
		ok(sampleBody),
	}}

	info, err := p.Lookup(context.Background(), tr, intelProfile{})
	require.NoError(t, err)
	assert.Equal(t, "Amsterdam", info.City)
	assert.Len(t, tr.requests, 2)
	assert.Equal(t, []time.Duration{DefaultRetryDelay}, clock.Sleeps())
}

func TestProvider_GivesUpAfterSecondFailure(t *testing.T) {
	p, _ := newProvider()
	tr := &replyTransport{replies: []func() (*ports.Response, error){
		func() (*ports.Response, error) {
			return &ports.Response{StatusCode: 429, Body: []byte("slow down")}, nil
		},
	}}

	_, err := p.Lookup(context.Background(), tr, intelProfile{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Len(t, tr.requests, 2)
}

func TestProvider_JitterBeforeRequest(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC))
	p := New(Options{Clock: clock})
	tr := &replyTransport{replies: []func() (*ports.Response, error){ok(sampleBody)}}

	_, err := p.Lookup(context.Background(), tr, intelProfile{})
	require.NoError(t, err)

	sleeps := clock.Sleeps()
	require.Len(t, sleeps, 1)
	assert.GreaterOrEqual(t, sleeps[0], 72*time.Millisecond)
	assert.LessOrEqual(t, sleeps[0], 168*time.Millisecond)
}
