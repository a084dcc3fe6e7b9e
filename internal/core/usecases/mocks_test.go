// internal/core/usecases/mocks_test.go
package usecases

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
	"proxylens/internal/engine"
	"proxylens/internal/telemetry"
	"proxylens/internal/testutil"
	"proxylens/internal/tracker"
)

const (
	testSessionID = "0123456789abcdef"
	testExitIP    = "203.0.113.7"
	testScript    = `!function(){var e={uuid:"0123456789abcdef",rip:"203.0.113.7"};window.pd=e}();`
)

var errUnreachable = ports.NotSent(errors.New("dial tcp: connection refused"))

// handlerFunc responde a una petición del transporte simulado.
type handlerFunc func(ctx context.Context, req ports.Request) (*ports.Response, error)

// scriptedTransport es un mock de ports.Transport que enruta por path y
// registra cada petición.
type scriptedTransport struct {
	mu       sync.Mutex
	handlers map[string]handlerFunc
	requests []ports.Request

	streamFunc func(ctx context.Context, rawURL string) (ports.Stream, error)
	dialFunc   func(ctx context.Context, addr string) (net.Conn, error)
}

func newScriptedTransport() *scriptedTransport {
	t := &scriptedTransport{handlers: map[string]handlerFunc{}}
	t.handle("/pd-lib.js", respond(200, testScript))
	t.handle("/images/small.png", respond(200, "png"))
	t.handle("/s", respond(200, "ok"))
	t.handle("/i", respond(200, `{"status":"complete","verdict":{"classification":"clean","confidence":0.9}}`))
	t.streamFunc = func(context.Context, string) (ports.Stream, error) {
		return newEchoStream(0), nil
	}
	t.dialFunc = func(context.Context, string) (net.Conn, error) {
		client, server := net.Pipe()
		_ = server.Close()
		return client, nil
	}
	return t
}

func (t *scriptedTransport) handle(path string, h handlerFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[path] = h
}

func (t *scriptedTransport) Do(ctx context.Context, req ports.Request) (*ports.Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.requests = append(t.requests, req)
	h := t.handlers[u.Path]
	t.mu.Unlock()

	if h == nil {
		return nil, errUnreachable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h(ctx, req)
}

func (t *scriptedTransport) OpenStream(ctx context.Context, rawURL string, _ []domain.Header) (ports.Stream, error) {
	return t.streamFunc(ctx, rawURL)
}

func (t *scriptedTransport) DialTCP(ctx context.Context, addr string) (net.Conn, error) {
	return t.dialFunc(ctx, addr)
}

// count retorna cuántas peticiones llegaron a path.
func (t *scriptedTransport) count(path string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, r := range t.requests {
		if u, err := url.Parse(r.URL); err == nil && u.Path == path {
			n++
		}
	}
	return n
}

func respond(status int, body string) handlerFunc {
	return func(context.Context, ports.Request) (*ports.Response, error) {
		return &ports.Response{StatusCode: status, Body: []byte(body), WireSize: int64(100 + len(body))}, nil
	}
}

// sequence responde con bodies en orden; el último se repite.
func sequence(bodies ...string) handlerFunc {
	var mu sync.Mutex
	i := 0
	return func(context.Context, ports.Request) (*ports.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		body := bodies[i]
		if i < len(bodies)-1 {
			i++
		}
		return &ports.Response{StatusCode: 200, Body: []byte(body), WireSize: int64(100 + len(body))}, nil
	}
}

// echoStream devuelve cada mensaje tras delay.
type echoStream struct {
	delay time.Duration
	queue chan []byte
}

func newEchoStream(delay time.Duration) *echoStream {
	return &echoStream{delay: delay, queue: make(chan []byte, 8)}
}

func (s *echoStream) Send(ctx context.Context, msg []byte) error {
	select {
	case s.queue <- append([]byte(nil), msg...):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *echoStream) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-s.queue:
		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *echoStream) HandshakeSize() (int64, int64) { return 240, 160 }
func (s *echoStream) Close() error                 { return nil }

// stubProfile es un ports.Profile mínimo.
type stubProfile struct{}

func (stubProfile) Name() string        { return "stub-1" }
func (stubProfile) UserAgent() string   { return "Mozilla/5.0 (stub)" }
func (stubProfile) Fingerprint() uint32 { return 42 }

func (stubProfile) Headers(rc domain.RequestContext, overrides ...domain.Header) []domain.Header {
	headers := []domain.Header{
		{Name: "accept", Value: "*/*"},
		{Name: "content-type", Value: ""},
		{Name: "user-agent", Value: "Mozilla/5.0 (stub)"},
		{Name: "sec-fetch-dest", Value: string(rc)},
	}
	for _, o := range overrides {
		for i := range headers {
			if strings.EqualFold(headers[i].Name, o.Name) {
				headers[i].Value = o.Value
			}
		}
	}
	return headers
}

// mockNotifier registra los eventos recibidos.
type mockNotifier struct {
	mu     sync.Mutex
	events []ports.Event
}

func (m *mockNotifier) Notify(_ context.Context, event ports.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockNotifier) Close() error { return nil }

func (m *mockNotifier) count(t ports.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// mockResolver es un ports.TimezoneResolver fijo.
type mockResolver struct {
	tz  string
	err error
}

func (m mockResolver) LookupTimezone(context.Context, string) (string, error) {
	return m.tz, m.err
}

// sessionFixture agrupa una sesión con sus dobles.
type sessionFixture struct {
	transport *scriptedTransport
	clock     *testutil.FakeClock
	meter     *tracker.Tracker
	notifier  *mockNotifier
	deps      Dependencies
	opts      SessionOptions
}

func newSessionFixture() *sessionFixture {
	clock := testutil.NewFakeClock(time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC))
	transport := newScriptedTransport()
	meter := tracker.New()
	notifier := &mockNotifier{}
	profile := stubProfile{}

	return &sessionFixture{
		transport: transport,
		clock:     clock,
		meter:     meter,
		notifier:  notifier,
		deps: Dependencies{
			Transport: transport,
			Profile:   profile,
			Engine:    engine.NewProtocol(engine.DefaultEndpoints(), nil),
			Collector: telemetry.NewCollector(profile, clock, nil),
			Sealer:    telemetry.NewPlainSealer(),
			Meter:     meter,
			Clock:     clock,
			Notifier:  notifier,
		},
		opts: SessionOptions{WSRounds: 2},
	}
}

func (f *sessionFixture) session() *Session {
	s, err := NewSession(f.opts, f.deps)
	if err != nil {
		panic(err)
	}
	return s
}
