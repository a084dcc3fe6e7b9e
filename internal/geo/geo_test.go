// internal/geo/geo_test.go
package geo

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxylens/internal/platform/resilience"
)

type fixedResolver struct {
	tz    string
	err   error
	calls int
}

func (f *fixedResolver) LookupTimezone(context.Context, string) (string, error) {
	f.calls++
	return f.tz, f.err
}

func TestChain(t *testing.T) {
	failing := &fixedResolver{err: errors.New("offline")}
	ok := &fixedResolver{tz: "Europe/Madrid"}
	unused := &fixedResolver{tz: "Asia/Tokyo"}

	tz, err := Chain{failing, nil, ok, unused}.LookupTimezone(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", tz)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 0, unused.calls)

	_, err = Chain{failing}.LookupTimezone(context.Background(), "203.0.113.7")
	assert.ErrorContains(t, err, "offline")

	_, err = Chain{}.LookupTimezone(context.Background(), "203.0.113.7")
	assert.ErrorIs(t, err, ErrNoTimezone)
}

func TestChain_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next := &fixedResolver{tz: "UTC"}

	_, err := Chain{&fixedResolver{err: errors.New("boom")}, next}.LookupTimezone(ctx, "203.0.113.7")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, next.calls)
}

type stubCity struct {
	zone string
	err  error
	seen net.IP
}

func (s *stubCity) City(ip net.IP) (*geoip2.City, error) {
	s.seen = ip
	if s.err != nil {
		return nil, s.err
	}
	city := &geoip2.City{}
	city.Location.TimeZone = s.zone
	return city, nil
}

func (s *stubCity) Close() error { return nil }

func TestMaxMindResolver(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		db      *stubCity
		want    string
		wantErr bool
	}{
		{name: "city record", ip: "203.0.113.7", db: &stubCity{zone: "America/New_York"}, want: "America/New_York"},
		{name: "ipv6", ip: "2001:db8::1", db: &stubCity{zone: "Europe/Berlin"}, want: "Europe/Berlin"},
		{name: "no zone in record", ip: "203.0.113.7", db: &stubCity{}, wantErr: true},
		{name: "unknown zone", ip: "203.0.113.7", db: &stubCity{zone: "Mars/Olympus"}, wantErr: true},
		{name: "invalid ip", ip: "not-an-ip", db: &stubCity{zone: "UTC"}, wantErr: true},
		{name: "reader error", ip: "203.0.113.7", db: &stubCity{err: errors.New("corrupt")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MaxMindResolver{db: tt.db}
			tz, err := r.LookupTimezone(context.Background(), tt.ip)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tz)
			assert.True(t, tt.db.seen.Equal(net.ParseIP(tt.ip)))
		})
	}
}

func TestOpenMaxMind_MissingFile(t *testing.T) {
	_, err := OpenMaxMind(t.TempDir() + "/missing.mmdb")
	assert.Error(t, err)
}

func newIPAPIServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestIPAPIResolver_Lookup(t *testing.T) {
	srv, calls := newIPAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/203.0.113.7", r.URL.Path)
		assert.Equal(t, "status,message,timezone", r.URL.Query().Get("fields"))
		w.Write([]byte(`{"status":"success","timezone":"Europe/Madrid"}`))
	})

	r := NewIPAPIResolver(IPAPIOptions{BaseURL: srv.URL + "/json/"})
	for i := 0; i < 3; i++ {
		tz, err := r.LookupTimezone(context.Background(), "203.0.113.7")
		require.NoError(t, err)
		assert.Equal(t, "Europe/Madrid", tz)
	}
	assert.Equal(t, int32(1), calls.Load(), "answers are cached")
}

func TestIPAPIResolver_Failures(t *testing.T) {
	t.Run("fail status", func(t *testing.T) {
		srv, _ := newIPAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
		})
		r := NewIPAPIResolver(IPAPIOptions{BaseURL: srv.URL + "/json/"})

		_, err := r.LookupTimezone(context.Background(), "10.0.0.1")
		assert.ErrorIs(t, err, ErrNoTimezone)
		assert.ErrorContains(t, err, "reserved range")
	})

	t.Run("invalid ip never hits the network", func(t *testing.T) {
		srv, calls := newIPAPIServer(t, func(w http.ResponseWriter, r *http.Request) {})
		r := NewIPAPIResolver(IPAPIOptions{BaseURL: srv.URL + "/json/"})

		_, err := r.LookupTimezone(context.Background(), "203.0.113")
		assert.Error(t, err)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("breaker opens after repeated failures", func(t *testing.T) {
		srv, calls := newIPAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
		r := NewIPAPIResolver(IPAPIOptions{
			BaseURL: srv.URL + "/json/",
			Breaker: resilience.NewCircuitBreaker(2, time.Minute, 1),
		})

		for i := 0; i < 2; i++ {
			_, err := r.LookupTimezone(context.Background(), "203.0.113.7")
			assert.Error(t, err)
		}
		_, err := r.LookupTimezone(context.Background(), "203.0.113.7")
		assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
		assert.Equal(t, int32(2), calls.Load())
	})
}
