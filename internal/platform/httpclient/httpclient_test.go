// internal/platform/httpclient/httpclient_test.go
package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"proxylens/internal/platform/errors"
	"proxylens/internal/platform/logx"
	"proxylens/internal/platform/rate"
	"proxylens/internal/testutil"
)

func newTestClient(retries int) (*Client, *testutil.FakeClock) {
	clock := testutil.NewFakeClock(time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC))
	return New(Config{MaxRetries: retries, Clock: clock}, logx.NewSilent()), clock
}

func TestNew(t *testing.T) {
	t.Run("applies defaults for zero values", func(t *testing.T) {
		client := New(Config{}, nil)

		testutil.AssertEqual(t, client.config.Timeout, 10*time.Second, "default timeout")
		testutil.AssertEqual(t, client.config.RetryBackoff, time.Second, "default backoff")
		testutil.AssertEqual(t, client.config.UserAgent, "proxylens/1.0", "default user agent")
		testutil.AssertEqual(t, client.config.MaxRetries, 0, "no retries by default")
	})

	t.Run("negative retries clamp to zero", func(t *testing.T) {
		client := New(Config{MaxRetries: -3}, nil)
		testutil.AssertEqual(t, client.config.MaxRetries, 0, "clamped")
	})
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.Method, http.MethodGet, "method")
		testutil.AssertEqual(t, r.Header.Get("User-Agent"), "proxylens/1.0", "user agent")
		testutil.AssertEqual(t, r.Header.Get("X-Probe"), "1", "custom header")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, _ := newTestClient(0)
	body, err := client.Get(context.Background(), server.URL, map[string]string{"X-Probe": "1"})
	testutil.AssertNoError(t, err, "get")
	testutil.AssertEqual(t, string(body), "ok", "body")
}

func TestClient_GetJSON(t *testing.T) {
	t.Run("decodes body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			testutil.AssertEqual(t, r.Header.Get("Accept"), "application/json", "accept")
			w.Write([]byte(`{"status":"success","timezone":"Europe/Madrid"}`))
		}))
		defer server.Close()

		client, _ := newTestClient(0)
		var out struct {
			Status   string `json:"status"`
			Timezone string `json:"timezone"`
		}
		err := client.GetJSON(context.Background(), server.URL, &out)
		testutil.AssertNoError(t, err, "get json")
		testutil.AssertEqual(t, out.Timezone, "Europe/Madrid", "timezone")
	})

	t.Run("malformed body is an invalid response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}))
		defer server.Close()

		client, _ := newTestClient(0)
		var out map[string]any
		err := client.GetJSON(context.Background(), server.URL, &out)
		testutil.AssertErrorIs(t, err, errors.ErrInvalidResponse, "invalid response")
	})
}

func TestClient_Retries(t *testing.T) {
	t.Run("retries transient statuses with backoff", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		client, clock := newTestClient(3)
		body, err := client.Get(context.Background(), server.URL, nil)
		testutil.AssertNoError(t, err, "eventually succeeds")
		testutil.AssertEqual(t, string(body), "ok", "body")
		testutil.AssertEqual(t, calls.Load(), int32(3), "three attempts")

		sleeps := clock.Sleeps()
		testutil.AssertLen(t, sleeps, 2, "two backoffs")
		testutil.AssertEqual(t, sleeps[0], time.Second, "first backoff")
		testutil.AssertEqual(t, sleeps[1], 2*time.Second, "doubled")
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client, _ := newTestClient(3)
		_, err := client.Get(context.Background(), server.URL, nil)
		testutil.AssertErrorIs(t, err, errors.ErrNotFound, "status sentinel")
		code, ok := errors.StatusCode(err)
		testutil.AssertTrue(t, ok, "status error")
		testutil.AssertEqual(t, code, http.StatusNotFound, "code")
		testutil.AssertEqual(t, calls.Load(), int32(1), "single attempt")
	})

	t.Run("exhausted retries keep the last status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client, _ := newTestClient(1)
		_, err := client.Get(context.Background(), server.URL, nil)
		testutil.AssertErrorIs(t, err, errors.ErrRateLimit, "rate limited")
	})

	t.Run("connection errors are transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		client, clock := newTestClient(1)
		_, err := client.Get(context.Background(), url, nil)
		testutil.AssertErrorIs(t, err, errors.ErrConnectionFailed, "connection failed")
		testutil.AssertLen(t, clock.Sleeps(), 1, "retried once")
	})
}

func TestClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	limiter := rate.New(0.001, 1)
	client := New(Config{Limiter: limiter}, nil)

	_, err := client.Get(context.Background(), server.URL, nil)
	testutil.AssertNoError(t, err, "burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Get(ctx, server.URL, nil)
	testutil.AssertErrorIs(t, err, context.DeadlineExceeded, "waits for the limiter")
}

func TestClient_String(t *testing.T) {
	client := New(Config{Limiter: rate.New(0.75, 45)}, nil)
	testutil.AssertContains(t, client.String(), "rate_limit=0.75/s", "describes limiter")
}
