// internal/core/domain/session_config_test.go
package domain

import (
	"errors"
	"testing"
	"time"

	"proxylens/internal/testutil"
)

func validSessionConfig() SessionConfig {
	return SessionConfig{
		SessionID:    "0123456789abcdef",
		ExitIP:       "203.0.113.7",
		Probes:       []ProbeTarget{{Kind: ProbeImage, Name: "image-1", URL: "https://engine.proxydetect.live/images/small.png"}},
		PollInterval: time.Second,
		PollTimeout:  time.Minute,
	}
}

func TestSessionConfig_Validate(t *testing.T) {
	cfg := validSessionConfig()
	testutil.AssertNoError(t, cfg.Validate(), "valid config")

	tests := []struct {
		name   string
		mutate func(*SessionConfig)
	}{
		{"empty session id", func(c *SessionConfig) { c.SessionID = "" }},
		{"session id with query", func(c *SessionConfig) { c.SessionID = "abc&uuid=other" }},
		{"session id with space", func(c *SessionConfig) { c.SessionID = "abc def" }},
		{"bad exit ip", func(c *SessionConfig) { c.ExitIP = "nope" }},
		{"no targets", func(c *SessionConfig) { c.Probes = nil }},
		{"bad tcp target", func(c *SessionConfig) { c.Probes = []ProbeTarget{{Kind: ProbeTCP, Addr: "host:0"}} }},
		{"zero poll interval", func(c *SessionConfig) { c.PollInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validSessionConfig()
			tt.mutate(&c)
			err := c.Validate()
			testutil.AssertError(t, err, "should fail")
			testutil.AssertTrue(t, errors.Is(err, ErrInvalidSessionConfig), "ErrInvalidSessionConfig")
		})
	}
}

func TestSessionConfig_PollDelay(t *testing.T) {
	c := validSessionConfig()
	c.PollSchedule = []time.Duration{0, 250 * time.Millisecond}

	testutil.AssertEqual(t, c.PollDelay(0), time.Duration(0), "first scheduled")
	testutil.AssertEqual(t, c.PollDelay(1), 250*time.Millisecond, "second scheduled")
	testutil.AssertEqual(t, c.PollDelay(2), time.Second, "falls back to interval")
}
