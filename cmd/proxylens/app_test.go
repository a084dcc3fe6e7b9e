// cmd/proxylens/app_test.go
package main

import (
	"errors"
	"testing"
	"time"

	"proxylens/internal/core/domain"
	"proxylens/internal/platform/config"
	"proxylens/internal/platform/logx"
	"proxylens/internal/testutil"
)

func TestNewApp_Defaults(t *testing.T) {
	cfg := config.DefaultConfig()

	a, err := newApp(cfg, logx.NewSilent())
	testutil.AssertNoError(t, err, "default config")
	defer a.Close()

	testutil.AssertEqual(t, a.profile.Name(), "chrome-143", "default profile")
	testutil.AssertEqual(t, a.sealer.Name(), "plain", "default sealer")
	testutil.AssertTrue(t, a.timezones != nil, "online resolver configured")
	testutil.AssertTrue(t, a.intel == nil, "intel off by default")

	deps, release, err := a.dependencies(nil)
	testutil.AssertNoError(t, err, "direct transport")
	defer release()
	testutil.AssertTrue(t, deps.Transport != nil, "transport")
	testutil.AssertTrue(t, deps.Meter != nil, "meter")
	testutil.AssertTrue(t, deps.Notifier == nil, "no notifier from factory")
}

func TestNewApp_ForcedTimezoneSkipsGeo(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.Timezone = "Europe/Madrid"
	cfg.Intel.Enabled = true
	cfg.Session.Seal = "aead"
	cfg.Session.SealSecret = "lab-secret"

	a, err := newApp(cfg, logx.NewSilent())
	testutil.AssertNoError(t, err, "new app")
	defer a.Close()

	testutil.AssertTrue(t, a.timezones == nil, "no resolver with forced zone")
	testutil.AssertTrue(t, a.intel != nil, "intel enabled")
	testutil.AssertEqual(t, a.sealer.Name(), "xchacha20poly1305", "aead sealer")

	opts := a.sessionOptions(nil)
	testutil.AssertEqual(t, opts.Timezone, "Europe/Madrid", "timezone override")
	testutil.AssertEqual(t, opts.WSRounds, 5, "ws rounds")
}

func TestNewApp_UnknownProfile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.Browser = "netscape-4"

	_, err := newApp(cfg, logx.NewSilent())
	testutil.AssertTrue(t, errors.Is(err, domain.ErrUnknownProfile), "unknown profile error")
}

func TestRootContextWithSignals_Timeout(t *testing.T) {
	ctx, cancel := rootContextWithSignals(20 * time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context did not expire")
	}
}

func TestRun_UsageErrors(t *testing.T) {
	testutil.AssertEqual(t, run([]string{"--proxy", "http://a:1", "--file", "list.txt"}), exitUsage, "mutually exclusive")
	testutil.AssertEqual(t, run([]string{"--help"}), exitOK, "help")
	testutil.AssertEqual(t, run([]string{"--version"}), exitOK, "version")
}
