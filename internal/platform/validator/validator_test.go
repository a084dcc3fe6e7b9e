// internal/platform/validator/validator_test.go
package validator

import (
	"strings"
	"testing"

	"proxylens/internal/testutil"
)

func TestIsDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"valid domain", "example.com", true},
		{"valid subdomain", "engine.proxydetect.live", true},
		{"empty string", "", false},
		{"too long", string(make([]byte, 300)), false},
		{"ip address", "192.168.1.1", false},
		{"invalid chars", "exam ple.com", false},
		{"starts with hyphen", "-example.com", false},
		{"single label", "localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, IsDomain(tt.input), tt.expected, "domain validation")
		})
	}
}

func TestIsHost(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"example.com", true},
		{"10.0.0.1", true},
		{"2001:db8::1", true},
		{"[2001:db8::1]", true},
		{"bad host", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			testutil.AssertEqual(t, IsHost(tt.input), tt.expected, "host validation")
		})
	}
}

func TestIsIP(t *testing.T) {
	for _, ip := range testutil.FixtureIPs {
		testutil.AssertTrue(t, IsIP(ip), "fixture ipv4 "+ip)
	}
	for _, ip := range testutil.FixtureIPv6 {
		testutil.AssertTrue(t, IsIP(ip), "fixture ipv6 "+ip)
	}
	testutil.AssertFalse(t, IsIP("999.1.1.1"), "out of range octet")
}

func TestIsPort(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"valid port", "80", true},
		{"max port", "65535", true},
		{"min port", "1", true},
		{"zero", "0", false},
		{"too high", "65536", false},
		{"negative", "-1", false},
		{"not a number", "abc", false},
		{"signed", "+80", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, IsPort(tt.input), tt.expected, "port validation")
		})
	}
}

func TestIsHostPort(t *testing.T) {
	testutil.AssertTrue(t, IsHostPort("engine.proxydetect.live:7630"), "domain with port")
	testutil.AssertTrue(t, IsHostPort("[::1]:443"), "ipv6 with port")
	testutil.AssertFalse(t, IsHostPort("example.com"), "missing port")
	testutil.AssertFalse(t, IsHostPort("example.com:0"), "port zero")
}

func TestIsURLWithScheme(t *testing.T) {
	testutil.AssertTrue(t, IsURLWithScheme("wss://engine.proxydetect.live:7630", "ws", "wss"), "wss accepted")
	testutil.AssertTrue(t, IsURLWithScheme("HTTPS://example.com", "https"), "scheme is case-insensitive")
	testutil.AssertFalse(t, IsURLWithScheme("ftp://example.com", "http", "https"), "ftp rejected")
	testutil.AssertFalse(t, IsURLWithScheme("example.com", "http"), "no scheme")
}

func TestIsProxyScheme(t *testing.T) {
	for _, s := range []string{"http", "HTTPS", "socks5", "socks5h"} {
		testutil.AssertTrue(t, IsProxyScheme(s), "supported scheme "+s)
	}
	testutil.AssertFalse(t, IsProxyScheme("socks4"), "socks4 unsupported")
	testutil.AssertFalse(t, IsProxyScheme(""), "empty scheme")
}

func TestIsSessionID(t *testing.T) {
	for _, id := range []string{"0123456789abcdef", "sess-1", "a1b2_C3.d4~"} {
		testutil.AssertTrue(t, IsSessionID(id), "valid id "+id)
	}
	testutil.AssertFalse(t, IsSessionID(""), "empty")
	testutil.AssertFalse(t, IsSessionID("abc&uuid=x"), "query metacharacters")
	testutil.AssertFalse(t, IsSessionID("a b"), "whitespace")
	testutil.AssertFalse(t, IsSessionID(strings.Repeat("a", 129)), "too long")
}

func TestNormalizeHost(t *testing.T) {
	testutil.AssertEqual(t, NormalizeHost(" Example.COM. "), "example.com", "host normalization")
}
