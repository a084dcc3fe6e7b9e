// internal/core/domain/proxy.go
package domain

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"proxylens/internal/platform/validator"
)

// ProxyConfig describe el proxy por el que sale todo el tráfico de una sesión.
type ProxyConfig struct {
	// Scheme es http, https, socks5 o socks5h
	Scheme string

	// Host es el dominio o IP del proxy
	Host string

	// Port del proxy
	Port int

	// Username y Password son opcionales
	Username string
	Password string
}

// ParseProxy parsea una dirección scheme://[user:pass@]host:port.
func ParseProxy(raw string) (*ProxyConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidProxy)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}

	if !validator.IsPort(u.Port()) {
		return nil, fmt.Errorf("%w: missing or invalid port in %q", ErrInvalidProxy, redact(raw))
	}
	port, _ := strconv.Atoi(u.Port())

	p := &ProxyConfig{
		Scheme: strings.ToLower(u.Scheme),
		Host:   validator.NormalizeHost(u.Hostname()),
		Port:   port,
	}
	if u.User != nil {
		p.Username = u.User.Username()
		p.Password, _ = u.User.Password()
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// NormalizeProxy acepta además las formas cortas host:port y host:port:user:pass
// (scheme http por defecto).
func NormalizeProxy(line string) (*ProxyConfig, error) {
	line = strings.TrimSpace(line)
	if strings.Contains(line, "://") {
		return ParseProxy(line)
	}

	parts := strings.Split(line, ":")
	switch len(parts) {
	case 2:
		return ParseProxy("http://" + line)
	case 4:
		u := url.URL{
			Scheme: "http",
			User:   url.UserPassword(parts[2], parts[3]),
			Host:   net.JoinHostPort(parts[0], parts[1]),
		}
		return ParseProxy(u.String())
	default:
		return nil, fmt.Errorf("%w: unrecognized format with %d fields", ErrInvalidProxy, len(parts))
	}
}

// Validate verifica scheme, host y puerto.
func (p *ProxyConfig) Validate() error {
	if !validator.IsProxyScheme(p.Scheme) {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, p.Scheme)
	}
	if !validator.IsHost(p.Host) {
		return fmt.Errorf("%w: invalid host %q", ErrInvalidProxy, p.Host)
	}
	if !validator.IsPort(strconv.Itoa(p.Port)) {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidProxy, p.Port)
	}
	if p.Password != "" && p.Username == "" {
		return fmt.Errorf("%w: password without username", ErrInvalidProxy)
	}
	return nil
}

// HasAuth indica si el proxy lleva credenciales.
func (p *ProxyConfig) HasAuth() bool {
	return p.Username != ""
}

// IsSOCKS indica si el proxy habla SOCKS5.
func (p *ProxyConfig) IsSOCKS() bool {
	return p.Scheme == "socks5" || p.Scheme == "socks5h"
}

// Addr retorna host:port.
func (p *ProxyConfig) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// URL retorna la URL completa, credenciales incluidas.
func (p *ProxyConfig) URL() *url.URL {
	u := &url.URL{Scheme: p.Scheme, Host: p.Addr()}
	if p.HasAuth() {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// String retorna la URL completa. No usar en logs: ver Masked.
func (p *ProxyConfig) String() string {
	return p.URL().String()
}

// Masked oculta las credenciales: scheme://***@host:port.
func (p *ProxyConfig) Masked() string {
	if p == nil {
		return "direct"
	}
	if p.HasAuth() {
		return fmt.Sprintf("%s://***@%s", p.Scheme, p.Addr())
	}
	return fmt.Sprintf("%s://%s", p.Scheme, p.Addr())
}

// redact elimina la parte de usuario de una dirección antes de incluirla en un error.
func redact(raw string) string {
	if i := strings.LastIndex(raw, "@"); i >= 0 {
		if j := strings.Index(raw, "://"); j >= 0 && j < i {
			return raw[:j+3] + "***" + raw[i:]
		}
		return "***" + raw[i:]
	}
	return raw
}
