// internal/platform/validator/validator.go
package validator

import (
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	domainRegex    = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?$`)
	sessionIDRegex = regexp.MustCompile(`^[A-Za-z0-9._~-]{1,128}$`)
)

// Host validators

// IsDomain verifica si un string es un dominio válido (no una IP).
func IsDomain(domain string) bool {
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}
	if !domainRegex.MatchString(domain) {
		return false
	}
	return net.ParseIP(domain) == nil
}

// IsHost acepta un dominio, una IPv4 o una IPv6 (con o sin corchetes).
func IsHost(host string) bool {
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	return IsIP(host) || IsDomain(host)
}

// NormalizeHost normaliza un host a minúsculas y sin punto final.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimSuffix(host, ".")
}

// Network validators

// IsIP verifica si un string es una dirección IP válida (v4 o v6).
func IsIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// IsPort valida que un puerto esté en el rango válido [1-65535].
func IsPort(portStr string) bool {
	if portStr == "" || strings.Trim(portStr, "0123456789") != "" {
		return false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return false
	}
	return port >= 1 && port <= 65535
}

// IsHostPort valida una dirección host:port.
func IsHostPort(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	return IsHost(host) && IsPort(port)
}

// URL validators

// IsURL verifica si un string es una URL válida con scheme y host.
func IsURL(urlStr string) bool {
	if len(urlStr) == 0 {
		return false
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}

// IsURLWithScheme verifica que la URL sea válida y use uno de los schemes dados.
func IsURLWithScheme(urlStr string, schemes ...string) bool {
	if !IsURL(urlStr) {
		return false
	}
	parsed, _ := url.Parse(urlStr)
	for _, s := range schemes {
		if strings.EqualFold(parsed.Scheme, s) {
			return true
		}
	}
	return false
}

// IsProxyScheme valida los schemes de proxy soportados.
func IsProxyScheme(scheme string) bool {
	switch strings.ToLower(scheme) {
	case "http", "https", "socks5", "socks5h":
		return true
	default:
		return false
	}
}

// Engine validators

// IsSessionID valida un identificador de sesión del motor: viaja sin escapar en
// la URL de poll, así que solo se admiten caracteres no reservados.
func IsSessionID(id string) bool {
	return sessionIDRegex.MatchString(id)
}
