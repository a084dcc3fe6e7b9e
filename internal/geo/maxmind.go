// internal/geo/maxmind.go
package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// cityReader es la parte de *geoip2.Reader que se usa aquí.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// MaxMindResolver responde desde una base local GeoLite2/GeoIP2 City.
// El reader va mapeado en memoria y admite consultas concurrentes.
type MaxMindResolver struct {
	db cityReader
}

// OpenMaxMind abre la base en path.
func OpenMaxMind(path string) (*MaxMindResolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geo: open %s: %w", path, err)
	}
	return &MaxMindResolver{db: db}, nil
}

// LookupTimezone implementa ports.TimezoneResolver.
func (m *MaxMindResolver) LookupTimezone(_ context.Context, ip string) (string, error) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return "", fmt.Errorf("geo: invalid ip %q", ip)
	}
	record, err := m.db.City(addr)
	if err != nil {
		return "", fmt.Errorf("geo: maxmind lookup %s: %w", ip, err)
	}
	return checkZone(record.Location.TimeZone)
}

func (m *MaxMindResolver) Close() error {
	return m.db.Close()
}
