// internal/geo/geo.go

// Package geo resuelve la zona IANA de una IP de salida para que el navegador
// emulado reporte un reloj coherente con la salida del proxy.
package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"proxylens/internal/core/ports"
)

// ErrNoTimezone indica que un resolver no tiene respuesta para la IP.
var ErrNoTimezone = errors.New("geo: no timezone for ip")

// Chain consulta cada resolver en orden y retorna la primera respuesta.
type Chain []ports.TimezoneResolver

var _ ports.TimezoneResolver = Chain(nil)

// LookupTimezone implementa ports.TimezoneResolver.
func (c Chain) LookupTimezone(ctx context.Context, ip string) (string, error) {
	var errs []error
	for _, r := range c {
		if r == nil {
			continue
		}
		tz, err := r.LookupTimezone(ctx, ip)
		if err == nil {
			return tz, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", ErrNoTimezone
	}
	return "", errors.Join(errs...)
}

// checkZone rechaza nombres que la base tz no conoce.
func checkZone(tz string) (string, error) {
	if tz == "" {
		return "", ErrNoTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", fmt.Errorf("geo: unknown zone %q: %w", tz, err)
	}
	return tz, nil
}
