// internal/telemetry/timezone.go

// Package telemetry arma el documento de entorno del cliente que se envía en la
// tercera fase: zona horaria, muestras de latencia y la huella de navigator.
package telemetry

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	jsDateLayout = "Mon Jan 02 2006 15:04:05"
	jsTimeLayout = "3:04:05 PM"
)

// Zone es lo que el script de una página observaría de su zona horaria local.
type Zone struct {
	IANA    string
	Windows string

	// Offset sigue a Date.getTimezoneOffset: minutos al oeste de UTC
	Offset int

	// Date es Date.toString(); Time es toLocaleTimeString() en en-US
	Date string
	Time string

	Timestamp int64

	// Ambos epochs miden el 1 de julio de 1113 en la zona, en milisegundos
	ResolvedEpoch int64
	SystemEpoch   int64
}

// Resolve calcula los datos de la zona iana en el instante now.
func Resolve(iana string, now time.Time) (Zone, error) {
	name := strings.TrimSpace(iana)
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("load time zone %q: %w", name, err)
	}

	local := now.In(loc)
	_, offsetSec := local.Zone()
	windows := WindowsName(name)
	epoch := time.Date(1113, time.July, 1, 0, 0, 0, 0, loc).UnixMilli()

	return Zone{
		IANA:          name,
		Windows:       windows,
		Offset:        -offsetSec / 60,
		Date:          fmt.Sprintf("%s GMT%s (%s)", local.Format(jsDateLayout), local.Format("-0700"), windows),
		Time:          local.Format(jsTimeLayout),
		Timestamp:     local.UnixMilli(),
		ResolvedEpoch: epoch,
		SystemEpoch:   epoch,
	}, nil
}

// MustResolveUTC retorna la zona UTC en now.
func MustResolveUTC(now time.Time) Zone {
	z, err := Resolve("UTC", now)
	if err != nil {
		panic(err)
	}
	return z
}
