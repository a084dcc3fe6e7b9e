// internal/transport/logger.go
package transport

import (
	"fmt"

	tls_client "github.com/bogdanfinn/tls-client"

	"proxylens/internal/platform/logx"
)

// clientLogger lleva la salida estilo printf de tls-client a logx. Baja un nivel
// los mensajes de la librería: solo se ven con --log-level debug.
type clientLogger struct {
	l logx.Logger
}

var _ tls_client.Logger = clientLogger{}

func (c clientLogger) Debug(format string, args ...any) {
	c.l.Debug(fmt.Sprintf(format, args...))
}

func (c clientLogger) Info(format string, args ...any) {
	c.l.Debug(fmt.Sprintf(format, args...))
}

func (c clientLogger) Warn(format string, args ...any) {
	c.l.Warn(fmt.Sprintf(format, args...))
}

func (c clientLogger) Error(format string, args ...any) {
	c.l.Warn(fmt.Sprintf(format, args...), "source", "tls-client")
}
