// internal/core/ports/transport.go
package ports

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"proxylens/internal/core/domain"
)

// Transport es el port de red de una sesión. Toda conexión sale por el proxy de la
// sesión (si lo hay) y aplica la huella TLS/HTTP del perfil activo.
type Transport interface {
	// Do envía una petición HTTP con las cabeceras en el orden exacto dado
	Do(ctx context.Context, req Request) (*Response, error)

	// OpenStream abre una conexión WebSocket
	OpenStream(ctx context.Context, rawURL string, headers []domain.Header) (Stream, error)

	// DialTCP abre una conexión TCP a addr
	DialTCP(ctx context.Context, addr string) (net.Conn, error)
}

// Stream es una conexión full-duplex orientada a mensajes (WebSocket).
type Stream interface {
	// Send envía un mensaje de texto
	Send(ctx context.Context, msg []byte) error

	// Receive espera el siguiente mensaje
	Receive(ctx context.Context) ([]byte, error)

	// HandshakeSize bytes del upgrade HTTP (enviados, recibidos)
	HandshakeSize() (sent, received int64)

	// Close envía el frame de cierre y libera la conexión
	Close() error
}

// ErrNotSent marca los fallos ocurridos antes de escribir la petición en la
// conexión (conexión rechazada, DNS, túnel del proxy).
var ErrNotSent = errors.New("request not sent")

type notSentError struct{ err error }

func (e *notSentError) Error() string        { return e.err.Error() }
func (e *notSentError) Unwrap() error        { return e.err }
func (e *notSentError) Is(target error) bool { return target == ErrNotSent }

// NotSent envuelve err como fallo previo al envío sin cambiar su mensaje.
func NotSent(err error) error {
	if err == nil || errors.Is(err, ErrNotSent) {
		return err
	}
	return &notSentError{err: err}
}

// Sent indica si la petición llegó a la conexión pese al error.
func Sent(err error) bool {
	return !errors.Is(err, ErrNotSent)
}

// Request es una petición HTTP independiente del cliente subyacente.
type Request struct {
	Method  string
	URL     string
	Headers []domain.Header
	Body    []byte

	// Timeout por petición; 0 usa el del transporte
	Timeout time.Duration
}

// WireSize estima los bytes de la petición en HTTP/1.1: línea de petición,
// Host, cabeceras, Content-Length si hay cuerpo, y cuerpo. Las cabeceras sin
// valor solo fijan posición y no cuentan.
func (r Request) WireSize() int64 {
	size := int64(len(r.Method) + 1 + len(" HTTP/1.1\r\n"))
	if u, err := url.Parse(r.URL); err == nil {
		size += int64(len(u.RequestURI()))
		size += int64(len("Host: ") + len(u.Host) + 2)
	} else {
		size += int64(len(r.URL))
	}
	for _, h := range r.Headers {
		if h.Value == "" {
			continue
		}
		size += int64(len(h.Name) + 2 + len(h.Value) + 2)
	}
	if len(r.Body) > 0 {
		size += int64(len("Content-Length: ") + len(strconv.Itoa(len(r.Body))) + 2)
	}
	size += 2
	return size + int64(len(r.Body))
}

// Response es la respuesta leída por completo.
type Response struct {
	StatusCode int
	Headers    []domain.Header
	Body       []byte

	// WireSize bytes recibidos: línea de estado, cabeceras y cuerpo tal como viajó
	WireSize int64

	// Duration desde el envío hasta leer el cuerpo completo
	Duration time.Duration
}

// Header retorna el primer valor de la cabecera name (sin distinguir mayúsculas).
func (r *Response) Header(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
