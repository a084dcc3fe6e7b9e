// internal/core/domain/profile.go
package domain

// RequestContext identifica el tipo de petición que emite el navegador emulado.
// Cada contexto tiene su propia plantilla de cabeceras.
type RequestContext string

const (
	ContextScript    RequestContext = "script"
	ContextImage     RequestContext = "image"
	ContextBeacon    RequestContext = "beacon"
	ContextPoll      RequestContext = "poll"
	ContextWebSocket RequestContext = "websocket"
	ContextIntel     RequestContext = "intel"
)

// RequestContexts lista todos los contextos conocidos.
var RequestContexts = []RequestContext{
	ContextScript, ContextImage, ContextBeacon, ContextPoll, ContextWebSocket, ContextIntel,
}

// IsValid verifica si el contexto es conocido.
func (c RequestContext) IsValid() bool {
	for _, rc := range RequestContexts {
		if rc == c {
			return true
		}
	}
	return false
}
