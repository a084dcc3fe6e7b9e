// internal/engine/protocol.go
package engine

import (
	"io"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
)

// Protocol une unos endpoints con los decodificadores de documentos. Es seguro
// para uso concurrente si rnd lo es.
type Protocol struct {
	ep  Endpoints
	rnd io.Reader
}

var _ ports.Engine = (*Protocol)(nil)

// NewProtocol retorna el puerto del motor para ep. rnd alimenta los nonces de imagen.
func NewProtocol(ep Endpoints, rnd io.Reader) *Protocol {
	return &Protocol{ep: ep, rnd: rnd}
}

// Endpoints retorna los endpoints asociados.
func (p *Protocol) Endpoints() Endpoints { return p.ep }

func (p *Protocol) ScriptURL() string { return p.ep.ScriptURL() }

func (p *Protocol) SubmitURL() string { return p.ep.SubmitURL() }

func (p *Protocol) PollURL(sessionID string) string { return p.ep.PollURL(sessionID) }

func (p *Protocol) DecodeConfig(body []byte) (domain.SessionConfig, error) {
	return DecodeConfig(body, p.ep, p.rnd)
}

func (p *Protocol) DecodeAnalysis(body []byte) (domain.Analysis, error) {
	return DecodeAnalysis(body)
}
