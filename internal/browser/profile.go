// internal/browser/profile.go

// Package browser contiene el catálogo de navegadores emulados: parámetros del
// ClientHello, ajustes HTTP/2, plantillas ordenadas de cabeceras y propiedades de navigator.
package browser

import (
	"fmt"
	"strings"

	"proxylens/internal/core/domain"
)

// ProfileSpec es la forma declarativa de un perfil, tal como se escribe en YAML o
// en la tabla incluida. NewProfile la valida y guarda una copia profunda.
type ProfileSpec struct {
	Name      string                                    `yaml:"name"`
	Family    string                                    `yaml:"family"`
	Version   string                                    `yaml:"version"`
	UserAgent string                                    `yaml:"user_agent"`
	TLS       TLSSpec                                   `yaml:"tls"`
	HTTP2     HTTP2Spec                                 `yaml:"http2"`
	Headers   map[domain.RequestContext][]domain.Header `yaml:"headers"`
	Navigator Navigator                                 `yaml:"navigator"`
}

// TLSSpec lista los parámetros del ClientHello. Las posiciones GREASE usan 0x0a0a.
type TLSSpec struct {
	CipherSuites        []uint16       `yaml:"cipher_suites"`
	Extensions          []uint16       `yaml:"extensions"`
	Curves              []uint16       `yaml:"curves"`
	KeyShareCurves      []uint16       `yaml:"key_share_curves"`
	SignatureAlgorithms []uint16       `yaml:"signature_algorithms"`
	Versions            []uint16       `yaml:"versions"`
	ALPN                []string       `yaml:"alpn"`
	CertCompression     []uint16       `yaml:"cert_compression"`
	RecordSizeLimit     uint16         `yaml:"record_size_limit"`
	ShuffleExtensions   bool           `yaml:"shuffle_extensions"`
	RawExtensions       []RawExtension `yaml:"raw_extensions"`
}

// RawExtension lleva el cuerpo de una extensión sin tipo propio en el builder.
type RawExtension struct {
	ID   uint16 `yaml:"id"`
	Data []byte `yaml:"data"`
}

// HTTP2Spec describe el preface HTTP/2 del navegador.
type HTTP2Spec struct {
	Settings          []H2Setting `yaml:"settings"`
	ConnectionFlow    uint32      `yaml:"connection_flow"`
	PseudoHeaderOrder []string    `yaml:"pseudo_header_order"`
	HeaderPriority    *H2Priority `yaml:"header_priority"`
}

// H2Setting es una entrada de SETTINGS; el orden importa.
type H2Setting struct {
	ID    uint16 `yaml:"id"`
	Value uint32 `yaml:"value"`
}

// H2Priority es la prioridad de los frames HEADERS.
type H2Priority struct {
	StreamDep uint32 `yaml:"stream_dep"`
	Exclusive bool   `yaml:"exclusive"`
	Weight    uint8  `yaml:"weight"`
}

// Profile es un navegador emulado inmutable. Los accessors retornan copias.
type Profile struct {
	spec ProfileSpec
}

// NewProfile valida spec y retorna un perfil inmutable.
func NewProfile(spec ProfileSpec) (*Profile, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("profile name is required")
	}
	if spec.UserAgent == "" {
		return nil, fmt.Errorf("profile %s: user agent is required", spec.Name)
	}
	if len(spec.TLS.CipherSuites) == 0 || len(spec.TLS.Extensions) == 0 {
		return nil, fmt.Errorf("profile %s: cipher suites and extensions are required", spec.Name)
	}
	if len(spec.TLS.ALPN) == 0 {
		return nil, fmt.Errorf("profile %s: alpn is required", spec.Name)
	}
	for _, rc := range []domain.RequestContext{domain.ContextScript, domain.ContextImage, domain.ContextBeacon, domain.ContextPoll} {
		if len(spec.Headers[rc]) == 0 {
			return nil, fmt.Errorf("profile %s: missing %s header template", spec.Name, rc)
		}
	}
	for rc := range spec.Headers {
		if !rc.IsValid() {
			return nil, fmt.Errorf("profile %s: unknown request context %q", spec.Name, rc)
		}
	}
	spec.Name = strings.ToLower(spec.Name)
	spec.Family = strings.ToLower(spec.Family)
	return &Profile{spec: cloneSpec(spec)}, nil
}

func (p *Profile) Name() string      { return p.spec.Name }
func (p *Profile) Family() string    { return p.spec.Family }
func (p *Profile) Version() string   { return p.spec.Version }
func (p *Profile) UserAgent() string { return p.spec.UserAgent }

// ALPN retorna los protocolos ofrecidos en el ClientHello.
func (p *Profile) ALPN() []string {
	return append([]string(nil), p.spec.TLS.ALPN...)
}

// CipherSuites retorna los cipher suites en orden.
func (p *Profile) CipherSuites() []uint16 {
	return append([]uint16(nil), p.spec.TLS.CipherSuites...)
}

// Extensions retorna los IDs de extensión en el orden de la plantilla.
func (p *Profile) Extensions() []uint16 {
	return append([]uint16(nil), p.spec.TLS.Extensions...)
}

// Headers retorna una copia de la plantilla ordenada de rc. Un override reemplaza
// el valor de una cabecera existente en su sitio; los desconocidos van al final.
// Una entrada con valor vacío solo fija la posición de una cabecera cuyo valor
// pone el transporte (Host, Content-Length, claves WebSocket).
func (p *Profile) Headers(rc domain.RequestContext, overrides ...domain.Header) []domain.Header {
	tmpl := p.spec.Headers[rc]
	out := make([]domain.Header, len(tmpl), len(tmpl)+len(overrides))
	copy(out, tmpl)
	for _, o := range overrides {
		found := false
		for i := range out {
			if strings.EqualFold(out[i].Name, o.Name) {
				out[i].Value = o.Value
				found = true
				break
			}
		}
		if !found {
			out = append(out, o)
		}
	}
	return out
}

// HeaderOrder retorna los nombres en minúsculas de la plantilla de rc.
func (p *Profile) HeaderOrder(rc domain.RequestContext) []string {
	tmpl := p.spec.Headers[rc]
	out := make([]string, len(tmpl))
	for i, h := range tmpl {
		out[i] = strings.ToLower(h.Name)
	}
	return out
}

// PseudoHeaderOrder retorna el orden de pseudo-cabeceras HTTP/2.
func (p *Profile) PseudoHeaderOrder() []string {
	return append([]string(nil), p.spec.HTTP2.PseudoHeaderOrder...)
}

func (p *Profile) String() string {
	return p.spec.Name
}

func cloneSpec(s ProfileSpec) ProfileSpec {
	out := s
	out.TLS.CipherSuites = append([]uint16(nil), s.TLS.CipherSuites...)
	out.TLS.Extensions = append([]uint16(nil), s.TLS.Extensions...)
	out.TLS.Curves = append([]uint16(nil), s.TLS.Curves...)
	out.TLS.KeyShareCurves = append([]uint16(nil), s.TLS.KeyShareCurves...)
	out.TLS.SignatureAlgorithms = append([]uint16(nil), s.TLS.SignatureAlgorithms...)
	out.TLS.Versions = append([]uint16(nil), s.TLS.Versions...)
	out.TLS.ALPN = append([]string(nil), s.TLS.ALPN...)
	out.TLS.CertCompression = append([]uint16(nil), s.TLS.CertCompression...)
	out.TLS.RawExtensions = make([]RawExtension, len(s.TLS.RawExtensions))
	for i, r := range s.TLS.RawExtensions {
		out.TLS.RawExtensions[i] = RawExtension{ID: r.ID, Data: append([]byte(nil), r.Data...)}
	}
	out.HTTP2.Settings = append([]H2Setting(nil), s.HTTP2.Settings...)
	out.HTTP2.PseudoHeaderOrder = append([]string(nil), s.HTTP2.PseudoHeaderOrder...)
	if s.HTTP2.HeaderPriority != nil {
		hp := *s.HTTP2.HeaderPriority
		out.HTTP2.HeaderPriority = &hp
	}
	out.Headers = make(map[domain.RequestContext][]domain.Header, len(s.Headers))
	for rc, hs := range s.Headers {
		out.Headers[rc] = append([]domain.Header(nil), hs...)
	}
	return out
}
