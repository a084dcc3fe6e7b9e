// internal/browser/tlsspec.go
package browser

import (
	"fmt"
	"strings"

	"github.com/bogdanfinn/fhttp/http2"
	"github.com/bogdanfinn/tls-client/profiles"
	tls "github.com/bogdanfinn/utls"
)

// Code points de extensiones TLS que usa el builder.
const (
	extServerName          uint16 = 0
	extStatusRequest       uint16 = 5
	extSupportedCurves     uint16 = 10
	extSupportedPoints     uint16 = 11
	extSignatureAlgorithms uint16 = 13
	extALPN                uint16 = 16
	extSCT                 uint16 = 18
	extPadding             uint16 = 21
	extExtendedMaster      uint16 = 23
	extCompressCert        uint16 = 27
	extRecordSizeLimit     uint16 = 28
	extSessionTicket       uint16 = 35
	extSupportedVersions   uint16 = 43
	extPSKModes            uint16 = 45
	extKeyShare            uint16 = 51
	extALPS                uint16 = 17513
	extECH                 uint16 = 65037
	extRenegotiation       uint16 = 65281

	// GREASE marca una posición GREASE en las listas de ciphers, curvas, versiones y extensiones.
	GREASE uint16 = 0x0a0a
)

// ClientHelloSpec construye la spec uTLS del perfil con su propia lista ALPN.
func (p *Profile) ClientHelloSpec() (tls.ClientHelloSpec, error) {
	return buildHelloSpec(p.spec.Name, p.spec.TLS, p.spec.TLS.ALPN)
}

// ClientHelloSpecFor construye la spec con otra lista ALPN. El upgrade WebSocket
// solo necesita http/1.1; ALPS se omite si no se ofrece h2.
func (p *Profile) ClientHelloSpecFor(alpn ...string) (tls.ClientHelloSpec, error) {
	return buildHelloSpec(p.spec.Name, p.spec.TLS, alpn)
}

// HelloID retorna un ClientHelloID propio cuya factory construye la spec del perfil.
func (p *Profile) HelloID() tls.ClientHelloID {
	return tls.ClientHelloID{
		Client:      clientName(p.spec.Family),
		Version:     p.spec.Version,
		Seed:        nil,
		SpecFactory: p.ClientHelloSpec,
	}
}

// ClientProfile envuelve el ClientHello y los ajustes HTTP/2 para tls-client.
func (p *Profile) ClientProfile() profiles.ClientProfile {
	h2 := p.spec.HTTP2
	settings := make(map[http2.SettingID]uint32, len(h2.Settings))
	order := make([]http2.SettingID, 0, len(h2.Settings))
	for _, s := range h2.Settings {
		id := http2.SettingID(s.ID)
		settings[id] = s.Value
		order = append(order, id)
	}

	var headerPriority *http2.PriorityParam
	if hp := h2.HeaderPriority; hp != nil {
		headerPriority = &http2.PriorityParam{
			StreamDep: hp.StreamDep,
			Exclusive: hp.Exclusive,
			Weight:    hp.Weight,
		}
	}

	return profiles.NewClientProfile(
		p.HelloID(),
		settings,
		order,
		p.PseudoHeaderOrder(),
		h2.ConnectionFlow,
		[]http2.Priority{},
		headerPriority,
	)
}

func buildHelloSpec(name string, spec TLSSpec, alpn []string) (tls.ClientHelloSpec, error) {
	raw := make(map[uint16][]byte, len(spec.RawExtensions))
	for _, r := range spec.RawExtensions {
		raw[r.ID] = r.Data
	}
	offersH2 := false
	for _, proto := range alpn {
		if proto == "h2" {
			offersH2 = true
		}
	}

	exts := make([]tls.TLSExtension, 0, len(spec.Extensions))
	for _, id := range spec.Extensions {
		if id == extALPS && !offersH2 {
			continue
		}
		ext, err := buildExtension(id, spec, alpn, raw)
		if err != nil {
			return tls.ClientHelloSpec{}, fmt.Errorf("profile %s: %w", name, err)
		}
		exts = append(exts, ext)
	}
	if spec.ShuffleExtensions {
		exts = tls.ShuffleChromeTLSExtensions(exts)
	}

	return tls.ClientHelloSpec{
		CipherSuites:       append([]uint16(nil), spec.CipherSuites...),
		CompressionMethods: []byte{0x00},
		Extensions:         exts,
	}, nil
}

func buildExtension(id uint16, spec TLSSpec, alpn []string, raw map[uint16][]byte) (tls.TLSExtension, error) {
	if isGREASE(id) {
		return &tls.UtlsGREASEExtension{}, nil
	}

	switch id {
	case extServerName:
		return &tls.SNIExtension{}, nil
	case extStatusRequest:
		return &tls.StatusRequestExtension{}, nil
	case extSupportedCurves:
		return &tls.SupportedCurvesExtension{Curves: curveIDs(spec.Curves)}, nil
	case extSupportedPoints:
		return &tls.SupportedPointsExtension{SupportedPoints: []byte{0x00}}, nil
	case extSignatureAlgorithms:
		schemes := make([]tls.SignatureScheme, len(spec.SignatureAlgorithms))
		for i, s := range spec.SignatureAlgorithms {
			schemes[i] = tls.SignatureScheme(s)
		}
		return &tls.SignatureAlgorithmsExtension{SupportedSignatureAlgorithms: schemes}, nil
	case extALPN:
		return &tls.ALPNExtension{AlpnProtocols: append([]string(nil), alpn...)}, nil
	case extSCT:
		return &tls.SCTExtension{}, nil
	case extPadding:
		return &tls.UtlsPaddingExtension{GetPaddingLen: tls.BoringPaddingStyle}, nil
	case extExtendedMaster:
		return &tls.ExtendedMasterSecretExtension{}, nil
	case extCompressCert:
		algos := make([]tls.CertCompressionAlgo, len(spec.CertCompression))
		for i, a := range spec.CertCompression {
			algos[i] = tls.CertCompressionAlgo(a)
		}
		return &tls.UtlsCompressCertExtension{Algorithms: algos}, nil
	case extRecordSizeLimit:
		return &tls.FakeRecordSizeLimitExtension{Limit: spec.RecordSizeLimit}, nil
	case extSessionTicket:
		return &tls.SessionTicketExtension{}, nil
	case extSupportedVersions:
		return &tls.SupportedVersionsExtension{Versions: append([]uint16(nil), spec.Versions...)}, nil
	case extPSKModes:
		return &tls.PSKKeyExchangeModesExtension{Modes: []uint8{tls.PskModeDHE}}, nil
	case extKeyShare:
		shares := make([]tls.KeyShare, 0, len(spec.KeyShareCurves))
		for _, c := range spec.KeyShareCurves {
			if isGREASE(c) {
				shares = append(shares, tls.KeyShare{Group: tls.CurveID(tls.GREASE_PLACEHOLDER), Data: []byte{0}})
				continue
			}
			shares = append(shares, tls.KeyShare{Group: tls.CurveID(c)})
		}
		return &tls.KeyShareExtension{KeyShares: shares}, nil
	case extALPS:
		return &tls.ApplicationSettingsExtension{SupportedProtocols: []string{"h2"}}, nil
	case extECH:
		return tls.BoringGREASEECH(), nil
	case extRenegotiation:
		return &tls.RenegotiationInfoExtension{Renegotiation: tls.RenegotiateOnceAsClient}, nil
	}

	if data, ok := raw[id]; ok {
		return &tls.GenericExtension{Id: id, Data: append([]byte(nil), data...)}, nil
	}
	return nil, fmt.Errorf("unsupported tls extension %d", id)
}

func curveIDs(in []uint16) []tls.CurveID {
	out := make([]tls.CurveID, len(in))
	for i, c := range in {
		if isGREASE(c) {
			out[i] = tls.CurveID(tls.GREASE_PLACEHOLDER)
			continue
		}
		out[i] = tls.CurveID(c)
	}
	return out
}

// isGREASE indica si v es uno de los valores reservados de RFC 8701 (0x?a?a).
func isGREASE(v uint16) bool {
	return v&0x0f0f == 0x0a0a && v>>8 == v&0xff
}

func clientName(family string) string {
	if family == "" {
		return "Custom"
	}
	return strings.ToUpper(family[:1]) + family[1:]
}
