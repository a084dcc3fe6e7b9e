// internal/telemetry/sealer.go
package telemetry

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"proxylens/internal/core/domain"
)

// ContentTypeBeacon es el que pone sendBeacon con cuerpos string.
const ContentTypeBeacon = "text/plain;charset=UTF-8"

const aeadInfo = "proxylens telemetry v1"

// PlainSealer envía el documento como texto JSON.
type PlainSealer struct{}

// NewPlainSealer retorna el sealer por defecto.
func NewPlainSealer() *PlainSealer { return &PlainSealer{} }

func (PlainSealer) Name() string { return "plain" }

// Seal implementa ports.Sealer. No usa sessionKey.
func (PlainSealer) Seal(payload *domain.TelemetryPayload, _ string) (domain.SealedTelemetry, error) {
	body, err := marshal(payload)
	if err != nil {
		return domain.SealedTelemetry{}, err
	}
	return domain.SealedTelemetry{Body: body, ContentType: ContentTypeBeacon}, nil
}

// AEADSealer cifra el documento con XChaCha20-Poly1305. La clave se deriva por
// sesión con HKDF-SHA256 desde el secreto compartido usando el session id como
// salt; el session id es también el dato adicional. El cuerpo es
// base64(nonce || ciphertext).
type AEADSealer struct {
	secret []byte
	rand   io.Reader
}

// NewAEADSealer retorna un sealer con la clave secret.
func NewAEADSealer(secret []byte) (*AEADSealer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty sealing secret", domain.ErrTelemetryEncoding)
	}
	return &AEADSealer{secret: append([]byte(nil), secret...), rand: rand.Reader}, nil
}

func (s *AEADSealer) Name() string { return "xchacha20poly1305" }

// Seal implementa ports.Sealer.
func (s *AEADSealer) Seal(payload *domain.TelemetryPayload, sessionKey string) (domain.SealedTelemetry, error) {
	plain, err := marshal(payload)
	if err != nil {
		return domain.SealedTelemetry{}, err
	}
	aead, err := s.aead(sessionKey)
	if err != nil {
		return domain.SealedTelemetry{}, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return domain.SealedTelemetry{}, fmt.Errorf("%w: nonce: %v", domain.ErrTelemetryEncoding, err)
	}
	sealed := aead.Seal(nonce, nonce, plain, []byte(sessionKey))

	body := make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
	base64.StdEncoding.Encode(body, sealed)
	return domain.SealedTelemetry{Body: body, ContentType: ContentTypeBeacon}, nil
}

// Open revierte Seal.
func (s *AEADSealer) Open(body []byte, sessionKey string) ([]byte, error) {
	sealed := make([]byte, base64.StdEncoding.DecodedLen(len(body)))
	n, err := base64.StdEncoding.Decode(sealed, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTelemetryEncoding, err)
	}
	sealed = sealed[:n]

	aead, err := s.aead(sessionKey)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("%w: sealed body too short", domain.ErrTelemetryEncoding)
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, []byte(sessionKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTelemetryEncoding, err)
	}
	return plain, nil
}

func (s *AEADSealer) aead(sessionKey string) (cipher.AEAD, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("%w: empty session key", domain.ErrTelemetryEncoding)
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, s.secret, []byte(sessionKey), []byte(aeadInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("%w: derive key: %v", domain.ErrTelemetryEncoding, err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTelemetryEncoding, err)
	}
	return aead, nil
}

func marshal(payload *domain.TelemetryPayload) ([]byte, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", domain.ErrTelemetryEncoding)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTelemetryEncoding, err)
	}
	return body, nil
}
