// internal/transport/errors.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"proxylens/internal/core/domain"
)

// proxyAuthMarkers son fragmentos de los errores de tls-client, fhttp y
// x/net/proxy cuando el proxy rechaza las credenciales.
var proxyAuthMarkers = []string{
	"407 proxy",
	"status 407",
	"proxy authentication required",
	"username/password authentication failed",
	"unsupported authentication method",
}

// classify traduce un fallo de bajo nivel a la taxonomía de la sesión. parent es
// el contexto del llamador; si ya terminó la causa es cancelación, no timeout.
func classify(parent context.Context, err error) error {
	if err == nil {
		return nil
	}
	if perr := parent.Err(); perr != nil {
		return fmt.Errorf("%w: %v", perr, err)
	}
	if errors.Is(err, domain.ErrProxyAuth) || errors.Is(err, domain.ErrTimeout) {
		return err
	}
	if isProxyAuth(err) {
		return fmt.Errorf("%w: %v", domain.ErrProxyAuth, err)
	}
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}

func isProxyAuth(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, m := range proxyAuthMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}
