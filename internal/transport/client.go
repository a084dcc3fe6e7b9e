// internal/transport/client.go

// Package transport implementa ports.Transport sobre tls-client (HTTP con la huella
// TLS y HTTP/2 de un navegador) y gorilla/websocket sobre uTLS, más un dialer de
// proxy para TCP crudo.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/bogdanfinn/fhttp/cookiejar"
	"github.com/bogdanfinn/fhttp/httptrace"
	tls_client "github.com/bogdanfinn/tls-client"
	"golang.org/x/net/publicsuffix"

	"proxylens/internal/browser"
	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
	"proxylens/internal/platform/logx"
)

// Options ajusta un Client.
type Options struct {
	// Timeout límite por defecto de cada petición
	Timeout time.Duration

	// DialTimeout límite de cada conexión TCP, incluido el salto al proxy
	DialTimeout time.Duration

	// InsecureSkipVerify desactiva la verificación de certificados (solo motores de laboratorio)
	InsecureSkipVerify bool
}

// DefaultOptions retorna los valores por defecto del transporte.
func DefaultOptions() Options {
	return Options{
		Timeout:     30 * time.Second,
		DialTimeout: 10 * time.Second,
	}
}

// Client es el transporte de una sesión. Seguro para uso concurrente.
type Client struct {
	profile *browser.Profile
	proxy   *domain.ProxyConfig
	opts    Options
	http    tls_client.HttpClient
	dialer  ContextDialer
	logger  logx.Logger
}

var _ ports.Transport = (*Client)(nil)

// New construye un transporte que habla como profile y enruta cada conexión
// por p (nil = directo).
func New(profile *browser.Profile, p *domain.ProxyConfig, opts Options, logger logx.Logger) (*Client, error) {
	if profile == nil {
		return nil, fmt.Errorf("transport: profile is required")
	}
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = def.DialTimeout
	}
	logger = logger.With("component", "transport", "profile", profile.Name(), "proxy", p.Masked())

	dialer, err := NewDialer(p, opts.DialTimeout)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	clientOpts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int((opts.Timeout + time.Second - 1) / time.Second)),
		tls_client.WithClientProfile(profile.ClientProfile()),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithCookieJar(jar),
	}
	if p != nil {
		clientOpts = append(clientOpts, tls_client.WithProxyUrl(clientProxyURL(p)))
	}
	if opts.InsecureSkipVerify {
		clientOpts = append(clientOpts, tls_client.WithInsecureSkipVerify())
	}

	hc, err := tls_client.NewHttpClient(clientLogger{l: logger}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("tls client: %w", err)
	}

	return &Client{
		profile: profile,
		proxy:   p,
		opts:    opts,
		http:    hc,
		dialer:  dialer,
		logger:  logger,
	}, nil
}

// Do envía req con sus cabeceras exactamente en el orden dado y lee el cuerpo.
func (c *Client) Do(ctx context.Context, req ports.Request) (*ports.Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.opts.Timeout
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := fhttp.NewRequestWithContext(rctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	hreq.Header = orderedHeader(req.Headers, c.profile.PseudoHeaderOrder())

	var wrote atomic.Bool
	hreq = hreq.WithContext(httptrace.WithClientTrace(rctx, &httptrace.ClientTrace{
		WroteHeaders: func() { wrote.Store(true) },
	}))

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		err = classify(ctx, err)
		if !wrote.Load() {
			return nil, ports.NotSent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body := io.Reader(resp.Body)
	if !resp.Uncompressed {
		// con accept-encoding en minúsculas fhttp no descomprime en HTTP/1.1
		if ce := resp.Header.Get("Content-Encoding"); ce != "" {
			body = fhttp.DecompressBodyByType(resp.Body, ce)
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("read body: %w", err))
	}
	elapsed := time.Since(start)

	c.logger.Debug("http exchange",
		"method", req.Method,
		"url", req.URL,
		"status", resp.StatusCode,
		"proto", resp.Proto,
		"duration_ms", elapsed.Milliseconds(),
	)

	if resp.StatusCode == fhttp.StatusProxyAuthRequired {
		return nil, fmt.Errorf("%w: %s answered %s", domain.ErrProxyAuth, c.proxy.Masked(), resp.Status)
	}

	return &ports.Response{
		StatusCode: resp.StatusCode,
		Headers:    responseHeaders(resp.Header),
		Body:       data,
		WireSize:   responseWireSize(resp, data),
		Duration:   elapsed,
	}, nil
}

// DialTCP conecta con addr a través del proxy de la sesión.
func (c *Client) DialTCP(ctx context.Context, addr string) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, ports.NotSent(classify(ctx, err))
	}
	return conn, nil
}

// Close cierra las conexiones del pool.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// orderedHeader construye el mapa de cabeceras de fhttp y sus claves de orden. Una
// entrada con valor vacío solo reserva la posición de una cabecera que escribe fhttp.
func orderedHeader(headers []domain.Header, pseudo []string) fhttp.Header {
	h := make(fhttp.Header, len(headers)+2)
	order := make([]string, 0, len(headers))
	for _, hd := range headers {
		order = append(order, strings.ToLower(hd.Name))
		if hd.Value == "" {
			continue
		}
		// sin canonicalizar: la grafía de la plantilla viaja tal cual en HTTP/1.1
		h[hd.Name] = append(h[hd.Name], hd.Value)
	}
	h[fhttp.HeaderOrderKey] = order
	if len(pseudo) > 0 {
		h[fhttp.PHeaderOrderKey] = pseudo
	}
	return h
}

func responseHeaders(h fhttp.Header) []domain.Header {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.Header, 0, len(keys))
	for _, k := range keys {
		for _, v := range h[k] {
			out = append(out, domain.Header{Name: k, Value: v})
		}
	}
	return out
}

// responseWireSize estima los bytes recibidos: línea de estado, cabeceras y el
// cuerpo tal como viajó (Content-Length si el cliente lo descomprimió).
func responseWireSize(resp *fhttp.Response, body []byte) int64 {
	size := int64(len(resp.Proto) + 1 + len(resp.Status) + 2)
	for k, vs := range resp.Header {
		for _, v := range vs {
			size += int64(len(k) + 2 + len(v) + 2)
		}
	}
	size += 2
	if resp.ContentLength > 0 {
		return size + resp.ContentLength
	}
	return size + int64(len(body))
}

// clientProxyURL formatea p para tls-client, que solo conoce el scheme socks5.
func clientProxyURL(p *domain.ProxyConfig) string {
	u := p.URL()
	if u.Scheme == "socks5h" {
		u.Scheme = "socks5"
	}
	return u.String()
}
