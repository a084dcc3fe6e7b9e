// internal/transport/dialer.go
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"proxylens/internal/core/domain"
)

// ContextDialer abre streams TCP, directos o a través del proxy de la sesión.
type ContextDialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewDialer retorna un dialer que tuneliza por p. Con p nil conecta directo.
func NewDialer(p *domain.ProxyConfig, timeout time.Duration) (ContextDialer, error) {
	base := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	if p == nil {
		return base, nil
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.Scheme {
	case "http", "https":
		return &connectDialer{proxy: *p, base: base}, nil
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if p.HasAuth() {
			auth = &proxy.Auth{User: p.Username, Password: p.Password}
		}
		d, err := proxy.SOCKS5("tcp", p.Addr(), auth, base)
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 dialer does not support contexts")
		}
		return &socksDialer{inner: cd, localResolve: p.Scheme == "socks5"}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidProxy, p.Scheme)
	}
}

// socksDialer resuelve el destino en local con socks5 y deja que lo resuelva
// el proxy con socks5h.
type socksDialer struct {
	inner        proxy.ContextDialer
	localResolve bool
}

func (d *socksDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if d.localResolve {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		if net.ParseIP(host) == nil {
			ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", host, err)
			}
			if len(ips) == 0 {
				return nil, fmt.Errorf("resolve %s: no addresses", host)
			}
			addr = net.JoinHostPort(ips[0].IP.String(), port)
		}
	}
	conn, err := d.inner.DialContext(ctx, network, addr)
	if err != nil {
		return nil, classify(ctx, err)
	}
	return conn, nil
}

// connectDialer abre un túnel HTTP CONNECT. Con proxies https el salto al
// proxy va sobre TLS.
type connectDialer struct {
	proxy domain.ProxyConfig
	base  *net.Dialer
}

func (d *connectDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := d.base.DialContext(ctx, "tcp", d.proxy.Addr())
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("dial proxy %s: %w", d.proxy.Masked(), err))
	}
	if d.proxy.Scheme == "https" {
		tconn := tls.Client(conn, &tls.Config{ServerName: d.proxy.Host})
		if err := tconn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, classify(ctx, fmt.Errorf("tls to proxy: %w", err))
		}
		conn = tconn
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	tunneled, err := d.connect(conn, addr)
	if err != nil {
		conn.Close()
		return nil, classify(ctx, err)
	}
	_ = tunneled.SetDeadline(time.Time{})
	return tunneled, nil
}

func (d *connectDialer) connect(conn net.Conn, addr string) (net.Conn, error) {
	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(http.Header),
	}
	if d.proxy.HasAuth() {
		cred := base64.StdEncoding.EncodeToString([]byte(d.proxy.Username + ":" + d.proxy.Password))
		req.Header.Set("Proxy-Authorization", "Basic "+cred)
	}
	if err := req.Write(conn); err != nil {
		return nil, fmt.Errorf("write CONNECT: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		return nil, fmt.Errorf("read CONNECT response: %w", err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusProxyAuthRequired:
		return nil, fmt.Errorf("%w: proxy %s answered %s", domain.ErrProxyAuth, d.proxy.Masked(), resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("proxy CONNECT to %s failed: %s", addr, resp.Status)
	}

	if br.Buffered() > 0 {
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

// bufferedConn entrega primero los bytes que el lector de CONNECT leyó de más.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}
