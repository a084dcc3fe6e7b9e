// internal/transport/websocket.go
package transport

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	tls "github.com/bogdanfinn/utls"
	"github.com/gorilla/websocket"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
)

// gorillaManaged son cabeceras que escribe el dialer websocket y que rechaza en el
// mapa de la petición. Las plantillas pueden listarlas para fijar su posición.
var gorillaManaged = map[string]bool{
	"host":                     true,
	"upgrade":                  true,
	"connection":               true,
	"sec-websocket-key":        true,
	"sec-websocket-version":    true,
	"sec-websocket-extensions": true,
}

// OpenStream hace el upgrade WebSocket a través del proxy de la sesión. El
// handshake TLS usa el ClientHello del perfil con ALPN fijo en http/1.1 y la
// petición de upgrade se reescribe para seguir el orden de headers.
func (c *Client) OpenStream(ctx context.Context, rawURL string, headers []domain.Header) (ports.Stream, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket url: %w", err)
	}

	reqHeader := make(http.Header)
	compression := false
	for _, h := range headers {
		name := strings.ToLower(h.Name)
		if name == "sec-websocket-extensions" {
			compression = true
		}
		if h.Value == "" || gorillaManaged[name] {
			continue
		}
		reqHeader.Add(h.Name, h.Value)
	}

	rec := &handshakeConnRecorder{order: headers}
	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := c.dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return rec.wrap(conn), nil
		},
		NetDialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := c.dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			tconn, err := c.handshakeTLS(ctx, conn, u.Hostname())
			if err != nil {
				conn.Close()
				return nil, err
			}
			return rec.wrap(tconn), nil
		},
		HandshakeTimeout:  c.opts.DialTimeout,
		EnableCompression: compression,
	}

	conn, resp, err := dialer.DialContext(ctx, rawURL, reqHeader)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusProxyAuthRequired {
			return nil, fmt.Errorf("%w: websocket upgrade answered %s", domain.ErrProxyAuth, resp.Status)
		}
		if resp != nil {
			return nil, fmt.Errorf("websocket upgrade to %s: %s: %w", u.Host, resp.Status, err)
		}
		err = classify(ctx, fmt.Errorf("websocket dial %s: %w", u.Host, err))
		if rec.sent() == 0 {
			return nil, ports.NotSent(err)
		}
		return nil, err
	}

	c.logger.Debug("websocket open", "url", rawURL, "status", resp.StatusCode)
	return &wsStream{
		conn:   conn,
		hsSent: rec.sent(),
		hsRecv: upgradeResponseSize(resp),
	}, nil
}

func (c *Client) handshakeTLS(ctx context.Context, conn net.Conn, serverName string) (net.Conn, error) {
	spec, err := c.profile.ClientHelloSpecFor("http/1.1")
	if err != nil {
		return nil, err
	}
	uconn := tls.UClient(conn, &tls.Config{
		ServerName:         serverName,
		NextProtos:         []string{"http/1.1"},
		InsecureSkipVerify: c.opts.InsecureSkipVerify,
	}, tls.HelloCustom, false, true, true)
	if err := uconn.ApplyPreset(&spec); err != nil {
		return nil, fmt.Errorf("apply client hello: %w", err)
	}
	if err := uconn.HandshakeContext(ctx); err != nil {
		return nil, classify(ctx, fmt.Errorf("tls handshake with %s: %w", serverName, err))
	}
	return uconn, nil
}

func upgradeResponseSize(resp *http.Response) int64 {
	if resp == nil {
		return 0
	}
	size := int64(len(resp.Proto) + 1 + len(resp.Status) + 2)
	for k, vs := range resp.Header {
		for _, v := range vs {
			size += int64(len(k) + 2 + len(v) + 2)
		}
	}
	return size + 2
}

// wsStream adapta una conexión gorilla a ports.Stream.
type wsStream struct {
	conn   *websocket.Conn
	hsSent int64
	hsRecv int64

	writeMu sync.Mutex
	closed  bool
}

func (s *wsStream) Send(ctx context.Context, msg []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	_ = s.conn.SetWriteDeadline(deadline)
	if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return classify(ctx, fmt.Errorf("websocket send: %w", err))
	}
	return nil
}

func (s *wsStream) Receive(ctx context.Context) ([]byte, error) {
	deadline, _ := ctx.Deadline()
	_ = s.conn.SetReadDeadline(deadline)

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, classify(ctx, err)
		}
		return nil, classify(ctx, fmt.Errorf("websocket receive: %w", err))
	}
	return data, nil
}

func (s *wsStream) HandshakeSize() (sent, received int64) {
	return s.hsSent, s.hsRecv
}

func (s *wsStream) Close() error {
	s.writeMu.Lock()
	if !s.closed {
		s.closed = true
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
	s.writeMu.Unlock()
	return s.conn.Close()
}

// handshakeConnRecorder entrega el wrapper de conexión para el dial y recuerda
// cuántos bytes ocupó la petición de upgrade reescrita.
type handshakeConnRecorder struct {
	order []domain.Header
	conn  *orderedHandshakeConn
}

func (r *handshakeConnRecorder) wrap(conn net.Conn) net.Conn {
	r.conn = &orderedHandshakeConn{Conn: conn, order: r.order}
	return r.conn
}

func (r *handshakeConnRecorder) sent() int64 {
	if r.conn == nil {
		return 0
	}
	return r.conn.written
}

// orderedHandshakeConn retiene la escritura hasta tener la cabecera completa y
// luego emite las líneas en el orden de la plantilla.
type orderedHandshakeConn struct {
	net.Conn
	order   []domain.Header
	buf     bytes.Buffer
	done    bool
	written int64
}

func (c *orderedHandshakeConn) Write(p []byte) (int, error) {
	if c.done {
		return c.Conn.Write(p)
	}
	c.buf.Write(p)
	idx := bytes.Index(c.buf.Bytes(), []byte("\r\n\r\n"))
	if idx < 0 {
		return len(p), nil
	}

	head := c.buf.Bytes()[:idx]
	rest := c.buf.Bytes()[idx+4:]
	out := append(reorderHead(head, c.order), rest...)
	c.done = true
	c.written = int64(len(out) - len(rest))
	c.buf.Reset()

	if _, err := c.Conn.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// reorderHead ordena las líneas de cabecera de una petición HTTP/1.1 según order
// y restaura la grafía de la plantilla. Las líneas que no están en la plantilla
// van detrás de las conocidas, en su orden relativo.
func reorderHead(head []byte, order []domain.Header) []byte {
	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 {
		return append(head, "\r\n\r\n"...)
	}

	pos := make(map[string]int, len(order))
	spelling := make(map[string]string, len(order))
	for i, h := range order {
		key := strings.ToLower(h.Name)
		if _, seen := pos[key]; !seen {
			pos[key] = i
			spelling[key] = h.Name
		}
	}

	type line struct {
		rank int
		text string
	}
	fields := make([]line, 0, len(lines)-1)
	for i, l := range lines[1:] {
		name, value, ok := strings.Cut(l, ":")
		if !ok {
			fields = append(fields, line{rank: len(order) + i, text: l})
			continue
		}
		key := strings.ToLower(strings.TrimSpace(name))
		rank, known := pos[key]
		if !known {
			fields = append(fields, line{rank: len(order) + i, text: l})
			continue
		}
		fields = append(fields, line{rank: rank, text: spelling[key] + ":" + value})
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].rank < fields[j].rank })

	var b strings.Builder
	b.WriteString(lines[0])
	b.WriteString("\r\n")
	for _, f := range fields {
		b.WriteString(f.text)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}
