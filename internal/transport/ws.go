package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const closeWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// acceptWS reads the HTTP upgrade request from c and answers it, returning
// the WebSocket stream as a net.Conn.
func acceptWS(c net.Conn, o *WSOptions) (net.Conn, error) {
	br := bufio.NewReader(c)
	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, fmt.Errorf("ws: read upgrade request: %w", err)
	}

	w := &hijackResponse{conn: c, brw: bufio.NewReadWriter(br, bufio.NewWriter(c)), header: make(http.Header)}
	if req.URL.Path != o.Path {
		http.NotFound(w, req)
		return nil, fmt.Errorf("ws: unexpected path %q", req.URL.Path)
	}

	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return nil, fmt.Errorf("ws: upgrade: %w", err)
	}
	return newWSConn(ws), nil
}

// connectWS performs the client upgrade over the already established c.
func connectWS(ctx context.Context, c net.Conn, o *WSOptions) (net.Conn, error) {
	d := websocket.Dialer{
		NetDialContext: func(context.Context, string, string) (net.Conn, error) {
			return c, nil
		},
	}

	u := url.URL{Scheme: "ws", Host: o.Host, Path: o.Path}
	ws, resp, err := d.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("ws: upgrade %s: %w (%s)", u.String(), err, resp.Status)
		}
		return nil, fmt.Errorf("ws: upgrade %s: %w", u.String(), err)
	}
	return newWSConn(ws), nil
}

// wsConn carries a byte stream in binary WebSocket messages. A close frame
// marks end of stream in one direction only, so either side can keep
// writing after it has read EOF.
type wsConn struct {
	ws *websocket.Conn
	r  io.Reader
}

func newWSConn(ws *websocket.Conn) *wsConn {
	ws.SetCloseHandler(func(int, string) error { return nil })
	return &wsConn{ws: ws}
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					return 0, io.EOF
				}
				return 0, err
			}
			c.r = r
		}

		n, err := c.r.Read(p)
		if errors.Is(err, io.EOF) {
			c.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// CloseWrite sends a normal close frame.
func (c *wsConn) CloseWrite() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

func (c *wsConn) LocalAddr() net.Addr  { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }

// hijackResponse lets websocket.Upgrader answer a request read directly off
// a connection, with no http.Server involved.
type hijackResponse struct {
	conn   net.Conn
	brw    *bufio.ReadWriter
	header http.Header
	status int
}

func (w *hijackResponse) Header() http.Header {
	return w.header
}

func (w *hijackResponse) WriteHeader(code int) {
	w.status = code
}

// Write sends a complete error response. Only rejected upgrades get here.
func (w *hijackResponse) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	resp := &http.Response{
		StatusCode:    w.status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        w.header,
		Body:          io.NopCloser(bytes.NewReader(b)),
		ContentLength: int64(len(b)),
		Close:         true,
	}
	if err := resp.Write(w.conn); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (w *hijackResponse) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.conn, w.brw, nil
}
