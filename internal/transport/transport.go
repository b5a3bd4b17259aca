package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
)

// Acceptor performs the listen-side handshake on an accepted connection.
type Acceptor struct {
	tls *tls.Config
	ws  *WSOptions
}

// NewAcceptor returns an Acceptor; nil options disable that layer.
func NewAcceptor(tlsConfig *tls.Config, ws *WSOptions) *Acceptor {
	return &Acceptor{tls: tlsConfig, ws: ws}
}

// TLS reports whether the Acceptor terminates TLS.
func (a *Acceptor) TLS() bool { return a.tls != nil }

// WS reports whether the Acceptor expects WebSocket framing.
func (a *Acceptor) WS() bool { return a.ws != nil }

// Accept wraps c. With no layers enabled it returns c unchanged. On error the
// caller still owns c and must close it.
func (a *Acceptor) Accept(ctx context.Context, c net.Conn) (net.Conn, error) {
	if a.tls != nil {
		tc := tls.Server(c, a.tls)
		if err := tc.HandshakeContext(ctx); err != nil {
			return nil, fmt.Errorf("tls server handshake: %w", err)
		}
		c = tc
	}
	if a.ws != nil {
		wc, err := acceptWS(c, a.ws)
		if err != nil {
			return nil, err
		}
		c = wc
	}
	return c, nil
}

// Connector performs the remote-side handshake on a dialed connection.
type Connector struct {
	tls *tls.Config
	ws  *WSOptions
}

// NewConnector returns a Connector; nil options disable that layer.
func NewConnector(tlsConfig *tls.Config, ws *WSOptions) *Connector {
	return &Connector{tls: tlsConfig, ws: ws}
}

// TLS reports whether the Connector starts TLS.
func (c *Connector) TLS() bool { return c.tls != nil }

// WS reports whether the Connector upgrades to WebSocket.
func (c *Connector) WS() bool { return c.ws != nil }

// Connect wraps conn. With no layers enabled it returns conn unchanged. On
// error the caller still owns conn and must close it.
func (c *Connector) Connect(ctx context.Context, conn net.Conn) (net.Conn, error) {
	if c.tls != nil {
		tc := tls.Client(conn, c.tls)
		if err := tc.HandshakeContext(ctx); err != nil {
			return nil, fmt.Errorf("tls client handshake: %w", err)
		}
		conn = tc
	}
	if c.ws != nil {
		wc, err := connectWS(ctx, conn, c.ws)
		if err != nil {
			return nil, err
		}
		conn = wc
	}
	return conn, nil
}

// Pair is the transport of one endpoint.
type Pair struct {
	Acceptor  *Acceptor
	Connector *Connector
}

// String describes the layers on each side, e.g. "tls+ws -> plain".
func (p *Pair) String() string {
	if p == nil {
		return "plain -> plain"
	}
	return layers(p.Acceptor.TLS(), p.Acceptor.WS()) + " -> " + layers(p.Connector.TLS(), p.Connector.WS())
}

func layers(tls, ws bool) string {
	switch {
	case tls && ws:
		return "tls+ws"
	case tls:
		return "tls"
	case ws:
		return "ws"
	}
	return "plain"
}

// Build parses the listen and remote descriptors. It returns nil, nil when
// neither descriptor enables any layer, which means plain relay.
func Build(listenDesc, remoteDesc string) (*Pair, error) {
	listenWS, err := ParseWS(listenDesc)
	if err != nil {
		return nil, fmt.Errorf("listen transport: %w", err)
	}
	listenTLS, err := ParseTLSServer(listenDesc)
	if err != nil {
		return nil, fmt.Errorf("listen transport: %w", err)
	}
	remoteWS, err := ParseWS(remoteDesc)
	if err != nil {
		return nil, fmt.Errorf("remote transport: %w", err)
	}
	remoteTLS, err := ParseTLSClient(remoteDesc)
	if err != nil {
		return nil, fmt.Errorf("remote transport: %w", err)
	}

	if listenWS == nil && listenTLS == nil && remoteWS == nil && remoteTLS == nil {
		return nil, nil
	}

	var serverTLS, clientTLS *tls.Config
	if listenTLS != nil {
		if serverTLS, err = listenTLS.ServerConfig(); err != nil {
			return nil, fmt.Errorf("listen transport: %w", err)
		}
	}
	if remoteTLS != nil {
		clientTLS = remoteTLS.ClientConfig()
	}

	return &Pair{
		Acceptor:  NewAcceptor(serverTLS, listenWS),
		Connector: NewConnector(clientTLS, remoteWS),
	}, nil
}
