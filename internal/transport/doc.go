// Package transport wraps relayed streams in TLS and/or WebSocket framing.
//
// A Pair is built once per endpoint from two descriptors, one for the listen
// side and one for the remote side. The Acceptor performs the server half of
// the handshake on freshly accepted connections; the Connector performs the
// client half on freshly dialed ones. Both are immutable after construction
// and safe to share across any number of concurrent connections.
//
// Descriptors are ';'-separated tokens:
//
//	ws;host=example.com;path=/chat
//	tls;sni=example.com;insecure
//	tls;cert=server.crt;key=server.key
//	tls;servername=example.com;ws;host=example.com;path=/
//
// When both are enabled for a direction, TLS is the outer layer and the
// WebSocket stream runs inside it.
package transport
