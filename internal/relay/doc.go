// Package relay forwards accepted TCP connections to an endpoint's remote
// target.
//
// A Server runs the accept loop for one endpoint and hands every connection
// to an Engine on its own goroutine. The Engine dials the remote, performs
// the optional transport handshakes, and copies bytes both ways until both
// directions finish or one fails. Failures are logged and end only the
// connection they happened on.
package relay
