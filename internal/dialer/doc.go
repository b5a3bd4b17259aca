// Package dialer opens the outbound leg of a relay.
//
// A Dialer applies an endpoint's ConnectOpts to every connection: it binds a
// source address and an egress interface when asked to, resolves domain
// targets afresh for each dial, and tries every resolved address in order
// until one connects.
package dialer
