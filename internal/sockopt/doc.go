// Package sockopt holds the OS-level knobs that affect relay capacity and
// throughput: binding outbound sockets to a source address or a network
// interface, sizing the pipes used by the splice(2) copy path, and querying
// or raising the open-file-descriptor ceiling.
//
// The platform is picked once at startup with [Default]. Linux gets the full
// set. Darwin, OpenBSD and NetBSD can bind a source address and adjust
// RLIMIT_NOFILE but cannot bind to a device or splice. Everything else gets a
// tuner whose operations return [errors.ErrUnsupported].
package sockopt
