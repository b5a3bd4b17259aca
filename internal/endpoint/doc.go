// Package endpoint turns the textual fields of one relay rule into an
// immutable Endpoint: the local listen address, the remote target, and the
// policy used to reach it.
//
// All parsing happens once, before any listener starts. Every failure is
// returned as a *ConfigError and is meant to abort startup.
package endpoint
