package transport

import (
	"fmt"
	"strings"
)

// WSOptions configures WebSocket framing for one direction.
type WSOptions struct {
	Host string
	Path string
}

// TLSServerOptions configures the listen-side TLS handshake. Either CertFile
// and KeyFile are set, or ServerName is set and a self-signed certificate is
// generated for it.
type TLSServerOptions struct {
	CertFile   string
	KeyFile    string
	ServerName string
	ALPN       []string
}

// TLSClientOptions configures the remote-side TLS handshake.
type TLSClientOptions struct {
	SNI      string
	Insecure bool
	ALPN     []string
}

type descriptor struct {
	flags map[string]bool
	opts  map[string]string
}

func parseDescriptor(s string) descriptor {
	d := descriptor{flags: make(map[string]bool), opts: make(map[string]string)}
	for tok := range strings.SplitSeq(s, ";") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if k, v, ok := strings.Cut(tok, "="); ok {
			d.opts[strings.TrimSpace(k)] = strings.TrimSpace(v)
			continue
		}
		d.flags[tok] = true
	}
	return d
}

func (d descriptor) alpn() []string {
	v := d.opts["alpn"]
	if v == "" {
		return nil
	}
	var protos []string
	for p := range strings.SplitSeq(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			protos = append(protos, p)
		}
	}
	return protos
}

// ParseWS returns the WebSocket options in s, or nil if s does not enable
// WebSocket framing.
func ParseWS(s string) (*WSOptions, error) {
	d := parseDescriptor(s)
	if !d.flags["ws"] {
		return nil, nil
	}

	o := &WSOptions{Host: d.opts["host"], Path: d.opts["path"]}
	if o.Host == "" || o.Path == "" {
		return nil, fmt.Errorf("ws: host and path required in %q", s)
	}
	if !strings.HasPrefix(o.Path, "/") {
		o.Path = "/" + o.Path
	}
	return o, nil
}

// ParseTLSServer returns the listen-side TLS options in s, or nil if s does
// not enable TLS.
func ParseTLSServer(s string) (*TLSServerOptions, error) {
	d := parseDescriptor(s)
	if !d.flags["tls"] {
		return nil, nil
	}

	o := &TLSServerOptions{
		CertFile:   d.opts["cert"],
		KeyFile:    d.opts["key"],
		ServerName: d.opts["servername"],
		ALPN:       d.alpn(),
	}
	switch {
	case o.CertFile != "" && o.KeyFile != "":
	case o.CertFile != "" || o.KeyFile != "":
		return nil, fmt.Errorf("tls: cert and key must be given together in %q", s)
	case o.ServerName == "":
		return nil, fmt.Errorf("tls: cert and key, or servername, required in %q", s)
	}
	return o, nil
}

// ParseTLSClient returns the remote-side TLS options in s, or nil if s does
// not enable TLS.
func ParseTLSClient(s string) (*TLSClientOptions, error) {
	d := parseDescriptor(s)
	if !d.flags["tls"] {
		return nil, nil
	}

	o := &TLSClientOptions{
		SNI:      d.opts["sni"],
		Insecure: d.flags["insecure"],
		ALPN:     d.alpn(),
	}
	if o.SNI == "" {
		return nil, fmt.Errorf("tls: sni required in %q", s)
	}
	return o, nil
}
