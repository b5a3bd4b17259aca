package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/relay/internal/config"
	"github.com/die-net/relay/internal/dialer"
	"github.com/die-net/relay/internal/dns"
	"github.com/die-net/relay/internal/endpoint"
	"github.com/die-net/relay/internal/relay"
	"github.com/die-net/relay/internal/sockopt"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type flags struct {
	listen          *string
	remote          *string
	through         *string
	iface           *string
	listenTransport *string
	remoteTransport *string

	configPath       *string
	nofile           *uint64
	pipeCap          *int
	dialTimeout      *time.Duration
	handshakeTimeout *time.Duration
	tcpKeepAlive     *string
	dnsMode          *string
	dnsServers       *[]string
	debugListen      *string
	verbose          *bool
}

func parseFlags() *flags {
	f := &flags{
		listen:          pflag.StringP("listen", "l", "", "Listen address for a single endpoint (e.g. 0.0.0.0:5000)"),
		remote:          pflag.StringP("remote", "r", "", "Remote address for a single endpoint: ip:port or host:port"),
		through:         pflag.String("through", "", "Source address for outbound connections: ip or ip:port"),
		iface:           pflag.StringP("interface", "i", "", "Bind outbound connections to this network interface (Linux only)"),
		listenTransport: pflag.StringP("listen-transport", "a", "", "Transport accepted from clients, e.g. tls;servername=example.com;ws;host=example.com;path=/"),
		remoteTransport: pflag.StringP("remote-transport", "b", "", "Transport spoken to the remote, e.g. tls;sni=example.com;ws;host=example.com;path=/"),

		configPath:       pflag.StringP("config", "c", "", "YAML config file"),
		nofile:           pflag.Uint64P("nofile", "n", 0, "Raise the open file limit to this value. 0 leaves it unchanged."),
		pipeCap:          pflag.Int("pipe-cap", 0, "Pipe size in bytes for zero-copy forwarding (Linux only). 0 disables."),
		dialTimeout:      pflag.Duration("dial-timeout", config.DefaultDialTimeout, "Timeout for outbound DNS lookup and TCP connect"),
		handshakeTimeout: pflag.Duration("handshake-timeout", config.DefaultHandshakeTimeout, "Timeout for the TLS and WebSocket handshakes"),
		tcpKeepAlive:     pflag.String("tcp-keepalive", config.DefaultTCPKeepAlive, "TCP keepalive: on|off|keepidle:keepintvl:keepcnt"),
		dnsMode:          pflag.String("dns-mode", dns.IPv4AndIPv6.String(), "Address families to resolve: ipv4_only|ipv6_only|ipv4_and_ipv6|ipv4_then_ipv6|ipv6_then_ipv4"),
		dnsServers:       pflag.StringSlice("dns-servers", nil, "Nameservers to query instead of the system resolver (host or host:port)"),
		debugListen:      pflag.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof and /metrics (e.g. 127.0.0.1:6060). Empty disables."),
		verbose:          pflag.BoolP("verbose", "v", false, "Enable debug logging, including per-connection errors"),
	}
	pflag.CommandLine.SortFlags = false
	pflag.Parse()
	return f
}

// loadConfig reads the config file if one was given and applies every flag
// the user set on top of it.
func loadConfig(fl *flags) (*config.File, error) {
	f := config.Default()
	if *fl.configPath != "" {
		var err error
		if f, err = config.Load(*fl.configPath); err != nil {
			return nil, fmt.Errorf("invalid --config: %w", err)
		}
	}

	changed := pflag.CommandLine.Changed
	if changed("nofile") {
		f.Nofile = *fl.nofile
	}
	if changed("pipe-cap") {
		f.PipeCap = *fl.pipeCap
	}
	if changed("dial-timeout") {
		f.Network.DialTimeout = config.Duration(*fl.dialTimeout)
	}
	if changed("handshake-timeout") {
		f.Network.HandshakeTimeout = config.Duration(*fl.handshakeTimeout)
	}
	if changed("tcp-keepalive") {
		f.Network.TCPKeepAlive = *fl.tcpKeepAlive
	}
	if changed("dns-mode") {
		f.DNS.Mode = *fl.dnsMode
	}
	if changed("dns-servers") {
		f.DNS.Nameservers = *fl.dnsServers
	}

	if *fl.listen != "" || *fl.remote != "" {
		if *fl.listen == "" || *fl.remote == "" {
			return nil, errors.New("--listen and --remote must be given together")
		}
		f.Endpoints = append(f.Endpoints, config.Endpoint{Config: endpoint.Config{
			Listen:          *fl.listen,
			Remote:          *fl.remote,
			Through:         *fl.through,
			Interface:       *fl.iface,
			ListenTransport: *fl.listenTransport,
			RemoteTransport: *fl.remoteTransport,
		}})
	}

	return f, nil
}

func run() error {
	fl := parseFlags()

	f, err := loadConfig(fl)
	if err != nil {
		return err
	}

	log, err := f.Log.NewLogger(*fl.verbose)
	if err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}
	defer func() { _ = log.Sync() }()

	epCfgs, err := f.EndpointConfigs()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	dnsCfg, err := f.DNSConfig()
	if err != nil {
		return fmt.Errorf("invalid dns config: %w", err)
	}
	res, err := dns.New(dnsCfg)
	if err != nil {
		return fmt.Errorf("invalid dns config: %w", err)
	}

	b := &endpoint.Builder{Resolver: res, LookupTimeout: dnsCfg.Timeout, Log: log}
	eps := make([]*endpoint.Endpoint, 0, len(epCfgs))
	for _, c := range epCfgs {
		ep, err := b.Build(c)
		if err != nil {
			return fmt.Errorf("invalid endpoint %s -> %s: %w", c.Listen, c.Remote, err)
		}
		eps = append(eps, ep)
	}

	tuner := sockopt.Default()
	if f.Nofile > 0 {
		prev := sockopt.RaiseNofileLimit(tuner, f.Nofile, log)
		log.Debug("open file limit", zap.Uint64("previous", prev), zap.Uint64("requested", f.Nofile))
	}

	engine := relay.NewEngine(relay.Config{
		Dialer:  dialer.New(dialer.Config{Resolver: res, Tuner: tuner}),
		PipeCap: tuner.PipeCap(f.PipeCap),
		Log:     log,
	})

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *fl.debugListen != "" {
		http.Handle("/metrics", promhttp.Handler())
		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		lc := net.ListenConfig{}
		debugLn, err := lc.Listen(ctx, "tcp", *fl.debugListen)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Info("debug listening", zap.String("addr", *fl.debugListen))
	}

	for _, ep := range eps {
		ln, err := relay.ListenTCP(ctx, ep.Local.String(), ep.Opts.Net.KeepAlive)
		if err != nil {
			return err
		}
		context.AfterFunc(ctx, func() {
			_ = ln.Close()
		})

		srv := relay.NewServer(ctx, engine, ep)
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil {
				return fmt.Errorf("serve %s: %w", ep, err)
			}
			return nil
		})
		log.Info("relay listening",
			zap.Stringer("listen", ln.Addr()),
			zap.Stringer("remote", ep.Remote),
			zap.Stringer("transport", ep.Opts.Transport))
	}

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	log.Info("shutting down")
	return err
}
