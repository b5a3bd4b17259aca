package dialer

import (
	"github.com/die-net/relay/internal/endpoint"
	"github.com/die-net/relay/internal/sockopt"
)

type Config struct {
	Resolver endpoint.Resolver
	Tuner    sockopt.Tuner
}
