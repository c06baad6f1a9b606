package resolver

import (
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/pdbresolve/pdbx"
	"github.com/grafana/pdbresolve/pkg/pdb"
)

// Option configures a Builder or the loading of a Resolver.
type Option func(*options)

type options struct {
	logger  log.Logger
	reg     prometheus.Registerer
	decoder pdb.Decoder
}

func newOptions(opt []Option) options {
	o := options{
		logger:  log.NewNopLogger(),
		decoder: pdbx.Decoder{},
	}
	for _, fn := range opt {
		fn(&o)
	}
	return o
}

// WithLogger sets the logger used while building the index.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegisterer registers the resolver metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.reg = reg
	}
}

// WithDecoder replaces the default pdbx decoder used by Open and Load.
func WithDecoder(d pdb.Decoder) Option {
	return func(o *options) {
		if d != nil {
			o.decoder = d
		}
	}
}
