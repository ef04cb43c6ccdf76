package app

import (
	"github.com/bft-labs/snapmerge/internal/metrics"
	"github.com/bft-labs/snapmerge/internal/ports"
	"github.com/bft-labs/snapmerge/pkg/log"
)

// deps holds the optional collaborators shared by the workflows.
type deps struct {
	logger  log.Logger
	metrics *metrics.Metrics
	sink    ports.RowSink
}

// Option configures a workflow.
type Option func(*deps)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(d *deps) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics records pipeline metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *deps) { d.metrics = m }
}

// WithSink exports freshly fetched rows to s.
func WithSink(s ports.RowSink) Option {
	return func(d *deps) { d.sink = s }
}

func newDeps(opts []Option) deps {
	d := deps{logger: log.NoopLogger{}}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}
