package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/snapmerge/internal/adapters/fs"
	httpadapter "github.com/bft-labs/snapmerge/internal/adapters/http"
	"github.com/bft-labs/snapmerge/internal/adapters/mysql"
	"github.com/bft-labs/snapmerge/internal/adapters/nameparser"
	"github.com/bft-labs/snapmerge/internal/adapters/parquet"
	"github.com/bft-labs/snapmerge/internal/app"
	"github.com/bft-labs/snapmerge/internal/cliconfig"
	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/metrics"
	"github.com/bft-labs/snapmerge/internal/ports"
	"github.com/bft-labs/snapmerge/pkg/log"
)

// services holds the adapters one command runs against. Everything is
// built from the loaded config and torn down by close.
type services struct {
	cfg     cliconfig.Config
	logger  log.Logger
	metrics *metrics.Metrics
	store   *parquet.Store
	sink    *mysql.Sink
	status  *fs.RunStatusFile
}

func (c *cli) services(ctx context.Context) (*services, error) {
	s := &services{
		cfg:     c.cfg,
		logger:  c.logger,
		metrics: metrics.New(),
		status:  fs.NewRunStatusFile(c.cfg.DataDir),
	}
	s.store = parquet.NewStore(parquet.WithLogger(s.logger), parquet.WithMetrics(s.metrics))

	if c.cfg.MySQLDSN != "" {
		sink, err := mysql.Open(ctx, c.cfg.MySQLDSN, s.logger)
		if err != nil {
			return nil, err
		}
		s.sink = sink
	}
	return s, nil
}

// close releases the database handle and flushes textfile metrics.
func (s *services) close() {
	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			s.logger.Warn("close mysql", log.Err(err))
		}
	}
	if s.cfg.MetricsFile != "" {
		if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
			s.logger.Warn("write metrics textfile", log.String("path", s.cfg.MetricsFile), log.Err(err))
		}
	}
}

func (s *services) options() []app.Option {
	opts := []app.Option{app.WithLogger(s.logger), app.WithMetrics(s.metrics)}
	if s.sink != nil {
		opts = append(opts, app.WithSink(s.sink))
	}
	return opts
}

func (s *services) source() (*httpadapter.Source, error) {
	if err := s.cfg.RequireSource(); err != nil {
		return nil, err
	}
	client := httpadapter.NewRetryClient(httpadapter.RetryConfig{
		RetryMax: s.cfg.RetryMax,
		Timeout:  s.cfg.HTTPTimeout,
	}, s.logger)
	return httpadapter.NewSource(client.StandardClient(), s.cfg.SourceURL, s.cfg.APIKey, s.logger, s.metrics), nil
}

func (s *services) collector() (*app.Collector, error) {
	src, err := s.source()
	if err != nil {
		return nil, err
	}
	races := app.NewPool("race", s.cfg.Concurrency, s.metrics)
	details := app.NewPool("detail", s.cfg.DetailConcurrency, s.metrics)
	cfg := app.CollectorConfig{DataDir: s.cfg.DataDir, RefreshDetails: s.cfg.RefreshDetails}
	return app.NewCollector(cfg, src, app.NewExpander(src), s.store, races, details, s.options()...), nil
}

func (s *services) enricher() *app.Enricher {
	cfg := app.EnrichConfig{Workers: s.cfg.EnrichWorkers, Force: s.cfg.ForceEnrich}
	return app.NewEnricher(cfg, nameparser.NewRules().Factory(), s.options()...)
}

// registry builds the registry workflow. The source is only attached when
// withSource is set so local merges work without a source URL.
func (s *services) registry(withSource bool) (*app.Registry, error) {
	var fetcher ports.Fetcher
	if withSource {
		src, err := s.source()
		if err != nil {
			return nil, err
		}
		fetcher = src
	}
	reporter := app.NewReporter(s.cfg.DataDir, s.store, s.options()...)
	return app.NewRegistry(s.cfg.DataDir, fetcher, s.store, s.enricher(), reporter, s.options()...), nil
}

// record saves the run summary. Failing to write it never changes the
// command outcome.
func (s *services) record(ctx context.Context, cmd *cobra.Command, input string, started time.Time, groups, successes int, failures []domain.Failure, runErr error) {
	st := domain.RunStatus{
		Command:    cmd.Name(),
		Input:      input,
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
		Groups:     groups,
		Successes:  successes,
	}
	for _, f := range failures {
		st.Failures = append(st.Failures, f.Record())
	}
	if runErr != nil {
		st.Error = runErr.Error()
	}
	if err := s.status.Save(context.WithoutCancel(ctx), st); err != nil {
		s.logger.Warn("save run status", log.Err(err))
	}
}
