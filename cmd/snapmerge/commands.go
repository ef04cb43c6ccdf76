package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/bft-labs/snapmerge/internal/adapters/fs"
	"github.com/bft-labs/snapmerge/internal/app"
	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/pkg/log"
	"github.com/bft-labs/snapmerge/plugins/inboxwatcher"
)

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func rangeArgs(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.RangeArgs(min, max)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func (c *cli) collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect <id>",
		Short: "Collect a 6, 10 or 12 digit race id and merge it into the masters",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			svc, err := c.services(ctx)
			if err != nil {
				return err
			}
			defer svc.close()

			collector, err := svc.collector()
			if err != nil {
				return err
			}

			started := time.Now()
			res, err := collector.Collect(ctx, args[0])
			svc.record(ctx, cmd, args[0], started, res.Groups, res.Successes, res.Failures, err)

			// Groups without rows are partial failures as long as something merged.
			if err != nil && errors.Is(err, domain.ErrNoSuccessfulKeys) && res.Successes > 0 {
				c.logger.Warn("collect finished with empty groups", log.Err(err))
				err = nil
			}
			if err != nil {
				return err
			}
			if len(res.Failures) > 0 {
				c.logger.Warn("collect finished with failures",
					log.Int("failures", len(res.Failures)),
					log.String("status", svc.status.Path()))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&c.cfg.Concurrency, "concurrency", c.cfg.Concurrency, "concurrent race keys")
	cmd.Flags().IntVar(&c.cfg.DetailConcurrency, "detail-concurrency", c.cfg.DetailConcurrency, "concurrent horse detail fetches")
	cmd.Flags().BoolVar(&c.cfg.RefreshDetails, "refresh-details", c.cfg.RefreshDetails, "refetch horses already in the horse master")
	return cmd
}

func (c *cli) registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry [prefecture]",
		Short: "Fetch the corporate registry snapshot and merge it into the registry master",
		Args:  rangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefecture := c.cfg.Prefecture
			if len(args) == 1 {
				prefecture = args[0]
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			svc, err := c.services(ctx)
			if err != nil {
				return err
			}
			defer svc.close()

			reg, err := svc.registry(true)
			if err != nil {
				return err
			}

			refresh := func() error {
				started := time.Now()
				res, err := reg.Refresh(ctx, prefecture, started)
				svc.record(ctx, cmd, prefecture, started, 1, res.Snapshot, nil, err)
				if err != nil {
					return err
				}
				c.logger.Info("registry refreshed",
					log.String("prefecture", prefecture),
					log.Int("snapshot", res.Snapshot),
					log.Int("rejected", res.Rejected),
					log.Int("master", res.Merge.Output),
					log.Int("parsed", res.Enrich.Parsed))
				return nil
			}

			if !cmd.Flags().Changed("every") {
				return refresh()
			}
			return c.schedule(ctx, c.cfg.Schedule, refresh)
		},
	}
	cmd.Flags().DurationVar(&c.cfg.Schedule, "every", c.cfg.Schedule, "refresh on this interval until interrupted")
	return cmd
}

// schedule runs job now and then on every interval until ctx is done.
// Job errors are logged and the schedule keeps going.
func (c *cli) schedule(ctx context.Context, interval time.Duration, job func() error) error {
	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(interval).SingletonMode().Do(func() {
		if err := job(); err != nil {
			c.logger.Error("scheduled refresh failed", log.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}

	c.logger.Info("refresh scheduled", log.Duration("every", interval))
	s.StartAsync()
	<-ctx.Done()
	c.logger.Info("received signal, stopping...")
	s.Stop()
	return nil
}

func (c *cli) mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <snapshot>",
		Short: "Merge a registry snapshot file into the registry master",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			svc, err := c.services(ctx)
			if err != nil {
				return err
			}
			defer svc.close()

			reg, err := svc.registry(false)
			if err != nil {
				return err
			}
			started := time.Now()
			res, err := reg.Import(ctx, args[0])
			svc.record(ctx, cmd, args[0], started, 1, res.Snapshot, nil, err)
			if err != nil {
				return err
			}
			c.logger.Info("snapshot merged",
				log.String("path", args[0]),
				log.Int("snapshot", res.Snapshot),
				log.Int("master", res.Merge.Output),
				log.Int("duplicates", res.Merge.Duplicates))
			return nil
		},
	}
}

func (c *cli) enrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Parse legal form and brand names of the registry master",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			svc, err := c.services(ctx)
			if err != nil {
				return err
			}
			defer svc.close()

			reg, err := svc.registry(false)
			if err != nil {
				return err
			}
			stats, err := reg.EnrichMaster(ctx)
			if err != nil {
				return err
			}
			c.logger.Info("registry enriched",
				log.Int("candidates", stats.Candidates),
				log.Int("parsed", stats.Parsed),
				log.Int("failed", stats.Failed))
			return nil
		},
	}
	cmd.Flags().BoolVar(&c.cfg.ForceEnrich, "force", c.cfg.ForceEnrich, "reparse rows that already have a legal form or brand")
	return cmd
}

func (c *cli) reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Write irregularity reports of the registry master",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			svc, err := c.services(ctx)
			if err != nil {
				return err
			}
			defer svc.close()

			reg, err := svc.registry(false)
			if err != nil {
				return err
			}
			lines, err := reg.ReportMaster(ctx)
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %8d / %-8d %6.2f%%\n", l.Name, l.Count, l.Total, l.Percent())
			}
			return nil
		},
	}
}

func (c *cli) archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <dataset>",
		Short: "Zip the group artifacts of a dataset into <data-dir>/<dataset>.zip",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := domain.LookupSchema(args[0]); err != nil {
				return usageError{err}
			}
			dir := filepath.Join(c.cfg.DataDir, args[0])
			dst := dir + ".zip"
			n, err := fs.ArchiveDir(cmd.Context(), dir, dst)
			if err != nil {
				return err
			}
			c.logger.Info("dataset archived",
				log.String("dataset", args[0]),
				log.String("path", dst),
				log.Int("files", n))
			return nil
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Import registry snapshots dropped into the inbox directory",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			svc, err := c.services(ctx)
			if err != nil {
				return err
			}
			defer svc.close()

			reg, err := svc.registry(false)
			if err != nil {
				return err
			}

			watcher := inboxwatcher.New(inboxwatcher.DefaultConfig(c.cfg.InboxDir), reg, c.logger)
			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("start inbox watcher: %w", err)
			}

			var srv *http.Server
			if c.cfg.MetricsAddr != "" {
				srv = &http.Server{
					Addr:              c.cfg.MetricsAddr,
					Handler:           c.router(svc),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						c.logger.Error("metrics server", log.Err(err))
						cancel()
					}
				}()
				c.logger.Info("serving metrics", log.String("addr", c.cfg.MetricsAddr))
			}

			<-ctx.Done()
			c.logger.Info("received signal, stopping...")

			shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
			defer done()
			if srv != nil {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					c.logger.Warn("stop metrics server", log.Err(err))
				}
			}
			return watcher.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&c.cfg.InboxDir, "inbox-dir", c.cfg.InboxDir, "directory watched for snapshot files (default: <data-dir>/inbox)")
	cmd.Flags().StringVar(&c.cfg.MetricsAddr, "metrics-addr", c.cfg.MetricsAddr, "serve /metrics and /healthz on this address (optional)")
	return cmd
}

func (c *cli) router(svc *services) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", svc.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(svc.cfg.InboxDir); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return r
}

var _ inboxwatcher.Importer = (*app.Registry)(nil)
