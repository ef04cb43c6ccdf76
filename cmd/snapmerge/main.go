package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/snapmerge/internal/cliconfig"
	"github.com/bft-labs/snapmerge/pkg/log"
)

const helpDescription = `
Collect keyed snapshots from a remote source and merge them into versioned
parquet masters.

Highlights:
  - Expands period ids into race keys, fetches them on bounded pools and
    cross-references results with odds and horse details.
  - Merges every snapshot idempotently; each master keeps a "latest" flag
    per entity.
  - Maintains the corporate registry master with name enrichment and
    irregularity reports, on demand, on a schedule or from an inbox.
  - Configure via file, env (SNAPMERGE_*) or flags.
`

var exampleUsage = strings.TrimSpace(`
  snapmerge collect 2024060501 --source-url https://source.example
  snapmerge registry 13 --every 24h
  snapmerge merge ./snapshot_202406.parquet
  snapmerge watch --metrics-addr :9102
  snapmerge archive race
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries the configuration shared by every subcommand.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	logger  log.Logger
}

func main() {
	c := &cli{
		cfg:    cliconfig.DefaultConfig(),
		logger: log.NewZerologAdapter(log.ParseLevel(cliconfig.DefaultLogLevel)),
	}

	root := &cobra.Command{
		Use:           "snapmerge",
		Short:         "Collect keyed snapshots and merge them into versioned parquet masters",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.snapmerge/config.toml)")
	f.StringVar(&c.cfg.DataDir, "data-dir", c.cfg.DataDir, "directory holding groups, masters and reports")
	f.StringVar(&c.cfg.SourceURL, "source-url", c.cfg.SourceURL, "base URL of the snapshot source")
	f.StringVar(&c.cfg.APIKey, "api-key", c.cfg.APIKey, "API key for the snapshot source")
	f.DurationVar(&c.cfg.HTTPTimeout, "timeout", c.cfg.HTTPTimeout, "HTTP timeout per request")
	f.IntVar(&c.cfg.RetryMax, "retry-max", c.cfg.RetryMax, "retries per request on connection errors and 5xx")
	f.StringVar(&c.cfg.MySQLDSN, "mysql-dsn", c.cfg.MySQLDSN, "export fresh rows to this MySQL database (optional)")
	f.StringVar(&c.cfg.MetricsFile, "metrics-file", c.cfg.MetricsFile, "write prometheus textfile metrics here on exit (optional)")
	f.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")
	f.IntVar(&c.cfg.EnrichWorkers, "enrich-workers", c.cfg.EnrichWorkers, "name parser workers (default: number of CPUs)")

	root.AddCommand(
		c.collectCmd(),
		c.registryCmd(),
		c.mergeCmd(),
		c.enrichCmd(),
		c.reportCmd(),
		c.watchCmd(),
		c.archiveCmd(),
	)

	if err := root.Execute(); err != nil {
		c.logger.Error("snapmerge", log.Err(err))
		os.Exit(exitCode(err))
	}
}

// loadConfig applies defaults, then the config file, then SNAPMERGE_*
// environment variables; explicitly set flags win over both.
func (c *cli) loadConfig(cmd *cobra.Command) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	c.logger = log.NewZerologAdapter(log.ParseLevel(c.cfg.LogLevel))
	c.logger.Debug("configuration", log.Any("config", c.cfg.Redacted()))
	return nil
}

// usageError marks errors caused by bad arguments.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}
