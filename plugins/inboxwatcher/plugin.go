// Package inboxwatcher imports registry snapshots dropped into an inbox
// directory. New *.parquet files are debounced, merged into the master
// through an Importer and moved to the processed/ subdirectory.
package inboxwatcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/snapmerge/internal/app"
	"github.com/bft-labs/snapmerge/pkg/log"
)

// ProcessedDir is the inbox subdirectory imported files are moved to.
const ProcessedDir = "processed"

// Importer merges one snapshot file.
type Importer interface {
	Import(ctx context.Context, path string) (app.RegistryResult, error)
}

// Config holds configuration options for the inbox watcher.
type Config struct {
	// Dir is the watched inbox directory.
	Dir string

	// DebounceDelay is the quiet period after the last write before a file is imported.
	// Default: 500 milliseconds
	DebounceDelay time.Duration

	// RetryInitial and RetryMax bound the backoff between failed imports.
	// Default: 1 second and 1 minute
	RetryInitial time.Duration
	RetryMax     time.Duration

	// MaxAttempts caps imports of a single file. Zero retries until shutdown.
	MaxAttempts int
}

// DefaultConfig returns a Config with the default timings for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:           dir,
		DebounceDelay: 500 * time.Millisecond,
		RetryInitial:  time.Second,
		RetryMax:      time.Minute,
		MaxAttempts:   5,
	}
}

// Plugin watches the inbox directory.
type Plugin struct {
	mu sync.Mutex

	cfg      Config
	importer Importer
	logger   log.Logger

	pending map[string]*time.Timer
	work    chan string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an inbox watcher. A nil logger discards output.
func New(cfg Config, importer Importer, logger log.Logger) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 500 * time.Millisecond
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = time.Second
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = time.Minute
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Plugin{
		cfg:      cfg,
		importer: importer,
		logger:   logger.With(log.Component("inboxwatcher")),
		pending:  make(map[string]*time.Timer),
		work:     make(chan string, 64),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "inboxwatcher"
}

// Start creates the inbox, queues files already present and begins watching.
func (p *Plugin) Start(ctx context.Context) error {
	if p.cfg.Dir == "" {
		return errors.New("inbox dir is required")
	}
	if err := os.MkdirAll(filepath.Join(p.cfg.Dir, ProcessedDir), 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(p.cfg.Dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", p.cfg.Dir, err)
	}

	existing, err := p.scan()
	if err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(2)
	go p.processLoop(watchCtx)
	go p.watchLoop(watchCtx, watcher)

	for _, path := range existing {
		p.schedule(watchCtx, path, 0)
	}

	p.logger.Info("inbox watcher started",
		log.String("dir", p.cfg.Dir),
		log.Int("existing", len(existing)))
	return nil
}

// Shutdown stops watching and waits for an in-flight import to finish.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Lock()
	for path, t := range p.pending {
		t.Stop()
		delete(p.pending, path)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Plugin) scan() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSnapshot(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(p.cfg.Dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isSnapshot(filepath.Base(event.Name)) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.schedule(ctx, event.Name, p.cfg.DebounceDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("watcher error", log.Err(err))
		}
	}
}

// schedule queues path after delay, restarting the timer on every new event.
func (p *Plugin) schedule(ctx context.Context, path string, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.pending[path]; ok {
		t.Stop()
	}
	p.pending[path] = time.AfterFunc(delay, func() {
		p.mu.Lock()
		delete(p.pending, path)
		p.mu.Unlock()

		select {
		case p.work <- path:
		case <-ctx.Done():
		}
	})
}

// processLoop imports queued files one at a time so master writes never overlap.
func (p *Plugin) processLoop(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case path := <-p.work:
			p.importWithRetry(ctx, path)
		}
	}
}

func (p *Plugin) importWithRetry(ctx context.Context, path string) {
	backoff := app.NewBackoff(p.cfg.RetryInitial, p.cfg.RetryMax)

	for attempt := 1; ; attempt++ {
		res, err := p.importer.Import(ctx, path)
		if err == nil {
			p.logger.Info("snapshot imported",
				log.String("path", path),
				log.Int("rows", res.Snapshot),
				log.Int("appended", res.Merge.Output-res.Merge.Base),
				log.Int("attempts", attempt))
			p.markProcessed(path)
			return
		}
		if errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("snapshot vanished before import", log.String("path", path))
			return
		}
		if ctx.Err() != nil {
			return
		}
		if p.cfg.MaxAttempts > 0 && attempt >= p.cfg.MaxAttempts {
			p.logger.Error("snapshot import abandoned",
				log.String("path", path),
				log.Int("attempts", attempt),
				log.Err(err))
			return
		}

		p.logger.Warn("snapshot import failed",
			log.String("path", path),
			log.Int("attempt", attempt),
			log.Duration("retry_in", backoff.Current()),
			log.Err(err))
		if backoff.Wait(ctx) != nil {
			return
		}
	}
}

func (p *Plugin) markProcessed(path string) {
	dst := filepath.Join(p.cfg.Dir, ProcessedDir, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		p.logger.Error("move imported snapshot",
			log.String("path", path),
			log.Err(err))
	}
}

// isSnapshot reports whether name is a parquet file, ignoring hidden and temp files.
func isSnapshot(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, ".parquet")
}
