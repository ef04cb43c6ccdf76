package app

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/kana"
	"github.com/bft-labs/snapmerge/internal/ports"
	"github.com/bft-labs/snapmerge/pkg/log"
)

const (
	nameField     = "name"
	furiganaField = "furigana"
)

// Reliability values of brand_kana.
const (
	ReliabilitySource int64 = 0 // taken from the source reading or the brand spelling
	ReliabilityParser int64 = 1 // guessed by the name parser
)

// EnrichConfig configures an Enricher.
type EnrichConfig struct {
	// Workers is the number of parsing goroutines; zero means GOMAXPROCS.
	Workers int

	// Force reparses rows that already carry a legal form or brand name.
	Force bool
}

// EnrichStats summarises one Enrich call.
type EnrichStats struct {
	Candidates int
	Parsed     int
	Failed     int
}

// Enricher splits corporate names into legal form, brand name and brand
// reading.
type Enricher struct {
	cfg     EnrichConfig
	factory ports.NameParserFactory
	deps
}

// NewEnricher creates an Enricher. Each worker gets its own parser from
// factory.
func NewEnricher(cfg EnrichConfig, factory ports.NameParserFactory, opts ...Option) *Enricher {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	d := newDeps(opts)
	d.logger = d.logger.With(log.Component("enricher"))
	return &Enricher{cfg: cfg, factory: factory, deps: d}
}

// Enrich fills the enrichment columns of ds in place. Rows are parsed when
// both legal_form and brand_name are null, or always with Force. Rows whose
// name cannot be parsed keep their columns and are counted as failed.
func (e *Enricher) Enrich(ctx context.Context, ds *domain.Dataset) (EnrichStats, error) {
	for _, f := range domain.RegistryEnrichmentFields {
		ds.Schema = ds.Schema.WithField(f)
	}

	var candidates []int
	for i, r := range ds.Rows {
		if e.cfg.Force || (!r.Has(domain.FieldLegalForm) && !r.Has(domain.FieldBrandName)) {
			candidates = append(candidates, i)
		}
	}
	stats := EnrichStats{Candidates: len(candidates)}
	if len(candidates) == 0 {
		return stats, nil
	}

	start := time.Now()
	e.logger.Info("enrichment started",
		log.Int("candidates", len(candidates)),
		log.Int("workers", e.cfg.Workers))

	var parsed, failed, done int64
	progress := newProgress(len(candidates))
	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for _, i := range candidates {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < e.cfg.Workers; w++ {
		g.Go(func() error {
			parser, err := e.factory()
			if err != nil {
				return fmt.Errorf("create name parser: %w", err)
			}
			for i := range jobs {
				row := ds.Rows[i]
				if err := enrichRow(parser, row); err != nil {
					atomic.AddInt64(&failed, 1)
					e.logger.Debug("name not parsed", log.Err(err))
				} else {
					atomic.AddInt64(&parsed, 1)
				}
				if pct, ok := progress.step(atomic.AddInt64(&done, 1)); ok {
					e.logger.Info("enrichment progress", log.Int("percent", pct))
				}
			}
			return nil
		})
	}
	err := g.Wait()

	stats.Parsed = int(parsed)
	stats.Failed = int(failed)
	e.metrics.AddEnrich("parsed", stats.Parsed)
	e.metrics.AddEnrich("failed", stats.Failed)
	if err != nil {
		return stats, err
	}
	e.logger.Info("enrichment finished",
		log.Int("parsed", stats.Parsed),
		log.Int("failed", stats.Failed),
		log.Duration("took", time.Since(start)))
	return stats, nil
}

func enrichRow(parser ports.NameParser, row domain.Record) error {
	name, ok := row.Text(nameField)
	if !ok {
		return fmt.Errorf("%w: row has no name", domain.ErrParse)
	}
	p, err := parser.Parse(name)
	if err != nil {
		return err
	}

	row[domain.FieldLegalForm] = nullIfEmpty(p.LegalForm)
	row[domain.FieldBrandName] = nullIfEmpty(p.BrandName)

	furigana, _ := row.Text(furiganaField)
	switch {
	case furigana != "":
		row[domain.FieldBrandKana] = furigana
		row[domain.FieldReliability] = ReliabilitySource
	case kana.IsKatakana(p.BrandName):
		row[domain.FieldBrandKana] = p.BrandName
		row[domain.FieldReliability] = ReliabilitySource
	case kana.IsHiragana(p.BrandName):
		row[domain.FieldBrandKana] = kana.ToKatakana(p.BrandName)
		row[domain.FieldReliability] = ReliabilitySource
	default:
		row[domain.FieldBrandKana] = nullIfEmpty(p.Kana)
		row[domain.FieldReliability] = ReliabilityParser
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// progress reports each 10% step of a count once.
type progress struct {
	total int64
	last  int64
}

func newProgress(total int) *progress {
	return &progress{total: int64(total)}
}

func (p *progress) step(done int64) (int, bool) {
	if p.total == 0 {
		return 0, false
	}
	tenth := done * 10 / p.total
	for {
		last := atomic.LoadInt64(&p.last)
		if tenth <= last {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(&p.last, last, tenth) {
			return int(tenth * 10), true
		}
	}
}
