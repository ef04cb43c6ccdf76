package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/ports"
	"github.com/bft-labs/snapmerge/pkg/log"
)

// Payload fields of the race source.
const (
	entriesField = "entry"
	historyField = "history"
	joinField    = "id"
	raceIDField  = "race_id"
	horseIDField = "horse_id"
)

// raceKinds is the order in which race datasets are built and logged.
var raceKinds = []domain.Schema{
	domain.RaceSchema,
	domain.EntrySchema,
	domain.OddsSchema,
	domain.HorseSchema,
	domain.HistorySchema,
}

// CollectorConfig configures a Collector.
type CollectorConfig struct {
	DataDir string

	// RefreshDetails refetches horses already in the horse master.
	RefreshDetails bool
}

// Collector fetches race keys and merges them into the group and master
// artifacts of each race dataset.
type Collector struct {
	cfg      CollectorConfig
	fetcher  ports.Fetcher
	expander *Expander
	store    ports.DatasetStore
	races    *Pool
	details  *Pool
	crossref CrossRef
	deps
}

// CollectResult summarises one Collect call.
type CollectResult struct {
	Keys      int
	Groups    int
	Successes int
	Failures  []domain.Failure
	Merges    map[string]MergeStats // master merge stats by dataset
}

// NewCollector creates a Collector. races bounds concurrent race keys and
// details bounds concurrent horse fetches across all of them.
func NewCollector(cfg CollectorConfig, fetcher ports.Fetcher, expander *Expander, store ports.DatasetStore, races, details *Pool, opts ...Option) *Collector {
	d := newDeps(opts)
	d.logger = d.logger.With(log.Component("collector"))
	return &Collector{
		cfg:      cfg,
		fetcher:  fetcher,
		expander: expander,
		store:    store,
		races:    races,
		details:  details,
		crossref: CrossRef{EntriesField: entriesField, JoinField: joinField, Logger: d.logger},
		deps:     d,
	}
}

// raceOutput is what one race key contributes.
type raceOutput struct {
	rows     map[string][]domain.Record
	failures []domain.Failure
}

// Collect expands id, fetches every key and merges the results group by
// group. Keys that fail are reported in the result. A group without any
// successful key contributes ErrNoSuccessfulKeys to the returned error and
// the run continues; a store failure stops the run.
func (c *Collector) Collect(ctx context.Context, id string) (CollectResult, error) {
	res := CollectResult{Merges: make(map[string]MergeStats)}

	keys, err := c.expander.Expand(ctx, id)
	if err != nil {
		return res, err
	}
	groups := GroupKeys(keys, c.logger)
	res.Keys = groups.Total()
	c.logger.Info("collect started",
		log.String("id", id),
		log.Int("keys", res.Keys),
		log.Int("groups", groups.Len()))

	known := map[string]struct{}{}
	if !c.cfg.RefreshDetails {
		master, err := c.store.Load(ctx, MasterPath(c.cfg.DataDir, domain.DatasetHorse), domain.HorseSchema)
		if err != nil {
			return res, fmt.Errorf("load horse master: %w", err)
		}
		known = master.EntityKeys()
	}
	seen := newKeySet(known)

	var groupErrs []error
	for _, prefix := range groups.Keys() {
		start := time.Now()
		out, err := c.collectGroup(ctx, prefix, groups.Get(prefix), seen)
		res.Groups++
		res.Successes += out.successes
		res.Failures = append(res.Failures, out.failures...)
		for name, st := range out.merges {
			res.Merges[name] = st
		}
		if err != nil {
			if errors.Is(err, domain.ErrNoSuccessfulKeys) {
				c.logger.Warn("group produced no rows", log.String("group", prefix), log.Err(err))
				groupErrs = append(groupErrs, err)
				continue
			}
			return res, err
		}
		c.logger.Info("group merged",
			log.String("group", prefix),
			log.Int("successes", out.successes),
			log.Int("failures", len(out.failures)),
			log.Duration("took", time.Since(start)))
	}

	c.logger.Info("collect finished",
		log.String("id", id),
		log.Int("successes", res.Successes),
		log.Int("failures", len(res.Failures)))
	return res, errors.Join(groupErrs...)
}

type groupOutput struct {
	successes int
	failures  []domain.Failure
	merges    map[string]MergeStats
}

func (c *Collector) collectGroup(ctx context.Context, prefix string, ids []string, seen *keySet) (groupOutput, error) {
	out := groupOutput{merges: make(map[string]MergeStats)}

	res := RunPool(ctx, c.races, ids, func(ctx context.Context, key string) (raceOutput, error) {
		return c.collectRace(ctx, key, seen)
	})
	out.successes = len(res.Values)
	for _, f := range res.Failures {
		if f.Domain == c.races.Name() {
			f.Domain = ports.DomainResult
		}
		out.failures = append(out.failures, f)
	}
	for _, v := range res.Values {
		out.failures = append(out.failures, v.failures...)
	}
	for _, f := range out.failures {
		c.logger.Warn("key failed", log.String("key", f.Key), log.String("domain", f.Domain), log.Err(f.Err))
	}
	if out.successes == 0 {
		return out, fmt.Errorf("group %s: %w (%d keys)", prefix, domain.ErrNoSuccessfulKeys, len(ids))
	}

	datasets := make([]*domain.Dataset, 0, len(raceKinds))
	for _, schema := range raceKinds {
		ds := domain.NewDataset(schema)
		for _, v := range res.Values {
			if err := ds.Append(v.rows[schema.Name]...); err != nil {
				return out, fmt.Errorf("group %s: %w", prefix, err)
			}
		}
		if ds.Len() > 0 {
			datasets = append(datasets, ds)
		}
	}

	stats := make([]MergeStats, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	for i, ds := range datasets {
		g.Go(func() error {
			st, err := c.persist(gctx, prefix, ds)
			stats[i] = st
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	for i, ds := range datasets {
		out.merges[ds.Schema.Name] = stats[i]
	}

	if c.sink != nil {
		for _, ds := range datasets {
			if err := c.sink.Write(ctx, ds); err != nil {
				c.logger.Error("export failed", log.String("dataset", ds.Schema.Name), log.Err(err))
			}
		}
	}
	return out, nil
}

// persist folds ds into its master and then into its group artifact. A
// failed master save leaves both files untouched.
func (c *Collector) persist(ctx context.Context, prefix string, ds *domain.Dataset) (MergeStats, error) {
	name := ds.Schema.Name
	stats, err := mergeInto(ctx, c.store, MasterPath(c.cfg.DataDir, name), ds, c.deps)
	if err != nil {
		return stats, err
	}
	if _, err := mergeInto(ctx, c.store, GroupPath(c.cfg.DataDir, name, prefix), ds, c.deps); err != nil {
		return stats, err
	}
	return stats, nil
}

// mergeInto merges next into the artifact at path and saves the result.
func mergeInto(ctx context.Context, store ports.DatasetStore, path string, next *domain.Dataset, d deps) (MergeStats, error) {
	base, err := store.Load(ctx, path, next.Schema)
	if err != nil {
		return MergeStats{}, err
	}
	merged, stats, err := MergeIncremental(*next, base)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", path, err)
	}
	if err := store.Save(ctx, path, &merged); err != nil {
		return stats, err
	}

	name := next.Schema.Name
	d.metrics.SetMergeRows(name, "next", stats.Next)
	d.metrics.SetMergeRows(name, "base", stats.Base)
	d.metrics.SetMergeRows(name, "output", stats.Output)
	d.logger.Debug("merged",
		log.String("path", path),
		log.Int("next", stats.Next),
		log.Int("base", stats.Base),
		log.Int("output", stats.Output),
		log.Int("duplicates", stats.Duplicates))
	return stats, nil
}

// collectRace fetches one race with its odds and the details of horses
// not seen before.
func (c *Collector) collectRace(ctx context.Context, key string, seen *keySet) (raceOutput, error) {
	results, err := c.fetcher.Fetch(ctx, ports.DomainResult, key)
	if err != nil {
		return raceOutput{}, err
	}
	if len(results) == 0 {
		return raceOutput{}, &domain.FetchError{Domain: ports.DomainResult, Key: key, Err: errors.New("no records")}
	}

	odds, err := c.fetcher.Fetch(ctx, ports.DomainOdds, key)
	if err != nil {
		c.logger.Warn("odds unavailable", log.String("key", key), log.Err(err))
		odds = nil
	}

	merged, err := c.crossref.Merge(results[0], odds)
	if err != nil {
		return raceOutput{}, fmt.Errorf("race %s: %w", key, err)
	}

	race := merged.Without(entriesField)
	if !race.Has(joinField) {
		race[joinField] = key
	}
	raceID, _ := race.Text(joinField)
	entries, _ := domain.AsRecords(merged[entriesField])

	out := raceOutput{rows: make(map[string][]domain.Record)}
	if err := out.add(domain.RaceSchema, race); err != nil {
		return raceOutput{}, err
	}

	var candidates []string
	for _, e := range entries {
		e = e.Clone()
		e[raceIDField] = raceID
		if err := out.add(domain.EntrySchema, e); err != nil {
			return raceOutput{}, err
		}
		if hid, ok := e.Text(horseIDField); ok {
			candidates = append(candidates, hid)
		}
	}
	for _, o := range odds {
		o = o.Clone()
		if !o.Has(raceIDField) {
			o[raceIDField] = raceID
		}
		if err := out.add(domain.OddsSchema, o); err != nil {
			return raceOutput{}, err
		}
	}

	// Claim only once every row of the race conformed, so a failed race
	// leaves its horses to the siblings that list them.
	var horseIDs []string
	for _, hid := range candidates {
		if seen.claim(hid) {
			horseIDs = append(horseIDs, hid)
		}
	}

	details := RunPool(ctx, c.details, horseIDs, func(ctx context.Context, hid string) (raceOutput, error) {
		return c.collectHorse(ctx, hid)
	})
	for _, d := range details.Values {
		for name, rows := range d.rows {
			out.rows[name] = append(out.rows[name], rows...)
		}
	}
	for _, f := range details.Failures {
		seen.release(f.Key)
		if f.Domain == c.details.Name() {
			f.Domain = ports.DomainHorse
		}
		out.failures = append(out.failures, f)
	}
	return out, nil
}

func (c *Collector) collectHorse(ctx context.Context, hid string) (raceOutput, error) {
	recs, err := c.fetcher.Fetch(ctx, ports.DomainHorse, hid)
	if err != nil {
		return raceOutput{}, err
	}
	if len(recs) == 0 {
		return raceOutput{}, &domain.FetchError{Domain: ports.DomainHorse, Key: hid, Err: errors.New("no records")}
	}

	horse := recs[0].Without(historyField)
	if !horse.Has(joinField) {
		horse[joinField] = hid
	}
	out := raceOutput{rows: make(map[string][]domain.Record)}
	if err := out.add(domain.HorseSchema, horse); err != nil {
		return raceOutput{}, err
	}

	history, _ := domain.AsRecords(recs[0][historyField])
	for _, h := range history {
		h = h.Clone()
		h[horseIDField] = hid
		if err := out.add(domain.HistorySchema, h); err != nil {
			return raceOutput{}, err
		}
	}
	return out, nil
}

func (o *raceOutput) add(schema domain.Schema, rec domain.Record) error {
	conformed, err := schema.Conform(rec)
	if err != nil {
		return err
	}
	o.rows[schema.Name] = append(o.rows[schema.Name], conformed)
	return nil
}
