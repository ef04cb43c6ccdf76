package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/ports"
	"github.com/bft-labs/snapmerge/pkg/log"
)

// RegistryResult summarises one registry refresh or import.
type RegistryResult struct {
	Snapshot int // conforming snapshot rows
	Rejected int // rows that failed validation
	Merge    MergeStats
	Enrich   EnrichStats
	Report   []ReportLine
}

// Registry maintains the corporate registry master.
type Registry struct {
	dataDir  string
	fetcher  ports.Fetcher
	store    ports.DatasetStore
	enricher *Enricher
	reporter *Reporter
	deps
}

// NewRegistry creates a Registry. enricher and reporter may be nil to
// skip those steps.
func NewRegistry(dataDir string, fetcher ports.Fetcher, store ports.DatasetStore, enricher *Enricher, reporter *Reporter, opts ...Option) *Registry {
	d := newDeps(opts)
	d.logger = d.logger.With(log.Component("registry"))
	return &Registry{
		dataDir:  dataDir,
		fetcher:  fetcher,
		store:    store,
		enricher: enricher,
		reporter: reporter,
		deps:     d,
	}
}

// Refresh fetches the snapshot of one prefecture, keeps it as the snapshot
// of the month of now and merges it into the master.
func (r *Registry) Refresh(ctx context.Context, prefecture string, now time.Time) (RegistryResult, error) {
	if r.fetcher == nil {
		return RegistryResult{}, errors.New("registry: no source configured")
	}
	recs, err := r.fetcher.Fetch(ctx, ports.DomainRegistry, prefecture)
	if err != nil {
		return RegistryResult{}, err
	}
	snapshot, rejected := r.conform(recs)
	res := RegistryResult{Snapshot: snapshot.Len(), Rejected: rejected}
	if snapshot.Len() == 0 {
		return res, fmt.Errorf("registry %s: %w (%d rejected)", prefecture, domain.ErrNoSuccessfulKeys, rejected)
	}

	// Several prefectures may land in the same month.
	if _, err := mergeInto(ctx, r.store, SnapshotPath(r.dataDir, now), snapshot, r.deps); err != nil {
		return res, err
	}
	r.logger.Info("snapshot saved",
		log.String("prefecture", prefecture),
		log.Int("rows", snapshot.Len()),
		log.Int("rejected", rejected))

	return r.merge(ctx, snapshot, res)
}

// Import merges an existing snapshot file into the master.
func (r *Registry) Import(ctx context.Context, path string) (RegistryResult, error) {
	ds, err := r.store.Load(ctx, path, domain.RegistrySchema)
	if err != nil {
		return RegistryResult{}, err
	}
	if ds == nil {
		return RegistryResult{}, fmt.Errorf("import %s: %w", path, os.ErrNotExist)
	}
	snapshot, rejected := r.conform(ds.Rows)
	res := RegistryResult{Snapshot: snapshot.Len(), Rejected: rejected}
	r.logger.Info("snapshot loaded",
		log.String("path", path),
		log.Int("rows", snapshot.Len()),
		log.Int("rejected", rejected))
	return r.merge(ctx, snapshot, res)
}

func (r *Registry) conform(recs []domain.Record) (*domain.Dataset, int) {
	ds := domain.NewDataset(domain.RegistrySchema)
	rejected := 0
	for _, rec := range recs {
		c, err := domain.RegistrySchema.Conform(rec)
		if err == nil {
			err = ds.Append(c)
		}
		if err != nil {
			rejected++
			r.logger.Debug("registry row rejected", log.Err(err))
		}
	}
	return ds, rejected
}

func (r *Registry) merge(ctx context.Context, next *domain.Dataset, res RegistryResult) (RegistryResult, error) {
	path := MasterPath(r.dataDir, domain.DatasetRegistry)
	base, err := r.store.Load(ctx, path, domain.RegistrySchema)
	if err != nil {
		return res, err
	}
	if base == nil {
		r.logger.Info("registry master not found, starting cold", log.String("path", path))
		coldStart(next)
	}

	merged, stats, err := MergeIncremental(*next, base)
	if err != nil {
		return res, err
	}
	res.Merge = stats
	r.metrics.SetMergeRows(domain.DatasetRegistry, "next", stats.Next)
	r.metrics.SetMergeRows(domain.DatasetRegistry, "base", stats.Base)
	r.metrics.SetMergeRows(domain.DatasetRegistry, "output", stats.Output)

	if r.enricher != nil {
		res.Enrich, err = r.enricher.Enrich(ctx, &merged)
		if err != nil {
			return res, err
		}
	}
	if err := r.store.Save(ctx, path, &merged); err != nil {
		return res, err
	}
	r.logger.Info("registry master saved",
		log.Int("rows", stats.Output),
		log.Int("entities", stats.Entities),
		log.Int("duplicates", stats.Duplicates))

	if r.sink != nil {
		if err := r.sink.Write(ctx, next); err != nil {
			r.logger.Error("export failed", log.String("dataset", domain.DatasetRegistry), log.Err(err))
		}
	}
	if r.reporter != nil {
		res.Report, err = r.reporter.Report(ctx, &merged)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// coldStart declares the enrichment columns on a first snapshot. Every row
// starts with a null legal form, brand and reading and a reliability of 0.
func coldStart(ds *domain.Dataset) {
	for _, f := range domain.RegistryEnrichmentFields {
		ds.Schema = ds.Schema.WithField(f)
	}
	for _, row := range ds.Rows {
		row[domain.FieldReliability] = ReliabilitySource
	}
}

// Master loads the registry master; it is nil before the first merge.
func (r *Registry) Master(ctx context.Context) (*domain.Dataset, error) {
	return r.store.Load(ctx, MasterPath(r.dataDir, domain.DatasetRegistry), domain.RegistrySchema)
}

// EnrichMaster runs the enricher over the saved master and saves it back.
func (r *Registry) EnrichMaster(ctx context.Context) (EnrichStats, error) {
	if r.enricher == nil {
		return EnrichStats{}, fmt.Errorf("enrich: no enricher configured")
	}
	master, err := r.Master(ctx)
	if err != nil {
		return EnrichStats{}, err
	}
	if master == nil {
		return EnrichStats{}, fmt.Errorf("enrich: %w: %s", os.ErrNotExist, MasterPath(r.dataDir, domain.DatasetRegistry))
	}
	stats, err := r.enricher.Enrich(ctx, master)
	if err != nil {
		return stats, err
	}
	return stats, r.store.Save(ctx, MasterPath(r.dataDir, domain.DatasetRegistry), master)
}

// ReportMaster writes the irregularity reports of the saved master.
func (r *Registry) ReportMaster(ctx context.Context) ([]ReportLine, error) {
	if r.reporter == nil {
		return nil, fmt.Errorf("report: no reporter configured")
	}
	master, err := r.Master(ctx)
	if err != nil {
		return nil, err
	}
	if master == nil {
		return nil, fmt.Errorf("report: %w: %s", os.ErrNotExist, MasterPath(r.dataDir, domain.DatasetRegistry))
	}
	return r.reporter.Report(ctx, master)
}
