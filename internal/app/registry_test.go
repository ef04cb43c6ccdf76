package app

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/ports"
)

func newTestRegistry(f *fakeFetcher, s *memStore) *Registry {
	enricher := NewEnricher(EnrichConfig{Workers: 2}, func() (ports.NameParser, error) { return splitParser{}, nil })
	return NewRegistry(dataDir, f, s, enricher, NewReporter(dataDir, s))
}

func TestRegistry_RefreshColdStart(t *testing.T) {
	f := newFakeFetcher()
	f.set(ports.DomainRegistry, "13",
		domain.Record{"corporate_number": "1", "update_date": "2024-01-10", "name": "株式会社|トヨタ", "kind": "301"},
		domain.Record{"corporate_number": "2", "update_date": "2024-01-11", "name": "市役所", "kind": "201"},
		domain.Record{"name": "no number"},
	)
	s := newMemStore()
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	res, err := newTestRegistry(f, s).Refresh(context.Background(), "13", now)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Snapshot)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, 2, res.Enrich.Parsed)

	snap := s.get(SnapshotPath(dataDir, now))
	require.NotNil(t, snap)
	assert.Len(t, snap.Rows, 2)

	master := s.get(MasterPath(dataDir, domain.DatasetRegistry))
	require.NotNil(t, master)
	for _, f := range domain.RegistryEnrichmentFields {
		_, ok := master.Schema.Field(f.Name)
		assert.True(t, ok, "missing %s", f.Name)
	}
	assert.Equal(t, "株式会社", master.Rows[0][domain.FieldLegalForm])
	assert.Equal(t, "トヨタ", master.Rows[0][domain.FieldBrandKana])

	require.Len(t, res.Report, 3)
	byName := map[string]ReportLine{}
	for _, l := range res.Report {
		byName[l.Name] = l
	}
	assert.Equal(t, 0, byName[ReportIrregularLegalForm].Count, "kind 201 is exempt")
	assert.Equal(t, 1, byName[ReportIrregularFurigana].Count)
	assert.NotNil(t, s.get(ReportPath(dataDir, ReportIrregularFurigana)))
}

func TestRegistry_RefreshKeepsHistory(t *testing.T) {
	f := newFakeFetcher()
	s := newMemStore()
	reg := newTestRegistry(f, s)
	ctx := context.Background()

	f.set(ports.DomainRegistry, "13", domain.Record{"corporate_number": "1", "update_date": "2024-01-10", "name": "|旧"})
	_, err := reg.Refresh(ctx, "13", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	f.set(ports.DomainRegistry, "13",
		domain.Record{"corporate_number": "1", "update_date": "2024-02-03", "name": "|新"},
		domain.Record{"corporate_number": "1", "update_date": "2024-01-10", "name": "|旧"},
	)
	res, err := reg.Refresh(ctx, "13", time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Merge.Duplicates)
	assert.Equal(t, 1, res.Merge.Entities)

	master := s.get(MasterPath(dataDir, domain.DatasetRegistry))
	require.Len(t, master.Rows, 2)
	assert.Equal(t, "|新", master.Rows[0]["name"])
	assert.Equal(t, true, master.Rows[0][domain.LatestField])
	assert.Equal(t, false, master.Rows[1][domain.LatestField])
	assert.Equal(t, "旧", master.Rows[1][domain.FieldBrandName], "enrichment of the older row is kept")
}

func TestRegistry_RefreshNothingValid(t *testing.T) {
	f := newFakeFetcher()
	f.set(ports.DomainRegistry, "13", domain.Record{"name": "x"})
	_, err := newTestRegistry(f, newMemStore()).Refresh(context.Background(), "13", time.Now())
	assert.ErrorIs(t, err, domain.ErrNoSuccessfulKeys)
}

func TestRegistry_Import(t *testing.T) {
	s := newMemStore()
	s.files["/inbox/snap.parquet"] = &domain.Dataset{
		Schema: domain.RegistrySchema,
		Rows:   []domain.Record{{"corporate_number": "9", "update_date": "2024-03-01", "name": "|アイ", domain.LatestField: false}},
	}
	reg := newTestRegistry(newFakeFetcher(), s)

	res, err := reg.Import(context.Background(), "/inbox/snap.parquet")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Snapshot)
	master := s.get(MasterPath(dataDir, domain.DatasetRegistry))
	require.NotNil(t, master)
	assert.Equal(t, true, master.Rows[0][domain.LatestField])

	_, err = reg.Import(context.Background(), "/inbox/missing.parquet")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRegistry_EnrichAndReportMaster(t *testing.T) {
	s := newMemStore()
	reg := newTestRegistry(newFakeFetcher(), s)
	ctx := context.Background()

	_, err := reg.EnrichMaster(ctx)
	assert.ErrorIs(t, err, os.ErrNotExist)

	s.files[MasterPath(dataDir, domain.DatasetRegistry)] = &domain.Dataset{
		Schema: domain.RegistrySchema,
		Rows:   []domain.Record{{"corporate_number": "1", "name": "有限会社|漢字", "kind": "301", domain.LatestField: true}},
	}
	stats, err := reg.EnrichMaster(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Parsed)

	lines, err := reg.ReportMaster(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, 1, lines[2].Count)
	assert.Equal(t, 100.0, lines[2].Percent())
}
