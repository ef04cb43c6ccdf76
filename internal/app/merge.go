package app

import (
	"fmt"

	"github.com/bft-labs/snapmerge/internal/domain"
)

// MergeStats describes one MergeIncremental call.
type MergeStats struct {
	Next       int // rows in the incoming dataset
	Base       int // rows in the prior master
	Output     int // rows after deduplication
	Duplicates int // rows dropped as duplicates
	Entities   int // distinct entity keys
}

// MergeIncremental folds next into base.
//
// Rows of next come first, then rows of base; a row whose entity key and
// version were already seen is dropped, after lending its non-null values
// to the kept row's null fields. The latest column is then recomputed over
// the whole output: for each entity key exactly one row, the one with the
// greatest version, is latest. Ties keep the earlier row. base may be nil.
func MergeIncremental(next domain.Dataset, base *domain.Dataset) (domain.Dataset, MergeStats, error) {
	stats := MergeStats{Next: len(next.Rows), Base: base.Len()}

	schema := next.Schema
	if base != nil {
		var err error
		schema, err = schema.Union(base.Schema)
		if err != nil {
			return domain.Dataset{}, stats, fmt.Errorf("merge %s: %w", next.Schema.Name, err)
		}
	}
	if f, ok := schema.Field(domain.LatestField); ok && f.Type != domain.TypeBool {
		return domain.Dataset{}, stats, fmt.Errorf("merge %s: %w: %s is %s", schema.Name, domain.ErrSchemaMismatch, domain.LatestField, f.Type)
	}
	schema = schema.WithField(domain.Field{Name: domain.LatestField, Type: domain.TypeBool})

	rows := make([]domain.Record, 0, stats.Next+stats.Base)
	seen := make(map[string]int, cap(rows))
	add := func(r domain.Record) {
		id := schema.Identity(r)
		if i, dup := seen[id]; dup {
			fillNulls(rows[i], r)
			stats.Duplicates++
			return
		}
		seen[id] = len(rows)
		rows = append(rows, r.Without(domain.LatestField))
	}
	for _, r := range next.Rows {
		add(r)
	}
	if base != nil {
		for _, r := range base.Rows {
			add(r)
		}
	}

	markLatest(schema, rows)

	stats.Output = len(rows)
	stats.Entities = countEntities(schema, rows)
	return domain.Dataset{Schema: schema, Rows: rows}, stats, nil
}

// fillNulls copies the non-null values of from into the null or missing
// fields of into.
func fillNulls(into, from domain.Record) {
	for k, v := range from {
		if k == domain.LatestField || v == nil {
			continue
		}
		if !into.Has(k) {
			into[k] = v
		}
	}
}

func markLatest(schema domain.Schema, rows []domain.Record) {
	best := make(map[string]int)
	for i, r := range rows {
		key := schema.EntityKey(r)
		j, ok := best[key]
		if !ok || schema.CompareVersion(r, rows[j]) > 0 {
			best[key] = i
		}
	}
	for _, r := range rows {
		r[domain.LatestField] = false
	}
	for _, i := range best {
		rows[i][domain.LatestField] = true
	}
}

func countEntities(schema domain.Schema, rows []domain.Record) int {
	keys := make(map[string]struct{})
	for _, r := range rows {
		keys[schema.EntityKey(r)] = struct{}{}
	}
	return len(keys)
}
