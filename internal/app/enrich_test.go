package app

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/ports"
)

// splitParser treats the text before "|" as the legal form.
type splitParser struct{}

func (splitParser) Parse(name string) (ports.ParsedName, error) {
	if name == "bad" {
		return ports.ParsedName{}, domain.ErrParse
	}
	form, brand, ok := strings.Cut(name, "|")
	if !ok {
		return ports.ParsedName{BrandName: name, Kana: "GUESS"}, nil
	}
	return ports.ParsedName{LegalForm: form, BrandName: brand, Kana: "GUESS"}, nil
}

func registryRows(rows ...domain.Record) *domain.Dataset {
	return &domain.Dataset{Schema: domain.RegistrySchema, Rows: rows}
}

func TestEnricher_Enrich(t *testing.T) {
	var created int32
	factory := func() (ports.NameParser, error) {
		atomic.AddInt32(&created, 1)
		return splitParser{}, nil
	}
	e := NewEnricher(EnrichConfig{Workers: 3}, factory)

	ds := registryRows(
		domain.Record{"name": "株式会社|漢字", "furigana": "カンジ"},
		domain.Record{"name": "株式会社|トヨタ"},
		domain.Record{"name": "|さくら"},
		domain.Record{"name": "株式会社|漢字"},
		domain.Record{"name": "bad"},
		domain.Record{"name": "x|y", domain.FieldLegalForm: "kept", domain.FieldBrandName: "kept"},
	)

	stats, err := e.Enrich(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, EnrichStats{Candidates: 5, Parsed: 4, Failed: 1}, stats)
	assert.Equal(t, int32(3), atomic.LoadInt32(&created))

	tests := []struct {
		row         int
		legalForm   any
		brandKana   any
		reliability any
	}{
		{0, "株式会社", "カンジ", ReliabilitySource},
		{1, "株式会社", "トヨタ", ReliabilitySource},
		{2, nil, "サクラ", ReliabilitySource},
		{3, "株式会社", "GUESS", ReliabilityParser},
		{4, nil, nil, nil},
	}
	for _, tt := range tests {
		r := ds.Rows[tt.row]
		assert.Equal(t, tt.legalForm, r[domain.FieldLegalForm], "row %d legal_form", tt.row)
		assert.Equal(t, tt.brandKana, r[domain.FieldBrandKana], "row %d brand_kana", tt.row)
		assert.Equal(t, tt.reliability, r[domain.FieldReliability], "row %d reliability", tt.row)
	}
	assert.Equal(t, "kept", ds.Rows[5][domain.FieldLegalForm])

	_, ok := ds.Schema.Field(domain.FieldReliability)
	assert.True(t, ok)
}

func TestEnricher_Force(t *testing.T) {
	e := NewEnricher(EnrichConfig{Workers: 1, Force: true}, func() (ports.NameParser, error) { return splitParser{}, nil })
	ds := registryRows(domain.Record{"name": "A|B", domain.FieldLegalForm: "old", domain.FieldBrandName: "old"})

	stats, err := e.Enrich(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Parsed)
	assert.Equal(t, "A", ds.Rows[0][domain.FieldLegalForm])
}

func TestEnricher_FactoryError(t *testing.T) {
	e := NewEnricher(EnrichConfig{Workers: 2}, func() (ports.NameParser, error) { return nil, errors.New("no dictionary") })
	_, err := e.Enrich(context.Background(), registryRows(domain.Record{"name": "a"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dictionary")
}

func TestProgress(t *testing.T) {
	p := newProgress(20)
	var steps []int
	for i := int64(1); i <= 20; i++ {
		if pct, ok := p.step(i); ok {
			steps = append(steps, pct)
		}
	}
	assert.Equal(t, []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, steps)
}
