package app

import (
	"context"
	"strings"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/ports"
	"github.com/bft-labs/snapmerge/pkg/log"
)

// Report names.
const (
	ReportIrregularName      = "irregular_name"
	ReportIrregularLegalForm = "irregular_legal_form"
	ReportIrregularFurigana  = "irregular_furigana"
)

const kindField = "kind"

// kindsWithoutLegalForm are registry kinds whose names carry no legal form:
// national agencies, local governments and the "other" buckets.
var kindsWithoutLegalForm = map[string]struct{}{
	"101": {}, "201": {}, "399": {}, "499": {},
}

var reportColumns = []string{
	"corporate_number", "update_date", nameField, furiganaField, kindField,
	domain.FieldLegalForm, domain.FieldBrandName, domain.FieldBrandKana, domain.FieldReliability,
}

// ReportLine is the outcome of one report.
type ReportLine struct {
	Name  string
	Count int
	Total int
}

// Percent returns Count as a share of Total.
func (l ReportLine) Percent() float64 {
	if l.Total == 0 {
		return 0
	}
	return float64(l.Count) * 100 / float64(l.Total)
}

// Reporter writes registry rows that need manual review.
type Reporter struct {
	dataDir string
	store   ports.DatasetStore
	deps
}

// NewReporter creates a Reporter writing below dataDir.
func NewReporter(dataDir string, store ports.DatasetStore, opts ...Option) *Reporter {
	d := newDeps(opts)
	d.logger = d.logger.With(log.Component("reporter"))
	return &Reporter{dataDir: dataDir, store: store, deps: d}
}

// Report examines the latest rows of master and saves one artifact per
// irregularity:
//
//   - irregular_name: the name contains a full-width underscore
//   - irregular_legal_form: no legal form although the kind requires one
//   - irregular_furigana: the reading was guessed by the parser
func (r *Reporter) Report(ctx context.Context, master *domain.Dataset) ([]ReportLine, error) {
	latest := master.Filter(func(rec domain.Record) bool {
		return rec[domain.LatestField] == true
	})
	total := latest.Len()

	checks := []struct {
		name  string
		match func(domain.Record) bool
	}{
		{ReportIrregularName, func(rec domain.Record) bool {
			name, _ := rec.Text(nameField)
			return strings.Contains(name, "＿")
		}},
		{ReportIrregularLegalForm, func(rec domain.Record) bool {
			kind, _ := rec.Text(kindField)
			_, exempt := kindsWithoutLegalForm[kind]
			return !exempt && !rec.Has(domain.FieldLegalForm)
		}},
		{ReportIrregularFurigana, func(rec domain.Record) bool {
			rel, ok := rec[domain.FieldReliability].(int64)
			return ok && rel == ReliabilityParser
		}},
	}

	lines := make([]ReportLine, 0, len(checks))
	for _, c := range checks {
		rows := latest.Filter(c.match).Project(c.name, reportColumns...)
		if err := r.store.Save(ctx, ReportPath(r.dataDir, c.name), rows); err != nil {
			return lines, err
		}
		line := ReportLine{Name: c.name, Count: rows.Len(), Total: total}
		lines = append(lines, line)
		r.logger.Info("report written",
			log.String("report", c.name),
			log.Int("count", line.Count),
			log.Int("total", line.Total),
			log.Float64("percent", line.Percent()))
	}
	return lines, nil
}
