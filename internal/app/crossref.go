package app

import (
	"fmt"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/pkg/log"
)

// CrossRef joins the entry list of a primary record with secondary records
// sharing a join field.
type CrossRef struct {
	EntriesField string
	JoinField    string
	Logger       log.Logger
}

// Merge returns a copy of primary whose entries are unioned with the
// secondary record of the same join value. Secondary values win on
// collisions; entries without a match are kept unchanged and entries
// without a join value are dropped. primary is not modified.
func (c CrossRef) Merge(primary domain.Record, secondary []domain.Record) (domain.Record, error) {
	logger := c.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	raw, ok := primary[c.EntriesField]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: field %q", domain.ErrMissingEntryList, c.EntriesField)
	}
	entries, ok := domain.AsRecords(raw)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is %T", domain.ErrMissingEntryList, c.EntriesField, raw)
	}

	lookup := make(map[string]domain.Record, len(secondary))
	for _, s := range secondary {
		if k, ok := s.Text(c.JoinField); ok {
			lookup[k] = s
		}
	}

	merged := make([]domain.Record, 0, len(entries))
	for i, e := range entries {
		k, ok := e.Text(c.JoinField)
		if !ok {
			logger.Warn("dropping entry without join field",
				log.String("field", c.JoinField), log.Int("index", i))
			continue
		}
		out := e.Clone()
		if s, found := lookup[k]; found {
			for f, v := range s {
				out[f] = v
			}
		}
		merged = append(merged, out)
	}

	result := primary.Clone()
	result[c.EntriesField] = merged
	return result, nil
}
