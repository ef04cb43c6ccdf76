package app

import (
	"context"
	"fmt"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/ports"
)

// Expander turns a coarse identifier into the granular keys it covers.
type Expander struct {
	lister ports.PeriodLister
}

// NewExpander creates an Expander that resolves periods through lister.
func NewExpander(lister ports.PeriodLister) *Expander {
	return &Expander{lister: lister}
}

// Expand returns the 12-character keys covered by id.
//
// A key expands to itself, a group prefix to its twelve keys in ascending
// order, and a YYYYMM period to whatever the period lister reports.
func (e *Expander) Expand(ctx context.Context, id string) ([]string, error) {
	switch len(id) {
	case domain.KeyIDLen:
		return []string{id}, nil
	case domain.GroupIDLen:
		keys := make([]string, domain.GroupSize)
		for i := range keys {
			keys[i] = fmt.Sprintf("%s%02d", id, i+1)
		}
		return keys, nil
	case domain.PeriodIDLen:
		if e.lister == nil {
			return nil, fmt.Errorf("expand %s: no period lister configured", id)
		}
		keys, err := e.lister.ListKeysForPeriod(ctx, id[:4], id[4:])
		if err != nil {
			return nil, fmt.Errorf("list keys for %s: %w", id, err)
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("%w: period %s", domain.ErrNoKeysFound, id)
		}
		return keys, nil
	default:
		return nil, fmt.Errorf("%w: %q has length %d", domain.ErrInvalidIdentifier, id, len(id))
	}
}
