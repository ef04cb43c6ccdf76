package ports

import (
	"context"

	"github.com/bft-labs/snapmerge/internal/domain"
)

// Fetch domains.
const (
	DomainResult   = "result"   // primary race record with its entry list
	DomainOdds     = "odds"     // secondary per-entry odds
	DomainHorse    = "horse"    // per-horse detail with its race history
	DomainRegistry = "registry" // corporate registry snapshot by prefecture
)

// Fetcher retrieves the records of one domain for one key.
//
// Implementations return an error wrapping domain.ErrFetch for transport and
// decode failures. An empty slice with a nil error means the source knows
// the key but has nothing for it.
type Fetcher interface {
	Fetch(ctx context.Context, domain, key string) ([]domain.Record, error)
}

// PeriodLister lists every key belonging to a year and month.
type PeriodLister interface {
	ListKeysForPeriod(ctx context.Context, year, month string) ([]string, error)
}
