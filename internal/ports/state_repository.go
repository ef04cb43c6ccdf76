package ports

import (
	"context"

	"github.com/bft-labs/snapmerge/internal/domain"
)

// RunStatusRepository persists the summary of the last run.
type RunStatusRepository interface {
	// Load retrieves the last saved summary.
	// Returns an empty status and nil error if none exists.
	Load(ctx context.Context) (domain.RunStatus, error)

	// Save persists the summary atomically.
	Save(ctx context.Context, status domain.RunStatus) error
}
