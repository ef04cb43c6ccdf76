package ports

import (
	"context"

	"github.com/bft-labs/snapmerge/internal/domain"
)

// DatasetStore persists datasets.
type DatasetStore interface {
	// Save replaces the dataset at path atomically. On failure the previous
	// content of path is untouched.
	Save(ctx context.Context, path string, ds *domain.Dataset) error

	// Load reads the dataset at path. The declared schema supplies the key
	// and version; column types come from the file.
	// Returns nil and a nil error if nothing exists at path.
	Load(ctx context.Context, path string, schema domain.Schema) (*domain.Dataset, error)
}

// RowSink exports dataset rows to an external table.
type RowSink interface {
	Write(ctx context.Context, ds *domain.Dataset) error
}
