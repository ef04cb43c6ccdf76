package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bft-labs/snapmerge/internal/domain"
)

const statusFileName = "run-status.json"

// RunStatusFile implements ports.RunStatusRepository using a JSON file.
type RunStatusFile struct {
	dir string
}

// NewRunStatusFile creates a RunStatusFile stored in dir.
func NewRunStatusFile(dir string) *RunStatusFile {
	return &RunStatusFile{dir: dir}
}

// Load retrieves the last saved run summary.
// Returns an empty status and nil error if no file exists.
func (r *RunStatusFile) Load(ctx context.Context) (domain.RunStatus, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.RunStatus{}, nil
		}
		return domain.RunStatus{}, fmt.Errorf("read run status: %w", err)
	}

	var status domain.RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.RunStatus{}, fmt.Errorf("decode run status: %w", err)
	}
	return status, nil
}

// Save writes the run summary to a temp file and renames it into place.
func (r *RunStatusFile) Save(ctx context.Context, status domain.RunStatus) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run status: %w", err)
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write run status: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace run status: %w", err)
	}
	return nil
}

// Path returns the full path to the status file.
func (r *RunStatusFile) Path() string {
	return filepath.Join(r.dir, statusFileName)
}
