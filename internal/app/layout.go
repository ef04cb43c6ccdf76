package app

import (
	"path/filepath"
	"time"

	"github.com/bft-labs/snapmerge/internal/domain"
)

// Artifact layout under the data directory.
const (
	ReportsDir     = "reports"
	artifactSuffix = ".parquet"
)

// GroupPath is the per-group artifact of a dataset.
func GroupPath(dataDir, dataset, prefix string) string {
	return filepath.Join(dataDir, dataset, prefix+artifactSuffix)
}

// MasterPath is the master artifact of a dataset.
func MasterPath(dataDir, dataset string) string {
	return filepath.Join(dataDir, dataset+"_master"+artifactSuffix)
}

// SnapshotPath is the registry snapshot of the month containing t.
func SnapshotPath(dataDir string, t time.Time) string {
	return filepath.Join(dataDir, domain.DatasetRegistry, "snapshot_"+t.Format("200601")+artifactSuffix)
}

// ReportPath is a report artifact.
func ReportPath(dataDir, name string) string {
	return filepath.Join(dataDir, ReportsDir, name+artifactSuffix)
}
