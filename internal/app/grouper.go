package app

import (
	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/pkg/log"
)

// GroupKeys buckets 12-character keys by their group prefix, keeping the
// first-seen order of both groups and keys. Keys of any other length are
// logged and skipped.
func GroupKeys(ids []string, logger log.Logger) *domain.KeyGroups {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	groups := domain.NewKeyGroups()
	for _, id := range ids {
		prefix, ok := domain.GroupPrefix(id)
		if !ok {
			logger.Warn("skipping malformed key", log.String("key", id), log.Int("length", len(id)))
			continue
		}
		groups.Add(prefix, id)
	}
	return groups
}
