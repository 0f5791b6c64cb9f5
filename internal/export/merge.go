package export

import (
	"strings"

	"github.com/alexanderakbik/GarminExport/internal/domain"
)

// Merge combines a freshly enriched record with its previously persisted
// counterpart. The fill is one-directional: every key of previous that is
// missing or blank in fresh is copied in, and a present, non-blank fresh
// value is never overwritten. Neither input is mutated.
func Merge(fresh, previous domain.Record) domain.Record {
	merged := fresh.Clone()
	for key, value := range previous {
		if strings.TrimSpace(merged[key]) == "" {
			merged[key] = value
		}
	}
	return merged
}
