package engine

import (
	"time"

	domain "github.com/ksaito/mercari-watcher/pkg/types"
)

// FilterOptions controls one FilterNew pass. Threshold is precomputed by
// the caller; the filter itself never reads the clock.
type FilterOptions struct {
	// Threshold is the freshness cutoff: items updated at or after it pass.
	Threshold time.Time

	// ExcludeTrading drops items in an active transaction.
	ExcludeTrading bool

	// Seen, when non-nil, enables broadcast-mode deduplication: items
	// already in the set are dropped, and every accepted item is inserted
	// atomically with its acceptance. Interactive requests pass nil so a
	// user re-asking for a window always gets the full window's results.
	Seen *SeenSet
}

// FilterNew returns the subset of items considered new under opts,
// preserving input order. The search API hands back results newest first
// and the filter never reorders them.
func FilterNew(items []domain.Item, opts FilterOptions) []domain.Item {
	fresh := make([]domain.Item, 0, len(items))

	for i := range items {
		item := &items[i]

		if item.UpdatedAt.Before(opts.Threshold) {
			continue
		}
		if opts.ExcludeTrading && item.Trading() {
			continue
		}

		// Insertion happens at filtering time, not after the batch, so a
		// fetch interrupted partway does not re-notify the items it
		// already accepted.
		if opts.Seen != nil && !opts.Seen.TestAndAdd(item.ID) {
			continue
		}

		fresh = append(fresh, *item)
	}

	return fresh
}
