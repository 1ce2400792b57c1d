package engine

import (
	"sync"
	"time"

	"github.com/ksaito/mercari-watcher/internal/metrics"
)

// SeenSet records item IDs that have already been broadcast at least once.
// Entries are only ever added during normal operation, so the set grows for
// the life of the process; optional trimming (Trim) is the only removal
// path. Safe for concurrent use.
type SeenSet struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	nowFunc func() time.Time
}

// SeenSetOption configures the SeenSet.
type SeenSetOption func(*SeenSet)

// WithSeenSetNowFunc overrides the time function for testing.
func WithSeenSetNowFunc(f func() time.Time) SeenSetOption {
	return func(s *SeenSet) {
		s.nowFunc = f
	}
}

// NewSeenSet creates an empty SeenSet.
func NewSeenSet(opts ...SeenSetOption) *SeenSet {
	s := &SeenSet{
		seen:    make(map[string]time.Time),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TestAndAdd records id as seen and reports whether it was absent before
// the call. The test and the insert happen under one lock acquisition, so
// two concurrent callers cannot both claim the same id.
func (s *SeenSet) TestAndAdd(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = s.nowFunc()
	metrics.SeenSetSize.Set(float64(len(s.seen)))
	return true
}

// Contains reports whether id has been recorded.
func (s *SeenSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of recorded IDs.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Trim drops entries recorded before cutoff and returns how many were
// removed. An item dropped here would be re-broadcast if it reappeared
// within the freshness window, so callers keep the cutoff well behind it.
func (s *SeenSet) Trim(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, addedAt := range s.seen {
		if addedAt.Before(cutoff) {
			delete(s.seen, id)
			removed++
		}
	}

	if removed > 0 {
		metrics.SeenSetSize.Set(float64(len(s.seen)))
		metrics.SeenSetTrimmedTotal.Add(float64(removed))
	}
	return removed
}
