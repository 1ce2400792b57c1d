package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/ksaito/mercari-watcher/pkg/types"
)

var filterNow = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func itemUpdatedAgo(id string, ago time.Duration) domain.Item {
	return domain.Item{
		ID:        id,
		Name:      "item " + id,
		Price:     1000,
		ItemURL:   "https://jp.mercari.com/item/" + id,
		Status:    domain.StatusOnSale,
		UpdatedAt: filterNow.Add(-ago),
	}
}

func TestFilterNew_Threshold(t *testing.T) {
	t.Parallel()

	threshold := filterNow.Add(-60 * time.Minute)

	tests := []struct {
		name   string
		item   domain.Item
		wantIn bool
	}{
		{name: "inside window", item: itemUpdatedAgo("m1", 30*time.Minute), wantIn: true},
		{name: "exactly at threshold", item: itemUpdatedAgo("m2", 60*time.Minute), wantIn: true},
		{name: "just outside window", item: itemUpdatedAgo("m3", 61*time.Minute), wantIn: false},
		{name: "far outside window", item: itemUpdatedAgo("m4", 24*time.Hour), wantIn: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := FilterNew([]domain.Item{tt.item}, FilterOptions{
				Threshold:      threshold,
				ExcludeTrading: true,
			})
			if tt.wantIn {
				require.Len(t, got, 1)
				assert.Equal(t, tt.item.ID, got[0].ID)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestFilterNew_OverlapMarginScenario(t *testing.T) {
	t.Parallel()

	// 60-minute window plus a 2-minute overlap margin: effective threshold
	// is 62 minutes back. 61 minutes old is in, 63 minutes old is out.
	req := domain.FetchRequest{WindowMinutes: 60, OverlapMinutes: 2}
	threshold := req.Threshold(filterNow)

	items := []domain.Item{
		itemUpdatedAgo("m61", 61*time.Minute),
		itemUpdatedAgo("m63", 63*time.Minute),
	}

	got := FilterNew(items, FilterOptions{Threshold: threshold, ExcludeTrading: true})
	require.Len(t, got, 1)
	assert.Equal(t, "m61", got[0].ID)
}

func TestFilterNew_ExcludesTrading(t *testing.T) {
	t.Parallel()

	trading := itemUpdatedAgo("m1", 5*time.Minute)
	trading.Status = domain.StatusTrading

	got := FilterNew([]domain.Item{trading}, FilterOptions{
		Threshold:      filterNow.Add(-time.Hour),
		ExcludeTrading: true,
	})
	assert.Empty(t, got, "trading item inside the window is still excluded")

	// Without the exclusion flag, the same item passes.
	got = FilterNew([]domain.Item{trading}, FilterOptions{
		Threshold: filterNow.Add(-time.Hour),
	})
	assert.Len(t, got, 1)
}

func TestFilterNew_TradingItemNotMarkedSeen(t *testing.T) {
	t.Parallel()

	seen := NewSeenSet()
	trading := itemUpdatedAgo("m1", 5*time.Minute)
	trading.Status = domain.StatusTrading

	got := FilterNew([]domain.Item{trading}, FilterOptions{
		Threshold:      filterNow.Add(-time.Hour),
		ExcludeTrading: true,
		Seen:           seen,
	})
	assert.Empty(t, got)
	assert.False(t, seen.Contains("m1"), "rejected items must not enter the seen set")
}

func TestFilterNew_BroadcastIdempotence(t *testing.T) {
	t.Parallel()

	seen := NewSeenSet()
	items := []domain.Item{
		itemUpdatedAgo("m1", 10*time.Minute),
		itemUpdatedAgo("m2", 20*time.Minute),
		itemUpdatedAgo("m3", 30*time.Minute),
	}
	opts := FilterOptions{
		Threshold:      filterNow.Add(-time.Hour),
		ExcludeTrading: true,
		Seen:           seen,
	}

	first := FilterNew(items, opts)
	assert.Len(t, first, 3)

	second := FilterNew(items, opts)
	assert.Empty(t, second, "identical batch right after must yield nothing")
}

func TestFilterNew_InteractiveModeIgnoresSeen(t *testing.T) {
	t.Parallel()

	seen := NewSeenSet()
	seen.TestAndAdd("m1")

	items := []domain.Item{itemUpdatedAgo("m1", 10 * time.Minute)}

	// nil Seen: already-broadcast items still come back.
	got := FilterNew(items, FilterOptions{
		Threshold:      filterNow.Add(-time.Hour),
		ExcludeTrading: true,
	})
	require.Len(t, got, 1)
	assert.Equal(t, 1, seen.Len(), "interactive filtering must not mutate the set")
}

func TestFilterNew_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	items := []domain.Item{
		itemUpdatedAgo("m1", 5*time.Minute),
		itemUpdatedAgo("m2", 90*time.Minute), // filtered out
		itemUpdatedAgo("m3", 15*time.Minute),
		itemUpdatedAgo("m4", 25*time.Minute),
	}

	got := FilterNew(items, FilterOptions{
		Threshold:      filterNow.Add(-time.Hour),
		ExcludeTrading: true,
	})

	require.Len(t, got, 3)
	assert.Equal(t, []string{"m1", "m3", "m4"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestFilterNew_EmptyInput(t *testing.T) {
	t.Parallel()

	got := FilterNew(nil, FilterOptions{Threshold: filterNow})
	assert.Empty(t, got)
}
