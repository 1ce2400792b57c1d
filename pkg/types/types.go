// Package domain defines the core business types for the Mercari watcher.
package domain

import "time"

// ItemStatus represents the Mercari item transaction state.
type ItemStatus string

// Item status constants as reported by the Mercari search API.
const (
	StatusOnSale  ItemStatus = "ITEM_STATUS_ON_SALE"
	StatusTrading ItemStatus = "ITEM_STATUS_TRADING"
	StatusSoldOut ItemStatus = "ITEM_STATUS_SOLD_OUT"
)

// Item represents a normalized Mercari listing.
type Item struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Price        int        `json:"price"`
	ItemURL      string     `json:"item_url"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	Status       ItemStatus `json:"status,omitempty"`

	// UpdatedAt is the listing's last-updated time in UTC. Freshness is
	// judged against this, not the creation time.
	UpdatedAt time.Time `json:"updated_at"`
}

// Trading reports whether the item is currently in an active transaction.
// Trading items are excluded from notifications even when fresh.
func (i *Item) Trading() bool {
	return i.Status == StatusTrading
}

// FetchRequest describes one search-and-notify pass.
type FetchRequest struct {
	Keyword         string
	WindowMinutes   int
	OverlapMinutes  int
	MaxDisplayItems int
}

// Threshold returns the freshness cutoff for the request relative to now.
// The overlap margin widens the window backward to absorb polling jitter.
func (r *FetchRequest) Threshold(now time.Time) time.Time {
	return now.Add(-time.Duration(r.WindowMinutes+r.OverlapMinutes) * time.Minute)
}
