package mercari

import (
	"strconv"
	"time"

	domain "github.com/ksaito/mercari-watcher/pkg/types"
)

const itemURLPrefix = "https://jp.mercari.com/item/"

// ToItems converts API item summaries to domain items, preserving order.
// Entries without an ID are dropped.
func ToItems(summaries []ItemSummary) []domain.Item {
	items := make([]domain.Item, 0, len(summaries))
	for i := range summaries {
		if summaries[i].ID == "" {
			continue
		}
		items = append(items, toItem(&summaries[i]))
	}
	return items
}

func toItem(s *ItemSummary) domain.Item {
	item := domain.Item{
		ID:        s.ID,
		Name:      s.Name,
		Price:     parseIntString(s.Price),
		ItemURL:   itemURLPrefix + s.ID,
		Status:    domain.ItemStatus(s.Status),
		UpdatedAt: parseUnixString(s.Updated),
	}

	if len(s.Thumbnails) > 0 {
		item.ThumbnailURL = s.Thumbnails[0]
	}

	// Items the API has never updated report only a creation time.
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = parseUnixString(s.Created)
	}

	return item
}

func parseIntString(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseUnixString(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
