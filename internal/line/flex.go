package line

import (
	"fmt"
	"net/url"
	"time"

	domain "github.com/ksaito/mercari-watcher/pkg/types"
)

const (
	searchBaseURL        = "https://jp.mercari.com/search"
	placeholderThumbnail = "https://static.mercdn.net/images/common/noimage.png"

	nameDisplayRunes  = 40
	timeDisplayLayout = "2006-01-02 15:04"
)

// Message is a LINE message object: a flex carousel or plain text.
type Message struct {
	Type     string    `json:"type"` // "flex" or "text"
	AltText  string    `json:"altText,omitempty"`
	Text     string    `json:"text,omitempty"`
	Contents *Carousel `json:"contents,omitempty"`
}

// Carousel holds an ordered sequence of flex bubbles.
type Carousel struct {
	Type     string   `json:"type"` // "carousel"
	Contents []Bubble `json:"contents"`
}

// Bubble is one card in a flex carousel.
type Bubble struct {
	Type   string     `json:"type"` // "bubble"
	Size   string     `json:"size,omitempty"`
	Hero   *FlexImage `json:"hero,omitempty"`
	Body   *FlexBox   `json:"body,omitempty"`
	Footer *FlexBox   `json:"footer,omitempty"`
}

// FlexBox is a flex layout container.
type FlexBox struct {
	Type     string          `json:"type"` // "box"
	Layout   string          `json:"layout"`
	Spacing  string          `json:"spacing,omitempty"`
	Margin   string          `json:"margin,omitempty"`
	Contents []FlexComponent `json:"contents"`
}

// FlexComponent is a single flex element (text, box, separator, or button).
// Fields not applicable to the element type stay empty and are omitted.
type FlexComponent struct {
	Type     string          `json:"type"`
	Layout   string          `json:"layout,omitempty"`
	Text     string          `json:"text,omitempty"`
	Weight   string          `json:"weight,omitempty"`
	Size     string          `json:"size,omitempty"`
	Align    string          `json:"align,omitempty"`
	Color    string          `json:"color,omitempty"`
	Style    string          `json:"style,omitempty"`
	Wrap     bool            `json:"wrap,omitempty"`
	Margin   string          `json:"margin,omitempty"`
	Contents []FlexComponent `json:"contents,omitempty"`
	Action   *FlexAction     `json:"action,omitempty"`
}

// FlexAction is a tap action attached to a button.
type FlexAction struct {
	Type  string `json:"type"` // "uri"
	Label string `json:"label"`
	URI   string `json:"uri"`
}

// FlexImage is a hero image element.
type FlexImage struct {
	Type        string `json:"type"` // "image"
	URL         string `json:"url"`
	Size        string `json:"size,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	AspectMode  string `json:"aspectMode,omitempty"`
}

// PayloadBuilder converts new items into a flex-message carousel: one
// summary bubble, up to maxDisplayItems item bubbles, and an overflow
// bubble when more items were found. Output is deterministic for a fixed
// clock and display timezone.
type PayloadBuilder struct {
	loc *time.Location
	now func() time.Time
}

// BuilderOption configures the PayloadBuilder.
type BuilderOption func(*PayloadBuilder)

// WithBuilderNowFunc overrides the time function for testing.
func WithBuilderNowFunc(f func() time.Time) BuilderOption {
	return func(b *PayloadBuilder) {
		b.now = f
	}
}

// NewPayloadBuilder creates a builder rendering timestamps in loc.
func NewPayloadBuilder(loc *time.Location, opts ...BuilderOption) *PayloadBuilder {
	b := &PayloadBuilder{
		loc: loc,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles the notification carousel. The summary bubble is always
// present, even for an empty item slice; callers decide whether an empty
// result is worth sending.
func (b *PayloadBuilder) Build(
	items []domain.Item,
	keyword string,
	windowMinutes int,
	maxDisplayItems int,
) Message {
	bubbles := make([]Bubble, 0, maxDisplayItems+2)
	bubbles = append(bubbles, b.summaryBubble(items, keyword, windowMinutes))

	limit := min(len(items), maxDisplayItems)
	for i := range limit {
		bubbles = append(bubbles, b.itemBubble(&items[i]))
	}

	if len(items) > maxDisplayItems {
		bubbles = append(bubbles, overflowBubble(keyword))
	}

	return Message{
		Type:    "flex",
		AltText: "有新 Mercari 商品！",
		Contents: &Carousel{
			Type:     "carousel",
			Contents: bubbles,
		},
	}
}

func (b *PayloadBuilder) summaryBubble(
	items []domain.Item,
	keyword string,
	windowMinutes int,
) Bubble {
	end := b.now().In(b.loc)
	start := end.Add(-time.Duration(windowMinutes) * time.Minute)

	summary := fmt.Sprintf(
		"📌 關鍵字: %s\n🕒 時間區間: %s ~ %s\n✨ 新商品總數: %d",
		keyword,
		start.Format(timeDisplayLayout),
		end.Format(timeDisplayLayout),
		len(items),
	)

	return Bubble{
		Type: "bubble",
		Size: "kilo",
		Body: &FlexBox{
			Type:   "box",
			Layout: "vertical",
			Contents: []FlexComponent{
				{Type: "text", Text: "🔔 Mercari 新商品通知", Weight: "bold", Size: "lg", Align: "center"},
				{Type: "separator", Margin: "md"},
				{Type: "text", Text: summary, Wrap: true, Margin: "md", Color: "#555555"},
			},
		},
		Footer: &FlexBox{
			Type:   "box",
			Layout: "vertical",
			Contents: []FlexComponent{
				{
					Type:  "button",
					Style: "link",
					Action: &FlexAction{
						Type:  "uri",
						Label: "🔍 開啟搜尋頁",
						URI:   searchURL(keyword, false),
					},
				},
			},
		},
	}
}

func (b *PayloadBuilder) itemBubble(item *domain.Item) Bubble {
	thumbnail := item.ThumbnailURL
	if thumbnail == "" {
		thumbnail = placeholderThumbnail
	}

	return Bubble{
		Type: "bubble",
		Size: "kilo",
		Hero: &FlexImage{
			Type:        "image",
			URL:         thumbnail,
			Size:        "full",
			AspectRatio: "20:13",
			AspectMode:  "cover",
		},
		Body: &FlexBox{
			Type:    "box",
			Layout:  "vertical",
			Spacing: "sm",
			Contents: []FlexComponent{
				{Type: "text", Text: truncateRunes(item.Name, nameDisplayRunes), Weight: "bold", Wrap: true, Size: "md"},
				{
					Type:   "box",
					Layout: "baseline",
					Margin: "sm",
					Contents: []FlexComponent{
						{Type: "text", Text: "💰 價格: ", Size: "sm", Color: "#888888"},
						{Type: "text", Text: fmt.Sprintf("¥%d", item.Price), Size: "sm", Weight: "bold", Color: "#FF5555"},
					},
				},
				{
					Type:   "text",
					Text:   "🕒 更新: " + item.UpdatedAt.In(b.loc).Format(timeDisplayLayout),
					Size:   "xs",
					Color:  "#888888",
					Margin: "sm",
				},
			},
		},
		Footer: &FlexBox{
			Type:    "box",
			Layout:  "vertical",
			Spacing: "sm",
			Contents: []FlexComponent{
				{
					Type:  "button",
					Style: "primary",
					Color: "#00B900",
					Action: &FlexAction{
						Type:  "uri",
						Label: "🔗 查看商品",
						URI:   item.ItemURL,
					},
				},
			},
		},
	}
}

func overflowBubble(keyword string) Bubble {
	return Bubble{
		Type: "bubble",
		Size: "kilo",
		Body: &FlexBox{
			Type:   "box",
			Layout: "vertical",
			Contents: []FlexComponent{
				{Type: "text", Text: "📄 查看更多商品", Weight: "bold", Size: "lg", Align: "center"},
				{Type: "text", Text: "點擊下方按鈕前往 Mercari 查看完整列表", Wrap: true, Margin: "md", Color: "#555555"},
			},
		},
		Footer: &FlexBox{
			Type:   "box",
			Layout: "vertical",
			Contents: []FlexComponent{
				{
					Type:  "button",
					Style: "primary",
					Color: "#1E90FF",
					Action: &FlexAction{
						Type:  "uri",
						Label: "查看更多",
						URI:   searchURL(keyword, true),
					},
				},
			},
		},
	}
}

// TextMessage builds a plain-text message, used for no-result and error
// replies on the interactive path.
func TextMessage(text string) Message {
	return Message{Type: "text", Text: text}
}

// searchURL builds a Mercari search results page link for the keyword,
// optionally pre-sorted newest first.
func searchURL(keyword string, sortByRecency bool) string {
	params := url.Values{}
	params.Set("keyword", keyword)
	if sortByRecency {
		params.Set("sort", "created_time")
		params.Set("order", "desc")
	}
	return searchBaseURL + "?" + params.Encode()
}

// truncateRunes hard-cuts s to at most n characters. The cut counts runes,
// not bytes, so multi-byte names never split mid-character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
