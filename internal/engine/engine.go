// Package engine implements the new-item detection core: the broadcast
// dedup set, the freshness filter, and the orchestrator tying search,
// filtering, and notification together.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ksaito/mercari-watcher/internal/command"
	"github.com/ksaito/mercari-watcher/internal/line"
	"github.com/ksaito/mercari-watcher/internal/mercari"
	"github.com/ksaito/mercari-watcher/internal/metrics"
	domain "github.com/ksaito/mercari-watcher/pkg/types"
)

const defaultRequestTimeout = 15 * time.Second

// Engine orchestrates the two notification paths: the scheduled broadcast
// fetch and interactive webhook requests. It owns the SeenSet; the
// scheduled path is the only one that mutates it.
type Engine struct {
	search   mercari.SearchClient
	notifier line.Notifier
	builder  *line.PayloadBuilder
	seen     *SeenSet
	log      *slog.Logger

	defaults       domain.FetchRequest
	requestTimeout time.Duration
	nowFunc        func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = f
	}
}

// WithRequestTimeout bounds each external search call so a stalled
// dependency cannot delay the next scheduled tick indefinitely.
func WithRequestTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.requestTimeout = d
	}
}

// NewEngine creates a new Engine with injected dependencies. defaults
// supplies the configured keyword, window, overlap margin, and display cap
// used by the scheduled path and as interactive fallbacks.
func NewEngine(
	search mercari.SearchClient,
	notifier line.Notifier,
	builder *line.PayloadBuilder,
	seen *SeenSet,
	defaults domain.FetchRequest,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		search:         search,
		notifier:       notifier,
		builder:        builder,
		seen:           seen,
		log:            slog.Default(),
		defaults:       defaults,
		requestTimeout: defaultRequestTimeout,
		nowFunc:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunScheduledFetch executes one broadcast pass: search, filter with
// dedup (trading items excluded), and broadcast if anything new was found.
// An empty result sends nothing and is not an error.
func (e *Engine) RunScheduledFetch(ctx context.Context) error {
	start := time.Now()
	metrics.FetchCyclesTotal.Inc()
	defer func() {
		metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	threshold := e.defaults.Threshold(e.nowFunc())

	items, err := e.searchItems(ctx, e.defaults.Keyword)
	if err != nil {
		metrics.FetchErrorsTotal.Inc()
		return fmt.Errorf("searching mercari: %w", err)
	}

	fresh := FilterNew(items, FilterOptions{
		Threshold:      threshold,
		ExcludeTrading: true,
		Seen:           e.seen,
	})

	e.log.Info("scheduled fetch complete",
		"keyword", e.defaults.Keyword,
		"fetched", len(items),
		"new", len(fresh),
	)

	if len(fresh) == 0 {
		return nil
	}

	msg := e.builder.Build(
		fresh,
		e.defaults.Keyword,
		e.defaults.WindowMinutes,
		e.defaults.MaxDisplayItems,
	)

	if err := e.notifier.Broadcast(ctx, msg); err != nil {
		metrics.NotificationFailuresTotal.Inc()
		return fmt.Errorf("broadcasting notification: %w", err)
	}

	metrics.ItemsNotifiedTotal.Add(float64(len(fresh)))
	return nil
}

// HandleInteractiveRequest parses a chat message, runs the search without
// seen-set dedup, and replies to the originating event. A user re-asking
// for a window gets the full window's results regardless of prior
// broadcasts. Search failures are surfaced to the user as an error reply.
func (e *Engine) HandleInteractiveRequest(ctx context.Context, text, replyToken string) error {
	req := command.Parse(text, e.defaults.Keyword)

	// The overlap margin exists to absorb scheduler jitter; an explicit
	// user window is taken literally.
	threshold := e.nowFunc().Add(-time.Duration(req.WindowMinutes) * time.Minute)

	items, err := e.searchItems(ctx, req.Keyword)
	if err != nil {
		if replyErr := e.notifier.ReplyText(ctx, replyToken, "查詢失敗，請稍後再試 🙏"); replyErr != nil {
			metrics.NotificationFailuresTotal.Inc()
			e.log.Error("error reply failed", "error", replyErr)
		}
		return fmt.Errorf("searching mercari: %w", err)
	}

	fresh := FilterNew(items, FilterOptions{
		Threshold:      threshold,
		ExcludeTrading: true,
	})

	e.log.Info("interactive request complete",
		"keyword", req.Keyword,
		"window_minutes", req.WindowMinutes,
		"fetched", len(items),
		"new", len(fresh),
	)

	if len(fresh) == 0 {
		fallback := fmt.Sprintf(
			"過去 %d 分鐘內沒有找到「%s」的新商品",
			req.WindowMinutes, req.Keyword,
		)
		if err := e.notifier.ReplyText(ctx, replyToken, fallback); err != nil {
			metrics.NotificationFailuresTotal.Inc()
			return fmt.Errorf("sending fallback reply: %w", err)
		}
		return nil
	}

	msg := e.builder.Build(fresh, req.Keyword, req.WindowMinutes, e.defaults.MaxDisplayItems)

	if err := e.notifier.Reply(ctx, replyToken, msg); err != nil {
		metrics.NotificationFailuresTotal.Inc()
		return fmt.Errorf("sending reply: %w", err)
	}

	return nil
}

// TrimSeenSet drops dedup entries older than keep and returns how many
// were removed. Wired to an optional scheduler entry.
func (e *Engine) TrimSeenSet(keep time.Duration) int {
	return e.seen.Trim(e.nowFunc().Add(-keep))
}

func (e *Engine) searchItems(ctx context.Context, keyword string) ([]domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()

	return e.search.Search(ctx, mercari.SearchRequest{
		Keyword: keyword,
		Sort:    mercari.SortUpdatedTime,
		Order:   mercari.OrderDesc,
	})
}
