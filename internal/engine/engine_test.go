package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksaito/mercari-watcher/internal/line"
	"github.com/ksaito/mercari-watcher/internal/mercari"
	domain "github.com/ksaito/mercari-watcher/pkg/types"
)

// quietLogger returns a logger that discards output for tests.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSearch implements mercari.SearchClient with canned results.
type fakeSearch struct {
	items    []domain.Item
	err      error
	requests []mercari.SearchRequest
}

func (f *fakeSearch) Search(_ context.Context, req mercari.SearchRequest) ([]domain.Item, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

// fakeNotifier implements line.Notifier and records every send.
type fakeNotifier struct {
	broadcasts   []line.Message
	replies      []line.Message
	replyTokens  []string
	replyTexts   []string
	broadcastErr error
	replyErr     error
}

func (f *fakeNotifier) Broadcast(_ context.Context, msg line.Message) error {
	if f.broadcastErr != nil {
		return f.broadcastErr
	}
	f.broadcasts = append(f.broadcasts, msg)
	return nil
}

func (f *fakeNotifier) Reply(_ context.Context, replyToken string, msg line.Message) error {
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, msg)
	f.replyTokens = append(f.replyTokens, replyToken)
	return nil
}

func (f *fakeNotifier) ReplyText(_ context.Context, replyToken, text string) error {
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replyTexts = append(f.replyTexts, text)
	f.replyTokens = append(f.replyTokens, replyToken)
	return nil
}

var engineNow = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func engineItem(id string, ago time.Duration) domain.Item {
	return domain.Item{
		ID:        id,
		Name:      "item " + id,
		Price:     2500,
		ItemURL:   "https://jp.mercari.com/item/" + id,
		Status:    domain.StatusOnSale,
		UpdatedAt: engineNow.Add(-ago),
	}
}

func newTestEngine(search *fakeSearch, notifier *fakeNotifier, seen *SeenSet) *Engine {
	builder := line.NewPayloadBuilder(
		time.UTC,
		line.WithBuilderNowFunc(func() time.Time { return engineNow }),
	)
	return NewEngine(
		search,
		notifier,
		builder,
		seen,
		domain.FetchRequest{
			Keyword:         "オラフ スヌーピー ぬいぐるみ",
			WindowMinutes:   60,
			OverlapMinutes:  2,
			MaxDisplayItems: 5,
		},
		WithLogger(quietLogger()),
		WithNowFunc(func() time.Time { return engineNow }),
	)
}

func TestRunScheduledFetch_BroadcastsNewItems(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{items: []domain.Item{
		engineItem("m1", 10*time.Minute),
		engineItem("m2", 30*time.Minute),
	}}
	notifier := &fakeNotifier{}
	seen := NewSeenSet()

	eng := newTestEngine(search, notifier, seen)

	require.NoError(t, eng.RunScheduledFetch(context.Background()))

	require.Len(t, notifier.broadcasts, 1)
	msg := notifier.broadcasts[0]
	require.NotNil(t, msg.Contents)
	// Summary plus two item bubbles.
	assert.Len(t, msg.Contents.Contents, 3)

	assert.True(t, seen.Contains("m1"))
	assert.True(t, seen.Contains("m2"))

	require.Len(t, search.requests, 1)
	assert.Equal(t, "オラフ スヌーピー ぬいぐるみ", search.requests[0].Keyword)
	assert.Equal(t, mercari.SortUpdatedTime, search.requests[0].Sort)
}

func TestRunScheduledFetch_EmptyResultSendsNothing(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{items: []domain.Item{
		engineItem("stale", 3 * time.Hour),
	}}
	notifier := &fakeNotifier{}

	eng := newTestEngine(search, notifier, NewSeenSet())

	require.NoError(t, eng.RunScheduledFetch(context.Background()))
	assert.Empty(t, notifier.broadcasts)
}

func TestRunScheduledFetch_SecondPassIsQuiet(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{items: []domain.Item{
		engineItem("m1", 10 * time.Minute),
	}}
	notifier := &fakeNotifier{}

	eng := newTestEngine(search, notifier, NewSeenSet())

	require.NoError(t, eng.RunScheduledFetch(context.Background()))
	require.NoError(t, eng.RunScheduledFetch(context.Background()))

	assert.Len(t, notifier.broadcasts, 1, "already-broadcast items must not repeat")
}

func TestRunScheduledFetch_SearchErrorPropagates(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{err: errors.New("connection refused")}
	notifier := &fakeNotifier{}
	seen := NewSeenSet()

	eng := newTestEngine(search, notifier, seen)

	err := eng.RunScheduledFetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "searching mercari")
	assert.Empty(t, notifier.broadcasts)
	assert.Zero(t, seen.Len())
}

func TestRunScheduledFetch_BroadcastErrorPropagates(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{items: []domain.Item{
		engineItem("m1", 10 * time.Minute),
	}}
	notifier := &fakeNotifier{broadcastErr: errors.New("503 from LINE")}

	eng := newTestEngine(search, notifier, NewSeenSet())

	err := eng.RunScheduledFetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broadcasting notification")
}

func TestHandleInteractiveRequest_RepliesWithResults(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{items: []domain.Item{
		engineItem("m1", 10*time.Minute),
		engineItem("m2", 20*time.Hour),
	}}
	notifier := &fakeNotifier{}
	seen := NewSeenSet()

	eng := newTestEngine(search, notifier, seen)

	// "今天" widens the window to 24 hours; both items qualify.
	err := eng.HandleInteractiveRequest(context.Background(), "今天 スヌーピー", "reply-token-1")
	require.NoError(t, err)

	require.Len(t, notifier.replies, 1)
	assert.Equal(t, []string{"reply-token-1"}, notifier.replyTokens)
	require.NotNil(t, notifier.replies[0].Contents)
	assert.Len(t, notifier.replies[0].Contents.Contents, 3)

	require.Len(t, search.requests, 1)
	assert.Equal(t, "スヌーピー", search.requests[0].Keyword)
}

func TestHandleInteractiveRequest_DoesNotTouchSeenSet(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{items: []domain.Item{
		engineItem("m1", 10 * time.Minute),
	}}
	notifier := &fakeNotifier{}
	seen := NewSeenSet()
	seen.TestAndAdd("m1")

	eng := newTestEngine(search, notifier, seen)

	err := eng.HandleInteractiveRequest(context.Background(), "スヌーピー", "token")
	require.NoError(t, err)

	// Already-broadcast item still shows up in the reply.
	require.Len(t, notifier.replies, 1)
	assert.Equal(t, 1, seen.Len(), "interactive path must not grow the set")
}

func TestHandleInteractiveRequest_NoResultsFallback(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{}
	notifier := &fakeNotifier{}

	eng := newTestEngine(search, notifier, NewSeenSet())

	err := eng.HandleInteractiveRequest(context.Background(), "スヌーピー", "token")
	require.NoError(t, err)

	assert.Empty(t, notifier.replies)
	require.Len(t, notifier.replyTexts, 1)
	assert.Contains(t, notifier.replyTexts[0], "スヌーピー")
	assert.Contains(t, notifier.replyTexts[0], "60")
}

func TestHandleInteractiveRequest_SearchErrorRepliesToUser(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{err: errors.New("timeout")}
	notifier := &fakeNotifier{}

	eng := newTestEngine(search, notifier, NewSeenSet())

	err := eng.HandleInteractiveRequest(context.Background(), "今天", "token")
	require.Error(t, err)

	require.Len(t, notifier.replyTexts, 1, "the user still gets an error reply")
	assert.Equal(t, []string{"token"}, notifier.replyTokens)
}

func TestTrimSeenSet(t *testing.T) {
	t.Parallel()

	current := engineNow.Add(-48 * time.Hour)
	seen := NewSeenSet(WithSeenSetNowFunc(func() time.Time { return current }))
	seen.TestAndAdd("old")
	current = engineNow
	seen.TestAndAdd("fresh")

	eng := newTestEngine(&fakeSearch{}, &fakeNotifier{}, seen)

	removed := eng.TrimSeenSet(24 * time.Hour)
	assert.Equal(t, 1, removed)
	assert.True(t, seen.Contains("fresh"))
	assert.False(t, seen.Contains("old"))
}
