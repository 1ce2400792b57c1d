package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.line.me"

// MessagingClient implements Notifier via the LINE Messaging API push
// endpoints. Delivery is at-most-once: the response is logged, never
// retried.
type MessagingClient struct {
	baseURL      string
	channelToken string
	client       *http.Client
	log          *slog.Logger
}

// MessagingOption configures a MessagingClient.
type MessagingOption func(*MessagingClient)

// WithMessagingBaseURL overrides the API base URL. Tests point this at a
// local server.
func WithMessagingBaseURL(u string) MessagingOption {
	return func(c *MessagingClient) {
		c.baseURL = u
	}
}

// WithMessagingHTTPClient sets a custom HTTP client.
func WithMessagingHTTPClient(hc *http.Client) MessagingOption {
	return func(c *MessagingClient) {
		c.client = hc
	}
}

// WithMessagingLogger sets a custom logger.
func WithMessagingLogger(l *slog.Logger) MessagingOption {
	return func(c *MessagingClient) {
		c.log = l
	}
}

// NewMessagingClient creates a LINE Messaging API client authenticated with
// the channel access token.
func NewMessagingClient(channelToken string, opts ...MessagingOption) *MessagingClient {
	c := &MessagingClient{
		baseURL:      defaultBaseURL,
		channelToken: channelToken,
		client:       &http.Client{Timeout: 15 * time.Second},
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type broadcastRequest struct {
	Messages []Message `json:"messages"`
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

// Broadcast pushes a message to every friend of the channel.
func (c *MessagingClient) Broadcast(ctx context.Context, msg Message) error {
	return c.post(ctx, "/v2/bot/message/broadcast", broadcastRequest{
		Messages: []Message{msg},
	})
}

// Reply answers one inbound event via its one-time reply token.
func (c *MessagingClient) Reply(ctx context.Context, replyToken string, msg Message) error {
	return c.post(ctx, "/v2/bot/message/reply", replyRequest{
		ReplyToken: replyToken,
		Messages:   []Message{msg},
	})
}

// ReplyText answers one inbound event with a plain-text message.
func (c *MessagingClient) ReplyText(ctx context.Context, replyToken, text string) error {
	return c.Reply(ctx, replyToken, TextMessage(text))
}

func (c *MessagingClient) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling LINE payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating LINE request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending LINE request: %w", err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		respBody = nil
	}

	c.log.Debug("LINE API response",
		"path", path,
		"status", resp.StatusCode,
		"body", string(respBody),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("LINE API returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
