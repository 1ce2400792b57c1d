package line

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging discarded messages. It is
// used when no channel token is configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards messages with a log entry.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// Broadcast logs and discards a broadcast message.
func (n *NoOpNotifier) Broadcast(_ context.Context, msg Message) error {
	n.log.Debug("broadcast discarded (no channel token configured)",
		"alt_text", msg.AltText,
		"bubbles", bubbleCount(msg),
	)
	return nil
}

// Reply logs and discards a reply message.
func (n *NoOpNotifier) Reply(_ context.Context, replyToken string, msg Message) error {
	n.log.Debug("reply discarded (no channel token configured)",
		"reply_token", replyToken,
		"bubbles", bubbleCount(msg),
	)
	return nil
}

// ReplyText logs and discards a plain-text reply.
func (n *NoOpNotifier) ReplyText(_ context.Context, replyToken, text string) error {
	n.log.Debug("text reply discarded (no channel token configured)",
		"reply_token", replyToken,
		"text", text,
	)
	return nil
}

func bubbleCount(msg Message) int {
	if msg.Contents == nil {
		return 0
	}
	return len(msg.Contents.Contents)
}
