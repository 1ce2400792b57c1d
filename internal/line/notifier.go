// Package line defines the LINE Messaging API notification interface,
// the flex-message payload builder, and implementations for delivery.
package line

import "context"

// Notifier defines the interface for sending LINE notifications.
// Broadcast pushes to all channel friends; Reply answers a single inbound
// event via its one-time reply token.
type Notifier interface {
	Broadcast(ctx context.Context, msg Message) error
	Reply(ctx context.Context, replyToken string, msg Message) error
	ReplyText(ctx context.Context, replyToken, text string) error
}
