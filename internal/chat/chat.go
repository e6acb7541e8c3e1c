// Package chat defines the transport-independent contract between the bot core
// and a chat platform: inbound events, commands, replies and outbound delivery.
// A transport adapter turns platform updates into these values; the core never
// looks at platform-specific text or payloads.
package chat

import (
	"context"

	"github.com/google/uuid"
)

// Notifier delivers outbound messages to a chat.
type Notifier interface {
	Deliver(ctx context.Context, chatID int64, text string) error
	SendImage(ctx context.Context, chatID int64, imageRef, caption string) error
}

// Event is an inbound non-command input.
type Event interface {
	ChatID() int64
	Kind() string
}

// TextEvent is a free text message.
type TextEvent struct {
	Chat int64
	Text string
}

func (e TextEvent) ChatID() int64 { return e.Chat }
func (e TextEvent) Kind() string  { return "text" }

// SelectionEvent is a button press. Session, when set, names the conversation
// session that rendered the button.
type SelectionEvent struct {
	Chat    int64
	Tag     string
	Session uuid.UUID
}

func (e SelectionEvent) ChatID() int64 { return e.Chat }
func (e SelectionEvent) Kind() string  { return "selection" }

// ImageEvent is a photo attachment, carried as an opaque platform reference.
type ImageEvent struct {
	Chat     int64
	ImageRef string
}

func (e ImageEvent) ChatID() int64 { return e.Chat }
func (e ImageEvent) Kind() string  { return "image" }
