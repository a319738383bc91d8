// Package chat defines the capability boundary to the WhatsApp automation
// layer. The core only reasons about fingerprints and novelty; whatever
// retry or fallback strategy an implementation needs internally is its own
// concern.
package chat

import (
	"context"
	"errors"
)

// ErrUnavailable marks transient transport failures (disconnects, timeouts,
// rate limits). The scheduler retries these once within the same cycle and
// otherwise defers to the next one.
var ErrUnavailable = errors.New("chat: temporarily unavailable")

// Inbound is the most recent message received from a contact. Fingerprint is
// an opaque, order-and-identity-sensitive marker: two different messages
// carrying identical text must still produce different fingerprints.
type Inbound struct {
	Text        string
	Fingerprint string
}

// Client is the single logical chat session shared by all workers.
type Client interface {
	IsLoggedIn() bool

	// OpenChat prepares the conversation with the given normalized phone key.
	OpenChat(ctx context.Context, phone string) error

	// ReadLatestInbound returns the newest inbound message for phone, or nil
	// when the contact has no inbound history yet.
	ReadLatestInbound(ctx context.Context, phone string) (*Inbound, error)

	SendText(ctx context.Context, phone string, text string) error

	// SendMedia sends the file at mediaPath with text as its caption.
	SendMedia(ctx context.Context, phone string, text string, mediaPath string) error
}

// IsTransient reports whether err is worth a single in-cycle retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
