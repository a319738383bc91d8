// Package watcher decides, per contact, whether an unseen inbound message
// has arrived since the last check. Novelty is judged by comparing message
// fingerprints, never message text, so two different messages with identical
// text are still told apart.
package watcher

import (
	"context"
	"fmt"
	"sync"

	"waleads/chat"
)

// NewMessage is an inbound message not seen before for its contact.
type NewMessage struct {
	Text        string
	Fingerprint string
}

// Watcher tracks the last-seen fingerprint per phone. Checks with nothing
// new never mutate that state, so repeated calls are idempotent.
type Watcher struct {
	client chat.Client

	mu       sync.Mutex
	lastSeen map[string]string
}

func New(client chat.Client) *Watcher {
	return &Watcher{
		client:   client,
		lastSeen: make(map[string]string),
	}
}

// CheckForNew reads the contact's most recent inbound message and reports it
// when its fingerprint differs from the last-seen one (or none was recorded).
// Returns nil when there is nothing new.
func (w *Watcher) CheckForNew(ctx context.Context, phone string) (*NewMessage, error) {
	inbound, err := w.client.ReadLatestInbound(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("watcher: read latest inbound for %s: %w", phone, err)
	}
	if inbound == nil {
		return nil, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if last, ok := w.lastSeen[phone]; ok && last == inbound.Fingerprint {
		return nil, nil
	}
	w.lastSeen[phone] = inbound.Fingerprint
	return &NewMessage{Text: inbound.Text, Fingerprint: inbound.Fingerprint}, nil
}

// Register seeds the last-seen fingerprint for a phone entering the watch
// set, so pre-existing history is not replayed as new. Seeding goes through
// the same detection path as a regular check; the observed message is simply
// discarded.
func (w *Watcher) Register(ctx context.Context, phone string) error {
	_, err := w.CheckForNew(ctx, phone)
	return err
}

// Forget drops the last-seen state for a phone leaving the watch set.
func (w *Watcher) Forget(phone string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.lastSeen, phone)
}

// Seen reports whether a fingerprint has been recorded for phone.
func (w *Watcher) Seen(phone string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.lastSeen[phone]
	return ok
}
