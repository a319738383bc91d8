// Package monitor drives the polling loop over the contact watch set:
// each cycle it checks every watched phone for a new inbound message,
// generates and sends a reply, and records the contact as a lead.
package monitor

import (
	"log/slog"

	"waleads/chat"
	"waleads/conversation"
	"waleads/leads"
	"waleads/respond"
	"waleads/watcher"
)

// Session bundles the collaborators one monitoring run operates on.
// The chat client models a single logged-in WhatsApp session; the
// stores are shared across all workers and internally synchronized.
type Session struct {
	Chat          chat.Client
	Watcher       *watcher.Watcher
	Conversations *conversation.Store
	Leads         *leads.Store
	Responder     *respond.Generator
	Stats         *Stats
	Logger        *slog.Logger
}

// NewSession wires a session from its collaborators. A nil logger
// falls back to slog.Default.
func NewSession(client chat.Client, conv *conversation.Store, ls *leads.Store, gen *respond.Generator, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		Chat:          client,
		Watcher:       watcher.New(client),
		Conversations: conv,
		Leads:         ls,
		Responder:     gen,
		Stats:         &Stats{},
		Logger:        logger,
	}
}
