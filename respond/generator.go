// Package respond turns an inbound customer message plus conversation
// history into an outbound reply via the completion client, bounding
// latency with a single continuation attempt on truncated output.
package respond

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"waleads/conversation"
	"waleads/llm"
	"waleads/persona"
)

const (
	// historyWindow bounds how many trailing turns feed the prompt.
	historyWindow = 10

	defaultTimeout             = 30 * time.Second
	defaultContinuationTimeout = 20 * time.Second
	minContinuationTokens      = 60
)

// ErrGenerationFailed reports that the completion client produced
// nothing usable for this inbound message.
var ErrGenerationFailed = errors.New("respond: generation failed")

// leadMarker matches the confirmation marker the persona instructs the
// model to emit when a customer commits, e.g. [LEAD_CONFIRMED: 3-pack].
var leadMarker = regexp.MustCompile(`\[LEAD_CONFIRMED:\s*([^\]]*)\]\s*`)

// Reply is a generated outbound message.
type Reply struct {
	// Text is the customer-visible reply, with any lead marker removed.
	Text string
	// Degraded is set when the text is a truncated first pass whose
	// continuation failed or was itself cut short.
	Degraded bool
	// LeadConfirmed reports whether the model emitted a lead marker.
	LeadConfirmed bool
	// LeadDetail is the marker payload (product or request), if any.
	LeadDetail string
}

// Generator produces replies in a fixed persona.
type Generator struct {
	client  llm.Client
	persona persona.Persona
	logger  *slog.Logger

	timeout             time.Duration
	continuationTimeout time.Duration
}

func New(client llm.Client, p persona.Persona, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:              client,
		persona:             p,
		logger:              logger,
		timeout:             defaultTimeout,
		continuationTimeout: defaultContinuationTimeout,
	}
}

// SetTimeouts overrides the per-request deadlines. Zero values keep the
// current settings.
func (g *Generator) SetTimeouts(first, continuation time.Duration) {
	if first > 0 {
		g.timeout = first
	}
	if continuation > 0 {
		g.continuationTimeout = continuation
	}
}

// Respond generates a reply to inboundText given the contact's history.
// The history may already contain the inbound turn as its last element;
// it is not duplicated in the prompt. A truncated first pass triggers at
// most one continuation request; if the continuation fails, the partial
// text is returned with Degraded set rather than discarded.
func (g *Generator) Respond(ctx context.Context, phone, inboundText string, history []conversation.Turn) (Reply, error) {
	msgs := g.buildPrompt(inboundText, history)

	first, err := g.complete(ctx, msgs, g.persona.MaxTokens, g.timeout)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if strings.TrimSpace(first.Text) == "" {
		return Reply{}, fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}

	text := first.Text
	degraded := false
	if first.Truncated {
		cont, err := g.continueFrom(ctx, msgs, first.Text)
		switch {
		case err != nil || strings.TrimSpace(cont.Text) == "":
			g.logger.Warn("reply_continuation_failed",
				"phone", phone,
				"error", err,
			)
			degraded = true
		default:
			text += cont.Text
			// A second truncation is accepted as-is; continuation is
			// attempted at most once per inbound message.
			degraded = cont.Truncated
		}
	}

	reply := Reply{Text: text, Degraded: degraded}
	if m := leadMarker.FindStringSubmatch(reply.Text); m != nil {
		reply.LeadConfirmed = true
		reply.LeadDetail = strings.TrimSpace(m[1])
		reply.Text = strings.TrimSpace(leadMarker.ReplaceAllString(reply.Text, ""))
	}
	return reply, nil
}

func (g *Generator) buildPrompt(inboundText string, history []conversation.Turn) []llm.Message {
	window := history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}

	msgs := make([]llm.Message, 0, len(window)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: g.persona.SystemPrompt})
	for _, turn := range window {
		role := llm.RoleUser
		if turn.Direction == conversation.Outbound {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: turn.Text})
	}

	if last := msgs[len(msgs)-1]; last.Role != llm.RoleUser || last.Content != inboundText {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: inboundText})
	}
	return msgs
}

func (g *Generator) continueFrom(ctx context.Context, msgs []llm.Message, partial string) (llm.Result, error) {
	cont := make([]llm.Message, 0, len(msgs)+2)
	cont = append(cont, msgs...)
	cont = append(cont,
		llm.Message{Role: llm.RoleAssistant, Content: partial},
		llm.Message{Role: llm.RoleUser, Content: "Your previous reply was cut off. Finish it, continuing exactly where it stopped. Do not repeat what you already wrote."},
	)

	ceiling := g.persona.MaxTokens / 2
	if ceiling < minContinuationTokens {
		ceiling = minContinuationTokens
	}
	return g.complete(ctx, cont, ceiling, g.continuationTimeout)
}

func (g *Generator) complete(ctx context.Context, msgs []llm.Message, maxTokens int, timeout time.Duration) (llm.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return g.client.Chat(ctx, llm.Request{
		Model:       g.persona.Model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: g.persona.Temperature,
	})
}
