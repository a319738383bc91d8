// Package llm defines the completion-service boundary: a single Chat call
// with a token ceiling, returning the text and whether the provider stopped
// for length rather than finishing naturally.
package llm

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks transient provider failures (rate limits, server
// errors, timeouts) that are worth a single retry within the same cycle.
var ErrUnavailable = errors.New("llm: temporarily unavailable")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

type Result struct {
	Text string
	// Truncated reports that the provider stopped because the token ceiling
	// was hit, not because the completion ended naturally.
	Truncated bool
	Usage     Usage
	Duration  time.Duration
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
