package respond

import (
	"context"
	"errors"
	"strings"
	"testing"

	"waleads/conversation"
	"waleads/llm"
	"waleads/persona"
)

// scriptedLLM returns canned results in order and records requests.
type scriptedLLM struct {
	results []llm.Result
	errs    []error
	reqs    []llm.Request
}

func (s *scriptedLLM) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	i := len(s.reqs)
	s.reqs = append(s.reqs, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return llm.Result{}, s.errs[i]
	}
	if i >= len(s.results) {
		return llm.Result{}, errors.New("unexpected extra call")
	}
	return s.results[i], nil
}

func newGenerator(client llm.Client) *Generator {
	return New(client, persona.Default(), nil)
}

func TestRespondSingleCall(t *testing.T) {
	s := &scriptedLLM{results: []llm.Result{{Text: "Our prices start at 50 SAR."}}}
	g := newGenerator(s)

	reply, err := g.Respond(context.Background(), "966501234567", "what are your prices?", nil)
	if err != nil {
		t.Fatalf("Respond error = %v", err)
	}
	if reply.Text != "Our prices start at 50 SAR." {
		t.Errorf("Text = %q", reply.Text)
	}
	if reply.Degraded || reply.LeadConfirmed {
		t.Errorf("reply flags = %+v, want none set", reply)
	}
	if len(s.reqs) != 1 {
		t.Fatalf("completion calls = %d, want 1", len(s.reqs))
	}
}

func TestRespondTruncationTriggersOneContinuation(t *testing.T) {
	s := &scriptedLLM{results: []llm.Result{
		{Text: "We offer three bund", Truncated: true},
		{Text: "les: single, double, and family."},
	}}
	g := newGenerator(s)

	reply, err := g.Respond(context.Background(), "966501234567", "tell me about bundles", nil)
	if err != nil {
		t.Fatalf("Respond error = %v", err)
	}
	want := "We offer three bundles: single, double, and family."
	if reply.Text != want {
		t.Errorf("Text = %q, want %q", reply.Text, want)
	}
	if reply.Degraded {
		t.Error("Degraded = true for successful continuation")
	}
	if len(s.reqs) != 2 {
		t.Fatalf("completion calls = %d, want 2", len(s.reqs))
	}
	// Continuation request carries the partial output and a smaller ceiling.
	cont := s.reqs[1]
	if cont.MaxTokens >= s.reqs[0].MaxTokens {
		t.Errorf("continuation MaxTokens = %d, want below %d", cont.MaxTokens, s.reqs[0].MaxTokens)
	}
	foundPartial := false
	for _, m := range cont.Messages {
		if m.Role == llm.RoleAssistant && m.Content == "We offer three bund" {
			foundPartial = true
		}
	}
	if !foundPartial {
		t.Error("continuation request does not carry the partial output")
	}
}

func TestRespondSecondTruncationNotRetried(t *testing.T) {
	s := &scriptedLLM{results: []llm.Result{
		{Text: "part one ", Truncated: true},
		{Text: "part two", Truncated: true},
	}}
	g := newGenerator(s)

	reply, err := g.Respond(context.Background(), "966501234567", "hi", nil)
	if err != nil {
		t.Fatalf("Respond error = %v", err)
	}
	if reply.Text != "part one part two" {
		t.Errorf("Text = %q", reply.Text)
	}
	if !reply.Degraded {
		t.Error("Degraded = false after doubly-truncated reply")
	}
	if len(s.reqs) != 2 {
		t.Fatalf("completion calls = %d, want exactly 2", len(s.reqs))
	}
}

func TestRespondContinuationFailureKeepsPartial(t *testing.T) {
	s := &scriptedLLM{
		results: []llm.Result{{Text: "partial answer", Truncated: true}},
		errs:    []error{nil, errors.New("rate limited")},
	}
	g := newGenerator(s)

	reply, err := g.Respond(context.Background(), "966501234567", "hi", nil)
	if err != nil {
		t.Fatalf("Respond error = %v, want partial reply", err)
	}
	if reply.Text != "partial answer" {
		t.Errorf("Text = %q, want partial answer", reply.Text)
	}
	if !reply.Degraded {
		t.Error("Degraded = false, want true")
	}
}

func TestRespondFirstCallFailure(t *testing.T) {
	s := &scriptedLLM{errs: []error{errors.New("boom")}}
	g := newGenerator(s)

	_, err := g.Respond(context.Background(), "966501234567", "hi", nil)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Respond error = %v, want ErrGenerationFailed", err)
	}
}

func TestRespondEmptyCompletionFails(t *testing.T) {
	s := &scriptedLLM{results: []llm.Result{{Text: "   "}}}
	g := newGenerator(s)

	_, err := g.Respond(context.Background(), "966501234567", "hi", nil)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Respond error = %v, want ErrGenerationFailed", err)
	}
}

func TestRespondLeadMarkerDetectedAndStripped(t *testing.T) {
	s := &scriptedLLM{results: []llm.Result{
		{Text: "[LEAD_CONFIRMED: Tiger Balm 3-pack]\nPerfect! They'll call today."},
	}}
	g := newGenerator(s)

	reply, err := g.Respond(context.Background(), "966501234567", "Jeddah, yes", nil)
	if err != nil {
		t.Fatalf("Respond error = %v", err)
	}
	if !reply.LeadConfirmed {
		t.Fatal("LeadConfirmed = false")
	}
	if reply.LeadDetail != "Tiger Balm 3-pack" {
		t.Errorf("LeadDetail = %q", reply.LeadDetail)
	}
	if strings.Contains(reply.Text, "LEAD_CONFIRMED") {
		t.Errorf("marker not stripped from customer text: %q", reply.Text)
	}
	if reply.Text != "Perfect! They'll call today." {
		t.Errorf("Text = %q", reply.Text)
	}
}

func TestRespondPromptWindowAndInbound(t *testing.T) {
	s := &scriptedLLM{results: []llm.Result{{Text: "ok"}}}
	g := newGenerator(s)

	var history []conversation.Turn
	for i := 0; i < 15; i++ {
		history = append(history, conversation.Turn{Direction: conversation.Inbound, Text: "old"})
	}
	history = append(history, conversation.Turn{Direction: conversation.Inbound, Text: "latest question"})

	if _, err := g.Respond(context.Background(), "966501234567", "latest question", history); err != nil {
		t.Fatalf("Respond error = %v", err)
	}

	req := s.reqs[0]
	if req.Messages[0].Role != llm.RoleSystem {
		t.Fatalf("first message role = %q, want system", req.Messages[0].Role)
	}
	// System prompt plus a bounded trailing window, inbound not duplicated.
	if got, want := len(req.Messages), 11; got != want {
		t.Errorf("prompt messages = %d, want %d", got, want)
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != llm.RoleUser || last.Content != "latest question" {
		t.Errorf("last message = %+v, want inbound user turn", last)
	}
}
