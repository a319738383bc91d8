// Package conversation keeps a bounded, in-memory message history per
// contact. Histories are sliding windows: appending past capacity evicts the
// oldest turn, never the newest.
package conversation

import (
	"sync"
	"time"
)

// DefaultMaxTurns bounds each contact's history.
const DefaultMaxTurns = 20

type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

type Turn struct {
	Direction Direction
	Text      string
	Timestamp time.Time
}

type Store struct {
	mu       sync.Mutex
	maxTurns int
	byPhone  map[string][]Turn
}

// NewStore returns a store keeping at most maxTurns turns per contact.
// maxTurns <= 0 selects DefaultMaxTurns.
func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{
		maxTurns: maxTurns,
		byPhone:  make(map[string][]Turn),
	}
}

// Append records a turn for phone, evicting the oldest turn once the window
// is full.
func (s *Store) Append(phone string, turn Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.byPhone[phone], turn)
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.byPhone[phone] = turns
}

// History returns a snapshot of phone's turns in order. Callers never observe
// concurrent mutation through the returned slice.
func (s *Store) History(phone string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.byPhone[phone]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Len reports how many turns phone currently has.
func (s *Store) Len(phone string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byPhone[phone])
}

// Contacts reports how many contacts have at least one recorded turn.
func (s *Store) Contacts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byPhone)
}
