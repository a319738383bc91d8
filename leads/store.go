// Package leads keeps the authoritative record of captured leads: an
// in-memory map keyed by normalized phone, serialized to a CSV file. The CSV
// is a write-through boundary only, never the read path, so there is no
// read-modify-rewrite race to have.
package leads

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusEngaged   Status = "engaged"
	StatusConfirmed Status = "confirmed"
)

// excerptMaxRunes bounds the stored last-message preview.
const excerptMaxRunes = 80

// Lead is the persisted summary of one contact's interaction. At most one
// Lead exists per normalized phone key.
type Lead struct {
	Phone              string
	Name               string
	Status             Status
	LastMessageExcerpt string
	LastUpdated        time.Time
}

type Store struct {
	mu      sync.Mutex
	path    string
	logger  *slog.Logger
	byPhone map[string]*Lead
	order   []string
	dirty   bool
}

// Open loads the store from path if the file exists; a missing file is a
// fresh, empty store. path may be empty for a purely in-memory store (tests,
// dry runs), in which case Flush is a no-op.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:    strings.TrimSpace(path),
		logger:  logger,
		byPhone: make(map[string]*Lead),
	}
	if s.path == "" {
		return s, nil
	}
	records, exists, err := readCSV(s.path)
	if err != nil {
		return nil, fmt.Errorf("leads: load %s: %w", s.path, err)
	}
	if exists {
		for _, rec := range records {
			lead := rec
			if _, seen := s.byPhone[lead.Phone]; !seen {
				s.order = append(s.order, lead.Phone)
			}
			s.byPhone[lead.Phone] = &lead
		}
		logger.Info("leads_loaded", "path", s.path, "count", len(s.order))
	}
	return s, nil
}

// Upsert inserts or updates the single Lead for phone. Empty name, status or
// excerpt leave the existing value untouched on update.
func (s *Store) Upsert(phone, name string, status Status, excerpt string) {
	now := time.Now().UTC()
	excerpt = truncateExcerpt(excerpt)

	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.byPhone[phone]
	if !ok {
		if status == "" {
			status = StatusNew
		}
		s.byPhone[phone] = &Lead{
			Phone:              phone,
			Name:               strings.TrimSpace(name),
			Status:             status,
			LastMessageExcerpt: excerpt,
			LastUpdated:        now,
		}
		s.order = append(s.order, phone)
		s.dirty = true
		return
	}

	if name = strings.TrimSpace(name); name != "" {
		lead.Name = name
	}
	if status != "" {
		lead.Status = status
	}
	if excerpt != "" {
		lead.LastMessageExcerpt = excerpt
	}
	lead.LastUpdated = now
	s.dirty = true
}

// Get returns the Lead for phone, if any.
func (s *Store) Get(phone string) (Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.byPhone[phone]
	if !ok {
		return Lead{}, false
	}
	return *lead, true
}

// All returns every lead in first-seen insertion order.
func (s *Store) All() []Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Lead, 0, len(s.order))
	for _, phone := range s.order {
		out = append(out, *s.byPhone[phone])
	}
	return out
}

// SetStatus updates the status of an existing lead. An absent phone is a
// local, recoverable condition: it is logged and the call returns.
func (s *Store) SetStatus(phone string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.byPhone[phone]
	if !ok {
		s.logger.Warn("lead_status_skipped", "phone", phone, "status", string(status), "reason", "not_found")
		return
	}
	lead.Status = status
	lead.LastUpdated = time.Now().UTC()
	s.dirty = true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Flush serializes the map to the CSV file when there are unwritten changes.
// On failure the dirty flag stays set so the next flush retries; nothing is
// dropped from memory.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty || s.path == "" {
		return nil
	}
	records := make([]Lead, 0, len(s.order))
	for _, phone := range s.order {
		records = append(records, *s.byPhone[phone])
	}
	if err := writeCSV(s.path, records); err != nil {
		s.logger.Error("leads_flush_failed", "path", s.path, "error", err.Error())
		return fmt.Errorf("leads: flush %s: %w", s.path, err)
	}
	s.dirty = false
	s.logger.Debug("leads_flushed", "path", s.path, "count", len(records))
	return nil
}

func truncateExcerpt(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= excerptMaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:excerptMaxRunes-1]) + "…"
}
