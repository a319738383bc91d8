package monitor

import "sync/atomic"

// Stats tracks session counters. All methods are safe for concurrent
// use; counters stay observable even while per-contact work is failing.
type Stats struct {
	sent          atomic.Int64
	received      atomic.Int64
	aiReplies     atomic.Int64
	leadsCaptured atomic.Int64
	errors        atomic.Int64
	cycles        atomic.Int64
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	Sent          int64 `json:"sent"`
	Received      int64 `json:"received"`
	AIReplies     int64 `json:"ai_replies"`
	LeadsCaptured int64 `json:"leads_captured"`
	Errors        int64 `json:"errors"`
	Cycles        int64 `json:"cycles"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Sent:          s.sent.Load(),
		Received:      s.received.Load(),
		AIReplies:     s.aiReplies.Load(),
		LeadsCaptured: s.leadsCaptured.Load(),
		Errors:        s.errors.Load(),
		Cycles:        s.cycles.Load(),
	}
}
