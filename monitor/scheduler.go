package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"waleads/chat"
	"waleads/conversation"
	"waleads/leads"
	"waleads/llm"
	"waleads/watcher"
)

const (
	// DefaultInterval is the pause between polling cycles.
	DefaultInterval = 10 * time.Second
	// DefaultWorkers caps concurrent per-contact checks. The chat
	// session is a single logged-in client, so the ceiling stays small;
	// setting it to 1 degrades to serialized cycles, which is fine.
	DefaultWorkers = 3
)

var (
	ErrAlreadyRunning = errors.New("monitor: scheduler already running")
	ErrNotRunning     = errors.New("monitor: scheduler not running")
)

type schedState int

const (
	stateStopped schedState = iota
	stateRunning
	stateStopping
)

// Scheduler owns the watch set and the repeating polling cycle.
// Start/Stop/AddContact/RemoveContact are safe to call concurrently.
type Scheduler struct {
	session  *Session
	interval time.Duration
	workers  int

	mu     sync.Mutex
	state  schedState
	watch  map[string]struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(session *Session, interval time.Duration, workers int) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Scheduler{
		session:  session,
		interval: interval,
		workers:  workers,
		watch:    make(map[string]struct{}),
	}
}

// Start seeds the watch set with phones (already-normalized keys) and
// launches the polling loop. It returns ErrAlreadyRunning unless the
// scheduler is stopped.
func (s *Scheduler) Start(ctx context.Context, phones []string) error {
	s.mu.Lock()
	if s.state != stateStopped {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.state = stateRunning
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	for _, phone := range phones {
		if err := s.AddContact(runCtx, phone); err != nil {
			s.session.Logger.Warn("contact_seed_failed", "phone", phone, "error", err)
		}
	}

	go s.run(runCtx)
	return nil
}

// Stop signals cancellation, waits for in-flight per-contact work to
// finish, and flushes leads. Calling Stop on a stopped scheduler is a
// no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		return
	}
	s.state = stateStopping
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.state = stateStopped
	s.mu.Unlock()
}

// Running reports whether the polling loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

// AddContact puts a phone under watch. Registration seeds the watcher
// with the chat's current fingerprint so pre-existing history is not
// replayed as new; a transient read error is retried once. The phone is
// watched even when seeding fails — the next cycle's check seeds it then,
// at the cost of surfacing the latest pre-existing message once. The
// returned error reports the seeding failure. Safe while running.
func (s *Scheduler) AddContact(ctx context.Context, phone string) error {
	err := s.session.Watcher.Register(ctx, phone)
	if err != nil && isTransient(err) {
		s.session.Logger.Debug("transient_register_retry", "phone", phone, "error", err)
		err = s.session.Watcher.Register(ctx, phone)
	}
	s.mu.Lock()
	s.watch[phone] = struct{}{}
	s.mu.Unlock()
	return err
}

// RemoveContact takes a phone out of the watch set. An in-flight check
// for it is allowed to finish but its result is discarded.
func (s *Scheduler) RemoveContact(phone string) {
	s.mu.Lock()
	delete(s.watch, phone)
	s.mu.Unlock()
	s.session.Watcher.Forget(phone)
}

// Contacts returns a snapshot of the watch set.
func (s *Scheduler) Contacts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.watch))
	for phone := range s.watch {
		out = append(out, phone)
	}
	return out
}

func (s *Scheduler) watching(phone string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watch[phone]
	return ok
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			if err := s.session.Leads.Flush(); err != nil {
				s.session.Logger.Error("final_flush_failed", "error", err)
			}
			s.session.Logger.Info("monitoring_stopped", "stats", s.session.Stats.Snapshot())
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle fans out over the current watch set with bounded
// concurrency and flushes leads once all per-contact work is done.
func (s *Scheduler) runCycle(ctx context.Context) {
	cycleID := uuid.NewString()[:8]
	phones := s.Contacts()

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for _, phone := range phones {
		// Cancellation is checked between contacts, never mid-send.
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(phone string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.processContact(ctx, cycleID, phone)
		}(phone)
	}
	wg.Wait()

	if err := s.session.Leads.Flush(); err != nil {
		s.session.Logger.Error("leads_flush_failed", "cycle", cycleID, "error", err)
	}
	s.session.Stats.cycles.Add(1)
	s.session.Logger.Debug("cycle_complete", "cycle", cycleID, "contacts", len(phones))
}

// processContact runs the per-phone pipeline: check for a new inbound,
// append it, generate a reply, send it, append the outbound turn, and
// upsert the lead. Any failure is logged and counted without touching
// other contacts.
func (s *Scheduler) processContact(ctx context.Context, cycleID, phone string) {
	sess := s.session
	log := sess.Logger.With("cycle", cycleID, "phone", phone)

	msg, err := s.checkForNew(ctx, phone)
	if err != nil {
		sess.Stats.errors.Add(1)
		log.Warn("contact_check_failed", "error", err)
		return
	}
	if msg == nil {
		return
	}
	// The contact may have been removed while the check was in flight;
	// a stale result is discarded, not processed.
	if !s.watching(phone) {
		log.Debug("stale_result_discarded")
		return
	}

	sess.Stats.received.Add(1)
	sess.Conversations.Append(phone, conversation.Turn{
		Direction: conversation.Inbound,
		Text:      msg.Text,
		Timestamp: time.Now(),
	})

	reply, err := sess.Responder.Respond(ctx, phone, msg.Text, sess.Conversations.History(phone))
	if err != nil && isTransient(err) {
		log.Debug("transient_generation_retry", "error", err)
		reply, err = sess.Responder.Respond(ctx, phone, msg.Text, sess.Conversations.History(phone))
	}
	if err != nil {
		sess.Stats.errors.Add(1)
		log.Warn("reply_generation_failed", "error", err)
		sess.Leads.Upsert(phone, "", leads.StatusEngaged, msg.Text)
		return
	}

	if err := s.sendWithRetry(ctx, phone, reply.Text); err != nil {
		sess.Stats.errors.Add(1)
		log.Warn("reply_send_failed", "error", err)
		return
	}

	sess.Stats.sent.Add(1)
	sess.Stats.aiReplies.Add(1)
	sess.Conversations.Append(phone, conversation.Turn{
		Direction: conversation.Outbound,
		Text:      reply.Text,
		Timestamp: time.Now(),
	})

	status := leads.StatusEngaged
	if reply.LeadConfirmed {
		status = leads.StatusConfirmed
		sess.Stats.leadsCaptured.Add(1)
		log.Info("lead_confirmed", "detail", reply.LeadDetail)
	}
	sess.Leads.Upsert(phone, "", status, msg.Text)

	log.Info("inbound_processed", "degraded", reply.Degraded)
}

// checkForNew wraps the watcher call with a single in-cycle retry on
// transient chat errors; persistent failures defer to the next cycle.
// isTransient covers both transport and completion-service failures
// worth one in-cycle retry.
func isTransient(err error) bool {
	return chat.IsTransient(err) || errors.Is(err, llm.ErrUnavailable)
}

func (s *Scheduler) checkForNew(ctx context.Context, phone string) (*watcher.NewMessage, error) {
	m, err := s.session.Watcher.CheckForNew(ctx, phone)
	if err != nil && chat.IsTransient(err) {
		s.session.Logger.Debug("transient_check_retry", "phone", phone, "error", err)
		m, err = s.session.Watcher.CheckForNew(ctx, phone)
	}
	return m, err
}

func (s *Scheduler) sendWithRetry(ctx context.Context, phone, text string) error {
	err := s.session.Chat.SendText(ctx, phone, text)
	if err != nil && chat.IsTransient(err) {
		s.session.Logger.Debug("transient_send_retry", "phone", phone, "error", err)
		err = s.session.Chat.SendText(ctx, phone, text)
	}
	return err
}
