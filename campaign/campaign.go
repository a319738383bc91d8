// Package campaign sends a templated message to a list of imported
// contacts over one WhatsApp session, pacing sends with randomized
// delays and a per-day cap, and records each recipient as a lead.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"waleads/chat"
	"waleads/ingest"
	"waleads/internal/fsstore"
	"waleads/leads"
)

// DefaultDailyLimit caps messages per calendar day for one account.
const DefaultDailyLimit = 40

// Default pacing between consecutive sends.
const (
	DefaultMinDelay = 25 * time.Second
	DefaultMaxDelay = 40 * time.Second
)

var ErrDailyLimitReached = errors.New("campaign: daily send limit reached")

// Options configures one campaign run.
type Options struct {
	// Template supports {name}, {phone}, and {custom_message}
	// placeholders. When empty, each contact's custom message is sent.
	Template string
	// MediaPath, when set, attaches the file to every message.
	MediaPath string
	// DailyLimit caps sends per calendar day; 0 means DefaultDailyLimit.
	DailyLimit int
	// MinDelay/MaxDelay bound the randomized pause between sends.
	MinDelay time.Duration
	MaxDelay time.Duration
	// ReportPath, when set, receives the JSON run report.
	ReportPath string
}

// Result is the outcome for a single recipient.
type Result struct {
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

// Report summarizes a campaign run.
type Report struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Results    []Result  `json:"results"`
}

// Sender runs campaigns over a single chat session. It is not safe for
// concurrent Run calls; the session can only type into one chat at a time.
type Sender struct {
	chat   chat.Client
	leads  *leads.Store
	logger *slog.Logger

	limiter *dayLimiter
	sleep   func(time.Duration)
	now     func() time.Time
}

func NewSender(client chat.Client, ls *leads.Store, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		chat:   client,
		leads:  ls,
		logger: logger,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// Run sends the campaign message to every contact, in order, until the
// list is exhausted, the daily limit is hit, or ctx is cancelled.
// Contacts not reached are reported as skipped. Each successful send
// upserts the contact as a lead with status contacted.
func (s *Sender) Run(ctx context.Context, contacts []ingest.Contact, opts Options) (*Report, error) {
	if opts.DailyLimit <= 0 {
		opts.DailyLimit = DefaultDailyLimit
	}
	if opts.MinDelay <= 0 {
		opts.MinDelay = DefaultMinDelay
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = DefaultMaxDelay
	}
	if s.limiter == nil || s.limiter.limit != opts.DailyLimit {
		s.limiter = newDayLimiter(opts.DailyLimit, s.now)
	}

	report := &Report{
		ID:        uuid.NewString(),
		StartedAt: s.now(),
		Results:   make([]Result, 0, len(contacts)),
	}
	log := s.logger.With("campaign", report.ID)
	log.Info("campaign_started", "contacts", len(contacts), "daily_limit", opts.DailyLimit)

	var stopErr error
	for i, c := range contacts {
		if err := ctx.Err(); err != nil {
			s.skipRemaining(report, contacts[i:], "cancelled")
			stopErr = err
			break
		}
		if !s.limiter.allow() {
			s.skipRemaining(report, contacts[i:], ErrDailyLimitReached.Error())
			stopErr = ErrDailyLimitReached
			break
		}

		message := ingest.RenderTemplate(opts.Template, c)
		if message == "" {
			message = strings.TrimSpace(c.CustomMessage)
		}
		if message == "" {
			report.Results = append(report.Results, Result{Phone: c.Phone.Key, Name: c.Name, Error: "empty message"})
			report.Skipped++
			log.Warn("campaign_row_skipped", "phone", c.Phone.Key, "reason", "empty message")
			continue
		}

		res := Result{Phone: c.Phone.Key, Name: c.Name}
		if err := s.send(ctx, c.Phone.Key, message, opts.MediaPath); err != nil {
			res.Error = err.Error()
			report.Failed++
			log.Warn("campaign_send_failed", "phone", c.Phone.Key, "error", err)
		} else {
			res.Sent = true
			report.Sent++
			s.limiter.consume()
			s.leads.Upsert(c.Phone.Key, c.Name, leads.StatusContacted, message)
		}
		report.Results = append(report.Results, res)

		if i < len(contacts)-1 {
			s.sleep(s.pause(opts.MinDelay, opts.MaxDelay))
		}
	}
	report.FinishedAt = s.now()

	if err := s.leads.Flush(); err != nil {
		log.Error("leads_flush_failed", "error", err)
	}
	if opts.ReportPath != "" {
		if err := fsstore.WriteJSONAtomic(opts.ReportPath, report); err != nil {
			return report, fmt.Errorf("write campaign report: %w", err)
		}
	}
	log.Info("campaign_finished", "sent", report.Sent, "failed", report.Failed, "skipped", report.Skipped)
	return report, stopErr
}

// send opens the chat and delivers the message, retrying once on a
// transient chat error.
func (s *Sender) send(ctx context.Context, phone, message, mediaPath string) error {
	attempt := func() error {
		if err := s.chat.OpenChat(ctx, phone); err != nil {
			return err
		}
		if mediaPath != "" {
			return s.chat.SendMedia(ctx, phone, message, mediaPath)
		}
		return s.chat.SendText(ctx, phone, message)
	}

	err := attempt()
	if err != nil && chat.IsTransient(err) {
		s.logger.Debug("campaign_send_retry", "phone", phone, "error", err)
		err = attempt()
	}
	return err
}

func (s *Sender) skipRemaining(report *Report, rest []ingest.Contact, reason string) {
	for _, c := range rest {
		report.Results = append(report.Results, Result{Phone: c.Phone.Key, Name: c.Name, Error: reason})
		report.Skipped++
	}
}

func (s *Sender) pause(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// dayLimiter counts sends per calendar day and rolls the counter over
// when the local date changes.
type dayLimiter struct {
	limit int
	now   func() time.Time

	day  string
	used int
}

func newDayLimiter(limit int, now func() time.Time) *dayLimiter {
	return &dayLimiter{limit: limit, now: now}
}

func (l *dayLimiter) rollover() {
	today := l.now().Format("2006-01-02")
	if l.day != today {
		l.day = today
		l.used = 0
	}
}

func (l *dayLimiter) allow() bool {
	l.rollover()
	return l.used < l.limit
}

func (l *dayLimiter) consume() {
	l.rollover()
	l.used++
}
