// Package followup periodically sweeps the card store for customers whose
// follow-up date has passed.
package followup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	cardsx "github.com/tanpawarit/salesops-assistant/pkg/cards"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
)

type Config struct {
	Enabled  bool   `envconfig:"ENABLED" default:"true"`
	Schedule string `envconfig:"SCHEDULE" default:"0 9 * * 1-5"`
	Timezone string `envconfig:"TIMEZONE" default:"UTC"`
}

type DueSource interface {
	DueForFollowUp(ctx context.Context, now time.Time) ([]cardsx.Card, error)
}

// Gauge receives sweep results. *metrics.Recorder satisfies it.
type Gauge interface {
	SetFollowUpsDue(n int)
	FollowUpSweepFailed()
}

// Publisher delivers a reminder for a sweep that found due cards.
// *qstash.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, body any) (string, error)
}

type nopGauge struct{}

func (nopGauge) SetFollowUpsDue(int)  {}
func (nopGauge) FollowUpSweepFailed() {}

type Report struct {
	At  time.Time
	Due []cardsx.Card

	// ReminderID is set when a reminder was published for this sweep.
	ReminderID string
}

type reminder struct {
	At  time.Time     `json:"at"`
	Due []dueCustomer `json:"due"`
}

type dueCustomer struct {
	CardID     int64      `json:"card_id"`
	Customer   string     `json:"customer"`
	Company    string     `json:"company,omitempty"`
	Email      string     `json:"email,omitempty"`
	Status     string     `json:"status"`
	AssignedTo string     `json:"assigned_to,omitempty"`
	DueAt      *time.Time `json:"due_at,omitempty"`
}

type Scheduler struct {
	source    DueSource
	gauge     Gauge
	publisher Publisher
	now       func() time.Time
	cron      *cronlib.Cron
	schedule  string

	mu   sync.Mutex
	last *Report
}

type Option func(*Scheduler)

func WithGauge(g Gauge) Option {
	return func(s *Scheduler) {
		if g != nil {
			s.gauge = g
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) {
		s.publisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

var parser = cronlib.NewParser(cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor)

func New(cfg Config, source DueSource, opts ...Option) (*Scheduler, error) {
	if source == nil {
		return nil, errors.New("follow-up source is required")
	}
	expr := strings.TrimSpace(cfg.Schedule)
	if _, err := parser.Parse(expr); err != nil {
		return nil, fmt.Errorf("invalid follow-up schedule %q: %w", cfg.Schedule, err)
	}
	loc := time.UTC
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid follow-up timezone %q: %w", tz, err)
		}
		loc = l
	}

	s := &Scheduler{
		source:   source,
		gauge:    nopGauge{},
		now:      time.Now,
		schedule: expr,
		cron:     cronlib.New(cronlib.WithParser(parser), cronlib.WithLocation(loc)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start registers the sweep and runs the cron loop until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	log := logx.Component("followup")
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			log.Error().Err(err).Msg("follow-up sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule follow-up sweep: %w", err)
	}

	s.cron.Start()
	log.Info().Str("schedule", s.schedule).Msg("follow-up scheduler started")

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		log.Info().Msg("follow-up scheduler stopped")
	}()
	return nil
}

// Sweep reads the cards due now, logs one line per card and updates the
// gauge. With a publisher set, one reminder listing the due cards is
// published; a publish failure is returned after the report is recorded.
func (s *Scheduler) Sweep(ctx context.Context) (Report, error) {
	now := s.now()
	due, err := s.source.DueForFollowUp(ctx, now)
	if err != nil {
		s.gauge.FollowUpSweepFailed()
		return Report{}, fmt.Errorf("load due cards: %w", err)
	}

	log := logx.Ctx(ctx)
	for _, c := range due {
		ev := log.Info().
			Int64("card_id", c.ID).
			Str("customer", c.CustomerName).
			Str("status", string(c.Status)).
			Str("assigned_to", c.AssignedTo)
		if c.NextFollowupDate != nil {
			ev = ev.Time("due", *c.NextFollowupDate)
		}
		ev.Msg("follow-up due")
	}
	s.gauge.SetFollowUpsDue(len(due))

	report := Report{At: now, Due: due}
	var publishErr error
	if s.publisher != nil && len(due) > 0 {
		id, err := s.publisher.Publish(ctx, newReminder(now, due))
		if err != nil {
			s.gauge.FollowUpSweepFailed()
			publishErr = fmt.Errorf("publish follow-up reminder: %w", err)
		} else {
			report.ReminderID = id
			log.Info().Str("reminder_id", id).Int("due", len(due)).Msg("follow-up reminder published")
		}
	}

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()
	return report, publishErr
}

func newReminder(at time.Time, due []cardsx.Card) reminder {
	out := reminder{At: at.UTC(), Due: make([]dueCustomer, 0, len(due))}
	for _, c := range due {
		out.Due = append(out.Due, dueCustomer{
			CardID:     c.ID,
			Customer:   c.CustomerName,
			Company:    c.Company,
			Email:      c.Email,
			Status:     string(c.Status),
			AssignedTo: c.AssignedTo,
			DueAt:      c.NextFollowupDate,
		})
	}
	return out
}

// Last returns the most recent successful sweep, if any.
func (s *Scheduler) Last() (Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Report{}, false
	}
	return *s.last, true
}
