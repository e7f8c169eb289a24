// Package calendar exposes scheduling and availability tools backed by a
// CalendarClient.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	toolx "github.com/tanpawarit/salesops-assistant/agent/tool"
)

const (
	ToolScheduleMeeting         = "scheduleMeeting"
	ToolGetAvailableSlots       = "getAvailableSlots"
	ToolGetUpcomingMeetings     = "getUpcomingMeetings"
	ToolCheckMeetingsWithPerson = "checkMeetingsWithPerson"

	SlotStride        = 30 * time.Minute
	personLookahead   = 30
	defaultWorkStart  = "09:00"
	defaultWorkEnd    = "17:00"
	defaultCallBudget = 15 * time.Second
)

var dateLayout = "2006-01-02"

var timeLayouts = []string{"15:04", "15:04:05", "3:04PM", "3:04 PM", "3PM", "3 PM"}

type Config struct {
	Timezone  string        `envconfig:"TIMEZONE" split_words:"true" default:"UTC"`
	WorkStart string        `envconfig:"WORK_START" split_words:"true" default:"09:00"`
	WorkEnd   string        `envconfig:"WORK_END" split_words:"true" default:"17:00"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

type Capability struct {
	client    contractx.CalendarClient
	loc       *time.Location
	workStart time.Duration
	workEnd   time.Duration
	timeout   time.Duration
	now       func() time.Time
}

type Option func(*Capability)

func WithClock(now func() time.Time) Option {
	return func(c *Capability) {
		if now != nil {
			c.now = now
		}
	}
}

func New(client contractx.CalendarClient, cfg Config, opts ...Option) (*Capability, error) {
	if client == nil {
		return nil, errors.New("calendar client is required")
	}

	loc, err := time.LoadLocation(strings.TrimSpace(cfg.Timezone))
	if err != nil {
		return nil, fmt.Errorf("load calendar timezone: %w", err)
	}

	start, err := clockOffset(cfg.WorkStart, defaultWorkStart)
	if err != nil {
		return nil, fmt.Errorf("work start: %w", err)
	}
	end, err := clockOffset(cfg.WorkEnd, defaultWorkEnd)
	if err != nil {
		return nil, fmt.Errorf("work end: %w", err)
	}
	if end <= start {
		return nil, fmt.Errorf("%w: work window end must be after start", contractx.ErrValidation)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCallBudget
	}

	c := &Capability{
		client:    client,
		loc:       loc,
		workStart: start,
		workEnd:   end,
		timeout:   timeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Capability) Register(r *toolx.Registry) error {
	actions := map[string]contractx.ActionFunc{
		ToolScheduleMeeting:         c.scheduleMeeting,
		ToolGetAvailableSlots:       c.getAvailableSlots,
		ToolGetUpcomingMeetings:     c.getUpcomingMeetings,
		ToolCheckMeetingsWithPerson: c.checkMeetingsWithPerson,
	}
	for _, spec := range Specs() {
		if err := r.Register(spec, actions[spec.Name]); err != nil {
			return err
		}
	}
	return nil
}

type scheduleArgs struct {
	RecipientEmail  string `json:"recipientEmail" validate:"required,email"`
	Title           string `json:"title" validate:"required"`
	Date            string `json:"date" validate:"required"`
	StartTime       string `json:"startTime" validate:"required"`
	DurationMinutes int    `json:"durationMinutes" validate:"min=1,max=1440"`
	Description     string `json:"description"`
}

func (c *Capability) scheduleMeeting(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	var in scheduleArgs
	if err := toolx.Bind(scheduleSpec, args, &in); err != nil {
		return toolx.Invalid(err), nil
	}

	start, err := c.parseDateTime(in.Date, in.StartTime)
	if err != nil {
		return contractx.Fail(contractx.FailureInvalidArguments, "%v", err), nil
	}
	end := start.Add(time.Duration(in.DurationMinutes) * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ev, err := c.client.CreateEvent(ctx, contractx.NewCalendarEvent{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Start:       start,
		End:         end,
		Attendees:   []string{strings.TrimSpace(in.RecipientEmail)},
	})
	if err != nil {
		return contractx.Fail(contractx.FailureDependency, "calendar: %v", err), nil
	}

	link := ev.HTMLLink
	if link == "" {
		link = ev.MeetingLink
	}
	return contractx.Success(contractx.MeetingScheduled{
		MeetingID:       ev.ID,
		Title:           strings.TrimSpace(in.Title),
		Counterpart:     strings.TrimSpace(in.RecipientEmail),
		Date:            start.Format(dateLayout),
		StartTime:       start.Format("15:04"),
		DurationMinutes: in.DurationMinutes,
		CalendarLink:    link,
	}), nil
}

type slotArgs struct {
	Date            string `json:"date" validate:"required"`
	DurationMinutes int    `json:"durationMinutes" validate:"min=1,max=1440"`
}

func (c *Capability) getAvailableSlots(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	var in slotArgs
	if err := toolx.Bind(slotsSpec, args, &in); err != nil {
		return toolx.Invalid(err), nil
	}

	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(in.Date), c.loc)
	if err != nil {
		return contractx.Fail(contractx.FailureInvalidArguments, "date %q is not YYYY-MM-DD", in.Date), nil
	}
	window := Interval{Start: day.Add(c.workStart), End: day.Add(c.workEnd)}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	events, err := c.client.ListEvents(ctx, window.Start, window.End)
	if err != nil {
		return contractx.Fail(contractx.FailureDependency, "calendar: %v", err), nil
	}

	duration := time.Duration(in.DurationMinutes) * time.Minute
	starts := FreeSlots(window, BusyBlocks(events, window), duration, SlotStride)
	slots := make([]string, 0, len(starts))
	for _, s := range starts {
		slots = append(slots, s.In(c.loc).Format("15:04"))
	}

	return contractx.Success(contractx.AvailableSlots{
		Date:            day.Format(dateLayout),
		DurationMinutes: in.DurationMinutes,
		Slots:           slots,
	}), nil
}

type upcomingArgs struct {
	DaysAhead   int    `json:"daysAhead" validate:"min=0,max=365"`
	PersonEmail string `json:"personEmail" validate:"omitempty,email"`
}

func (c *Capability) getUpcomingMeetings(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	var in upcomingArgs
	if err := toolx.Bind(upcomingSpec, args, &in); err != nil {
		return toolx.Invalid(err), nil
	}

	now := c.now().In(c.loc)
	to := now.AddDate(0, 0, in.DaysAhead)
	if in.DaysAhead == 0 {
		to = endOfDay(now)
	}

	meetings, err := c.meetingsBetween(ctx, now, to, in.PersonEmail)
	if err != nil {
		return contractx.Fail(contractx.FailureDependency, "calendar: %v", err), nil
	}

	scope := contractx.ScopeUpcoming
	if in.PersonEmail != "" {
		scope = contractx.ScopeWithPerson
	}
	return contractx.Success(contractx.MeetingList{
		Scope:       scope,
		DaysAhead:   in.DaysAhead,
		PersonEmail: strings.TrimSpace(in.PersonEmail),
		Meetings:    meetings,
	}), nil
}

type personArgs struct {
	Email string `json:"email" validate:"required,email"`
}

func (c *Capability) checkMeetingsWithPerson(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	var in personArgs
	if err := toolx.Bind(personSpec, args, &in); err != nil {
		return toolx.Invalid(err), nil
	}

	now := c.now().In(c.loc)
	meetings, err := c.meetingsBetween(ctx, now, now.AddDate(0, 0, personLookahead), in.Email)
	if err != nil {
		return contractx.Fail(contractx.FailureDependency, "calendar: %v", err), nil
	}

	return contractx.Success(contractx.MeetingList{
		Scope:       contractx.ScopeWithPerson,
		DaysAhead:   personLookahead,
		PersonEmail: strings.TrimSpace(in.Email),
		Meetings:    meetings,
	}), nil
}

func (c *Capability) meetingsBetween(ctx context.Context, from, to time.Time, attendee string) ([]contractx.MeetingSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	events, err := c.client.ListEvents(ctx, from, to)
	if err != nil {
		return nil, err
	}

	attendee = strings.TrimSpace(attendee)
	out := make([]contractx.MeetingSummary, 0, len(events))
	for _, ev := range events {
		if !ev.End.After(from) || !ev.Start.Before(to) {
			continue
		}
		if attendee != "" && !hasAttendee(ev, attendee) {
			continue
		}
		out = append(out, summarize(ev, c.loc))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (c *Capability) parseDateTime(date, clock string) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not YYYY-MM-DD", date)
	}
	offset, err := clockOffset(clock, "")
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(offset), nil
}

// clockOffset parses a wall-clock time into an offset from midnight.
func clockOffset(clock, fallback string) (time.Duration, error) {
	clock = strings.ToUpper(strings.TrimSpace(clock))
	if clock == "" {
		clock = fallback
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("time %q is not HH:MM", clock)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

func hasAttendee(ev contractx.CalendarEvent, email string) bool {
	for _, a := range ev.Attendees {
		if strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(a), "mailto:"), email) {
			return true
		}
	}
	return false
}

func summarize(ev contractx.CalendarEvent, loc *time.Location) contractx.MeetingSummary {
	title := strings.TrimSpace(ev.Title)
	if title == "" {
		title = "(no title)"
	}
	return contractx.MeetingSummary{
		ID:          ev.ID,
		Title:       title,
		Start:       ev.Start.In(loc),
		End:         ev.End.In(loc),
		AllDay:      ev.AllDay,
		Attendees:   append([]string(nil), ev.Attendees...),
		Location:    ev.Location,
		MeetingLink: ev.MeetingLink,
	}
}
