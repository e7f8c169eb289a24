// Package caldav implements the assistant's calendar client on top of a
// CalDAV server.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

const productID = "-//salesops-assistant//caldav//EN"

type Config struct {
	URL          string        `envconfig:"URL"`
	Username     string        `envconfig:"USERNAME"`
	Password     string        `envconfig:"PASSWORD"`
	CalendarPath string        `envconfig:"CALENDAR_PATH" split_words:"true"`
	Timeout      time.Duration `split_words:"true" default:"15s"`
}

func (c Config) Configured() bool {
	return strings.TrimSpace(c.URL) != ""
}

type Client struct {
	dav *caldav.Client
	now func() time.Time

	mu           sync.Mutex
	calendarPath string
}

type Option func(*Client)

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(cfg Config, httpClient *http.Client, opts ...Option) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, errors.New("caldav url is required")
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var doer webdav.HTTPClient = httpClient
	if cfg.Username != "" {
		doer = webdav.HTTPClientWithBasicAuth(httpClient, cfg.Username, cfg.Password)
	}
	dav, err := caldav.NewClient(doer, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create caldav client: %w", err)
	}

	c := &Client{
		dav:          dav,
		now:          time.Now,
		calendarPath: strings.TrimSpace(cfg.CalendarPath),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// ListEvents returns events overlapping [from, to), with recurrences expanded
// by the server, ordered by start.
func (c *Client) ListEvents(ctx context.Context, from, to time.Time) ([]contractx.CalendarEvent, error) {
	path, err := c.calendar(ctx)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{
				Name:     ical.CompEvent,
				AllProps: true,
			}},
			Expand: &caldav.CalendarExpandRequest{Start: from.UTC(), End: to.UTC()},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from.UTC(),
				End:   to.UTC(),
			}},
		},
	}

	objects, err := c.dav.QueryCalendar(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar %s: %w", path, err)
	}

	var out []contractx.CalendarEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ev := range obj.Data.Events() {
			converted, err := toEvent(ev, from.Location())
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", obj.Path, err)
			}
			if !converted.End.After(from) || !converted.Start.Before(to) {
				continue
			}
			out = append(out, converted)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (c *Client) CreateEvent(ctx context.Context, ev contractx.NewCalendarEvent) (contractx.CalendarEvent, error) {
	path, err := c.calendar(ctx)
	if err != nil {
		return contractx.CalendarEvent{}, err
	}

	uid := uuid.NewString()
	cal := newEventCalendar(uid, ev, c.now())
	objectPath := strings.TrimRight(path, "/") + "/" + uid + ".ics"
	if _, err := c.dav.PutCalendarObject(ctx, objectPath, cal); err != nil {
		return contractx.CalendarEvent{}, fmt.Errorf("put calendar object: %w", err)
	}

	return contractx.CalendarEvent{
		ID:          uid,
		Title:       ev.Title,
		Description: ev.Description,
		Start:       ev.Start,
		End:         ev.End,
		Attendees:   append([]string(nil), ev.Attendees...),
		MeetingLink: MeetingLink(ev.Description),
	}, nil
}

// calendar resolves the calendar collection, discovering the first calendar
// of the current principal when none is configured.
func (c *Client) calendar(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calendarPath != "" {
		return c.calendarPath, nil
	}

	principal, err := c.dav.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}
	home, err := c.dav.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find calendar home: %w", err)
	}
	calendars, err := c.dav.FindCalendars(ctx, home)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}
	if len(calendars) == 0 {
		return "", fmt.Errorf("no calendars under %s", home)
	}
	c.calendarPath = calendars[0].Path
	return c.calendarPath, nil
}

func newEventCalendar(uid string, ev contractx.NewCalendarEvent, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	event.Props.SetText(ical.PropSummary, ev.Title)
	if ev.Description != "" {
		event.Props.SetText(ical.PropDescription, ev.Description)
	}
	for _, addr := range ev.Attendees {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = "mailto:" + addr
		prop.Params.Set(ical.ParamRole, "REQ-PARTICIPANT")
		event.Props.Add(prop)
	}

	cal.Children = append(cal.Children, event.Component)
	return cal
}

func toEvent(ev ical.Event, loc *time.Location) (contractx.CalendarEvent, error) {
	if loc == nil {
		loc = time.UTC
	}

	start, err := ev.DateTimeStart(loc)
	if err != nil {
		return contractx.CalendarEvent{}, fmt.Errorf("start: %w", err)
	}
	end, err := ev.DateTimeEnd(loc)
	if err != nil {
		return contractx.CalendarEvent{}, fmt.Errorf("end: %w", err)
	}

	allDay := false
	if prop := ev.Props.Get(ical.PropDateTimeStart); prop != nil && prop.ValueType() == ical.ValueDate {
		allDay = true
	}
	if end.IsZero() || !end.After(start) {
		if allDay {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start
		}
	}

	out := contractx.CalendarEvent{
		ID:          text(ev.Props, ical.PropUID),
		Title:       text(ev.Props, ical.PropSummary),
		Description: text(ev.Props, ical.PropDescription),
		Location:    text(ev.Props, ical.PropLocation),
		Start:       start,
		End:         end,
		AllDay:      allDay,
		Transparent: strings.EqualFold(text(ev.Props, ical.PropTransparency), "TRANSPARENT"),
	}
	for _, p := range ev.Props.Values(ical.PropAttendee) {
		if addr := mailtoAddress(p.Value); addr != "" {
			out.Attendees = append(out.Attendees, addr)
		}
	}
	out.MeetingLink = eventMeetingLink(ev, out)
	return out, nil
}

func text(props ical.Props, name string) string {
	v, err := props.Text(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func mailtoAddress(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= len("mailto:") && strings.EqualFold(v[:len("mailto:")], "mailto:") {
		v = v[len("mailto:"):]
	}
	return strings.TrimSpace(v)
}
