package caldav

import (
	"context"
	"errors"
	"time"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

var ErrNotConfigured = errors.New("calendar is not configured: set CALDAV_URL")

// Unconfigured is the calendar used when no CalDAV server is set.
type Unconfigured struct{}

var _ contractx.CalendarClient = Unconfigured{}

func (Unconfigured) ListEvents(context.Context, time.Time, time.Time) ([]contractx.CalendarEvent, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) CreateEvent(context.Context, contractx.NewCalendarEvent) (contractx.CalendarEvent, error) {
	return contractx.CalendarEvent{}, ErrNotConfigured
}
