package contract

import (
	"context"
	"time"

	cardsx "github.com/tanpawarit/salesops-assistant/pkg/cards"
)

// Action executes one tool. A returned error is treated as a dependency
// failure by the caller.
type Action interface {
	Execute(ctx context.Context, args map[string]any) (ToolResult, error)
}

type ActionFunc func(ctx context.Context, args map[string]any) (ToolResult, error)

func (f ActionFunc) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	return f(ctx, args)
}

type LanguageModel interface {
	ProposeActions(ctx context.Context, req ModelRequest, specs []ToolSpec) (Proposal, error)
}

type CardStore interface {
	FindByName(ctx context.Context, pattern string) (*cardsx.Card, error)
	AllWithEmail(ctx context.Context) ([]cardsx.Card, error)
}

type CalendarEvent struct {
	ID          string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Transparent bool
	Attendees   []string
	MeetingLink string
	HTMLLink    string
}

type NewCalendarEvent struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

type CalendarClient interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]CalendarEvent, error)
	CreateEvent(ctx context.Context, ev NewCalendarEvent) (CalendarEvent, error)
}

type CrmClient interface {
	// FindContactByEmail returns nil, nil when no contact matches.
	FindContactByEmail(ctx context.Context, email string) (*Contact, error)
	SearchContacts(ctx context.Context, query string, limit int) ([]Contact, error)
	FindCompany(ctx context.Context, name string) (*Company, error)
	CreateNote(ctx context.Context, contactEmail, title, body string) (string, error)
}

type OutgoingEmail struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

type MailClient interface {
	Send(ctx context.Context, msg OutgoingEmail) (messageID string, err error)
}
