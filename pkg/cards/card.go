package cards

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type Status string

const (
	StatusToReach    Status = "to_reach"
	StatusInProgress Status = "in_progress"
	StatusReachedOut Status = "reached_out"
	StatusFollowup   Status = "followup"
)

var Statuses = []Status{StatusToReach, StatusInProgress, StatusReachedOut, StatusFollowup}

func ParseStatus(s string) (Status, error) {
	v := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range Statuses {
		if st == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidCard, s)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) (Priority, error) {
	switch v := Priority(strings.ToLower(strings.TrimSpace(s))); v {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidCard, s)
	}
}

// Card is one customer on the pipeline board.
type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c" json:"-" yaml:"-"`

	ID               int64      `bun:"id,pk,autoincrement" json:"id" yaml:"-"`
	CustomerName     string     `bun:"customer_name,notnull" json:"customer_name" yaml:"customer_name"`
	Company          string     `bun:"company,nullzero" json:"company,omitempty" yaml:"company"`
	Email            string     `bun:"email,nullzero" json:"email,omitempty" yaml:"email"`
	Phone            string     `bun:"phone,nullzero" json:"phone,omitempty" yaml:"phone"`
	Status           Status     `bun:"status,notnull" json:"status" yaml:"status"`
	Priority         Priority   `bun:"priority,notnull" json:"priority" yaml:"priority"`
	Notes            string     `bun:"notes,nullzero" json:"notes,omitempty" yaml:"notes"`
	AssignedTo       string     `bun:"assigned_to,nullzero" json:"assigned_to,omitempty" yaml:"assigned_to"`
	LastContactDate  *time.Time `bun:"last_contact_date" json:"last_contact_date,omitempty" yaml:"-"`
	NextFollowupDate *time.Time `bun:"next_followup_date" json:"next_followup_date,omitempty" yaml:"-"`
	CreatedAt        time.Time  `bun:"created_at,notnull" json:"created_at" yaml:"-"`
	UpdatedAt        time.Time  `bun:"updated_at,notnull" json:"updated_at" yaml:"-"`
}

func (c *Card) normalize() error {
	c.CustomerName = strings.TrimSpace(c.CustomerName)
	if c.CustomerName == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidCard)
	}
	c.Email = strings.TrimSpace(c.Email)
	if c.Status == "" {
		c.Status = StatusToReach
	}
	if _, err := ParseStatus(string(c.Status)); err != nil {
		return err
	}
	if c.Priority == "" {
		c.Priority = PriorityMedium
	}
	if _, err := ParsePriority(string(c.Priority)); err != nil {
		return err
	}
	return nil
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	CustomerName     *string    `json:"customer_name,omitempty"`
	Company          *string    `json:"company,omitempty"`
	Email            *string    `json:"email,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	Status           *Status    `json:"status,omitempty"`
	Priority         *Priority  `json:"priority,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	AssignedTo       *string    `json:"assigned_to,omitempty"`
	LastContactDate  *time.Time `json:"last_contact_date,omitempty"`
	NextFollowupDate *time.Time `json:"next_followup_date,omitempty"`
}

func (p Patch) apply(c *Card) {
	if p.CustomerName != nil {
		c.CustomerName = *p.CustomerName
	}
	if p.Company != nil {
		c.Company = *p.Company
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Priority != nil {
		c.Priority = *p.Priority
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if p.AssignedTo != nil {
		c.AssignedTo = *p.AssignedTo
	}
	if p.LastContactDate != nil {
		c.LastContactDate = p.LastContactDate
	}
	if p.NextFollowupDate != nil {
		c.NextFollowupDate = p.NextFollowupDate
	}
}
