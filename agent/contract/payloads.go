package contract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Payload is the closed set of success shapes a tool can return.
type Payload interface {
	Kind() string
	sealed()
}

const (
	KindMeetingScheduled = "meeting_scheduled"
	KindAvailableSlots   = "available_slots"
	KindMeetingList      = "meeting_list"
	KindContactInfo      = "contact_info"
	KindContactSearch    = "contact_search"
	KindCompanyInfo      = "company_info"
	KindNoteCreated      = "note_created"
	KindEmailPrepared    = "email_prepared"
	KindEmailSent        = "email_sent"
	KindBulkEmailReport  = "bulk_email_report"
)

type MeetingScheduled struct {
	MeetingID       string `json:"meeting_id"`
	Title           string `json:"title"`
	Counterpart     string `json:"counterpart"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	CalendarLink    string `json:"calendar_link"`
}

type AvailableSlots struct {
	Date            string   `json:"date"`
	DurationMinutes int      `json:"duration_minutes"`
	Slots           []string `json:"slots"`
}

type MeetingScope string

const (
	ScopeUpcoming   MeetingScope = "upcoming"
	ScopeWithPerson MeetingScope = "with_person"
)

type MeetingSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
	Location    string    `json:"location,omitempty"`
	MeetingLink string    `json:"meeting_link,omitempty"`
}

type MeetingList struct {
	Scope       MeetingScope     `json:"scope"`
	DaysAhead   int              `json:"days_ahead"`
	PersonEmail string           `json:"person_email,omitempty"`
	Meetings    []MeetingSummary `json:"meetings"`
}

type Contact struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Email          string `json:"email,omitempty"`
	Company        string `json:"company,omitempty"`
	JobTitle       string `json:"job_title,omitempty"`
	Phone          string `json:"phone,omitempty"`
	LifecycleStage string `json:"lifecycle_stage,omitempty"`
}

func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type ContactInfo struct {
	Email   string   `json:"email"`
	Found   bool     `json:"found"`
	Contact *Contact `json:"contact,omitempty"`
}

type ContactSearch struct {
	Query    string    `json:"query"`
	Contacts []Contact `json:"contacts"`
}

type Company struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Domain    string `json:"domain,omitempty"`
	Industry  string `json:"industry,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
	Employees string `json:"employees,omitempty"`
}

type CompanyInfo struct {
	Name    string   `json:"name"`
	Found   bool     `json:"found"`
	Company *Company `json:"company,omitempty"`
}

type NoteCreated struct {
	NoteID       string `json:"note_id"`
	ContactEmail string `json:"contact_email"`
	Title        string `json:"title"`
}

type LookupStatus string

const (
	LookupReadyToSend LookupStatus = "ready_to_send"
	LookupNotFound    LookupStatus = "not_found"
	LookupNoEmail     LookupStatus = "no_email"
)

// EmailPrepared is the first half of a two-phase send. Authorization is only
// set when Status is ready_to_send.
type EmailPrepared struct {
	Status        LookupStatus `json:"status"`
	PersonName    string       `json:"person_name"`
	Contact       *Contact     `json:"contact,omitempty"`
	Subject       string       `json:"subject"`
	Body          string       `json:"body"`
	Authorization string       `json:"authorization,omitempty"`
}

type EmailSent struct {
	MessageID string `json:"message_id"`
	To        string `json:"to"`
	ToName    string `json:"to_name"`
	Subject   string `json:"subject"`
}

type BulkEmailReport struct {
	Campaign         string   `json:"campaign"`
	Sent             int      `json:"sent"`
	Failed           int      `json:"failed"`
	Total            int      `json:"total"`
	FailedRecipients []string `json:"failed_recipients"`
}

func (MeetingScheduled) Kind() string { return KindMeetingScheduled }
func (AvailableSlots) Kind() string   { return KindAvailableSlots }
func (MeetingList) Kind() string      { return KindMeetingList }
func (ContactInfo) Kind() string      { return KindContactInfo }
func (ContactSearch) Kind() string    { return KindContactSearch }
func (CompanyInfo) Kind() string      { return KindCompanyInfo }
func (NoteCreated) Kind() string      { return KindNoteCreated }
func (EmailPrepared) Kind() string    { return KindEmailPrepared }
func (EmailSent) Kind() string        { return KindEmailSent }
func (BulkEmailReport) Kind() string  { return KindBulkEmailReport }

func (MeetingScheduled) sealed() {}
func (AvailableSlots) sealed()   {}
func (MeetingList) sealed()      {}
func (ContactInfo) sealed()      {}
func (ContactSearch) sealed()    {}
func (CompanyInfo) sealed()      {}
func (NoteCreated) sealed()      {}
func (EmailPrepared) sealed()    {}
func (EmailSent) sealed()        {}
func (BulkEmailReport) sealed()  {}

func decodePayload(kind string, raw json.RawMessage) (Payload, error) {
	switch kind {
	case KindMeetingScheduled:
		return decodeAs[MeetingScheduled](raw)
	case KindAvailableSlots:
		return decodeAs[AvailableSlots](raw)
	case KindMeetingList:
		return decodeAs[MeetingList](raw)
	case KindContactInfo:
		return decodeAs[ContactInfo](raw)
	case KindContactSearch:
		return decodeAs[ContactSearch](raw)
	case KindCompanyInfo:
		return decodeAs[CompanyInfo](raw)
	case KindNoteCreated:
		return decodeAs[NoteCreated](raw)
	case KindEmailPrepared:
		return decodeAs[EmailPrepared](raw)
	case KindEmailSent:
		return decodeAs[EmailSent](raw)
	case KindBulkEmailReport:
		return decodeAs[BulkEmailReport](raw)
	default:
		return nil, fmt.Errorf("%w: unknown payload kind %q", ErrValidation, kind)
	}
}

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", v.Kind(), err)
	}
	return v, nil
}
