// Package crm exposes contact, company and note tools backed by a CrmClient.
package crm

import (
	"context"
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	toolx "github.com/tanpawarit/salesops-assistant/agent/tool"
)

const (
	ToolGetContactInfo      = "getContactInfo"
	ToolSearchContacts      = "searchContacts"
	ToolGetCompanyInfo      = "getCompanyInfo"
	ToolCreateNote          = "createNote"
	ToolGetRecentActivities = "getRecentActivities"

	DefaultNoteTitle = "AI Assistant Note"
)

type Capability struct {
	client  contractx.CrmClient
	timeout time.Duration
}

func New(client contractx.CrmClient, timeout time.Duration) (*Capability, error) {
	if client == nil {
		return nil, errors.New("crm client is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Capability{client: client, timeout: timeout}, nil
}

func (c *Capability) Register(r *toolx.Registry) error {
	actions := map[string]contractx.ActionFunc{
		ToolGetContactInfo:      c.getContactInfo,
		ToolSearchContacts:      c.searchContacts,
		ToolGetCompanyInfo:      c.getCompanyInfo,
		ToolCreateNote:          c.createNote,
		ToolGetRecentActivities: getRecentActivities,
	}
	for _, spec := range Specs() {
		if err := r.Register(spec, actions[spec.Name]); err != nil {
			return err
		}
	}
	return nil
}

type contactArgs struct {
	Email string `json:"email" validate:"required,email"`
}

func (c *Capability) getContactInfo(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	var in contactArgs
	if err := toolx.Bind(contactSpec, args, &in); err != nil {
		return toolx.Invalid(err), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	email := strings.TrimSpace(in.Email)
	contact, err := c.client.FindContactByEmail(ctx, email)
	if err != nil {
		return contractx.Fail(contractx.FailureDependency, "crm: %v", err), nil
	}
	return contractx.Success(contractx.ContactInfo{
		Email:   email,
		Found:   contact != nil,
		Contact: contact,
	}), nil
}

type searchArgs struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit" validate:"min=1,max=100"`
}

func (c *Capability) searchContacts(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	var in searchArgs
	if err := toolx.Bind(searchSpec, args, &in); err != nil {
		return toolx.Invalid(err), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := strings.TrimSpace(in.Query)
	contacts, err := c.client.SearchContacts(ctx, query, in.Limit)
	if err != nil {
		return contractx.Fail(contractx.FailureDependency, "crm: %v", err), nil
	}
	if len(contacts) > in.Limit {
		contacts = contacts[:in.Limit]
	}
	if contacts == nil {
		contacts = []contractx.Contact{}
	}
	return contractx.Success(contractx.ContactSearch{Query: query, Contacts: contacts}), nil
}

type companyArgs struct {
	CompanyName string `json:"companyName" validate:"required"`
}

func (c *Capability) getCompanyInfo(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	var in companyArgs
	if err := toolx.Bind(companySpec, args, &in); err != nil {
		return toolx.Invalid(err), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	name := strings.TrimSpace(in.CompanyName)
	company, err := c.client.FindCompany(ctx, name)
	if err != nil {
		return contractx.Fail(contractx.FailureDependency, "crm: %v", err), nil
	}
	return contractx.Success(contractx.CompanyInfo{Name: name, Found: company != nil, Company: company}), nil
}

type noteArgs struct {
	ContactEmail string `json:"contactEmail" validate:"required,email"`
	NoteContent  string `json:"noteContent" validate:"required"`
	NoteTitle    string `json:"noteTitle"`
}

func (c *Capability) createNote(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	var in noteArgs
	if err := toolx.Bind(noteSpec, args, &in); err != nil {
		return toolx.Invalid(err), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	email := strings.TrimSpace(in.ContactEmail)
	contact, err := c.client.FindContactByEmail(ctx, email)
	if err != nil {
		return contractx.Fail(contractx.FailureDependency, "crm: %v", err), nil
	}
	if contact == nil {
		return contractx.Fail(contractx.FailureInvalidArguments, "no CRM contact with email %s", email), nil
	}

	id, err := c.client.CreateNote(ctx, email, in.NoteTitle, in.NoteContent)
	if err != nil {
		return contractx.Fail(contractx.FailureDependency, "crm: %v", err), nil
	}
	return contractx.Success(contractx.NoteCreated{NoteID: id, ContactEmail: email, Title: in.NoteTitle}), nil
}

func getRecentActivities(_ context.Context, args map[string]any) (contractx.ToolResult, error) {
	var in struct {
		ContactEmail string `json:"contactEmail" validate:"required,email"`
		Limit        int    `json:"limit"`
	}
	if err := toolx.Bind(activitiesSpec, args, &in); err != nil {
		return toolx.Invalid(err), nil
	}
	return contractx.Fail(contractx.FailureNotImplemented, "activity history is not available for %s", in.ContactEmail), nil
}
