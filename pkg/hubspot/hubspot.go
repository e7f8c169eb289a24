// Package hubspot is a minimal HubSpot CRM v3 client covering contact and
// company search plus note creation.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

const (
	DefaultBaseURL = "https://api.hubapi.com"

	maxResponseSizeBytes = 1 << 20

	// noteToContact is HubSpot's built-in association type id for note -> contact.
	noteToContact = 202
)

var (
	contactProperties = []string{"firstname", "lastname", "email", "company", "jobtitle", "phone", "lifecyclestage"}
	companyProperties = []string{"name", "domain", "industry", "city", "country", "numberofemployees"}
)

type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.hubapi.com"`
	AccessToken string        `envconfig:"ACCESS_TOKEN" split_words:"true"`
	Timeout     time.Duration `split_words:"true" default:"10s"`
}

func (c Config) Configured() bool {
	return strings.TrimSpace(c.AccessToken) != ""
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("hubspot base url: %w", err)
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("hubspot access token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type searchRequest struct {
	Query        string        `json:"query,omitempty"`
	FilterGroups []filterGroup `json:"filterGroups,omitempty"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type object struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type searchResponse struct {
	Total   int      `json:"total"`
	Results []object `json:"results"`
}

func (c *Client) FindContactByEmail(ctx context.Context, email string) (*contractx.Contact, error) {
	obj, err := c.findContactObject(ctx, email)
	if err != nil || obj == nil {
		return nil, err
	}
	contact := toContact(*obj)
	return &contact, nil
}

func (c *Client) SearchContacts(ctx context.Context, query string, limit int) ([]contractx.Contact, error) {
	if limit <= 0 {
		limit = 10
	}
	var resp searchResponse
	err := c.do(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", searchRequest{
		Query:      strings.TrimSpace(query),
		Properties: contactProperties,
		Limit:      limit,
	}, &resp)
	if err != nil {
		return nil, err
	}
	out := make([]contractx.Contact, 0, len(resp.Results))
	for _, obj := range resp.Results {
		out = append(out, toContact(obj))
	}
	return out, nil
}

func (c *Client) FindCompany(ctx context.Context, name string) (*contractx.Company, error) {
	var resp searchResponse
	err := c.do(ctx, http.MethodPost, "/crm/v3/objects/companies/search", searchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{{PropertyName: "name", Operator: "EQ", Value: strings.TrimSpace(name)}}}},
		Properties:   companyProperties,
		Limit:        1,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	p := resp.Results[0].Properties
	return &contractx.Company{
		ID:        resp.Results[0].ID,
		Name:      p["name"],
		Domain:    p["domain"],
		Industry:  p["industry"],
		City:      p["city"],
		Country:   p["country"],
		Employees: p["numberofemployees"],
	}, nil
}

type association struct {
	To    objectRef         `json:"to"`
	Types []associationType `json:"types"`
}

type objectRef struct {
	ID string `json:"id"`
}

type associationType struct {
	Category string `json:"associationCategory"`
	TypeID   int    `json:"associationTypeId"`
}

type createNoteRequest struct {
	Properties   map[string]string `json:"properties"`
	Associations []association     `json:"associations"`
}

// CreateNote attaches a note to the contact with the given email and returns
// the note id.
func (c *Client) CreateNote(ctx context.Context, contactEmail, title, body string) (string, error) {
	contact, err := c.findContactObject(ctx, contactEmail)
	if err != nil {
		return "", err
	}
	if contact == nil {
		return "", fmt.Errorf("no contact with email %s", contactEmail)
	}

	assoc := association{
		To:    objectRef{ID: contact.ID},
		Types: []associationType{{Category: "HUBSPOT_DEFINED", TypeID: noteToContact}},
	}

	var created object
	err = c.do(ctx, http.MethodPost, "/crm/v3/objects/notes", createNoteRequest{
		Properties: map[string]string{
			"hs_timestamp": c.now().UTC().Format(time.RFC3339),
			"hs_note_body": noteBody(title, body),
		},
		Associations: []association{assoc},
	}, &created)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (c *Client) findContactObject(ctx context.Context, email string) (*object, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	var resp searchResponse
	err := c.do(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", searchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{{PropertyName: "email", Operator: "EQ", Value: email}}}},
		Properties:   contactProperties,
		Limit:        1,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

type apiError struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal hubspot request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build hubspot request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute hubspot request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read hubspot response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("hubspot http status=%d category=%s: %s", resp.StatusCode, apiErr.Category, apiErr.Message)
		}
		return fmt.Errorf("hubspot http status=%d body=%s", resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode hubspot response: %w", err)
	}
	return nil
}

func toContact(obj object) contractx.Contact {
	p := obj.Properties
	return contractx.Contact{
		ID:             obj.ID,
		FirstName:      p["firstname"],
		LastName:       p["lastname"],
		Email:          p["email"],
		Company:        p["company"],
		JobTitle:       p["jobtitle"],
		Phone:          p["phone"],
		LifecycleStage: p["lifecyclestage"],
	}
}

func noteBody(title, body string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return body
	}
	return title + "\n\n" + body
}
