package hubspot

import (
	"context"
	"errors"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

var ErrNotConfigured = errors.New("hubspot is not configured: set HUBSPOT_ACCESS_TOKEN")

// Unconfigured stands in for the client when no access token is set. Every
// call fails, so CRM tools report a dependency error instead of guessing.
type Unconfigured struct{}

var _ contractx.CrmClient = Unconfigured{}

func (Unconfigured) FindContactByEmail(context.Context, string) (*contractx.Contact, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) SearchContacts(context.Context, string, int) ([]contractx.Contact, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) FindCompany(context.Context, string) (*contractx.Company, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) CreateNote(context.Context, string, string, string) (string, error) {
	return "", ErrNotConfigured
}
