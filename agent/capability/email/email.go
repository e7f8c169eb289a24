// Package email implements the two-phase personalized send: a lookup that
// resolves a named person and issues an authorization, and a send that only
// reaches addresses the user typed or a lookup authorized.
package email

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	toolx "github.com/tanpawarit/salesops-assistant/agent/tool"
	cardsx "github.com/tanpawarit/salesops-assistant/pkg/cards"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
)

const (
	ToolLookupAndPrepare = "lookupAndPrepareEmail"
	ToolSendPersonalized = "sendPersonalizedEmail"
	ToolSendBulk         = "sendBulkEmails"

	DefaultCampaign = "AI Generated Campaign"
	nameSearchLimit = 5
)

type Capability struct {
	mail    contractx.MailClient
	crm     contractx.CrmClient
	cards   contractx.CardStore
	timeout time.Duration
}

func New(mail contractx.MailClient, crm contractx.CrmClient, cards contractx.CardStore, timeout time.Duration) (*Capability, error) {
	switch {
	case mail == nil:
		return nil, errors.New("mail client is required")
	case crm == nil:
		return nil, errors.New("crm client is required")
	case cards == nil:
		return nil, errors.New("card store is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Capability{mail: mail, crm: crm, cards: cards, timeout: timeout}, nil
}

func (c *Capability) Register(r *toolx.Registry) error {
	actions := map[string]contractx.ActionFunc{
		ToolLookupAndPrepare: c.lookupAndPrepare,
		ToolSendPersonalized: c.sendPersonalized,
		ToolSendBulk:         c.sendBulk,
	}
	for _, spec := range Specs() {
		if err := r.Register(spec, actions[spec.Name]); err != nil {
			return err
		}
	}
	return nil
}

type lookupArgs struct {
	PersonName  string `json:"personName" validate:"required"`
	Subject     string `json:"subject" validate:"required"`
	Body        string `json:"body" validate:"required"`
	PersonEmail string `json:"personEmail" validate:"omitempty,email"`
}

func (c *Capability) lookupAndPrepare(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	var in lookupArgs
	if err := toolx.Bind(lookupSpec, args, &in); err != nil {
		return toolx.Invalid(err), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	name := strings.TrimSpace(in.PersonName)
	contact, err := c.findContact(ctx, name, strings.TrimSpace(in.PersonEmail))
	if err != nil {
		return contractx.Fail(contractx.FailureDependency, "crm: %v", err), nil
	}

	out := contractx.EmailPrepared{PersonName: name, Subject: in.Subject, Body: in.Body}
	switch {
	case contact == nil:
		out.Status = contractx.LookupNotFound
		return contractx.Success(out), nil
	case strings.TrimSpace(contact.Email) == "":
		out.Status = contractx.LookupNoEmail
		out.Contact = contact
		return contractx.Success(out), nil
	}

	fields := placeholders{Name: contact.FullName(), Company: contact.Company, Title: contact.JobTitle}
	if fields.Name == "" {
		fields.Name = name
	}
	out.Status = contractx.LookupReadyToSend
	out.Contact = contact
	out.Subject = fields.render(in.Subject)
	out.Body = fields.render(in.Body)
	out.Authorization = contractx.TurnScopeFrom(ctx).Issue(contractx.AuthorizedRecipient{
		Name:    fields.Name,
		Email:   contact.Email,
		Company: contact.Company,
		Title:   contact.JobTitle,
		Subject: out.Subject,
		Body:    out.Body,
	})

	logx.Ctx(ctx).Debug().
		Str("person", name).
		Str("email", contact.Email).
		Msg("email recipient authorized")
	return contractx.Success(out), nil
}

// findContact prefers the CRM and falls back to the customer cards when the
// CRM has no match for a name.
func (c *Capability) findContact(ctx context.Context, name, email string) (*contractx.Contact, error) {
	if email != "" {
		return c.crm.FindContactByEmail(ctx, email)
	}

	found, err := c.crm.SearchContacts(ctx, name, nameSearchLimit)
	if err != nil {
		return nil, err
	}
	for _, ct := range found {
		if strings.EqualFold(ct.FullName(), name) {
			ct := ct
			return &ct, nil
		}
	}
	if len(found) > 0 {
		return &found[0], nil
	}

	card, err := c.cards.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, nil
	}
	return contactFromCard(card), nil
}

type sendArgs struct {
	ToEmail       string `json:"toEmail" validate:"omitempty,email"`
	Subject       string `json:"subject" validate:"required"`
	Body          string `json:"body" validate:"required"`
	ToName        string `json:"toName"`
	CustomerName  string `json:"customerName"`
	Authorization string `json:"authorization"`
}

type recipient struct {
	placeholders
	Email string
	token string
}

func (c *Capability) sendPersonalized(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	var in sendArgs
	if err := toolx.Bind(sendSpec, args, &in); err != nil {
		return toolx.Invalid(err), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	to, fail := c.resolveRecipient(ctx, in)
	if fail != nil {
		return *fail, nil
	}
	if to.Name == "" {
		to.Name = strings.TrimSpace(in.ToName)
	}
	if to.Name == "" {
		to.Name = NameFromAddress(to.Email)
	}

	msg := contractx.OutgoingEmail{
		To:      to.Email,
		ToName:  to.Name,
		Subject: to.render(in.Subject),
		Body:    to.render(in.Body),
	}
	id, err := c.mail.Send(ctx, msg)
	if err != nil {
		return contractx.Fail(contractx.FailureDependency, "mail: %v", err), nil
	}
	if to.token != "" {
		contractx.TurnScopeFrom(ctx).Consume(to.token)
	}

	return contractx.Success(contractx.EmailSent{
		MessageID: id,
		To:        msg.To,
		ToName:    msg.ToName,
		Subject:   msg.Subject,
	}), nil
}

// resolveRecipient applies the send gate: an authorization token, a customer
// card, or an address the user typed or a lookup authorized.
func (c *Capability) resolveRecipient(ctx context.Context, in sendArgs) (recipient, *contractx.ToolResult) {
	scope := contractx.TurnScopeFrom(ctx)

	if token := strings.TrimSpace(in.Authorization); token != "" {
		auth, ok := scope.Redeem(token)
		if !ok {
			res := contractx.Fail(contractx.FailureUnauthorized, "authorization is unknown or already used; look the person up again")
			return recipient{}, &res
		}
		return fromAuthorization(auth), nil
	}

	if name := strings.TrimSpace(in.CustomerName); name != "" {
		card, err := c.cards.FindByName(ctx, name)
		if err != nil {
			res := contractx.Fail(contractx.FailureDependency, "cards: %v", err)
			return recipient{}, &res
		}
		if card == nil {
			res := contractx.Fail(contractx.FailureInvalidArguments, "no customer named %q", name)
			return recipient{}, &res
		}
		if strings.TrimSpace(card.Email) == "" {
			res := contractx.Fail(contractx.FailureInvalidArguments, "customer %q has no email address", card.CustomerName)
			return recipient{}, &res
		}
		return recipient{
			placeholders: placeholders{Name: card.CustomerName, Company: card.Company},
			Email:        card.Email,
		}, nil
	}

	address := strings.TrimSpace(in.ToEmail)
	if address == "" {
		res := contractx.Fail(contractx.FailureInvalidArguments, "one of toEmail, customerName or authorization is required")
		return recipient{}, &res
	}
	if auth, ok := scope.AuthorizedFor(address); ok {
		return fromAuthorization(auth), nil
	}
	if scope.MentionsAddress(address) {
		return recipient{Email: address}, nil
	}
	res := contractx.Fail(contractx.FailureUnauthorized,
		"%s was not provided by the user; look the recipient up with %s first", address, ToolLookupAndPrepare)
	return recipient{}, &res
}

type bulkRecipient struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company"`
}

type bulkArgs struct {
	SubjectTemplate    string          `json:"subjectTemplate" validate:"required"`
	BodyTemplate       string          `json:"bodyTemplate" validate:"required"`
	Recipients         []bulkRecipient `json:"recipients"`
	SendToAllCustomers bool            `json:"sendToAllCustomers"`
	CampaignName       string          `json:"campaignName"`
}

func (c *Capability) sendBulk(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	var in bulkArgs
	if err := toolx.Bind(bulkSpec, args, &in); err != nil {
		return toolx.Invalid(err), nil
	}

	recipients := in.Recipients
	if in.SendToAllCustomers {
		lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
		cards, err := c.cards.AllWithEmail(lookupCtx)
		cancel()
		if err != nil {
			return contractx.Fail(contractx.FailureDependency, "cards: %v", err), nil
		}
		recipients = make([]bulkRecipient, 0, len(cards))
		for _, card := range cards {
			recipients = append(recipients, bulkRecipient{Email: card.Email, Name: card.CustomerName, Company: card.Company})
		}
	}
	if len(recipients) == 0 {
		return contractx.Fail(contractx.FailureInvalidArguments, "no recipients: pass recipients or set sendToAllCustomers"), nil
	}

	report := contractx.BulkEmailReport{
		Campaign:         in.CampaignName,
		Total:            len(recipients),
		FailedRecipients: []string{},
	}
	log := logx.Ctx(ctx)
	for i, r := range recipients {
		address := strings.TrimSpace(r.Email)
		if address == "" {
			report.Failed++
			report.FailedRecipients = append(report.FailedRecipients, recipientLabel(r, i))
			continue
		}
		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = NameFromAddress(address)
		}
		fields := placeholders{Name: name, Company: r.Company}

		sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
		_, err := c.mail.Send(sendCtx, contractx.OutgoingEmail{
			To:      address,
			ToName:  name,
			Subject: fields.render(in.SubjectTemplate),
			Body:    fields.render(in.BodyTemplate),
		})
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("campaign", in.CampaignName).Str("to", address).Msg("bulk email failed")
			report.Failed++
			report.FailedRecipients = append(report.FailedRecipients, address)
			continue
		}
		report.Sent++
	}
	return contractx.Success(report), nil
}

func recipientLabel(r bulkRecipient, i int) string {
	if n := strings.TrimSpace(r.Name); n != "" {
		return n
	}
	return "recipient " + strconv.Itoa(i+1)
}

type placeholders struct {
	Name    string
	Company string
	Title   string
}

func (p placeholders) render(s string) string {
	first := p.Name
	if f := strings.Fields(p.Name); len(f) > 0 {
		first = f[0]
	}
	return strings.NewReplacer(
		"{{name}}", p.Name,
		"{{first_name}}", first,
		"{{company}}", p.Company,
		"{{title}}", p.Title,
	).Replace(s)
}

func fromAuthorization(a contractx.AuthorizedRecipient) recipient {
	return recipient{
		placeholders: placeholders{Name: a.Name, Company: a.Company, Title: a.Title},
		Email:        a.Email,
		token:        a.Token,
	}
}

func contactFromCard(card *cardsx.Card) *contractx.Contact {
	first, last, _ := strings.Cut(strings.TrimSpace(card.CustomerName), " ")
	return &contractx.Contact{
		ID:        "card-" + strconv.FormatInt(card.ID, 10),
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Email:     strings.TrimSpace(card.Email),
		Company:   card.Company,
		Phone:     card.Phone,
	}
}

// NameFromAddress turns "jane.doe@x.com" into "Jane Doe".
func NameFromAddress(address string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(address), "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+' || unicode.IsDigit(r)
	})
	for i, p := range parts {
		runes := []rune(strings.ToLower(p))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	if len(parts) == 0 {
		if local != "" {
			return local
		}
		return "there"
	}
	return strings.Join(parts, " ")
}
