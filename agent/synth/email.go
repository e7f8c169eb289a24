package synth

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

func emailPrepared(p contractx.EmailPrepared) string {
	switch p.Status {
	case contractx.LookupReadyToSend:
		name, addr, company := p.PersonName, "", ""
		if p.Contact != nil {
			if n := p.Contact.FullName(); n != "" {
				name = n
			}
			addr, company = p.Contact.Email, p.Contact.Company
		}
		who := fmt.Sprintf("%s (%s)", name, addr)
		if company != "" {
			who += " at " + company
		}
		return fmt.Sprintf("I found %s. Draft subject: %q. Draft body: %s Shall I send it?",
			who, p.Subject, sentence(p.Body))
	case contractx.LookupNoEmail:
		return fmt.Sprintf("I found %s but there is no email address on file. Please give me their email address.", p.PersonName)
	case contractx.LookupNotFound:
		return fmt.Sprintf("I couldn't find anyone named %s in the CRM or customer list. Please give me their email address.", p.PersonName)
	default:
		return fmt.Sprintf("I couldn't prepare the email to %s.", p.PersonName)
	}
}

func bulkReport(p contractx.BulkEmailReport) string {
	out := fmt.Sprintf("%d of %d sent for %s.", p.Sent, p.Total, p.Campaign)
	if len(p.FailedRecipients) > 0 {
		out += " Failed: " + strings.Join(p.FailedRecipients, ", ") + "."
	}
	return out
}
