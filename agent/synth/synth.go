// Package synth turns tool results into the user-facing reply. It is pure:
// the same results always render the same text.
package synth

import (
	"fmt"
	"strings"

	"github.com/tanpawarit/salesops-assistant/agent/capability/calendar"
	"github.com/tanpawarit/salesops-assistant/agent/capability/crm"
	"github.com/tanpawarit/salesops-assistant/agent/capability/email"
	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

const (
	FallbackReply = "I've executed the requested actions."
	maxSlots      = 5
)

// Reply joins one fragment per result with a single space, in result order.
func Reply(results []contractx.ToolResult) string {
	if len(results) == 0 {
		return FallbackReply
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, Fragment(r))
	}
	return strings.Join(parts, " ")
}

// Fragment renders a single result. It never returns an empty string.
func Fragment(r contractx.ToolResult) string {
	if r.Failure != nil {
		return failure(r.Tool, *r.Failure)
	}

	switch p := r.Payload.(type) {
	case contractx.MeetingScheduled:
		return meetingScheduled(p)
	case contractx.AvailableSlots:
		return availableSlots(p)
	case contractx.MeetingList:
		return meetingList(p)
	case contractx.ContactInfo:
		return contactInfo(p)
	case contractx.ContactSearch:
		return contactSearch(p)
	case contractx.CompanyInfo:
		return companyInfo(p)
	case contractx.NoteCreated:
		return fmt.Sprintf("Added note %q to %s in the CRM.", p.Title, p.ContactEmail)
	case contractx.EmailPrepared:
		return emailPrepared(p)
	case contractx.EmailSent:
		return fmt.Sprintf("Email sent to %s (%s) with subject %q.", p.ToName, p.To, p.Subject)
	case contractx.BulkEmailReport:
		return bulkReport(p)
	case nil:
		return fmt.Sprintf("%s returned no result.", toolLabel(r.Tool))
	default:
		return fmt.Sprintf("I completed %s.", toolLabel(r.Tool))
	}
}

func failure(tool string, f contractx.Failure) string {
	msg := sentence(f.Message)

	switch f.Kind {
	case contractx.FailureUnknownTool:
		return fmt.Sprintf("I don't know how to %s.", toolLabel(tool))
	case contractx.FailureNotImplemented:
		return fmt.Sprintf("Sorry, %s isn't available yet.", toolLabel(tool))
	case contractx.FailureUnauthorized:
		return fmt.Sprintf("I didn't send that email: %s", msg)
	}

	switch tool {
	case calendar.ToolScheduleMeeting:
		return "Sorry, I couldn't schedule the meeting: " + msg
	case calendar.ToolGetAvailableSlots:
		return "Sorry, I couldn't check availability: " + msg
	case calendar.ToolGetUpcomingMeetings, calendar.ToolCheckMeetingsWithPerson:
		return "Sorry, I couldn't read your calendar: " + msg
	case email.ToolLookupAndPrepare:
		return "Sorry, I couldn't look up that contact: " + msg
	case email.ToolSendPersonalized:
		return "Sorry, I couldn't send the email: " + msg
	case email.ToolSendBulk:
		return "Sorry, I couldn't send the campaign: " + msg
	case crm.ToolGetContactInfo, crm.ToolSearchContacts, crm.ToolGetCompanyInfo, crm.ToolCreateNote:
		return "Sorry, the CRM request failed: " + msg
	default:
		return fmt.Sprintf("Sorry, %s failed: %s", toolLabel(tool), msg)
	}
}

// sentence trims the message and makes sure it ends with a period.
func sentence(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "unknown error."
	}
	if strings.HasSuffix(msg, ".") || strings.HasSuffix(msg, "!") || strings.HasSuffix(msg, "?") {
		return msg
	}
	return msg + "."
}

func toolLabel(tool string) string {
	if strings.TrimSpace(tool) == "" {
		return "that action"
	}
	return tool
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// joinList renders "a", "a and b" or "a, b and c".
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
