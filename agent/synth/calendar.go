package synth

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

func meetingScheduled(p contractx.MeetingScheduled) string {
	return fmt.Sprintf("I've scheduled %q with %s on %s at %s (%d min) and added it to your calendar.",
		p.Title, p.Counterpart, p.Date, p.StartTime, p.DurationMinutes)
}

func availableSlots(p contractx.AvailableSlots) string {
	if len(p.Slots) == 0 {
		return fmt.Sprintf("There are no available %d-minute slots on %s.", p.DurationMinutes, p.Date)
	}
	shown := p.Slots
	if len(shown) > maxSlots {
		shown = shown[:maxSlots]
	}
	list := joinList(shown)
	if rest := len(p.Slots) - len(shown); rest > 0 {
		list = strings.Join(shown, ", ") + fmt.Sprintf(" and %d more", rest)
	}
	return fmt.Sprintf("Available %d-minute slots on %s: %s.", p.DurationMinutes, p.Date, list)
}

func meetingList(p contractx.MeetingList) string {
	if len(p.Meetings) == 0 {
		switch {
		case p.Scope == contractx.ScopeWithPerson:
			return fmt.Sprintf("You have no meetings with %s in the next %s.", p.PersonEmail, plural(p.DaysAhead, "day", "days"))
		case p.DaysAhead == 0:
			return "You have no more meetings today."
		default:
			return fmt.Sprintf("You have no meetings in the next %s.", plural(p.DaysAhead, "day", "days"))
		}
	}

	items := make([]string, 0, len(p.Meetings))
	for _, m := range p.Meetings {
		items = append(items, meetingLine(m))
	}

	head := fmt.Sprintf("You have %s", plural(len(p.Meetings), "upcoming meeting", "upcoming meetings"))
	if p.Scope == contractx.ScopeWithPerson {
		head = fmt.Sprintf("You have %s with %s", plural(len(p.Meetings), "meeting", "meetings"), p.PersonEmail)
	}
	return head + ": " + strings.Join(items, "; ") + "."
}

func meetingLine(m contractx.MeetingSummary) string {
	var b strings.Builder
	b.WriteString(m.Title)
	if m.AllDay {
		fmt.Fprintf(&b, " on %s (all day)", m.Start.Format("Mon Jan 2"))
	} else {
		fmt.Fprintf(&b, " on %s at %s", m.Start.Format("Mon Jan 2"), m.Start.Format("15:04"))
	}
	if m.MeetingLink != "" {
		fmt.Fprintf(&b, " (%s)", m.MeetingLink)
	}
	return b.String()
}
