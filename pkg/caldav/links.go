package caldav

import (
	"regexp"
	"strings"

	"github.com/emersion/go-ical"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

const propGoogleConference = "X-GOOGLE-CONFERENCE"

var meetingLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https://[a-zA-Z0-9.-]+\.zoom\.us/[a-zA-Z0-9/?=&-]+`),
	regexp.MustCompile(`https://meet\.google\.com/[a-zA-Z0-9-]+`),
	regexp.MustCompile(`https://teams\.microsoft\.com/[a-zA-Z0-9/?=&%._-]+`),
	regexp.MustCompile(`https://[a-zA-Z0-9.-]+\.webex\.com/[a-zA-Z0-9/?=&-]+`),
}

// MeetingLink returns the first video-meeting URL found in text.
func MeetingLink(text string) string {
	for _, re := range meetingLinkPatterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// eventMeetingLink checks explicit conference properties before scanning
// free text.
func eventMeetingLink(ev ical.Event, converted contractx.CalendarEvent) string {
	if v := text(ev.Props, propGoogleConference); v != "" {
		return v
	}
	for _, p := range ev.Props.Values(ical.PropConference) {
		if strings.Contains(strings.ToUpper(p.Params.Get("FEATURE")), "VIDEO") {
			return strings.TrimSpace(p.Value)
		}
	}
	for _, s := range []string{converted.Description, converted.Location, text(ev.Props, ical.PropURL)} {
		if link := MeetingLink(s); link != "" {
			return link
		}
	}
	return ""
}
