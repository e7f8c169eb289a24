package calendar

import contractx "github.com/tanpawarit/salesops-assistant/agent/contract"

var scheduleSpec = contractx.ToolSpec{
	Name:        ToolScheduleMeeting,
	Description: "Schedule a meeting with a customer and add it to the calendar.",
	Params: []contractx.ParamSpec{
		{Name: "recipientEmail", Type: contractx.ParamString, Description: "Email address of the attendee.", Required: true},
		{Name: "title", Type: contractx.ParamString, Description: "Meeting title.", Required: true},
		{Name: "date", Type: contractx.ParamString, Description: "Meeting date as YYYY-MM-DD.", Required: true},
		{Name: "startTime", Type: contractx.ParamString, Description: "Start time as HH:MM (24h).", Required: true},
		{Name: "durationMinutes", Type: contractx.ParamInteger, Description: "Length in minutes.", Default: 60},
		{Name: "description", Type: contractx.ParamString, Description: "Agenda or notes.", Default: ""},
	},
}

var slotsSpec = contractx.ToolSpec{
	Name:        ToolGetAvailableSlots,
	Description: "List free meeting start times on a day within working hours, in 30-minute steps.",
	Params: []contractx.ParamSpec{
		{Name: "date", Type: contractx.ParamString, Description: "Day to check as YYYY-MM-DD.", Required: true},
		{Name: "durationMinutes", Type: contractx.ParamInteger, Description: "Required meeting length in minutes.", Default: 60},
	},
}

var upcomingSpec = contractx.ToolSpec{
	Name:        ToolGetUpcomingMeetings,
	Description: "List upcoming meetings in chronological order. daysAhead=0 means the rest of today.",
	Params: []contractx.ParamSpec{
		{Name: "daysAhead", Type: contractx.ParamInteger, Description: "How many days ahead to look.", Default: 7},
		{Name: "personEmail", Type: contractx.ParamString, Description: "Only meetings with this attendee."},
	},
}

var personSpec = contractx.ToolSpec{
	Name:        ToolCheckMeetingsWithPerson,
	Description: "List meetings in the next 30 days that include the given attendee.",
	Params: []contractx.ParamSpec{
		{Name: "email", Type: contractx.ParamString, Description: "Attendee email address.", Required: true},
	},
}

// Specs returns the calendar tool specs in registration order.
func Specs() []contractx.ToolSpec {
	return []contractx.ToolSpec{scheduleSpec, slotsSpec, upcomingSpec, personSpec}
}
