package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	toolx "github.com/tanpawarit/salesops-assistant/agent/tool"
)

type fakeCalendar struct {
	events  []contractx.CalendarEvent
	created []contractx.NewCalendarEvent
	listErr error
	from    time.Time
	to      time.Time
}

func (f *fakeCalendar) ListEvents(_ context.Context, from, to time.Time) ([]contractx.CalendarEvent, error) {
	f.from, f.to = from, to
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.events, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, ev contractx.NewCalendarEvent) (contractx.CalendarEvent, error) {
	f.created = append(f.created, ev)
	return contractx.CalendarEvent{
		ID:       "evt-1",
		Title:    ev.Title,
		Start:    ev.Start,
		End:      ev.End,
		HTMLLink: "https://calendar.example.com/evt-1",
	}, nil
}

var testNow = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 15, hour, minute, 0, 0, time.UTC)
}

func newRegistry(t *testing.T, client *fakeCalendar) *toolx.Registry {
	t.Helper()

	c, err := New(client, Config{Timezone: "UTC"}, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	reg := toolx.NewRegistry()
	require.NoError(t, c.Register(reg))
	return reg
}

func run(t *testing.T, reg *toolx.Registry, name string, args map[string]any) contractx.ToolResult {
	t.Helper()

	action, err := reg.Resolve(name)
	require.NoError(t, err)
	res, err := action.Execute(context.Background(), args)
	require.NoError(t, err)
	return res
}

func TestRegisterAddsCalendarTools(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, &fakeCalendar{})
	var names []string
	for _, s := range reg.ListSpecs() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{ToolScheduleMeeting, ToolGetAvailableSlots, ToolGetUpcomingMeetings, ToolCheckMeetingsWithPerson}, names)
}

func TestScheduleMeetingCreatesEvent(t *testing.T) {
	t.Parallel()

	client := &fakeCalendar{}
	reg := newRegistry(t, client)
	res := run(t, reg, ToolScheduleMeeting, map[string]any{
		"recipientEmail": "john@techcorp.com",
		"title":          "Demo",
		"date":           "2024-01-16",
		"startTime":      "14:00",
	})

	require.True(t, res.OK(), "%+v", res.Failure)
	got, ok := res.Payload.(contractx.MeetingScheduled)
	require.True(t, ok)
	assert.Equal(t, "evt-1", got.MeetingID)
	assert.Equal(t, "john@techcorp.com", got.Counterpart)
	assert.Equal(t, "2024-01-16", got.Date)
	assert.Equal(t, "14:00", got.StartTime)
	assert.Equal(t, 60, got.DurationMinutes)
	assert.Equal(t, "https://calendar.example.com/evt-1", got.CalendarLink)

	require.Len(t, client.created, 1)
	assert.Equal(t, time.Hour, client.created[0].End.Sub(client.created[0].Start))
	assert.Equal(t, []string{"john@techcorp.com"}, client.created[0].Attendees)
}

func TestScheduleMeetingRejectsBadInput(t *testing.T) {
	t.Parallel()

	client := &fakeCalendar{}
	reg := newRegistry(t, client)

	cases := []map[string]any{
		{"title": "Demo", "date": "2024-01-16", "startTime": "14:00"},
		{"recipientEmail": "john@techcorp.com", "title": "Demo", "date": "16/01/2024", "startTime": "14:00"},
		{"recipientEmail": "john@techcorp.com", "title": "Demo", "date": "2024-01-16", "startTime": "teatime"},
		{"recipientEmail": "not-an-email", "title": "Demo", "date": "2024-01-16", "startTime": "14:00"},
	}
	for _, args := range cases {
		res := run(t, reg, ToolScheduleMeeting, args)
		require.NotNil(t, res.Failure, "%v", args)
		assert.Equal(t, contractx.FailureInvalidArguments, res.Failure.Kind)
		assert.Nil(t, res.Payload)
	}
	assert.Empty(t, client.created)
}

func TestGetAvailableSlotsSkipsBusyBlock(t *testing.T) {
	t.Parallel()

	client := &fakeCalendar{events: []contractx.CalendarEvent{
		{ID: "busy", Start: at(10, 0), End: at(11, 0)},
		{ID: "free", Start: at(13, 0), End: at(14, 0), Transparent: true},
	}}
	reg := newRegistry(t, client)
	res := run(t, reg, ToolGetAvailableSlots, map[string]any{"date": "2024-01-15", "durationMinutes": 60})

	require.True(t, res.OK())
	got := res.Payload.(contractx.AvailableSlots)
	assert.Equal(t, []string{
		"09:00", "11:00", "11:30", "12:00", "12:30", "13:00",
		"13:30", "14:00", "14:30", "15:00", "15:30", "16:00",
	}, got.Slots)
	assert.Equal(t, at(9, 0), client.from)
	assert.Equal(t, at(17, 0), client.to)
}

func TestGetAvailableSlotsAllDayEventBlocksDay(t *testing.T) {
	t.Parallel()

	client := &fakeCalendar{events: []contractx.CalendarEvent{
		{ID: "offsite", AllDay: true, Start: at(0, 0), End: at(0, 0).AddDate(0, 0, 1)},
	}}
	reg := newRegistry(t, client)
	res := run(t, reg, ToolGetAvailableSlots, map[string]any{"date": "2024-01-15"})

	require.True(t, res.OK())
	assert.Empty(t, res.Payload.(contractx.AvailableSlots).Slots)
}

func TestGetAvailableSlotsBackendFailure(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, &fakeCalendar{listErr: errors.New("503 service unavailable")})
	res := run(t, reg, ToolGetAvailableSlots, map[string]any{"date": "2024-01-15"})

	require.NotNil(t, res.Failure)
	assert.Equal(t, contractx.FailureDependency, res.Failure.Kind)
	assert.Contains(t, res.Failure.Message, "503")
}

func TestGetUpcomingMeetingsTodayOnly(t *testing.T) {
	t.Parallel()

	client := &fakeCalendar{events: []contractx.CalendarEvent{
		{ID: "tomorrow", Title: "Tomorrow", Start: at(10, 0).AddDate(0, 0, 1), End: at(11, 0).AddDate(0, 0, 1)},
		{ID: "today", Title: "Sync", Start: at(14, 0), End: at(15, 0)},
	}}
	reg := newRegistry(t, client)
	res := run(t, reg, ToolGetUpcomingMeetings, map[string]any{"daysAhead": 0})

	require.True(t, res.OK())
	got := res.Payload.(contractx.MeetingList)
	assert.Equal(t, contractx.ScopeUpcoming, got.Scope)
	require.Len(t, got.Meetings, 1)
	assert.Equal(t, "today", got.Meetings[0].ID)
	assert.Equal(t, at(0, 0).AddDate(0, 0, 1), client.to)
}

func TestGetUpcomingMeetingsSortedAndFiltered(t *testing.T) {
	t.Parallel()

	client := &fakeCalendar{events: []contractx.CalendarEvent{
		{ID: "b", Start: at(16, 0), End: at(17, 0), Attendees: []string{"Jane@Example.com"}},
		{ID: "a", Start: at(10, 0), End: at(11, 0), Attendees: []string{"jane@example.com"}},
		{ID: "c", Start: at(12, 0), End: at(13, 0), Attendees: []string{"bob@example.com"}},
	}}
	reg := newRegistry(t, client)

	res := run(t, reg, ToolGetUpcomingMeetings, nil)
	require.True(t, res.OK())
	all := res.Payload.(contractx.MeetingList)
	assert.Equal(t, 7, all.DaysAhead)
	require.Len(t, all.Meetings, 3)
	assert.Equal(t, "a", all.Meetings[0].ID)
	assert.Equal(t, "(no title)", all.Meetings[0].Title)

	res = run(t, reg, ToolCheckMeetingsWithPerson, map[string]any{"email": "jane@example.com"})
	require.True(t, res.OK())
	mine := res.Payload.(contractx.MeetingList)
	assert.Equal(t, contractx.ScopeWithPerson, mine.Scope)
	require.Len(t, mine.Meetings, 2)
	assert.Equal(t, "a", mine.Meetings[0].ID)
	assert.Equal(t, "b", mine.Meetings[1].ID)
}

func TestNewRejectsInvertedWorkWindow(t *testing.T) {
	t.Parallel()

	_, err := New(&fakeCalendar{}, Config{Timezone: "UTC", WorkStart: "17:00", WorkEnd: "09:00"})
	require.ErrorIs(t, err, contractx.ErrValidation)
}

func TestFreeSlotsDurationLongerThanWindow(t *testing.T) {
	t.Parallel()

	window := Interval{Start: at(9, 0), End: at(17, 0)}
	assert.Empty(t, FreeSlots(window, nil, 9*time.Hour, SlotStride))
	assert.Len(t, FreeSlots(window, nil, 8*time.Hour, SlotStride), 1)
}
