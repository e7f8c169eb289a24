package followup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cardsx "github.com/tanpawarit/salesops-assistant/pkg/cards"
)

type fakeSource struct {
	cards []cardsx.Card
	err   error
	asked time.Time
}

func (f *fakeSource) DueForFollowUp(_ context.Context, now time.Time) ([]cardsx.Card, error) {
	f.asked = now
	return f.cards, f.err
}

type fakeGauge struct {
	due      int
	failures int
}

func (g *fakeGauge) SetFollowUpsDue(n int) { g.due = n }
func (g *fakeGauge) FollowUpSweepFailed()  { g.failures++ }

var testNow = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func TestSweepReportsDueCards(t *testing.T) {
	t.Parallel()

	src := &fakeSource{cards: []cardsx.Card{{ID: 1, CustomerName: "John Smith"}, {ID: 2, CustomerName: "Emily Davis"}}}
	g := &fakeGauge{}
	s, err := New(Config{Schedule: "@hourly"}, src, WithGauge(g), WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	_, ok := s.Last()
	assert.False(t, ok)

	report, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Due, 2)
	assert.Equal(t, testNow, src.asked)
	assert.Equal(t, 2, g.due)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, testNow, last.At)
}

func TestSweepFailureCountsAndKeepsLastReport(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	g := &fakeGauge{}
	s, err := New(Config{Schedule: "0 9 * * 1-5"}, src, WithGauge(g))
	require.NoError(t, err)

	_, err = s.Sweep(context.Background())
	require.NoError(t, err)

	src.err = errors.New("database is locked")
	_, err = s.Sweep(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, g.failures)

	_, ok := s.Last()
	assert.True(t, ok)
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Schedule: "every tuesday"}, &fakeSource{})
	require.Error(t, err)

	_, err = New(Config{Schedule: "@daily", Timezone: "Mars/Olympus"}, &fakeSource{})
	require.Error(t, err)

	_, err = New(Config{Schedule: "@daily"}, nil)
	require.Error(t, err)
}

func TestStartStopsWithContext(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Schedule: "@every 1h"}, &fakeSource{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.Len(t, s.cron.Entries(), 1)
	cancel()
}

type fakePublisher struct {
	bodies []any
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, body any) (string, error) {
	p.bodies = append(p.bodies, body)
	if p.err != nil {
		return "", p.err
	}
	return "msg_1", nil
}

func TestSweepPublishesReminderForDueCards(t *testing.T) {
	t.Parallel()

	due := testNow.Add(-time.Hour)
	src := &fakeSource{cards: []cardsx.Card{{ID: 7, CustomerName: "Jennifer Lee", Status: cardsx.StatusFollowup, NextFollowupDate: &due}}}
	pub := &fakePublisher{}
	s, err := New(Config{Schedule: "@hourly"}, src, WithPublisher(pub), WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	report, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "msg_1", report.ReminderID)
	require.Len(t, pub.bodies, 1)

	r, ok := pub.bodies[0].(reminder)
	require.True(t, ok)
	require.Len(t, r.Due, 1)
	assert.Equal(t, int64(7), r.Due[0].CardID)
	assert.Equal(t, "followup", r.Due[0].Status)

	src.cards = nil
	_, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Len(t, pub.bodies, 1)
}

func TestSweepPublishFailureIsReported(t *testing.T) {
	t.Parallel()

	src := &fakeSource{cards: []cardsx.Card{{ID: 1, CustomerName: "John Smith"}}}
	g := &fakeGauge{}
	pub := &fakePublisher{err: errors.New("qstash unavailable")}
	s, err := New(Config{Schedule: "@hourly"}, src, WithGauge(g), WithPublisher(pub))
	require.NoError(t, err)

	report, err := s.Sweep(context.Background())
	require.Error(t, err)
	assert.Len(t, report.Due, 1)
	assert.Equal(t, 1, g.failures)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Empty(t, last.ReminderID)
}
