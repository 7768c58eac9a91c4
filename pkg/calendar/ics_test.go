package calendar

import (
	"bytes"
	"testing"
	"time"

	"github.com/agendly/agendly/pkg/recurrence"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func TestWriteICS(t *testing.T) {
	single := Event{
		UID:       uuid.New(),
		Title:     "Dentist",
		Location:  "Main St 1",
		StartTime: time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
	}
	recurring := Event{
		UID:       uuid.New(),
		Title:     "Standup",
		StartTime: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC),
		Recurrence: &recurrence.Rule{
			Frequency: recurrence.Weekly,
			Interval:  2,
			ByWeekday: []time.Weekday{time.Monday, time.Friday},
			Until:     mo.Some(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		},
	}
	var buf bytes.Buffer

	err := WriteICS(&buf, []Event{single, recurring}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	uid, err := events[0].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, single.UID.String(), uid)
	location, err := events[0].Props.Text(ical.PropLocation)
	require.NoError(t, err)
	assert.Equal(t, "Main St 1", location)
	start, err := events[0].DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(single.StartTime))
	noRule, err := events[0].Props.RecurrenceRule()
	require.NoError(t, err)
	assert.Nil(t, noRule)

	rule, err := events[1].Props.RecurrenceRule()
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, rrule.WEEKLY, rule.Freq)
	assert.Equal(t, 2, rule.Interval)
	assert.Equal(t, []rrule.Weekday{rrule.MO, rrule.FR}, rule.Byweekday)
	assert.True(t, rule.Until.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestToROption(t *testing.T) {
	option := toROption(recurrence.Rule{Frequency: recurrence.Monthly, Count: mo.Some(3)})

	assert.Equal(t, rrule.MONTHLY, option.Freq)
	assert.Equal(t, 1, option.Interval)
	assert.Equal(t, 3, option.Count)
	assert.True(t, option.Until.IsZero())
}
