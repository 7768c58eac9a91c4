package reminder

import (
	"testing"
	"time"

	"github.com/agendly/agendly/pkg/calendar"
	"github.com/agendly/agendly/pkg/recurrence"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeFireTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 1, 9, 45, 0, 0, time.UTC), ComputeFireTime(start, -15))
	assert.Equal(t, start, ComputeFireTime(start, 0))
	assert.Equal(t, time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC), ComputeFireTime(start, 30))
	assert.Equal(t, time.Date(2023, 12, 31, 10, 0, 0, 0, time.UTC), ComputeFireTime(start, -24*60))
}

func TestIsDue(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 45, 0, 0, time.UTC)
	grace := 5 * time.Minute

	testCases := []struct {
		name     string
		fireTime time.Time
		due      bool
	}{
		{"exactly now", now, true},
		{"inside grace", now.Add(-2 * time.Minute), true},
		{"grace boundary", now.Add(-grace), true},
		{"one second past grace", now.Add(-grace - time.Second), false},
		{"in the future", now.Add(time.Second), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.due, IsDue(tc.fireTime, now, grace))
		})
	}
}

func TestPlanner_DueOccurrence_SingleEvent(t *testing.T) {
	planner := NewPlanner(DefaultGraceWindow, 0)
	event := &calendar.Event{
		UID:       uuid.New(),
		Title:     "Meeting",
		StartTime: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
	}

	occurrence, ok, err := planner.DueOccurrence(event, -15, time.Date(2024, 1, 1, 9, 45, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, event.StartTime, occurrence.StartTime)

	_, ok, err = planner.DueOccurrence(event, -15, time.Date(2024, 1, 1, 9, 44, 59, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok, "one second before fire time")

	_, ok, err = planner.DueOccurrence(event, -15, time.Date(2024, 1, 1, 9, 50, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok, "at the end of the grace window")

	_, ok, err = planner.DueOccurrence(event, -15, time.Date(2024, 1, 1, 9, 50, 1, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok, "past the grace window")
}

func TestPlanner_DueOccurrence_RecurringEvent(t *testing.T) {
	planner := NewPlanner(DefaultGraceWindow, 0)
	event := &calendar.Event{
		UID:       uuid.New(),
		Title:     "Standup",
		StartTime: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC),
		Recurrence: &recurrence.Rule{
			Frequency: recurrence.Daily,
			Interval:  1,
			Until:     mo.Some(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
		},
	}

	occurrence, ok, err := planner.DueOccurrence(event, -10, time.Date(2024, 1, 3, 9, 52, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), occurrence.StartTime)
	assert.Equal(t, recurrence.OccurrenceKey(event.UID.String(), occurrence.StartTime), occurrence.Key)

	_, ok, err = planner.DueOccurrence(event, -10, time.Date(2024, 1, 5, 9, 50, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok, "series ended before Jan 5")
}

func TestPlanner_DueOccurrence_PositiveOffset(t *testing.T) {
	planner := NewPlanner(DefaultGraceWindow, 0)
	event := &calendar.Event{
		UID:       uuid.New(),
		StartTime: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
	}

	occurrence, ok, err := planner.DueOccurrence(event, 60, time.Date(2024, 1, 1, 11, 1, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, event.StartTime, occurrence.StartTime)
}

func TestPlanner_DueOccurrence_MissingEvent(t *testing.T) {
	planner := NewPlanner(DefaultGraceWindow, 0)

	_, _, err := planner.DueOccurrence(nil, -15, time.Now())

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlanner_DueOccurrence_ExpansionLimit(t *testing.T) {
	planner := NewPlanner(DefaultGraceWindow, 5)
	event := &calendar.Event{
		UID:        uuid.New(),
		StartTime:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
		Recurrence: &recurrence.Rule{Frequency: recurrence.Daily, Count: mo.Some(1000)},
	}

	_, _, err := planner.DueOccurrence(event, 0, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	assert.ErrorIs(t, err, recurrence.ErrExpansionLimitExceeded)
}

func TestPlanner_NextFireTime(t *testing.T) {
	planner := NewPlanner(DefaultGraceWindow, 0)
	event := &calendar.Event{
		UID:        uuid.New(),
		StartTime:  time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC),
		Recurrence: &recurrence.Rule{Frequency: recurrence.Monthly},
	}

	next, ok, err := planner.NextFireTime(event, -30, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 29, 8, 30, 0, 0, time.UTC), next)

	single := &calendar.Event{
		UID:       uuid.New(),
		StartTime: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	_, ok, err = planner.NextFireTime(single, -30, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok, "fire time already passed")
}
