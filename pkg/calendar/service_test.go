package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/agendly/agendly/internal/event_bus"
	"github.com/agendly/agendly/pkg/recurrence"
	"github.com/agendly/agendly/pkg/user"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServiceTest(t *testing.T) (context.Context, *Service, *event_bus.EventBus) {
	bus := event_bus.NewEventBus()
	service := NewService(NewRepositoryStub(), bus, 0)
	ctx := user.WithUser(context.Background(), user.User{Id: 7, Username: "jane"})
	return ctx, service, bus
}

func dailyUntilEvent() Event {
	return Event{
		Title:     "Standup",
		StartTime: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
		Recurrence: &recurrence.Rule{
			Frequency: recurrence.Daily,
			Interval:  1,
			Until:     mo.Some(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
		},
	}
}

func TestService_AddEvent(t *testing.T) {
	ctx, service, _ := setupServiceTest(t)

	created, err := service.AddEvent(ctx, dailyUntilEvent())

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.UID)
	stored, err := service.GetEvent(ctx, created.UID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)
}

func TestService_AddEvent_Invalid(t *testing.T) {
	ctx, service, _ := setupServiceTest(t)
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		event Event
	}{
		{"missing title", Event{StartTime: start, EndTime: start.Add(time.Hour)}},
		{"end before start", Event{Title: "x", StartTime: start, EndTime: start.Add(-time.Minute)}},
		{"missing times", Event{Title: "x"}},
		{"invalid rule", Event{Title: "x", StartTime: start, EndTime: start, Recurrence: &recurrence.Rule{Frequency: "YEARLY"}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.AddEvent(ctx, tc.event)
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestService_AddEvent_RequiresUser(t *testing.T) {
	_, service, _ := setupServiceTest(t)

	_, err := service.AddEvent(context.Background(), dailyUntilEvent())

	assert.ErrorIs(t, err, user.ErrNoUser)
}

func TestService_GetEvents_ExpandsRecurringEvents(t *testing.T) {
	ctx, service, _ := setupServiceTest(t)
	daily, err := service.AddEvent(ctx, dailyUntilEvent())
	require.NoError(t, err)
	single, err := service.AddEvent(ctx, Event{
		Title:     "Dentist",
		StartTime: time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	instances, err := service.GetEvents(ctx,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Len(t, instances, 5)
	expectedStarts := []time.Time{
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 10, 0, 0, 0, time.UTC),
	}
	for i, instance := range instances {
		assert.Equal(t, expectedStarts[i], instance.StartTime)
		assert.Equal(t, time.Hour, instance.EndTime.Sub(instance.StartTime))
	}
	assert.Equal(t, single.UID, instances[2].Event.UID)
	assert.Equal(t, daily.UID, instances[3].Event.UID)
	assert.Equal(t, recurrence.OccurrenceKey(daily.UID.String(), expectedStarts[3]), instances[3].OccurrenceKey)
}

func TestService_GetEvents_KeysStableAcrossWindows(t *testing.T) {
	ctx, service, _ := setupServiceTest(t)
	_, err := service.AddEvent(ctx, dailyUntilEvent())
	require.NoError(t, err)

	first, err := service.GetEvents(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	second, err := service.GetEvents(ctx, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, first[len(first)-1].OccurrenceKey, second[0].OccurrenceKey)
}

func TestService_GetEvents_ExpansionLimit(t *testing.T) {
	bus := event_bus.NewEventBus()
	service := NewService(NewRepositoryStub(), bus, 3)
	ctx := user.WithUser(context.Background(), user.User{Id: 1})
	_, err := service.AddEvent(ctx, Event{
		Title:      "Counted",
		StartTime:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
		Recurrence: &recurrence.Rule{Frequency: recurrence.Daily, Count: mo.Some(100)},
	})
	require.NoError(t, err)

	_, err = service.GetEvents(ctx, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC))

	assert.ErrorIs(t, err, recurrence.ErrExpansionLimitExceeded)
}

func TestService_GetEvents_InvalidWindow(t *testing.T) {
	ctx, service, _ := setupServiceTest(t)

	_, err := service.GetEvents(ctx, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.ErrorIs(t, err, recurrence.ErrInvalidWindow)
}

func TestService_GetEvents_OtherUsersEventsAreHidden(t *testing.T) {
	ctx, service, _ := setupServiceTest(t)
	_, err := service.AddEvent(ctx, dailyUntilEvent())
	require.NoError(t, err)
	otherCtx := user.WithUser(context.Background(), user.User{Id: 8})

	instances, err := service.GetEvents(otherCtx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestService_ModifyEvent(t *testing.T) {
	ctx, service, _ := setupServiceTest(t)
	created, err := service.AddEvent(ctx, dailyUntilEvent())
	require.NoError(t, err)

	created.Title = "Daily standup"
	created.Recurrence = nil
	modified, err := service.ModifyEvent(ctx, created)

	require.NoError(t, err)
	assert.Equal(t, "Daily standup", modified.Title)
	assert.False(t, modified.IsRecurring())

	_, err = service.ModifyEvent(ctx, Event{UID: uuid.New(), Title: "x", StartTime: created.StartTime, EndTime: created.EndTime})
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestService_DeleteEvent_PublishesDeletion(t *testing.T) {
	ctx, service, bus := setupServiceTest(t)
	created, err := service.AddEvent(ctx, dailyUntilEvent())
	require.NoError(t, err)
	var received []event_bus.CalendarEventDeleted
	event_bus.SubscribeTyped(bus, event_bus.CalendarEventDeletedType, func(e event_bus.EventT[event_bus.CalendarEventDeleted]) error {
		received = append(received, e.Data)
		return nil
	})

	err = service.DeleteEvent(ctx, created.UID)

	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, event_bus.CalendarEventDeleted{UserId: 7, EventUID: created.UID}, received[0])
	_, err = service.GetEvent(ctx, created.UID)
	assert.ErrorIs(t, err, ErrEventNotFound)

	err = service.DeleteEvent(ctx, created.UID)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.Len(t, received, 1)
}
