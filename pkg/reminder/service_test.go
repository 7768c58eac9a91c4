package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/agendly/agendly/internal/event_bus"
	"github.com/agendly/agendly/internal/utils"
	"github.com/agendly/agendly/pkg/calendar"
	"github.com/agendly/agendly/pkg/recurrence"
	"github.com/agendly/agendly/pkg/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	ctx      context.Context
	repo     *RepositoryStub
	bus      *event_bus.EventBus
	calendar *calendar.Service
	service  *Service
	event    calendar.Event
}

func setupService(t *testing.T) *serviceFixture {
	bus := event_bus.NewEventBus()
	cal := calendar.NewService(calendar.NewRepositoryStub(), bus, 0)
	repo := NewRepositoryStub()
	clock := utils.NewMockClock(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	service := NewService(repo, cal, NewPlanner(DefaultGraceWindow, 0), clock)
	service.SubscribeToEvents(bus)

	ctx := user.WithUser(context.Background(), user.User{Id: 3, Username: "jane"})
	event, err := cal.AddEvent(ctx, calendar.Event{
		Title:      "Standup",
		StartTime:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC),
		Recurrence: &recurrence.Rule{Frequency: recurrence.Daily},
	})
	require.NoError(t, err)

	return &serviceFixture{ctx: ctx, repo: repo, bus: bus, calendar: cal, service: service, event: event}
}

func TestService_CreateReminder(t *testing.T) {
	f := setupService(t)

	created, err := f.service.CreateReminder(f.ctx, f.event.UID, MethodEmail, -15)

	require.NoError(t, err)
	assert.NotZero(t, created.Id)
	assert.Equal(t, 3, created.UserId)
	assert.Equal(t, MethodEmail, created.Method)
	assert.False(t, created.IsSent)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 45, 0, 0, time.UTC), created.NextFireTime.MustGet())

	fetched, err := f.service.GetReminder(f.ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.Id, fetched.Id)
}

func TestService_CreateReminder_Validation(t *testing.T) {
	f := setupService(t)

	_, err := f.service.CreateReminder(f.ctx, f.event.UID, "SMS", -15)
	assert.ErrorIs(t, err, ErrInvalidReminder)

	_, err = f.service.CreateReminder(f.ctx, f.event.UID, MethodEmail, -MaxOffsetMinutes-1)
	assert.ErrorIs(t, err, ErrInvalidReminder)

	_, err = f.service.CreateReminder(f.ctx, uuid.New(), MethodEmail, -15)
	assert.ErrorIs(t, err, calendar.ErrEventNotFound)

	otherUser := user.WithUser(context.Background(), user.User{Id: 4})
	_, err = f.service.CreateReminder(otherUser, f.event.UID, MethodEmail, -15)
	assert.ErrorIs(t, err, calendar.ErrEventNotFound)

	_, err = f.service.CreateReminder(context.Background(), f.event.UID, MethodEmail, -15)
	assert.ErrorIs(t, err, user.ErrNoUser)
}

func TestService_GetRemindersForEvent(t *testing.T) {
	f := setupService(t)
	_, err := f.service.CreateReminder(f.ctx, f.event.UID, MethodMessagingLink, -5)
	require.NoError(t, err)
	_, err = f.service.CreateReminder(f.ctx, f.event.UID, MethodEmail, -60)
	require.NoError(t, err)

	reminders, err := f.service.GetRemindersForEvent(f.ctx, f.event.UID)

	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.Equal(t, -60, reminders[0].TimeOffsetMinutes)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), reminders[0].NextFireTime.MustGet())
	assert.Equal(t, -5, reminders[1].TimeOffsetMinutes)
}

func TestService_SentReminderHasNoNextFireTime(t *testing.T) {
	f := setupService(t)
	created, err := f.service.CreateReminder(f.ctx, f.event.UID, MethodEmail, -15)
	require.NoError(t, err)
	require.NoError(t, f.repo.MarkReminderSent(f.ctx, created.Id, time.Now(), nil))

	fetched, err := f.service.GetReminder(f.ctx, created.Id)

	require.NoError(t, err)
	assert.True(t, fetched.IsSent)
	assert.True(t, fetched.NextFireTime.IsAbsent())
}

func TestService_DeleteReminder(t *testing.T) {
	f := setupService(t)
	created, err := f.service.CreateReminder(f.ctx, f.event.UID, MethodEmail, -15)
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteReminder(f.ctx, created.Id))

	_, err = f.service.GetReminder(f.ctx, created.Id)
	assert.ErrorIs(t, err, ErrReminderNotFound)
	assert.ErrorIs(t, f.service.DeleteReminder(f.ctx, created.Id), ErrReminderNotFound)
}

func TestService_EventDeletionRemovesReminders(t *testing.T) {
	f := setupService(t)
	created, err := f.service.CreateReminder(f.ctx, f.event.UID, MethodEmail, -15)
	require.NoError(t, err)

	require.NoError(t, f.calendar.DeleteEvent(f.ctx, f.event.UID))

	_, err = f.repo.GetReminder(f.ctx, 3, created.Id)
	assert.ErrorIs(t, err, ErrReminderNotFound)
}
