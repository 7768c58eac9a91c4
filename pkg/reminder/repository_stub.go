package reminder

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agendly/agendly/pkg/calendar"
	"github.com/agendly/agendly/pkg/user"
	"github.com/google/uuid"
)

// RepositoryStub keeps reminders in memory. Events and users referenced by
// reminders are registered with AddEvent and AddUser so dispatch can resolve them.
type RepositoryStub struct {
	mu        sync.Mutex
	nextId    int
	reminders map[int]Reminder
	events    map[uuid.UUID]calendar.Event
	users     map[int]user.User
	markCalls int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		reminders: make(map[int]Reminder),
		events:    make(map[uuid.UUID]calendar.Event),
		users:     make(map[int]user.User),
	}
}

func (r *RepositoryStub) AddEvent(event calendar.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.UID] = event
}

func (r *RepositoryStub) RemoveEvent(eventUid uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, eventUid)
}

func (r *RepositoryStub) AddUser(u user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.Id] = u
}

// MarkCalls returns how many times MarkReminderSent was invoked.
func (r *RepositoryStub) MarkCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.markCalls
}

func (r *RepositoryStub) StoreReminder(ctx context.Context, userId int, reminder Reminder) (Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextId++
	reminder.Id = r.nextId
	reminder.UserId = userId
	reminder.IsSent = false
	reminder.SentAt = nil
	reminder.GeneratedLink = nil
	reminder.CreatedAt = time.Now()
	r.reminders[reminder.Id] = reminder
	return reminder, nil
}

func (r *RepositoryStub) GetReminder(ctx context.Context, userId int, reminderId int) (Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reminder, ok := r.reminders[reminderId]
	if !ok || reminder.UserId != userId {
		return Reminder{}, ErrReminderNotFound
	}
	return reminder, nil
}

func (r *RepositoryStub) GetRemindersForEvent(ctx context.Context, userId int, eventUid uuid.UUID) ([]Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Reminder, 0)
	for _, reminder := range r.reminders {
		if reminder.UserId == userId && reminder.EventUID == eventUid {
			result = append(result, reminder)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TimeOffsetMinutes != result[j].TimeOffsetMinutes {
			return result[i].TimeOffsetMinutes < result[j].TimeOffsetMinutes
		}
		return result[i].Id < result[j].Id
	})
	return result, nil
}

func (r *RepositoryStub) DeleteReminder(ctx context.Context, userId int, reminderId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reminder, ok := r.reminders[reminderId]
	if !ok || reminder.UserId != userId {
		return ErrReminderNotFound
	}
	delete(r.reminders, reminderId)
	return nil
}

func (r *RepositoryStub) DeleteRemindersForEvent(ctx context.Context, userId int, eventUid uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for id, reminder := range r.reminders {
		if reminder.UserId == userId && reminder.EventUID == eventUid {
			delete(r.reminders, id)
			deleted++
		}
	}
	return deleted, nil
}

// FindDueUnsentReminders returns every unsent reminder; due-ness is left to the planner.
func (r *RepositoryStub) FindDueUnsentReminders(ctx context.Context, now time.Time, grace time.Duration) ([]DueReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]DueReminder, 0)
	for _, reminder := range r.reminders {
		if reminder.IsSent {
			continue
		}
		item := DueReminder{Reminder: reminder, User: r.users[reminder.UserId]}
		if event, ok := r.events[reminder.EventUID]; ok {
			item.Event = &event
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Reminder.Id < result[j].Reminder.Id })
	return result, nil
}

// MarkReminderSent fails on a cancelled context the way a database write does.
func (r *RepositoryStub) MarkReminderSent(ctx context.Context, reminderId int, sentAt time.Time, generatedLink *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCalls++
	reminder, ok := r.reminders[reminderId]
	if !ok {
		return ErrReminderNotFound
	}
	if reminder.IsSent {
		return ErrAlreadySent
	}
	reminder.IsSent = true
	reminder.SentAt = &sentAt
	reminder.GeneratedLink = generatedLink
	r.reminders[reminderId] = reminder
	return nil
}
