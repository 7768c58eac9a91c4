package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type storedEvent struct {
	userId int
	event  Event
}

type RepositoryStub struct {
	mu     sync.Mutex
	events map[uuid.UUID]storedEvent
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{events: make(map[uuid.UUID]storedEvent)}
}

func (r *RepositoryStub) StoreEvent(ctx context.Context, userId int, event Event) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.UID = uuid.New()
	r.events[event.UID] = storedEvent{userId: userId, event: event}
	return event.UID, nil
}

func (r *RepositoryStub) GetEvent(ctx context.Context, userId int, eventUid uuid.UUID) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[eventUid]
	if !ok || stored.userId != userId {
		return Event{}, ErrEventNotFound
	}
	return stored.event, nil
}

func (r *RepositoryStub) GetEvents(ctx context.Context, userId int, from, to time.Time) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Event, 0)
	for _, stored := range r.events {
		e := stored.event
		if stored.userId != userId || !e.StartTime.Before(to) {
			continue
		}
		if e.Recurrence == nil && e.EndTime.Before(from) {
			continue
		}
		result = append(result, e)
	}
	sortByStart(result)
	return result, nil
}

func (r *RepositoryStub) GetAllEvents(ctx context.Context, userId int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Event, 0)
	for _, stored := range r.events {
		if stored.userId == userId {
			result = append(result, stored.event)
		}
	}
	sortByStart(result)
	return result, nil
}

func (r *RepositoryStub) UpdateEvent(ctx context.Context, userId int, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[event.UID]
	if !ok || stored.userId != userId {
		return Event{}, ErrEventNotFound
	}
	r.events[event.UID] = storedEvent{userId: userId, event: event}
	return event, nil
}

func (r *RepositoryStub) DeleteEvent(ctx context.Context, userId int, eventUid uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[eventUid]
	if !ok || stored.userId != userId {
		return ErrEventNotFound
	}
	delete(r.events, eventUid)
	return nil
}

func sortByStart(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
}
