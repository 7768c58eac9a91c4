package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/agendly/agendly/internal/event_bus"
	"github.com/agendly/agendly/pkg/recurrence"
	"github.com/agendly/agendly/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Service struct {
	repo          Repository
	eventBus      *event_bus.EventBus
	maxIterations int
}

func NewService(repo Repository, eventBus *event_bus.EventBus, maxIterations int) *Service {
	if maxIterations <= 0 {
		maxIterations = recurrence.DefaultMaxIterations
	}
	return &Service{
		repo:          repo,
		eventBus:      eventBus,
		maxIterations: maxIterations,
	}
}

func (s *Service) AddEvent(ctx context.Context, event Event) (Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := event.Validate(); err != nil {
		return Event{}, err
	}

	eventUid, err := s.repo.StoreEvent(ctx, userId, event)
	if err != nil {
		return Event{}, fmt.Errorf("failed to store event: %w", err)
	}
	event.UID = eventUid
	log.Debugf("created event %s for user %d", eventUid, userId)

	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, eventUid uuid.UUID) (Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetEvent(ctx, userId, eventUid)
}

// GetEvents expands the current user's events into the instances overlapping
// [from, to), ordered by start time.
func (s *Service) GetEvents(ctx context.Context, from time.Time, to time.Time) ([]Instance, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: window end %s is before start %s", recurrence.ErrInvalidWindow,
			to.Format(time.RFC3339), from.Format(time.RFC3339))
	}

	events, err := s.repo.GetEvents(ctx, userId, from, to)
	if err != nil {
		return nil, err
	}

	instances := make([]Instance, 0, len(events))
	for _, event := range events {
		occurrences, err := recurrence.Expand(event.Series(), from, to, recurrence.WithMaxIterations(s.maxIterations))
		if err != nil {
			return nil, fmt.Errorf("failed to expand event %s: %w", event.UID, err)
		}
		for _, o := range occurrences {
			instances = append(instances, Instance{
				Event:         event,
				OccurrenceKey: o.Key,
				StartTime:     o.StartTime,
				EndTime:       o.EndTime,
			})
		}
	}
	sort.SliceStable(instances, func(i, j int) bool {
		return instances[i].StartTime.Before(instances[j].StartTime)
	})
	log.Tracef("expanded %d events into %d instances", len(events), len(instances))

	return instances, nil
}

func (s *Service) GetAllEvents(ctx context.Context) ([]Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetAllEvents(ctx, userId)
}

func (s *Service) ModifyEvent(ctx context.Context, event Event) (Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := event.Validate(); err != nil {
		return Event{}, err
	}
	updated, err := s.repo.UpdateEvent(ctx, userId, event)
	if err != nil {
		return Event{}, fmt.Errorf("failed to update event: %w", err)
	}
	return updated, nil
}

// DeleteEvent removes the event and announces it so derived data (reminders)
// can be dropped.
func (s *Service) DeleteEvent(ctx context.Context, eventUid uuid.UUID) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	if err := s.repo.DeleteEvent(ctx, userId, eventUid); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if s.eventBus != nil {
		err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.CalendarEventDeletedType, event_bus.CalendarEventDeleted{
			UserId:   userId,
			EventUID: eventUid,
		}))
		if err != nil {
			// Reminders are already gone through the foreign key cascade.
			log.Errorf("failed to publish deletion of event %s: %v", eventUid, err)
		}
	}
	return nil
}
