package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agendly/agendly/internal/event_bus"
	"github.com/agendly/agendly/internal/utils"
	"github.com/agendly/agendly/pkg/calendar"
	"github.com/agendly/agendly/pkg/user"
	"github.com/google/uuid"
	"github.com/samber/mo"
	log "github.com/sirupsen/logrus"
)

// ScheduledReminder is a reminder with the next time it is going to fire, if any.
type ScheduledReminder struct {
	Reminder
	NextFireTime mo.Option[time.Time]
}

type Service struct {
	repo     Repository
	calendar calendar.Calendar
	planner  *Planner
	clock    utils.Clock
}

func NewService(repo Repository, cal calendar.Calendar, planner *Planner, clock utils.Clock) *Service {
	return &Service{
		repo:     repo,
		calendar: cal,
		planner:  planner,
		clock:    clock,
	}
}

func (s *Service) CreateReminder(ctx context.Context, eventUid uuid.UUID, method Method, offsetMinutes int) (ScheduledReminder, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return ScheduledReminder{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if !method.IsValid() {
		return ScheduledReminder{}, fmt.Errorf("%w: unknown method %q", ErrInvalidReminder, method)
	}
	if offsetMinutes < -MaxOffsetMinutes || offsetMinutes > MaxOffsetMinutes {
		return ScheduledReminder{}, fmt.Errorf("%w: offset must be within %d minutes", ErrInvalidReminder, MaxOffsetMinutes)
	}

	event, err := s.calendar.GetEvent(ctx, eventUid)
	if err != nil {
		return ScheduledReminder{}, err
	}

	stored, err := s.repo.StoreReminder(ctx, userId, Reminder{
		EventUID:          eventUid,
		Method:            method,
		TimeOffsetMinutes: offsetMinutes,
	})
	if err != nil {
		return ScheduledReminder{}, fmt.Errorf("failed to store reminder: %w", err)
	}
	log.Debugf("created reminder %d for event %s", stored.Id, eventUid)
	return s.schedule(stored, &event), nil
}

func (s *Service) GetReminder(ctx context.Context, reminderId int) (ScheduledReminder, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return ScheduledReminder{}, fmt.Errorf("failed to get current user: %w", err)
	}
	stored, err := s.repo.GetReminder(ctx, userId, reminderId)
	if err != nil {
		return ScheduledReminder{}, err
	}
	event, err := s.calendar.GetEvent(ctx, stored.EventUID)
	if err != nil {
		if errors.Is(err, calendar.ErrEventNotFound) {
			return s.schedule(stored, nil), nil
		}
		return ScheduledReminder{}, err
	}
	return s.schedule(stored, &event), nil
}

func (s *Service) GetRemindersForEvent(ctx context.Context, eventUid uuid.UUID) ([]ScheduledReminder, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	event, err := s.calendar.GetEvent(ctx, eventUid)
	if err != nil {
		return nil, err
	}
	reminders, err := s.repo.GetRemindersForEvent(ctx, userId, eventUid)
	if err != nil {
		return nil, err
	}
	result := make([]ScheduledReminder, 0, len(reminders))
	for _, r := range reminders {
		result = append(result, s.schedule(r, &event))
	}
	return result, nil
}

func (s *Service) DeleteReminder(ctx context.Context, reminderId int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.DeleteReminder(ctx, userId, reminderId)
}

// SubscribeToEvents removes reminders of deleted events.
func (s *Service) SubscribeToEvents(bus *event_bus.EventBus) (unsubscribe func()) {
	return event_bus.SubscribeTyped(bus, event_bus.CalendarEventDeletedType,
		func(e event_bus.EventT[event_bus.CalendarEventDeleted]) error {
			deleted, err := s.repo.DeleteRemindersForEvent(e.Context(), e.Data.UserId, e.Data.EventUID)
			if err != nil {
				return fmt.Errorf("failed to delete reminders of event %s: %w", e.Data.EventUID, err)
			}
			log.Debugf("deleted %d reminders of event %s", deleted, e.Data.EventUID)
			return nil
		})
}

func (s *Service) schedule(r Reminder, event *calendar.Event) ScheduledReminder {
	scheduled := ScheduledReminder{Reminder: r, NextFireTime: mo.None[time.Time]()}
	if r.IsSent || event == nil {
		return scheduled
	}
	next, ok, err := s.planner.NextFireTime(event, r.TimeOffsetMinutes, s.clock.Now())
	if err != nil {
		log.Warnf("could not compute next fire time of reminder %d: %v", r.Id, err)
		return scheduled
	}
	if ok {
		scheduled.NextFireTime = mo.Some(next)
	}
	return scheduled
}
