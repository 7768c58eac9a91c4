package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agendly/agendly/pkg/recurrence"
	"github.com/google/uuid"
)

var (
	ErrInvalidEvent  = errors.New("invalid event")
	ErrEventNotFound = errors.New("event not found")
)

type Event struct {
	UID         uuid.UUID
	Title       string
	Description string
	Location    string
	Color       string
	StartTime   time.Time
	EndTime     time.Time
	Recurrence  *recurrence.Rule
}

func (e Event) IsRecurring() bool {
	return e.Recurrence != nil
}

// Series is the view of the event the recurrence expander works on.
func (e Event) Series() recurrence.Series {
	return recurrence.Series{
		ID:        e.UID.String(),
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Rule:      e.Recurrence,
	}
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if e.StartTime.IsZero() || e.EndTime.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidEvent)
	}
	if e.EndTime.Before(e.StartTime) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidEvent,
			e.EndTime.Format(time.RFC3339), e.StartTime.Format(time.RFC3339))
	}
	if e.Recurrence != nil {
		if err := e.Recurrence.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
	}
	return nil
}

// Instance is one occurrence of an event inside a queried window. For a
// non-recurring event it carries the event's own times.
type Instance struct {
	Event         Event
	OccurrenceKey string
	StartTime     time.Time
	EndTime       time.Time
}
