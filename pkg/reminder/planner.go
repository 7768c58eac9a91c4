package reminder

import (
	"fmt"
	"time"

	"github.com/agendly/agendly/pkg/calendar"
	"github.com/agendly/agendly/pkg/recurrence"
)

// DefaultGraceWindow is how long after its fire time a missed reminder may still go out.
const DefaultGraceWindow = 5 * time.Minute

// nextFireHorizon limits how far ahead NextFireTime looks for an occurrence.
const nextFireHorizon = 366 * 24 * time.Hour

// ComputeFireTime returns the instant a reminder with the given signed offset
// fires for an occurrence starting at occurrenceStart.
func ComputeFireTime(occurrenceStart time.Time, offsetMinutes int) time.Time {
	return occurrenceStart.Add(time.Duration(offsetMinutes) * time.Minute)
}

// IsDue reports whether fireTime lies in [now-grace, now].
func IsDue(fireTime, now time.Time, grace time.Duration) bool {
	return !fireTime.After(now) && !fireTime.Before(now.Add(-grace))
}

type Planner struct {
	grace         time.Duration
	maxIterations int
}

func NewPlanner(grace time.Duration, maxIterations int) *Planner {
	if grace < 0 {
		grace = 0
	}
	if maxIterations <= 0 {
		maxIterations = recurrence.DefaultMaxIterations
	}
	return &Planner{grace: grace, maxIterations: maxIterations}
}

func (p *Planner) GraceWindow() time.Duration {
	return p.grace
}

// DueOccurrence returns the earliest occurrence of event whose fire time is due
// at now. It returns ErrNotFound when event is nil and false when nothing is due.
func (p *Planner) DueOccurrence(event *calendar.Event, offsetMinutes int, now time.Time) (recurrence.Occurrence, bool, error) {
	if event == nil {
		return recurrence.Occurrence{}, false, ErrNotFound
	}
	offset := time.Duration(offsetMinutes) * time.Minute
	// Occurrences due now start in [now-grace-offset, now-offset].
	windowStart := now.Add(-p.grace).Add(-offset)
	windowEnd := now.Add(-offset).Add(time.Nanosecond)

	occurrences, err := recurrence.Expand(event.Series(), windowStart, windowEnd, recurrence.WithMaxIterations(p.maxIterations))
	if err != nil {
		return recurrence.Occurrence{}, false, fmt.Errorf("failed to expand event %s: %w", event.UID, err)
	}
	for _, o := range occurrences {
		if IsDue(ComputeFireTime(o.StartTime, offsetMinutes), now, p.grace) {
			return o, true, nil
		}
	}
	return recurrence.Occurrence{}, false, nil
}

// NextFireTime returns the first fire time at or after now, looking one year ahead.
func (p *Planner) NextFireTime(event *calendar.Event, offsetMinutes int, now time.Time) (time.Time, bool, error) {
	if event == nil {
		return time.Time{}, false, ErrNotFound
	}
	offset := time.Duration(offsetMinutes) * time.Minute
	windowStart := now.Add(-offset)

	occurrences, err := recurrence.Expand(event.Series(), windowStart, windowStart.Add(nextFireHorizon), recurrence.WithMaxIterations(p.maxIterations))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to expand event %s: %w", event.UID, err)
	}
	for _, o := range occurrences {
		fireTime := ComputeFireTime(o.StartTime, offsetMinutes)
		if !fireTime.Before(now) {
			return fireTime, true, nil
		}
	}
	return time.Time{}, false, nil
}
