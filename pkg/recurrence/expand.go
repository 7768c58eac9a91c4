package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// DefaultMaxIterations caps the number of candidates a single expansion may
// visit before giving up with ErrExpansionLimitExceeded.
const DefaultMaxIterations = 10000

var (
	// ErrExpansionLimitExceeded is returned instead of a silently truncated result.
	ErrExpansionLimitExceeded = errors.New("recurrence expansion limit exceeded")
	ErrInvalidWindow          = errors.New("range end is before range start")
)

// Series is the part of a stored event the expander needs.
type Series struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	Rule      *Rule
}

func (s Series) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Occurrence is one concrete instance of a series.
type Occurrence struct {
	BaseEventID string
	Key         string
	StartTime   time.Time
	EndTime     time.Time
}

// OccurrenceKey identifies the occurrence of event id starting at start. The
// same inputs always give the same key, whatever window was expanded.
func OccurrenceKey(id string, start time.Time) string {
	return id + "@" + formatInstant(start)
}

type expandConfig struct {
	maxIterations int
}

// ExpandOption tunes a single Expand call.
type ExpandOption func(*expandConfig)

// WithMaxIterations overrides DefaultMaxIterations; non-positive values are ignored.
func WithMaxIterations(n int) ExpandOption {
	return func(c *expandConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// Expand returns the occurrences of s whose span overlaps [rangeStart, rangeEnd).
// An occurrence that starts before the window but ends inside it is included.
func Expand(s Series, rangeStart, rangeEnd time.Time, opts ...ExpandOption) ([]Occurrence, error) {
	cfg := expandConfig{maxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(&cfg)
	}
	if rangeEnd.Before(rangeStart) {
		return nil, ErrInvalidWindow
	}

	duration := s.Duration()
	base := s.occurrenceAt(s.StartTime, duration)

	if s.Rule == nil {
		if overlaps(base.StartTime, base.EndTime, rangeStart, rangeEnd) {
			return []Occurrence{base}, nil
		}
		return []Occurrence{}, nil
	}

	rule := *s.Rule
	gen := newGenerator(s.StartTime, rule)
	until, hasUntil := rule.Until.Get()
	count, hasCount := rule.Count.Get()

	candidate := s.StartTime
	if !hasCount {
		// Without a count, earlier candidates don't affect later ones, so
		// long-running series can jump close to the window.
		candidate = gen.skipTo(rangeStart.Add(-duration))
	}

	occurrences := make([]Occurrence, 0)
	generated := 0
	for i := 0; ; i++ {
		if !candidate.Before(rangeEnd) {
			break
		}
		if hasUntil && candidate.After(until) {
			break
		}
		if hasCount && generated >= count {
			break
		}
		// only a candidate that would still be evaluated counts against the limit
		if i >= cfg.maxIterations {
			return nil, fmt.Errorf("%w: event %s visited %d candidates", ErrExpansionLimitExceeded, s.ID, cfg.maxIterations)
		}
		generated++

		end := candidate.Add(duration)
		if overlaps(candidate, end, rangeStart, rangeEnd) {
			occurrences = append(occurrences, s.occurrenceAt(candidate, duration))
		}
		candidate = gen.next()
	}

	if len(occurrences) == 0 && overlaps(base.StartTime, base.EndTime, rangeStart, rangeEnd) {
		return []Occurrence{base}, nil
	}
	return occurrences, nil
}

func (s Series) occurrenceAt(start time.Time, duration time.Duration) Occurrence {
	return Occurrence{
		BaseEventID: s.ID,
		Key:         OccurrenceKey(s.ID, start),
		StartTime:   start,
		EndTime:     start.Add(duration),
	}
}

func overlaps(start, end, rangeStart, rangeEnd time.Time) bool {
	return !end.Before(rangeStart) && start.Before(rangeEnd)
}

// generator yields the candidate starts of a rule after the series start.
// Fixed-step frequencies are computed from the series start by index so
// month-end clamping never drifts (Jan 31, Feb 29, Mar 31...).
type generator struct {
	start    time.Time
	freq     Frequency
	interval int
	n        int
	weekdays map[time.Weekday]bool
	cursor   time.Time
}

func newGenerator(start time.Time, rule Rule) *generator {
	g := &generator{
		start:    start,
		freq:     rule.Frequency,
		interval: rule.interval(),
		cursor:   start,
	}
	if rule.Frequency == Weekly && len(rule.ByWeekday) > 0 {
		// Every matching weekday; week interval spacing is not applied.
		g.weekdays = make(map[time.Weekday]bool, len(rule.ByWeekday))
		for _, d := range rule.ByWeekday {
			g.weekdays[d] = true
		}
	}
	return g
}

func (g *generator) next() time.Time {
	if g.weekdays != nil {
		for {
			g.cursor = g.cursor.AddDate(0, 0, 1)
			if g.weekdays[g.cursor.Weekday()] {
				return g.cursor
			}
		}
	}
	g.n++
	return g.at(g.n)
}

func (g *generator) at(n int) time.Time {
	switch g.freq {
	case Daily:
		return g.start.AddDate(0, 0, n*g.interval)
	case Weekly:
		return g.start.AddDate(0, 0, 7*n*g.interval)
	case Monthly:
		return addMonthsClamped(g.start, n*g.interval)
	}
	return g.start
}

// skipTo moves the generator past candidates that start well before
// threshold and returns the first candidate to evaluate. One step of margin
// is kept so daylight saving shifts never drop an occurrence.
func (g *generator) skipTo(threshold time.Time) time.Time {
	if !threshold.After(g.start) {
		return g.start
	}
	days := int(threshold.Sub(g.start).Hours() / 24)

	if g.weekdays != nil {
		weeks := days/7 - 1
		if weeks < 1 {
			return g.start
		}
		g.cursor = g.start.AddDate(0, 0, 7*weeks-1)
		return g.next()
	}

	var steps int
	switch g.freq {
	case Daily:
		steps = days / g.interval
	case Weekly:
		steps = days / (7 * g.interval)
	case Monthly:
		months := (threshold.Year()-g.start.Year())*12 + int(threshold.Month()) - int(g.start.Month())
		steps = months / g.interval
	}
	steps--
	if steps < 1 {
		return g.start
	}
	g.n = steps
	return g.at(steps)
}

// addMonthsClamped adds months to t keeping the time of day, clamping the day
// to the last day of the target month when it would overflow.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(target.Year(), target.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
