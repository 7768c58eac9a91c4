package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
	log "github.com/sirupsen/logrus"
)

// ErrInvalidRule is returned for rules that cannot be parsed or expanded.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Frequency is the step unit of a Rule.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
)

// IsValid reports whether f is one of Daily, Weekly or Monthly.
func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// Rule is the structured repetition rule of an event.
//
// Interval values lower than 1 are treated as 1 during expansion. ByWeekday is
// only taken into account for Weekly rules. When both Until and Count are set,
// whichever bound is reached first ends the series.
type Rule struct {
	Frequency Frequency
	Interval  int
	ByWeekday []time.Weekday
	Until     mo.Option[time.Time]
	Count     mo.Option[int]
}

// Validate rejects rules that must never reach storage.
func (r Rule) Validate() error {
	if !r.Frequency.IsValid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, r.Frequency)
	}
	if count, ok := r.Count.Get(); ok && count <= 0 {
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvalidRule, count)
	}
	for _, d := range r.ByWeekday {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: invalid weekday %d", ErrInvalidRule, d)
		}
	}
	return nil
}

func (r Rule) interval() int {
	if r.Interval <= 0 {
		return 1
	}
	return r.Interval
}

var weekdayTokens = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

// WeekdayToken returns the two-letter BYDAY token of d, e.g. MO.
func WeekdayToken(d time.Weekday) string {
	return weekdayTokens[d]
}

// ParseWeekday is the inverse of WeekdayToken; tokens are case-insensitive.
func ParseWeekday(token string) (time.Weekday, error) {
	token = strings.ToUpper(strings.TrimSpace(token))
	for d, t := range weekdayTokens {
		if t == token {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRule, token)
}

const (
	untilBasicLayout = "20060102T150405Z"
	untilDateLayout  = "20060102"
)

// String encodes the rule as FREQ=..;INTERVAL=..;BYDAY=..;UNTIL=..;COUNT=..
// Absent fields are omitted, so Parse(r.String()) yields an equal rule.
func (r Rule) String() string {
	parts := []string{"FREQ=" + string(r.Frequency)}
	if r.Interval != 0 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.Interval))
	}
	if len(r.ByWeekday) > 0 {
		days := make([]string, 0, len(r.ByWeekday))
		for _, d := range r.ByWeekday {
			days = append(days, WeekdayToken(d))
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if until, ok := r.Until.Get(); ok {
		parts = append(parts, "UNTIL="+formatInstant(until))
	}
	if count, ok := r.Count.Get(); ok {
		parts = append(parts, "COUNT="+strconv.Itoa(count))
	}
	return strings.Join(parts, ";")
}

// Parse decodes the compact rule encoding. Unknown keys (WKST, BYMONTH...) are
// ignored so rules copied from other calendars still load.
func Parse(s string) (Rule, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "RRULE:")
	if s == "" {
		return Rule{}, fmt.Errorf("%w: empty rule", ErrInvalidRule)
	}

	var rule Rule
	for _, part := range strings.Split(s, ";") {
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return Rule{}, fmt.Errorf("%w: malformed part %q", ErrInvalidRule, part)
		}
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "FREQ":
			rule.Frequency = Frequency(strings.ToUpper(strings.TrimSpace(value)))
		case "INTERVAL":
			interval, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return Rule{}, fmt.Errorf("%w: interval %q is not a number", ErrInvalidRule, value)
			}
			rule.Interval = interval
		case "BYDAY":
			for _, token := range strings.Split(value, ",") {
				day, err := ParseWeekday(token)
				if err != nil {
					return Rule{}, err
				}
				rule.ByWeekday = append(rule.ByWeekday, day)
			}
		case "UNTIL":
			until, err := parseInstant(strings.TrimSpace(value))
			if err != nil {
				return Rule{}, err
			}
			rule.Until = mo.Some(until)
		case "COUNT":
			count, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return Rule{}, fmt.Errorf("%w: count %q is not a number", ErrInvalidRule, value)
			}
			rule.Count = mo.Some(count)
		default:
			log.Debugf("ignoring unsupported recurrence key %q", key)
		}
	}

	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func formatInstant(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond() != 0 {
		return t.Format(time.RFC3339Nano)
	}
	return t.Format(untilBasicLayout)
}

func parseInstant(value string) (time.Time, error) {
	for _, layout := range []string{untilBasicLayout, time.RFC3339Nano, untilDateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unsupported UNTIL value %q", ErrInvalidRule, value)
}
