package calendar

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agendly/agendly/pkg/recurrence"
	"github.com/emersion/go-ical"
	log "github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"
)

const icsProductId = "-//agendly//Agendly Calendar//EN"

// WriteICS encodes events as a VCALENDAR. Recurring events carry an RRULE
// built from their rule; stamp is used as DTSTAMP of every VEVENT.
func WriteICS(w io.Writer, events []Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, icsProductId)
	cal.Props.SetText(ical.PropVersion, "2.0")

	for _, event := range events {
		vevent := ical.NewEvent()
		vevent.Props.SetText(ical.PropUID, event.UID.String())
		vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime.UTC())
		vevent.Props.SetText(ical.PropSummary, event.Title)
		if event.Description != "" {
			vevent.Props.SetText(ical.PropDescription, event.Description)
		}
		if event.Location != "" {
			vevent.Props.SetText(ical.PropLocation, event.Location)
		}
		if event.Color != "" {
			vevent.Props.SetText(ical.PropColor, event.Color)
		}
		if event.Recurrence != nil {
			vevent.Props.SetRecurrenceRule(toROption(*event.Recurrence))
		}
		cal.Children = append(cal.Children, vevent.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func toROption(rule recurrence.Rule) *rrule.ROption {
	option := &rrule.ROption{
		Interval: rule.Interval,
	}
	switch rule.Frequency {
	case recurrence.Daily:
		option.Freq = rrule.DAILY
	case recurrence.Weekly:
		option.Freq = rrule.WEEKLY
	case recurrence.Monthly:
		option.Freq = rrule.MONTHLY
	}
	if option.Interval <= 0 {
		option.Interval = 1
	}
	for _, day := range rule.ByWeekday {
		option.Byweekday = append(option.Byweekday, rruleWeekday(day))
	}
	if until, ok := rule.Until.Get(); ok {
		option.Until = until.UTC()
	}
	if count, ok := rule.Count.Get(); ok {
		option.Count = count
	}
	return option
}

func rruleWeekday(day time.Weekday) rrule.Weekday {
	switch day {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}

func (h *Handler) ExportICS(w http.ResponseWriter, r *http.Request) {
	events, err := h.calendar.GetAllEvents(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="agendly.ics"`)
	w.WriteHeader(http.StatusOK)
	if err := WriteICS(w, events, time.Now()); err != nil {
		log.Errorf("failed to write calendar export: %v", err)
	}
}
