package reminder

import (
	"fmt"
	"strings"

	"github.com/agendly/agendly/pkg/calendar"
	"github.com/agendly/agendly/pkg/recurrence"
	"github.com/agendly/agendly/pkg/user"
)

const messageTimeLayout = "Mon, 02 Jan 2006 15:04 MST"

func emailMessage(event *calendar.Event, occurrence recurrence.Occurrence, recipient user.User) (subject string, body string) {
	loc := recipient.Location()
	subject = "Reminder: " + event.Title

	var b strings.Builder
	name := recipient.DisplayName
	if name == "" {
		name = recipient.Username
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "%s starts %s", event.Title, occurrence.StartTime.In(loc).Format(messageTimeLayout))
	fmt.Fprintf(&b, " and ends %s.\n", occurrence.EndTime.In(loc).Format(messageTimeLayout))
	if event.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", event.Location)
	}
	if event.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", event.Description)
	}
	return subject, b.String()
}

func messagingText(event *calendar.Event, occurrence recurrence.Occurrence, recipient user.User) string {
	start := occurrence.StartTime.In(recipient.Location()).Format(messageTimeLayout)
	if event.Location != "" {
		return fmt.Sprintf("Reminder: %s at %s (%s)", event.Title, start, event.Location)
	}
	return fmt.Sprintf("Reminder: %s at %s", event.Title, start)
}

