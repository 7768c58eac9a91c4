package event_bus

import (
	"time"

	"github.com/google/uuid"
)

const (
	CalendarEventDeletedType EventType = "calendar.event.deleted"
	ReminderSentType         EventType = "reminder.sent"
)

type CalendarEventDeleted struct {
	UserId   int
	EventUID uuid.UUID
}

type ReminderSent struct {
	ReminderId    int
	UserId        int
	EventUID      uuid.UUID
	OccurrenceKey string
	Method        string
	SentAt        time.Time
}
