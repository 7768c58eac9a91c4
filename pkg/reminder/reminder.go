package reminder

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is reported when the event a reminder belongs to can't be resolved.
	ErrNotFound         = errors.New("reminder event not found")
	ErrReminderNotFound = errors.New("reminder not found")
	ErrInvalidReminder  = errors.New("invalid reminder")
	ErrConfiguration    = errors.New("reminder recipient is not configured")
	ErrDeliveryFailure  = errors.New("reminder delivery failed")
	ErrAlreadySent      = errors.New("reminder already sent")
)

// MaxOffsetMinutes bounds the offset in both directions (four weeks).
const MaxOffsetMinutes = 4 * 7 * 24 * 60

type Method string

const (
	MethodEmail         Method = "EMAIL"
	MethodMessagingLink Method = "MESSAGING_LINK"
)

func (m Method) IsValid() bool {
	return m == MethodEmail || m == MethodMessagingLink
}

type Reminder struct {
	Id                int
	EventUID          uuid.UUID
	UserId            int
	Method            Method
	TimeOffsetMinutes int
	IsSent            bool
	SentAt            *time.Time
	GeneratedLink     *string
	CreatedAt         time.Time
}
