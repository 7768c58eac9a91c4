package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Calendar is what other packages need from the current user's calendar.
type Calendar interface {
	GetEvent(ctx context.Context, eventUid uuid.UUID) (Event, error)
	GetEvents(ctx context.Context, from time.Time, to time.Time) ([]Instance, error)
}
