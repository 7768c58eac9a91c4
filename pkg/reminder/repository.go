package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agendly/agendly/pkg/calendar"
	"github.com/agendly/agendly/pkg/recurrence"
	"github.com/agendly/agendly/pkg/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// DueReminder is a pending reminder with the event and owner it needs for
// dispatch. Event is nil when the event no longer exists.
type DueReminder struct {
	Reminder Reminder
	Event    *calendar.Event
	User     user.User
}

// DispatchStore is the persistence the dispatch loop works against.
type DispatchStore interface {
	// FindDueUnsentReminders returns unsent reminders that may be due at now.
	// The result is a superset; callers re-check due-ness with a Planner.
	FindDueUnsentReminders(ctx context.Context, now time.Time, grace time.Duration) ([]DueReminder, error)
	// MarkReminderSent flips is_sent once. It returns ErrAlreadySent when another
	// attempt won and ErrReminderNotFound when the reminder is gone.
	MarkReminderSent(ctx context.Context, reminderId int, sentAt time.Time, generatedLink *string) error
}

type Repository interface {
	DispatchStore
	StoreReminder(ctx context.Context, userId int, reminder Reminder) (Reminder, error)
	GetReminder(ctx context.Context, userId int, reminderId int) (Reminder, error)
	GetRemindersForEvent(ctx context.Context, userId int, eventUid uuid.UUID) ([]Reminder, error)
	DeleteReminder(ctx context.Context, userId int, reminderId int) error
	DeleteRemindersForEvent(ctx context.Context, userId int, eventUid uuid.UUID) (int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const reminderColumns = `r.id, r.event_uid, r.user_id, r.method, r.time_offset_minutes, r.is_sent, r.sent_at, r.generated_link, r.created_at`

func (r *RepositoryImpl) StoreReminder(ctx context.Context, userId int, reminder Reminder) (Reminder, error) {
	query := `INSERT INTO reminder (event_uid, user_id, method, time_offset_minutes)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		reminder.EventUID,
		userId,
		string(reminder.Method),
		reminder.TimeOffsetMinutes,
	).Scan(&reminder.Id, &reminder.CreatedAt)
	if err != nil {
		err := fmt.Errorf("could not store reminder: %w", err)
		log.Error(err)
		return Reminder{}, err
	}
	reminder.UserId = userId
	reminder.IsSent = false
	reminder.SentAt = nil
	reminder.GeneratedLink = nil
	return reminder, nil
}

func (r *RepositoryImpl) GetReminder(ctx context.Context, userId int, reminderId int) (Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminder r WHERE r.user_id = $1 AND r.id = $2`
	reminder, err := scanReminder(r.db.QueryRow(ctx, query, userId, reminderId))
	if errors.Is(err, pgx.ErrNoRows) {
		return Reminder{}, ErrReminderNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not get reminder %d: %w", reminderId, err)
		log.Error(err)
		return Reminder{}, err
	}
	return reminder, nil
}

func (r *RepositoryImpl) GetRemindersForEvent(ctx context.Context, userId int, eventUid uuid.UUID) ([]Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminder r
			  WHERE r.user_id = $1 AND r.event_uid = $2
			  ORDER BY r.time_offset_minutes, r.id`
	rows, err := r.db.Query(ctx, query, userId, eventUid)
	if err != nil {
		err := fmt.Errorf("could not query reminders: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	reminders := make([]Reminder, 0)
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}
	return reminders, nil
}

func (r *RepositoryImpl) DeleteReminder(ctx context.Context, userId int, reminderId int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM reminder WHERE user_id = $1 AND id = $2`, userId, reminderId)
	if err != nil {
		err := fmt.Errorf("could not delete reminder %d: %w", reminderId, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrReminderNotFound
	}
	return nil
}

func (r *RepositoryImpl) DeleteRemindersForEvent(ctx context.Context, userId int, eventUid uuid.UUID) (int, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM reminder WHERE user_id = $1 AND event_uid = $2`, userId, eventUid)
	if err != nil {
		err := fmt.Errorf("could not delete reminders of event %s: %w", eventUid, err)
		log.Error(err)
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

func (r *RepositoryImpl) FindDueUnsentReminders(ctx context.Context, now time.Time, grace time.Duration) ([]DueReminder, error) {
	// Single events are filtered exactly; a recurring series only needs to have
	// started and not be bounded before the grace window.
	query := `SELECT ` + reminderColumns + `,
					 e.uid, e.title, e.description, e.location, e.color, e.start_time, e.end_time, e.recurrence_rule,
					 u.id, u.uid, u.username, u.display_name, COALESCE(u.email, ''), COALESCE(u.phone, ''), u.timezone
			  FROM reminder r
			  JOIN users u ON u.id = r.user_id
			  LEFT JOIN calendar_event e ON e.uid = r.event_uid
			  WHERE r.is_sent = FALSE
				AND (e.uid IS NULL
					OR (e.start_time + make_interval(mins => r.time_offset_minutes) <= $1
						AND ((e.recurrence_rule IS NULL
								AND e.start_time + make_interval(mins => r.time_offset_minutes) >= $2)
							OR (e.recurrence_rule IS NOT NULL
								AND (e.recurrence_until IS NULL
									OR e.recurrence_until + make_interval(mins => r.time_offset_minutes) >= $2)))))
			  ORDER BY r.id`

	rows, err := r.db.Query(ctx, query, now, now.Add(-grace))
	if err != nil {
		err := fmt.Errorf("could not query due reminders: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	due := make([]DueReminder, 0)
	for rows.Next() {
		item, err := scanDueReminder(rows)
		if err != nil {
			// One broken row must not hide the others.
			log.Errorf("skipping reminder row: %v", err)
			continue
		}
		due = append(due, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due reminders: %w", err)
	}
	log.Tracef("found %d candidate reminders at %s", len(due), now.Format(time.RFC3339))
	return due, nil
}

func (r *RepositoryImpl) MarkReminderSent(ctx context.Context, reminderId int, sentAt time.Time, generatedLink *string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE reminder SET is_sent = TRUE, sent_at = $2, generated_link = $3 WHERE id = $1 AND is_sent = FALSE`,
		reminderId, sentAt, generatedLink)
	if err != nil {
		err := fmt.Errorf("could not mark reminder %d as sent: %w", reminderId, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	var isSent bool
	err = r.db.QueryRow(ctx, `SELECT is_sent FROM reminder WHERE id = $1`, reminderId).Scan(&isSent)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrReminderNotFound
	}
	if err != nil {
		return fmt.Errorf("could not check reminder %d: %w", reminderId, err)
	}
	return ErrAlreadySent
}

func scanReminder(row pgx.Row) (Reminder, error) {
	var reminder Reminder
	var method string
	err := row.Scan(
		&reminder.Id,
		&reminder.EventUID,
		&reminder.UserId,
		&method,
		&reminder.TimeOffsetMinutes,
		&reminder.IsSent,
		&reminder.SentAt,
		&reminder.GeneratedLink,
		&reminder.CreatedAt,
	)
	reminder.Method = Method(method)
	return reminder, err
}

func scanDueReminder(row pgx.Row) (DueReminder, error) {
	var item DueReminder
	var method string
	var eventUid *uuid.UUID
	var title, description, location, color, rule *string
	var start, end *time.Time
	err := row.Scan(
		&item.Reminder.Id,
		&item.Reminder.EventUID,
		&item.Reminder.UserId,
		&method,
		&item.Reminder.TimeOffsetMinutes,
		&item.Reminder.IsSent,
		&item.Reminder.SentAt,
		&item.Reminder.GeneratedLink,
		&item.Reminder.CreatedAt,
		&eventUid,
		&title,
		&description,
		&location,
		&color,
		&start,
		&end,
		&rule,
		&item.User.Id,
		&item.User.Uid,
		&item.User.Username,
		&item.User.DisplayName,
		&item.User.Email,
		&item.User.Phone,
		&item.User.Settings.Timezone,
	)
	if err != nil {
		return DueReminder{}, err
	}
	item.Reminder.Method = Method(method)
	if eventUid == nil {
		return item, nil
	}

	event := calendar.Event{
		UID:         *eventUid,
		Title:       deref(title),
		Description: deref(description),
		Location:    deref(location),
		Color:       deref(color),
		StartTime:   *start,
		EndTime:     *end,
	}
	if rule != nil {
		parsed, err := recurrence.Parse(*rule)
		if err != nil {
			return DueReminder{}, fmt.Errorf("reminder %d: stored rule of event %s: %w", item.Reminder.Id, event.UID, err)
		}
		event.Recurrence = &parsed
	}
	item.Event = &event
	return item, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
