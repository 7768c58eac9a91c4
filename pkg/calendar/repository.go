package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agendly/agendly/pkg/recurrence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	StoreEvent(ctx context.Context, userId int, event Event) (uuid.UUID, error)
	GetEvent(ctx context.Context, userId int, eventUid uuid.UUID) (Event, error)
	// GetEvents returns events that may have an occurrence overlapping [from, to):
	// single events overlapping the window and recurring series not finished before it.
	GetEvents(ctx context.Context, userId int, from, to time.Time) ([]Event, error)
	GetAllEvents(ctx context.Context, userId int) ([]Event, error)
	UpdateEvent(ctx context.Context, userId int, event Event) (Event, error)
	DeleteEvent(ctx context.Context, userId int, eventUid uuid.UUID) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectEventColumns = `SELECT uid, title, description, location, color, start_time, end_time, recurrence_rule
	FROM calendar_event`

func (r *RepositoryImpl) StoreEvent(ctx context.Context, userId int, event Event) (uuid.UUID, error) {
	query := `INSERT INTO calendar_event (uid, user_id, title, description, location, color,
                            start_time, end_time, recurrence_rule, recurrence_until, recurrence_count)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	uid := uuid.New()
	rule, until, count := recurrenceColumns(event.Recurrence)
	_, err := r.db.Exec(ctx, query,
		uid,
		userId,
		event.Title,
		event.Description,
		event.Location,
		event.Color,
		event.StartTime,
		event.EndTime,
		rule,
		until,
		count,
	)
	if err != nil {
		err := fmt.Errorf("could not store event: %w", err)
		log.Error(err)
		return uuid.Nil, err
	}
	return uid, nil
}

func (r *RepositoryImpl) GetEvent(ctx context.Context, userId int, eventUid uuid.UUID) (Event, error) {
	query := selectEventColumns + ` WHERE user_id = $1 AND uid = $2`
	event, err := scanEvent(r.db.QueryRow(ctx, query, userId, eventUid))
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not get event %s: %w", eventUid, err)
		log.Error(err)
		return Event{}, err
	}
	return event, nil
}

func (r *RepositoryImpl) GetEvents(ctx context.Context, userId int, from, to time.Time) ([]Event, error) {
	// Single events: overlap test against the window.
	// Recurring events: started before the window ends and, when bounded by
	// until, the last possible occurrence ends inside or after the window.
	query := selectEventColumns + `
			  WHERE user_id = $1
				AND start_time < $2
				AND (end_time >= $3
					OR (recurrence_rule IS NOT NULL
						AND (recurrence_until IS NULL OR recurrence_until + (end_time - start_time) >= $3)))
			  ORDER BY start_time`

	rows, err := r.db.Query(ctx, query, userId, to, from)
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	return collectEvents(rows)
}

func (r *RepositoryImpl) GetAllEvents(ctx context.Context, userId int) ([]Event, error) {
	rows, err := r.db.Query(ctx, selectEventColumns+` WHERE user_id = $1 ORDER BY start_time`, userId)
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	return collectEvents(rows)
}

func (r *RepositoryImpl) UpdateEvent(ctx context.Context, userId int, event Event) (Event, error) {
	query := `UPDATE calendar_event SET
                          title = $1,
                          description = $2,
                          location = $3,
                          color = $4,
                          start_time = $5,
                          end_time = $6,
                          recurrence_rule = $7,
                          recurrence_until = $8,
                          recurrence_count = $9
              WHERE user_id = $10 AND uid = $11`

	rule, until, count := recurrenceColumns(event.Recurrence)
	result, err := r.db.Exec(ctx, query,
		event.Title,
		event.Description,
		event.Location,
		event.Color,
		event.StartTime,
		event.EndTime,
		rule,
		until,
		count,
		userId,
		event.UID,
	)
	if err != nil {
		err := fmt.Errorf("could not update event %s: %w", event.UID, err)
		log.Error(err)
		return Event{}, err
	}
	if result.RowsAffected() == 0 {
		return Event{}, ErrEventNotFound
	}
	return r.GetEvent(ctx, userId, event.UID)
}

func (r *RepositoryImpl) DeleteEvent(ctx context.Context, userId int, eventUid uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM calendar_event WHERE user_id = $1 AND uid = $2`, userId, eventUid)
	if err != nil {
		err := fmt.Errorf("could not delete event %s: %w", eventUid, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func recurrenceColumns(rule *recurrence.Rule) (*string, *time.Time, *int) {
	if rule == nil {
		return nil, nil, nil
	}
	encoded := rule.String()
	var until *time.Time
	if u, ok := rule.Until.Get(); ok {
		until = &u
	}
	var count *int
	if c, ok := rule.Count.Get(); ok {
		count = &c
	}
	return &encoded, until, count
}

func collectEvents(rows pgx.Rows) ([]Event, error) {
	defer rows.Close()
	events := make([]Event, 0, 10)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			log.Errorf("could not scan calendar event: %v", err)
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calendar events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var event Event
	var rule *string
	err := row.Scan(
		&event.UID,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.Color,
		&event.StartTime,
		&event.EndTime,
		&rule,
	)
	if err != nil {
		return Event{}, err
	}
	if rule != nil {
		parsed, err := recurrence.Parse(*rule)
		if err != nil {
			return Event{}, fmt.Errorf("stored rule of event %s: %w", event.UID, err)
		}
		event.Recurrence = &parsed
	}
	return event, nil
}
