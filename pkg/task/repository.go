package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	StoreTask(ctx context.Context, userId int, task Task) (Task, error)
	GetTask(ctx context.Context, userId int, taskId int) (Task, error)
	ListTasks(ctx context.Context, userId int, includeDone bool) ([]Task, error)
	UpdateTask(ctx context.Context, userId int, task Task) (Task, error)
	DeleteTask(ctx context.Context, userId int, taskId int) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectTaskColumns = `SELECT id, title, description, due_date, done, created_at FROM task`

func (r *RepositoryImpl) StoreTask(ctx context.Context, userId int, task Task) (Task, error) {
	query := `INSERT INTO task (user_id, title, description, due_date, done)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, userId, task.Title, task.Description, task.DueDate, task.Done).
		Scan(&task.Id, &task.CreatedAt)
	if err != nil {
		err := fmt.Errorf("could not store task: %w", err)
		log.Error(err)
		return Task{}, err
	}
	return task, nil
}

func (r *RepositoryImpl) GetTask(ctx context.Context, userId int, taskId int) (Task, error) {
	task, err := scanTask(r.db.QueryRow(ctx, selectTaskColumns+` WHERE user_id = $1 AND id = $2`, userId, taskId))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrTaskNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not get task %d: %w", taskId, err)
		log.Error(err)
		return Task{}, err
	}
	return task, nil
}

// ListTasks orders open tasks by due date, undated ones last.
func (r *RepositoryImpl) ListTasks(ctx context.Context, userId int, includeDone bool) ([]Task, error) {
	query := selectTaskColumns + ` WHERE user_id = $1 AND ($2 OR done = FALSE)
			  ORDER BY done, due_date NULLS LAST, id`
	rows, err := r.db.Query(ctx, query, userId, includeDone)
	if err != nil {
		err := fmt.Errorf("could not query tasks: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func (r *RepositoryImpl) UpdateTask(ctx context.Context, userId int, task Task) (Task, error) {
	query := `UPDATE task SET title = $1, description = $2, due_date = $3, done = $4
			  WHERE user_id = $5 AND id = $6`
	result, err := r.db.Exec(ctx, query, task.Title, task.Description, task.DueDate, task.Done, userId, task.Id)
	if err != nil {
		err := fmt.Errorf("could not update task %d: %w", task.Id, err)
		log.Error(err)
		return Task{}, err
	}
	if result.RowsAffected() == 0 {
		return Task{}, ErrTaskNotFound
	}
	return r.GetTask(ctx, userId, task.Id)
}

func (r *RepositoryImpl) DeleteTask(ctx context.Context, userId int, taskId int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM task WHERE user_id = $1 AND id = $2`, userId, taskId)
	if err != nil {
		err := fmt.Errorf("could not delete task %d: %w", taskId, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (Task, error) {
	var task Task
	err := row.Scan(&task.Id, &task.Title, &task.Description, &task.DueDate, &task.Done, &task.CreatedAt)
	return task, err
}
