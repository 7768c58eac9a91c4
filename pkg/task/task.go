package task

import (
	"errors"
	"time"
)

var (
	ErrInvalidTask  = errors.New("invalid task")
	ErrTaskNotFound = errors.New("task not found")
)

type Task struct {
	Id          int
	Title       string
	Description string
	DueDate     *time.Time
	Done        bool
	CreatedAt   time.Time
}
