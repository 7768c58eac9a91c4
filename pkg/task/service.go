package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/agendly/agendly/pkg/user"
	log "github.com/sirupsen/logrus"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateTask(ctx context.Context, task Task) (Task, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Task{}, fmt.Errorf("failed to get current user: %w", err)
	}
	task, err = normalize(task)
	if err != nil {
		return Task{}, err
	}
	stored, err := s.repo.StoreTask(ctx, userId, task)
	if err != nil {
		return Task{}, err
	}
	log.Debugf("created task %d for user %d", stored.Id, userId)
	return stored, nil
}

func (s *Service) GetTask(ctx context.Context, taskId int) (Task, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Task{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetTask(ctx, userId, taskId)
}

func (s *Service) ListTasks(ctx context.Context, includeDone bool) ([]Task, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListTasks(ctx, userId, includeDone)
}

func (s *Service) UpdateTask(ctx context.Context, task Task) (Task, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Task{}, fmt.Errorf("failed to get current user: %w", err)
	}
	task, err = normalize(task)
	if err != nil {
		return Task{}, err
	}
	return s.repo.UpdateTask(ctx, userId, task)
}

func (s *Service) DeleteTask(ctx context.Context, taskId int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.DeleteTask(ctx, userId, taskId)
}

func normalize(task Task) (Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return Task{}, fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if len(task.Title) > 255 {
		return Task{}, fmt.Errorf("%w: title is longer than 255 characters", ErrInvalidTask)
	}
	if task.DueDate != nil {
		due := task.DueDate.UTC()
		task.DueDate = &due
	}
	return task, nil
}
