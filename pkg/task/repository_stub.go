package task

import (
	"context"
	"sort"
	"sync"
	"time"
)

type RepositoryStub struct {
	mu     sync.Mutex
	nextId int
	tasks  map[int]Task
	owners map[int]int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{tasks: make(map[int]Task), owners: make(map[int]int)}
}

func (r *RepositoryStub) StoreTask(ctx context.Context, userId int, task Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextId++
	task.Id = r.nextId
	task.CreatedAt = time.Now()
	r.tasks[task.Id] = task
	r.owners[task.Id] = userId
	return task, nil
}

func (r *RepositoryStub) GetTask(ctx context.Context, userId int, taskId int) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskId]
	if !ok || r.owners[taskId] != userId {
		return Task{}, ErrTaskNotFound
	}
	return task, nil
}

func (r *RepositoryStub) ListTasks(ctx context.Context, userId int, includeDone bool) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Task, 0)
	for id, task := range r.tasks {
		if r.owners[id] != userId || (task.Done && !includeDone) {
			continue
		}
		result = append(result, task)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Done != b.Done {
			return !a.Done
		}
		if (a.DueDate == nil) != (b.DueDate == nil) {
			return a.DueDate != nil
		}
		if a.DueDate != nil && !a.DueDate.Equal(*b.DueDate) {
			return a.DueDate.Before(*b.DueDate)
		}
		return a.Id < b.Id
	})
	return result, nil
}

func (r *RepositoryStub) UpdateTask(ctx context.Context, userId int, task Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tasks[task.Id]
	if !ok || r.owners[task.Id] != userId {
		return Task{}, ErrTaskNotFound
	}
	task.CreatedAt = existing.CreatedAt
	r.tasks[task.Id] = task
	return task, nil
}

func (r *RepositoryStub) DeleteTask(ctx context.Context, userId int, taskId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[taskId]; !ok || r.owners[taskId] != userId {
		return ErrTaskNotFound
	}
	delete(r.tasks, taskId)
	delete(r.owners, taskId)
	return nil
}
