package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskmaster/tasks/internal/application/dto"
	"github.com/taskmaster/tasks/internal/application/mapper"
	"github.com/taskmaster/tasks/internal/infrastructure/logger"
	"github.com/taskmaster/tasks/internal/ports"
)

// Request errors raised before the store is touched
var (
	ErrIDExists  = errors.New("a new task cannot already have an ID")
	ErrIDNull    = errors.New("task ID is required")
	ErrIDInvalid = errors.New("task ID does not match the path")
)

// TaskService handles task-related operations
type TaskService struct {
	taskRepo ports.TaskRepository
	logger   *logger.Logger
	now      func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		logger:   logger.WithComponent("task_service"),
		now:      time.Now,
	}
}

// Create stores a new task. CreatedAt defaults to the current time.
func (s *TaskService) Create(ctx context.Context, req dto.TaskDTO) (*dto.TaskDTO, error) {
	if req.ID != nil {
		return nil, ErrIDExists
	}

	task := mapper.ToEntity(&req)
	if task.CreatedAt == nil {
		now := s.timestamp()
		task.CreatedAt = &now
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Infow("Task created successfully", "task_id", *task.ID)

	return mapper.ToDTO(task), nil
}

// Update replaces every field of an existing task. An absent CreatedAt keeps the stored one.
func (s *TaskService) Update(ctx context.Context, id int64, req dto.TaskDTO) (*dto.TaskDTO, error) {
	if err := checkID(id, req); err != nil {
		return nil, err
	}

	existing, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	task := mapper.ToEntity(&req)
	if task.CreatedAt == nil {
		task.CreatedAt = existing.CreatedAt
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.logger.Infow("Task updated successfully", "task_id", id)

	return mapper.ToDTO(task), nil
}

// PartialUpdate merges the fields present on req into the stored task.
func (s *TaskService) PartialUpdate(ctx context.Context, id int64, req dto.TaskDTO) (*dto.TaskDTO, error) {
	if err := checkID(id, req); err != nil {
		return nil, err
	}

	existing, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	merged := mapper.MergeInto(*existing, req)

	if err := s.taskRepo.Update(ctx, &merged); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.logger.Infow("Task partially updated", "task_id", id)

	return mapper.ToDTO(&merged), nil
}

// Get retrieves a task by ID
func (s *TaskService) Get(ctx context.Context, id int64) (*dto.TaskDTO, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return mapper.ToDTO(task), nil
}

// List retrieves one page of tasks and the total number matching the filter
func (s *TaskService) List(ctx context.Context, filter ports.TaskFilter) ([]*dto.TaskDTO, int64, error) {
	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	total, err := s.taskRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return mapper.ToDTOs(tasks), total, nil
}

// Delete deletes a task. Deleting a missing task succeeds.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	exists, err := s.taskRepo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	if !exists {
		s.logger.Debugw("Task already absent", "task_id", id)
		return nil
	}

	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Infow("Task deleted successfully", "task_id", id)

	return nil
}

// timestamp is truncated to what postgres keeps
func (s *TaskService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func checkID(id int64, req dto.TaskDTO) error {
	if req.ID == nil {
		return ErrIDNull
	}
	if *req.ID != id {
		return ErrIDInvalid
	}
	return nil
}

var _ ports.TaskService = (*TaskService)(nil)
