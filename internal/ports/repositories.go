package ports

import (
	"context"

	"github.com/taskmaster/tasks/internal/domain/entities"
)

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, id int64) (*entities.Task, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, task *entities.Task) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter TaskFilter) ([]*entities.Task, error)
	Count(ctx context.Context, filter TaskFilter) (int64, error)
}

// TaskFilter narrows and orders task listings
type TaskFilter struct {
	Completed *bool
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// Sortable task fields, keyed by their transfer name
var TaskSortColumns = map[string]string{
	"id":          "id",
	"description": "description",
	"completed":   "completed",
	"createdAt":   "created_at",
	"targetDate":  "target_date",
}
