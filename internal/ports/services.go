package ports

import (
	"context"

	"github.com/taskmaster/tasks/internal/application/dto"
)

// TaskService interface for task management operations
type TaskService interface {
	Create(ctx context.Context, task dto.TaskDTO) (*dto.TaskDTO, error)
	Update(ctx context.Context, id int64, task dto.TaskDTO) (*dto.TaskDTO, error)
	PartialUpdate(ctx context.Context, id int64, task dto.TaskDTO) (*dto.TaskDTO, error)
	Get(ctx context.Context, id int64) (*dto.TaskDTO, error)
	List(ctx context.Context, filter TaskFilter) ([]*dto.TaskDTO, int64, error)
	Delete(ctx context.Context, id int64) error
}

// TokenService issues and validates API bearer tokens
type TokenService interface {
	GenerateToken(subject string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims identifies the caller behind a validated token
type Claims struct {
	Subject string `json:"sub"`
	TokenID string `json:"jti"`
}
