// Package dto holds the transfer shapes exchanged with API clients.
package dto

import "time"

// TaskDTO is the transfer shape of a task.
// A nil field means the caller did not send it.
type TaskDTO struct {
	ID          *int64     `json:"id"`
	Description *string    `json:"description" validate:"required,max=200"`
	Completed   *bool      `json:"completed" validate:"required"`
	CreatedAt   *time.Time `json:"createdAt"`
	TargetDate  *time.Time `json:"targetDate"`
}

// PartialTaskDTO carries a partial update. It has the same fields as
// TaskDTO and converts to it directly; only the length rule applies.
type PartialTaskDTO struct {
	ID          *int64     `json:"id"`
	Description *string    `json:"description" validate:"omitempty,max=200"`
	Completed   *bool      `json:"completed"`
	CreatedAt   *time.Time `json:"createdAt"`
	TargetDate  *time.Time `json:"targetDate"`
}
