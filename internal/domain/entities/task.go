package entities

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrTaskNotFound = errors.New("task not found")
)

// Task is the persisted shape of a task.
// Every field may be absent; the store assigns ID on first save.
type Task struct {
	ID          *int64     `db:"id"`
	Description *string    `db:"description"`
	Completed   *bool      `db:"completed"`
	CreatedAt   *time.Time `db:"created_at"`
	TargetDate  *time.Time `db:"target_date"`
}

// Equal compares tasks by identity only. A task without an ID equals nothing.
func (t *Task) Equal(other *Task) bool {
	if t == nil || other == nil || t.ID == nil || other.ID == nil {
		return false
	}
	return *t.ID == *other.ID
}
