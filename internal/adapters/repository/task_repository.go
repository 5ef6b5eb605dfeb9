package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/tasks/internal/domain/entities"
	"github.com/taskmaster/tasks/internal/ports"
)

const taskColumns = `id, description, completed, created_at, target_date`

// TaskRepositoryImpl implements the TaskRepository interface on top of sqlx.
// Queries use ? placeholders and are rebound for the active driver.
type TaskRepositoryImpl struct {
	db sqlx.ExtContext
}

// NewTaskRepository creates a new task repository over a connection pool or a transaction
func NewTaskRepository(db sqlx.ExtContext) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := r.db.Rebind(`
		INSERT INTO tasks (description, completed, created_at, target_date)
		VALUES (?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		value(task.Description), value(task.Completed), value(task.CreatedAt), value(task.TargetDate),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	task.ID = &id
	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, id int64) (*entities.Task, error) {
	query := r.db.Rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`)

	var task entities.Task
	err := sqlx.GetContext(ctx, r.db, &task, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) Exists(ctx context.Context, id int64) (bool, error) {
	query := r.db.Rebind(`SELECT COUNT(1) FROM tasks WHERE id = ?`)

	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, query, id); err != nil {
		return false, fmt.Errorf("task exists: %w", err)
	}
	return n > 0, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, task *entities.Task) error {
	if task.ID == nil {
		return fmt.Errorf("update task: %w", entities.ErrTaskNotFound)
	}

	query := r.db.Rebind(`
		UPDATE tasks
		SET description = ?, completed = ?, created_at = ?, target_date = ?
		WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query,
		value(task.Description), value(task.Completed), value(task.CreatedAt), value(task.TargetDate), *task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if rowsAffected == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

// Delete removes the task. Deleting a missing task is not an error.
func (r *TaskRepositoryImpl) Delete(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM tasks WHERE id = ?`)

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *TaskRepositoryImpl) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	where, args := buildTaskWhere(filter)

	var b strings.Builder
	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks`)
	b.WriteString(where)
	b.WriteString(buildTaskOrder(filter))

	if filter.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			b.WriteString(` OFFSET ?`)
			args = append(args, filter.Offset)
		}
	}

	tasks := []*entities.Task{}
	if err := sqlx.SelectContext(ctx, r.db, &tasks, r.db.Rebind(b.String()), args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) Count(ctx context.Context, filter ports.TaskFilter) (int64, error) {
	where, args := buildTaskWhere(filter)

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, r.db.Rebind(`SELECT COUNT(*) FROM tasks`+where), args...); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return total, nil
}

func buildTaskWhere(filter ports.TaskFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.Completed != nil {
		conditions = append(conditions, "completed = ?")
		args = append(args, *filter.Completed)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// buildTaskOrder only ever emits whitelisted column names; id breaks ties.
func buildTaskOrder(filter ports.TaskFilter) string {
	column, ok := ports.TaskSortColumns[filter.SortBy]
	if !ok {
		column = "id"
	}

	direction := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		direction = "DESC"
	}

	order := " ORDER BY " + column + " " + direction
	if column != "id" {
		order += ", id ASC"
	}
	return order
}

// value unwraps an optional field into a driver argument, nil meaning NULL.
// Times are stored in UTC; the sqlite driver cannot scan back other offsets.
func value[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	if t, ok := any(*p).(time.Time); ok {
		return t.UTC()
	}
	return *p
}
