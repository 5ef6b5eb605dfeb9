// Package mapper converts tasks between their persisted and transfer shapes.
package mapper

import (
	"github.com/taskmaster/tasks/internal/application/dto"
	"github.com/taskmaster/tasks/internal/domain/entities"
)

// ToDTO converts a stored task into its transfer shape. A nil task yields nil.
func ToDTO(t *entities.Task) *dto.TaskDTO {
	if t == nil {
		return nil
	}
	return &dto.TaskDTO{
		ID:          clone(t.ID),
		Description: clone(t.Description),
		Completed:   clone(t.Completed),
		CreatedAt:   clone(t.CreatedAt),
		TargetDate:  clone(t.TargetDate),
	}
}

// ToEntity converts a transfer task into its persisted shape. A nil task yields nil.
func ToEntity(d *dto.TaskDTO) *entities.Task {
	if d == nil {
		return nil
	}
	return &entities.Task{
		ID:          clone(d.ID),
		Description: clone(d.Description),
		Completed:   clone(d.Completed),
		CreatedAt:   clone(d.CreatedAt),
		TargetDate:  clone(d.TargetDate),
	}
}

// ToDTOs converts a list of stored tasks.
func ToDTOs(tasks []*entities.Task) []*dto.TaskDTO {
	if tasks == nil {
		return nil
	}
	out := make([]*dto.TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToDTO(t))
	}
	return out
}

// MergeInto applies the fields present on incoming over existing and
// returns the result. The ID always comes from existing.
func MergeInto(existing entities.Task, incoming dto.TaskDTO) entities.Task {
	return entities.Task{
		ID:          clone(existing.ID),
		Description: pick(incoming.Description, existing.Description),
		Completed:   pick(incoming.Completed, existing.Completed),
		CreatedAt:   pick(incoming.CreatedAt, existing.CreatedAt),
		TargetDate:  pick(incoming.TargetDate, existing.TargetDate),
	}
}

func pick[T any](incoming, existing *T) *T {
	if incoming != nil {
		return clone(incoming)
	}
	return clone(existing)
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
