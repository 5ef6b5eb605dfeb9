package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/taskmaster/tasks/internal/application/dto"
)

// ErrNoTasks is returned when the document holds no tasks.
var ErrNoTasks = errors.New("no tasks found in YAML")

// TaskCreator is the part of the task service the importer needs.
type TaskCreator interface {
	Create(ctx context.Context, req dto.TaskDTO) (*dto.TaskDTO, error)
}

// YAMLTask represents a single task in the YAML input.
// Dates are RFC 3339 strings.
type YAMLTask struct {
	Description *string `yaml:"description"`
	Completed   *bool   `yaml:"completed"`
	CreatedAt   string  `yaml:"createdAt,omitempty"`
	TargetDate  string  `yaml:"targetDate,omitempty"`
}

// YAMLInput represents the root structure of the YAML input.
type YAMLInput struct {
	Tasks []YAMLTask `yaml:"tasks"`
}

var validate = validator.New()

// Import parses a YAML document and creates each task through creator.
// Tasks are created in document order and the first failure stops the import.
// Returns the number of tasks created.
func Import(ctx context.Context, creator TaskCreator, r io.Reader) (int, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var input YAMLInput
	if err := dec.Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("YAML parse error: %w", err)
	}

	if len(input.Tasks) == 0 {
		return 0, ErrNoTasks
	}

	reqs := make([]dto.TaskDTO, 0, len(input.Tasks))
	for i, yt := range input.Tasks {
		req, err := yt.toDTO()
		if err != nil {
			return 0, fmt.Errorf("task %d: %w", i+1, err)
		}
		reqs = append(reqs, req)
	}

	count := 0
	for i, req := range reqs {
		if _, err := creator.Create(ctx, req); err != nil {
			return count, fmt.Errorf("create task %d: %w", i+1, err)
		}
		count++
	}
	return count, nil
}

func (yt YAMLTask) toDTO() (dto.TaskDTO, error) {
	req := dto.TaskDTO{
		Description: yt.Description,
		Completed:   yt.Completed,
	}

	if req.Completed == nil {
		completed := false
		req.Completed = &completed
	}

	var err error
	if req.CreatedAt, err = parseTime("createdAt", yt.CreatedAt); err != nil {
		return dto.TaskDTO{}, err
	}
	if req.TargetDate, err = parseTime("targetDate", yt.TargetDate); err != nil {
		return dto.TaskDTO{}, err
	}

	if err := validate.Struct(req); err != nil {
		return dto.TaskDTO{}, err
	}
	return req, nil
}

func parseTime(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return &t, nil
}
