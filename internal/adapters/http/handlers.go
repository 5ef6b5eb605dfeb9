package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/tasks/internal/application/dto"
	"github.com/taskmaster/tasks/internal/application/services"
	"github.com/taskmaster/tasks/internal/domain/entities"
	"github.com/taskmaster/tasks/internal/infrastructure/logger"
	"github.com/taskmaster/tasks/internal/ports"
)

const (
	// MIMEApplicationMergePatchJSON is accepted on PATCH alongside plain JSON
	MIMEApplicationMergePatchJSON = "application/merge-patch+json"

	HeaderAlert      = "X-TaskApp-Alert"
	HeaderAlertParam = "X-TaskApp-Params"
	HeaderTotalCount = "X-Total-Count"

	// ContextKeyRequestID holds the id assigned by the request id middleware
	ContextKeyRequestID = "request_id"

	defaultPageSize = 20
	maxPageSize     = 100
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService ports.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger.WithComponent("task_handler"),
	}
}

// Register mounts the task routes on g
func (h *TaskHandler) Register(g *echo.Group) {
	g.POST("", h.CreateTask)
	g.GET("", h.ListTasks)
	g.GET("/:id", h.GetTask)
	g.PUT("/:id", h.UpdateTask)
	g.PATCH("/:id", h.PartialUpdateTask)
	g.DELETE("/:id", h.DeleteTask)
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req dto.TaskDTO
	if err := bindJSON(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.Create(c.Request().Context(), req)
	if err != nil {
		return h.taskError(c, "Create task failed", err)
	}

	c.Response().Header().Set(echo.HeaderLocation, fmt.Sprintf("%s/%d", c.Path(), *task.ID))
	setAlert(c, "created", *task.ID)

	return c.JSON(http.StatusCreated, task)
}

// UpdateTask handles full replacement of a task
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id, err := parseTaskID(c)
	if err != nil {
		return err
	}

	var req dto.TaskDTO
	if err := bindJSON(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.Update(c.Request().Context(), id, req)
	if err != nil {
		return h.taskError(c, "Update task failed", err)
	}

	setAlert(c, "updated", id)
	return c.JSON(http.StatusOK, task)
}

// PartialUpdateTask handles updates that only carry the fields to change
func (h *TaskHandler) PartialUpdateTask(c echo.Context) error {
	id, err := parseTaskID(c)
	if err != nil {
		return err
	}

	var req dto.PartialTaskDTO
	if err := bindJSON(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.PartialUpdate(c.Request().Context(), id, dto.TaskDTO(req))
	if err != nil {
		return h.taskError(c, "Partial update task failed", err)
	}

	setAlert(c, "updated", id)
	return c.JSON(http.StatusOK, task)
}

// GetTask handles getting a task by ID
func (h *TaskHandler) GetTask(c echo.Context) error {
	id, err := parseTaskID(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.Get(c.Request().Context(), id)
	if err != nil {
		return h.taskError(c, "Get task failed", err)
	}

	return c.JSON(http.StatusOK, task)
}

// ListTasks handles paged task listings
func (h *TaskHandler) ListTasks(c echo.Context) error {
	page, size, err := parsePage(c)
	if err != nil {
		return err
	}

	filter := ports.TaskFilter{
		Limit:  size,
		Offset: page * size,
	}

	if completed := c.QueryParam("completed"); completed != "" {
		v, err := strconv.ParseBool(completed)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid completed parameter")
		}
		filter.Completed = &v
	}

	if sortParam := c.QueryParam("sort"); sortParam != "" {
		field, order, _ := strings.Cut(sortParam, ",")
		if _, ok := ports.TaskSortColumns[field]; !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid sort parameter")
		}
		if order != "" && !strings.EqualFold(order, "asc") && !strings.EqualFold(order, "desc") {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid sort direction")
		}
		filter.SortBy = field
		filter.SortOrder = order
	}

	tasks, total, err := h.taskService.List(c.Request().Context(), filter)
	if err != nil {
		h.logger.WithRequestID(requestID(c)).WithError(err).Errorw("List tasks failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve tasks")
	}

	c.Response().Header().Set(HeaderTotalCount, strconv.FormatInt(total, 10))
	if link := paginationLink(c, page, size, total); link != "" {
		c.Response().Header().Set("Link", link)
	}

	return c.JSON(http.StatusOK, tasks)
}

// DeleteTask handles deleting a task
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id, err := parseTaskID(c)
	if err != nil {
		return err
	}

	if err := h.taskService.Delete(c.Request().Context(), id); err != nil {
		return h.taskError(c, "Delete task failed", err)
	}

	setAlert(c, "deleted", id)
	return c.NoContent(http.StatusNoContent)
}

// taskError maps service errors onto HTTP errors
func (h *TaskHandler) taskError(c echo.Context, msg string, err error) error {
	switch {
	case errors.Is(err, services.ErrIDExists),
		errors.Is(err, services.ErrIDNull),
		errors.Is(err, services.ErrIDInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Task not found")
	default:
		h.logger.WithRequestID(requestID(c)).WithError(err).Errorw(msg)
		return echo.NewHTTPError(http.StatusInternalServerError, msg).SetInternal(err)
	}
}

// Utility functions and helper types

func parseTaskID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}
	return id, nil
}

func parsePage(c echo.Context) (page, size int, err error) {
	page, size = 0, defaultPageSize

	if v := c.QueryParam("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid page parameter")
		}
	}

	if v := c.QueryParam("size"); v != "" {
		size, err = strconv.Atoi(v)
		if err != nil || size < 1 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid size parameter")
		}
		if size > maxPageSize {
			size = maxPageSize
		}
	}

	if page > math.MaxInt/size {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid page parameter")
	}

	return page, size, nil
}

// bindJSON decodes the body, accepting JSON merge patch documents that echo's binder rejects
func bindJSON(c echo.Context, v interface{}) error {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ctype, MIMEApplicationMergePatchJSON) {
		return json.NewDecoder(c.Request().Body).Decode(v)
	}
	return c.Bind(v)
}

func requestID(c echo.Context) string {
	if id, ok := c.Get(ContextKeyRequestID).(string); ok {
		return id
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func setAlert(c echo.Context, action string, id int64) {
	c.Response().Header().Set(HeaderAlert, "taskApp.task."+action)
	c.Response().Header().Set(HeaderAlertParam, strconv.FormatInt(id, 10))
}

// paginationLink builds an RFC 5988 Link header with next, prev, last and first relations
func paginationLink(c echo.Context, page, size int, total int64) string {
	lastPage := 0
	if total > 0 {
		lastPage = int((total - 1) / int64(size))
	}

	pageURL := func(p int) string {
		u := *c.Request().URL
		q := u.Query()
		q.Set("page", strconv.Itoa(p))
		q.Set("size", strconv.Itoa(size))
		u.RawQuery = q.Encode()
		return u.RequestURI()
	}

	var links []string
	if page < lastPage {
		links = append(links, fmt.Sprintf(`<%s>; rel="next"`, pageURL(page+1)))
	}
	if page > 0 {
		links = append(links, fmt.Sprintf(`<%s>; rel="prev"`, pageURL(page-1)))
	}
	links = append(links,
		fmt.Sprintf(`<%s>; rel="last"`, pageURL(lastPage)),
		fmt.Sprintf(`<%s>; rel="first"`, pageURL(0)),
	)
	return strings.Join(links, ",")
}

// ErrorResponse is the body rendered for failed requests
type ErrorResponse struct {
	Message interface{} `json:"message"`
	Details string      `json:"details,omitempty"`
}
