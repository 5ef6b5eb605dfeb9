package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/tasks/internal/adapters/repository"
	"github.com/taskmaster/tasks/internal/application/dto"
	"github.com/taskmaster/tasks/internal/application/services"
	"github.com/taskmaster/tasks/internal/infrastructure/config"
	"github.com/taskmaster/tasks/internal/infrastructure/database"
	"github.com/taskmaster/tasks/internal/infrastructure/logger"
)

func newTestAPI(t *testing.T) *echo.Echo {
	t.Helper()

	db, err := database.New(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.NewNop()
	svc := services.NewTaskService(repository.NewTaskRepository(db.DB), log)

	e := echo.New()
	e.Validator = NewValidator()
	NewTaskHandler(svc, log).Register(e.Group("/api/tasks"))
	return e
}

func doRequest(e *echo.Echo, method, target, contentType, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) dto.TaskDTO {
	t.Helper()

	var task dto.TaskDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return task
}

func mustCreate(t *testing.T, e *echo.Echo, body string) dto.TaskDTO {
	t.Helper()

	rec := doRequest(e, http.MethodPost, "/api/tasks", echo.MIMEApplicationJSON, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rec.Code, rec.Body.String())
	}
	return decodeTask(t, rec)
}

func TestCreateTask(t *testing.T) {
	e := newTestAPI(t)

	rec := doRequest(e, http.MethodPost, "/api/tasks", echo.MIMEApplicationJSON,
		`{"description":"Nueva tarea","completed":false,"targetDate":"2025-07-01T00:00:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	task := decodeTask(t, rec)
	if task.ID == nil || *task.Description != "Nueva tarea" || *task.Completed {
		t.Fatalf("task=%+v", task)
	}
	if task.CreatedAt == nil {
		t.Fatal("createdAt not filled in")
	}
	if task.TargetDate == nil || !task.TargetDate.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("targetDate=%v", task.TargetDate)
	}
	if got := rec.Header().Get(echo.HeaderLocation); got != "/api/tasks/1" {
		t.Fatalf("location=%q", got)
	}
	if rec.Header().Get(HeaderAlert) != "taskApp.task.created" || rec.Header().Get(HeaderAlertParam) != "1" {
		t.Fatalf("alert headers=%v", rec.Header())
	}
}

func TestCreateTask_BadRequests(t *testing.T) {
	e := newTestAPI(t)

	cases := []struct {
		name string
		body string
	}{
		{"id present", `{"id":5,"description":"x","completed":false}`},
		{"missing description", `{"completed":false}`},
		{"missing completed", `{"description":"x"}`},
		{"description too long", `{"description":"` + strings.Repeat("a", 201) + `","completed":false}`},
		{"malformed json", `{"description":`},
		{"wrong type", `{"description":"x","completed":"yes"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodPost, "/api/tasks", echo.MIMEApplicationJSON, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateTask_MaxLengthDescription(t *testing.T) {
	e := newTestAPI(t)
	desc := strings.Repeat("a", 200)

	task := mustCreate(t, e, `{"description":"`+desc+`","completed":true}`)
	if *task.Description != desc {
		t.Fatalf("description length=%d", len(*task.Description))
	}
}

func TestGetTask(t *testing.T) {
	e := newTestAPI(t)
	created := mustCreate(t, e, `{"description":"Test task","completed":false}`)

	rec := doRequest(e, http.MethodGet, "/api/tasks/1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	got := decodeTask(t, rec)
	if *got.ID != *created.ID || *got.Description != "Test task" {
		t.Fatalf("got=%+v", got)
	}

	if rec := doRequest(e, http.MethodGet, "/api/tasks/99", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing task status=%d", rec.Code)
	}
	if rec := doRequest(e, http.MethodGet, "/api/tasks/abc", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", rec.Code)
	}
}

func TestCreateTask_OffsetTimestamps(t *testing.T) {
	e := newTestAPI(t)
	created := mustCreate(t, e, `{"description":"Con zona","completed":false,"createdAt":"2025-06-24T10:00:00.123456+02:00","targetDate":"2025-07-01T18:30:00-03:00"}`)

	rec := doRequest(e, http.MethodGet, "/api/tasks", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = doRequest(e, http.MethodGet, fmt.Sprintf("/api/tasks/%d", *created.ID), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status=%d body=%s", rec.Code, rec.Body.String())
	}
	got := decodeTask(t, rec)

	wantCreated := time.Date(2025, 6, 24, 8, 0, 0, 123456000, time.UTC)
	wantTarget := time.Date(2025, 7, 1, 21, 30, 0, 0, time.UTC)
	if !got.CreatedAt.Equal(wantCreated) || !got.TargetDate.Equal(wantTarget) {
		t.Fatalf("createdAt=%v targetDate=%v", got.CreatedAt, got.TargetDate)
	}
}

func TestUpdateTask(t *testing.T) {
	e := newTestAPI(t)
	created := mustCreate(t, e, `{"description":"Test task","completed":false,"targetDate":"2025-07-01T00:00:00Z"}`)

	rec := doRequest(e, http.MethodPut, "/api/tasks/1", echo.MIMEApplicationJSON,
		`{"id":1,"description":"Tarea actualizada","completed":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	got := decodeTask(t, rec)
	if *got.Description != "Tarea actualizada" || !*got.Completed {
		t.Fatalf("got=%+v", got)
	}
	if got.TargetDate != nil {
		t.Fatalf("targetDate should be cleared, got %v", got.TargetDate)
	}
	if !got.CreatedAt.Equal(*created.CreatedAt) {
		t.Fatalf("createdAt=%v want %v", got.CreatedAt, created.CreatedAt)
	}
	if rec.Header().Get(HeaderAlert) != "taskApp.task.updated" {
		t.Fatalf("alert=%q", rec.Header().Get(HeaderAlert))
	}
}

func TestUpdateTask_Errors(t *testing.T) {
	e := newTestAPI(t)
	mustCreate(t, e, `{"description":"Test task","completed":false}`)

	cases := []struct {
		name   string
		method string
		target string
		ctype  string
		body   string
		want   int
	}{
		{"put without id", http.MethodPut, "/api/tasks/1", echo.MIMEApplicationJSON, `{"description":"x","completed":true}`, http.StatusBadRequest},
		{"put id mismatch", http.MethodPut, "/api/tasks/1", echo.MIMEApplicationJSON, `{"id":2,"description":"x","completed":true}`, http.StatusBadRequest},
		{"put unknown", http.MethodPut, "/api/tasks/9", echo.MIMEApplicationJSON, `{"id":9,"description":"x","completed":true}`, http.StatusNotFound},
		{"put invalid body", http.MethodPut, "/api/tasks/1", echo.MIMEApplicationJSON, `{"id":1,"completed":true}`, http.StatusBadRequest},
		{"patch without id", http.MethodPatch, "/api/tasks/1", MIMEApplicationMergePatchJSON, `{"completed":true}`, http.StatusBadRequest},
		{"patch id mismatch", http.MethodPatch, "/api/tasks/1", MIMEApplicationMergePatchJSON, `{"id":3}`, http.StatusBadRequest},
		{"patch unknown", http.MethodPatch, "/api/tasks/9", MIMEApplicationMergePatchJSON, `{"id":9}`, http.StatusNotFound},
		{"patch too long", http.MethodPatch, "/api/tasks/1", MIMEApplicationMergePatchJSON, `{"id":1,"description":"` + strings.Repeat("b", 201) + `"}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(e, tc.method, tc.target, tc.ctype, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestPartialUpdateTask(t *testing.T) {
	e := newTestAPI(t)
	created := mustCreate(t, e, `{"description":"Tarea original","completed":false,"createdAt":"2025-06-24T10:00:00Z"}`)

	for _, ctype := range []string{MIMEApplicationMergePatchJSON, echo.MIMEApplicationJSON} {
		t.Run(ctype, func(t *testing.T) {
			rec := doRequest(e, http.MethodPatch, "/api/tasks/1", ctype, `{"id":1,"completed":true}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}

			got := decodeTask(t, rec)
			if *got.ID != *created.ID || *got.Description != "Tarea original" || !*got.Completed {
				t.Fatalf("got=%+v", got)
			}
			if !got.CreatedAt.Equal(*created.CreatedAt) || got.TargetDate != nil {
				t.Fatalf("untouched fields changed: %+v", got)
			}
		})
	}
}

func TestPartialUpdateTask_ExplicitFalseOverrides(t *testing.T) {
	e := newTestAPI(t)
	mustCreate(t, e, `{"description":"Tarea original","completed":true}`)

	rec := doRequest(e, http.MethodPatch, "/api/tasks/1", MIMEApplicationMergePatchJSON, `{"id":1,"completed":false,"description":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	got := decodeTask(t, rec)
	if *got.Completed || *got.Description != "" {
		t.Fatalf("got=%+v", got)
	}
}

func TestListTasks(t *testing.T) {
	e := newTestAPI(t)
	mustCreate(t, e, `{"description":"a","completed":false}`)
	mustCreate(t, e, `{"description":"b","completed":true}`)
	mustCreate(t, e, `{"description":"c","completed":false}`)

	rec := doRequest(e, http.MethodGet, "/api/tasks?page=0&size=2&sort=id,desc", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	var tasks []dto.TaskDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 || *tasks[0].Description != "c" || *tasks[1].Description != "b" {
		t.Fatalf("tasks=%+v", tasks)
	}
	if rec.Header().Get(HeaderTotalCount) != "3" {
		t.Fatalf("total=%q", rec.Header().Get(HeaderTotalCount))
	}

	link := rec.Header().Get("Link")
	if !strings.Contains(link, `rel="next"`) || !strings.Contains(link, `rel="last"`) || strings.Contains(link, `rel="prev"`) {
		t.Fatalf("link=%q", link)
	}
	if !strings.Contains(link, "sort=id%2Cdesc") {
		t.Fatalf("link dropped query params: %q", link)
	}
}

func TestListTasks_Filter(t *testing.T) {
	e := newTestAPI(t)
	mustCreate(t, e, `{"description":"a","completed":false}`)
	mustCreate(t, e, `{"description":"b","completed":true}`)

	rec := doRequest(e, http.MethodGet, "/api/tasks?completed=true", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}

	var tasks []dto.TaskDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || *tasks[0].Description != "b" {
		t.Fatalf("tasks=%+v", tasks)
	}
}

func TestListTasks_Empty(t *testing.T) {
	e := newTestAPI(t)

	rec := doRequest(e, http.MethodGet, "/api/tasks", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("body=%q", body)
	}
	if rec.Header().Get(HeaderTotalCount) != "0" {
		t.Fatalf("total=%q", rec.Header().Get(HeaderTotalCount))
	}
}

func TestListTasks_BadParams(t *testing.T) {
	e := newTestAPI(t)

	for _, q := range []string{"page=-1", "size=0", "size=x", "sort=nope", "sort=id,sideways", "completed=maybe", "page=9223372036854775807&size=100"} {
		t.Run(q, func(t *testing.T) {
			if rec := doRequest(e, http.MethodGet, "/api/tasks?"+q, "", ""); rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d", rec.Code)
			}
		})
	}
}

func TestDeleteTask(t *testing.T) {
	e := newTestAPI(t)
	mustCreate(t, e, `{"description":"x","completed":false}`)

	rec := doRequest(e, http.MethodDelete, "/api/tasks/1", "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Header().Get(HeaderAlert) != "taskApp.task.deleted" {
		t.Fatalf("alert=%q", rec.Header().Get(HeaderAlert))
	}

	if rec := doRequest(e, http.MethodGet, "/api/tasks/1", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted task still readable, status=%d", rec.Code)
	}
	if rec := doRequest(e, http.MethodDelete, "/api/tasks/1", "", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("repeat delete status=%d", rec.Code)
	}
}

func TestPaginationLink(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/tasks?page=1&size=10", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	link := paginationLink(c, 1, 10, 25)
	want := `</api/tasks?page=2&size=10>; rel="next",</api/tasks?page=0&size=10>; rel="prev",` +
		`</api/tasks?page=2&size=10>; rel="last",</api/tasks?page=0&size=10>; rel="first"`
	if link != want {
		t.Fatalf("link=%q\nwant=%q", link, want)
	}
}
