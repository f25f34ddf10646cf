package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/crawl-api/internal/api/middleware"
	"github.com/phrazzld/crawl-api/internal/domain"
	"github.com/phrazzld/crawl-api/internal/events"
	"github.com/phrazzld/crawl-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow     = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	testTaskID  = uuid.MustParse("0d5b2f9e-8a43-4c7b-9a61-3e2f4b1c5d70")
	otherTaskID = uuid.MustParse("c4a7e1d2-5b36-4f08-b9e2-7a1d3c6f8e94")
)

// taskPath builds a task URL under /api/tasks.
func taskPath(id uuid.UUID, suffix string) string {
	return "/api/tasks/" + id.String() + suffix
}

func newTestRouter(tasks TaskService, history EventHistory, files OutputFiles) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware(nil))
	RegisterRoutes(r, NewTaskHandler(tasks, history, nil), NewDataHandler(files, nil))
	return r
}

func doRequest(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}

func runningRecord(id uuid.UUID) task.Record {
	started := testNow.Add(time.Second)
	return task.Record{
		ID:     id,
		Status: task.StatusRunning,
		Config: domain.CrawlConfig{
			Platform:       domain.PlatformXHS,
			LoginType:      domain.LoginTypeCookie,
			CrawlerType:    domain.CrawlerTypeSearch,
			Keywords:       "coffee",
			StartPage:      1,
			SaveDataOption: domain.SaveDataJSON,
			MaxNotesCount:  20,
			Cookies:        "a1=secret-cookie",
		},
		CreatedAt: testNow,
		StartedAt: &started,
		Message:   task.MessageRunning,
	}
}

func TestSubmitTask_JSON(t *testing.T) {
	var got domain.CrawlConfig
	svc := &mockTaskService{SubmitFn: func(cfg domain.CrawlConfig) (task.Record, error) {
		got = cfg
		return task.Record{ID: testTaskID, Status: task.StatusPending, Config: cfg}, nil
	}}
	router := newTestRouter(svc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks",
		strings.NewReader(`{"platform":"dy","keywords":"  travel  ","get_comments":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := doRequest(t, router, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp SubmitTaskResponse
	decodeBody(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, testTaskID, resp.TaskID)
	assert.Equal(t, SubmitMessage, resp.Message)

	assert.Equal(t, domain.PlatformDouyin, got.Platform)
	assert.Equal(t, domain.LoginTypeQRCode, got.LoginType)
	assert.Equal(t, domain.CrawlerTypeSearch, got.CrawlerType)
	assert.Equal(t, "travel", got.Keywords)
	assert.Equal(t, 1, got.StartPage)
	assert.Equal(t, domain.SaveDataJSON, got.SaveDataOption)
	assert.Equal(t, 20, got.MaxNotesCount)
	assert.True(t, got.GetComments)
	assert.False(t, got.GetSubComments)
}

func TestSubmitTask_Form(t *testing.T) {
	var got domain.CrawlConfig
	svc := &mockTaskService{SubmitFn: func(cfg domain.CrawlConfig) (task.Record, error) {
		got = cfg
		return task.Record{ID: uuid.New()}, nil
	}}
	router := newTestRouter(svc, nil, nil)

	form := url.Values{
		"platform":         {"bili"},
		"crawler_type":     {"creator"},
		"creator_id":       {"12345"},
		"start_page":       {"3"},
		"get_comments":     {"on"},
		"get_sub_comments": {"1"},
		"save_data_option": {"sqlite"},
		"max_notes_count":  {"5"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := doRequest(t, router, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, domain.PlatformBilibili, got.Platform)
	assert.Equal(t, domain.CrawlerTypeCreator, got.CrawlerType)
	assert.Equal(t, "12345", got.CreatorID)
	assert.Equal(t, 3, got.StartPage)
	assert.True(t, got.GetComments)
	assert.True(t, got.GetSubComments)
	assert.Equal(t, domain.SaveDataSQLite, got.SaveDataOption)
	assert.Equal(t, 5, got.MaxNotesCount)
}

func TestSubmitTask_Errors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		submitErr   error
		status      int
		message     string
	}{
		{
			name:        "malformed json",
			contentType: "application/json",
			body:        `{"platform":`,
			status:      http.StatusBadRequest,
			message:     "Invalid request format",
		},
		{
			name:        "validation failure",
			contentType: "application/json",
			body:        `{"keywords":""}`,
			submitErr:   domain.NewValidationError("keywords", "is required when crawler_type is search", domain.ErrValidation),
			status:      http.StatusBadRequest,
			message:     "keywords is required when crawler_type is search",
		},
		{
			name:        "non numeric form field",
			contentType: "application/x-www-form-urlencoded",
			body:        "keywords=a&start_page=two",
			status:      http.StatusBadRequest,
			message:     "start_page must be an integer",
		},
		{
			name:        "shutting down",
			contentType: "application/json",
			body:        `{"keywords":"a"}`,
			submitErr:   task.ErrExecutorClosed,
			status:      http.StatusServiceUnavailable,
			message:     "Server is shutting down",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockTaskService{SubmitFn: func(domain.CrawlConfig) (task.Record, error) {
				return task.Record{ID: uuid.New()}, tc.submitErr
			}}
			router := newTestRouter(svc, nil, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			w := doRequest(t, router, req)

			assert.Equal(t, tc.status, w.Code)
			var resp map[string]interface{}
			decodeBody(t, w, &resp)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tc.message, resp["error"])
			assert.NotEmpty(t, resp["trace_id"])
		})
	}
}

func TestListTasks(t *testing.T) {
	svc := &mockTaskService{ListFn: func() []task.Record {
		return []task.Record{runningRecord(otherTaskID), runningRecord(testTaskID)}
	}}
	router := newTestRouter(svc, nil, nil)

	w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp TaskListResponse
	decodeBody(t, w, &resp)
	assert.True(t, resp.Success)
	require.Len(t, resp.Tasks, 2)
	assert.Equal(t, otherTaskID, resp.Tasks[0].ID)
	assert.Equal(t, testTaskID, resp.Tasks[1].ID)
}

func TestListTasks_Empty(t *testing.T) {
	router := newTestRouter(&mockTaskService{}, nil, nil)

	w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"tasks":[]}`, w.Body.String())
}

func TestGetTask(t *testing.T) {
	svc := &mockTaskService{GetFn: func(id uuid.UUID) (task.Record, error) {
		if id == testTaskID {
			return runningRecord(id), nil
		}
		return task.Record{}, task.ErrTaskNotFound
	}}
	router := newTestRouter(svc, nil, nil)

	t.Run("found", func(t *testing.T) {
		w := doRequest(t, router, httptest.NewRequest(http.MethodGet, taskPath(testTaskID, ""), nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp TaskEnvelope
		decodeBody(t, w, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, testTaskID, resp.Task.ID)
		assert.Equal(t, "running", resp.Task.Status)
		assert.Equal(t, "xhs", resp.Task.Config.Platform)
		assert.True(t, resp.Task.Config.HasCookies)
		require.NotNil(t, resp.Task.StartedAt)
		assert.Nil(t, resp.Task.CompletedAt)
		assert.Equal(t, []string{}, resp.Task.OutputFiles)
		assert.NotContains(t, w.Body.String(), "secret-cookie")
	})

	t.Run("not found", func(t *testing.T) {
		w := doRequest(t, router, httptest.NewRequest(http.MethodGet, taskPath(otherTaskID, ""), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		var resp map[string]interface{}
		decodeBody(t, w, &resp)
		assert.Equal(t, "Task not found", resp["error"])
	})

	t.Run("malformed id", func(t *testing.T) {
		w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/tasks/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp map[string]interface{}
		decodeBody(t, w, &resp)
		assert.Equal(t, "id has invalid format", resp["error"])
	})
}

func TestStopTask(t *testing.T) {
	tests := []struct {
		name     string
		stopFn   func(id uuid.UUID) (task.Record, bool, error)
		status   int
		accepted bool
		message  string
	}{
		{
			name: "accepted",
			stopFn: func(id uuid.UUID) (task.Record, bool, error) {
				rec := runningRecord(id)
				rec.Status = task.StatusStopped
				rec.Message = task.MessageStopped
				return rec, true, nil
			},
			status:   http.StatusOK,
			accepted: true,
			message:  task.MessageStopped,
		},
		{
			name: "not running",
			stopFn: func(id uuid.UUID) (task.Record, bool, error) {
				rec := runningRecord(id)
				rec.Status = task.StatusCompleted
				return rec, false, nil
			},
			status:   http.StatusOK,
			accepted: false,
			message:  "Task is not running (status: completed)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&mockTaskService{StopFn: tc.stopFn}, nil, nil)

			w := doRequest(t, router, httptest.NewRequest(http.MethodPost, taskPath(testTaskID, "/stop"), nil))

			require.Equal(t, tc.status, w.Code)
			var resp StopTaskResponse
			decodeBody(t, w, &resp)
			assert.True(t, resp.Success)
			assert.Equal(t, tc.accepted, resp.Accepted)
			assert.Equal(t, tc.message, resp.Message)
		})
	}

	t.Run("unknown task", func(t *testing.T) {
		svc := &mockTaskService{StopFn: func(uuid.UUID) (task.Record, bool, error) {
			return task.Record{}, false, task.ErrTaskNotFound
		}}
		router := newTestRouter(svc, nil, nil)

		w := doRequest(t, router, httptest.NewRequest(http.MethodPost, taskPath(otherTaskID, "/stop"), nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := &mockTaskService{StopFn: func(uuid.UUID) (task.Record, bool, error) {
			t.Fatal("stop must not be called for a malformed id")
			return task.Record{}, false, nil
		}}
		router := newTestRouter(svc, nil, nil)

		w := doRequest(t, router, httptest.NewRequest(http.MethodPost, "/api/tasks/1234/stop", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetTaskEvents(t *testing.T) {
	svc := &mockTaskService{GetFn: func(id uuid.UUID) (task.Record, error) {
		if id == testTaskID {
			return runningRecord(id), nil
		}
		return task.Record{}, task.ErrTaskNotFound
	}}
	history := &mockHistory{EventsFn: func(taskID uuid.UUID) []events.TaskEvent {
		return []events.TaskEvent{
			*events.NewTaskEvent(taskID, "", "pending", task.MessagePending, testNow),
			*events.NewTaskEvent(taskID, "pending", "running", task.MessageRunning, testNow.Add(time.Second)),
		}
	}}
	router := newTestRouter(svc, history, nil)

	w := doRequest(t, router, httptest.NewRequest(http.MethodGet, taskPath(testTaskID, "/events"), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp TaskEventsResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, testTaskID, resp.TaskID)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "pending", resp.Events[0].To)
	assert.Equal(t, "pending", resp.Events[1].From)
	assert.Equal(t, "running", resp.Events[1].To)

	w = doRequest(t, router, httptest.NewRequest(http.MethodGet, taskPath(otherTaskID, "/events"), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/tasks/nope/events", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTaskEvents_NoHistory(t *testing.T) {
	svc := &mockTaskService{GetFn: func(id uuid.UUID) (task.Record, error) { return runningRecord(id), nil }}
	router := newTestRouter(svc, nil, nil)

	w := doRequest(t, router, httptest.NewRequest(http.MethodGet, taskPath(testTaskID, "/events"), nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"task_id":"`+testTaskID.String()+`","events":[]}`, w.Body.String())
}

func TestGetOptions(t *testing.T) {
	router := newTestRouter(&mockTaskService{}, nil, nil)

	w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/options", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp OptionsResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, domain.PlatformOptions, resp.Platforms)
	assert.Equal(t, domain.LoginTypeOptions, resp.LoginTypes)
	assert.Equal(t, domain.CrawlerTypeOptions, resp.CrawlerTypes)
	assert.Equal(t, domain.SaveDataOptions, resp.SaveDataOptions)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&mockTaskService{}, nil, nil)

	w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}
