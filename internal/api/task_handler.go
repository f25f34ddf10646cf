package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/crawl-api/internal/api/shared"
	"github.com/phrazzld/crawl-api/internal/domain"
	"github.com/phrazzld/crawl-api/internal/events"
	"github.com/phrazzld/crawl-api/internal/task"
)

// SubmitMessage is returned with every accepted submission.
const SubmitMessage = "Task created and started"

// TaskService is the part of the task executor the handlers use.
type TaskService interface {
	Submit(cfg domain.CrawlConfig) (task.Record, error)
	Stop(id uuid.UUID) (task.Record, bool, error)
	Get(id uuid.UUID) (task.Record, error)
	List() []task.Record
}

// EventHistory returns the recorded transitions of a task.
type EventHistory interface {
	Events(taskID uuid.UUID) []events.TaskEvent
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	tasks   TaskService
	history EventHistory
	logger  *slog.Logger
}

// NewTaskHandler creates a new TaskHandler. history may be nil, in which
// case every task reports an empty history.
func NewTaskHandler(tasks TaskService, history EventHistory, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:   tasks,
		history: history,
		logger:  logger.With("component", "task_handler"),
	}
}

// SubmitTask handles POST /api/tasks. The body is JSON or an HTML form.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSubmitRequest(w, r)
	if err != nil {
		if MapErrorToStatusCode(err) == http.StatusInternalServerError {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
			return
		}
		HandleAPIError(w, r, err)
		return
	}

	rec, err := h.tasks.Submit(req.CrawlConfig())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	h.logger.Info("task accepted",
		"task_id", rec.ID,
		"platform", rec.Config.Platform,
		"trace_id", shared.GetTraceID(r.Context()))

	// 202 Accepted: the crawl runs in the background
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitTaskResponse{
		Success: true,
		TaskID:  rec.ID,
		Message: SubmitMessage,
	})
}

// ListTasks handles GET /api/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	records := h.tasks.List()
	out := make([]TaskResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, taskToResponse(rec))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{Success: true, Tasks: out})
}

// GetTask handles GET /api/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	rec, err := h.tasks.Get(id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskEnvelope{Success: true, Task: taskToResponse(rec)})
}

// StopTask handles POST /api/tasks/{id}/stop. A task that is not running is
// reported with accepted=false rather than as an error.
func (h *TaskHandler) StopTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	rec, accepted, err := h.tasks.Stop(id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	message := rec.Message
	if !accepted {
		message = fmt.Sprintf("Task is not running (status: %s)", rec.Status)
	} else {
		h.logger.Info("task stop accepted", "task_id", id)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StopTaskResponse{
		Success:  true,
		Accepted: accepted,
		Status:   string(rec.Status),
		Message:  message,
	})
}

// GetTaskEvents handles GET /api/tasks/{id}/events
func (h *TaskHandler) GetTaskEvents(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	if _, err := h.tasks.Get(id); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	out := make([]TaskEventResponse, 0)
	if h.history != nil {
		for _, e := range h.history.Events(id) {
			out = append(out, eventToResponse(e))
		}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskEventsResponse{Success: true, TaskID: id, Events: out})
}

// GetOptions handles GET /api/options
func (h *TaskHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, OptionsResponse{
		Success:         true,
		Platforms:       domain.PlatformOptions,
		LoginTypes:      domain.LoginTypeOptions,
		CrawlerTypes:    domain.CrawlerTypeOptions,
		SaveDataOptions: domain.SaveDataOptions,
	})
}

// decodeSubmitRequest reads a JSON body, or a form when the request is not
// JSON.
func decodeSubmitRequest(w http.ResponseWriter, r *http.Request) (SubmitTaskRequest, error) {
	var req SubmitTaskRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := shared.DecodeJSON(w, r, &req)
		return req, err
	}

	if err := shared.ParseForm(w, r); err != nil {
		return req, err
	}

	startPage, err := formInt(r, "start_page")
	if err != nil {
		return req, err
	}
	maxNotes, err := formInt(r, "max_notes_count")
	if err != nil {
		return req, err
	}

	req = SubmitTaskRequest{
		Platform:       r.PostFormValue("platform"),
		LoginType:      r.PostFormValue("login_type"),
		CrawlerType:    r.PostFormValue("crawler_type"),
		Keywords:       r.PostFormValue("keywords"),
		CreatorID:      r.PostFormValue("creator_id"),
		StartPage:      startPage,
		GetComments:    shared.FormBool(r.PostFormValue("get_comments")),
		GetSubComments: shared.FormBool(r.PostFormValue("get_sub_comments")),
		SaveDataOption: r.PostFormValue("save_data_option"),
		MaxNotesCount:  maxNotes,
		Cookies:        r.PostFormValue("cookies"),
	}
	return req, nil
}

// formInt parses an optional integer form field; empty means zero.
func formInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.PostFormValue(field))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(field, "must be an integer", domain.ErrValidation)
	}
	return n, nil
}
