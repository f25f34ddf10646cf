package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/crawl-api/internal/artifact"
	"github.com/phrazzld/crawl-api/internal/domain"
	"github.com/phrazzld/crawl-api/internal/events"
	"github.com/phrazzld/crawl-api/internal/task"
)

// SubmitTaskRequest is the body of POST /api/tasks. Empty fields take the
// submission defaults.
type SubmitTaskRequest struct {
	Platform       string `json:"platform"`
	LoginType      string `json:"login_type"`
	CrawlerType    string `json:"crawler_type"`
	Keywords       string `json:"keywords"`
	CreatorID      string `json:"creator_id"`
	StartPage      int    `json:"start_page"`
	GetComments    bool   `json:"get_comments"`
	GetSubComments bool   `json:"get_sub_comments"`
	SaveDataOption string `json:"save_data_option"`
	MaxNotesCount  int    `json:"max_notes_count"`
	Cookies        string `json:"cookies"`
}

// CrawlConfig converts the request into a defaulted crawl configuration.
func (r SubmitTaskRequest) CrawlConfig() domain.CrawlConfig {
	return domain.CrawlConfig{
		Platform:       domain.Platform(r.Platform),
		LoginType:      domain.LoginType(r.LoginType),
		CrawlerType:    domain.CrawlerType(r.CrawlerType),
		Keywords:       r.Keywords,
		CreatorID:      r.CreatorID,
		StartPage:      r.StartPage,
		GetComments:    r.GetComments,
		GetSubComments: r.GetSubComments,
		SaveDataOption: domain.SaveDataOption(r.SaveDataOption),
		MaxNotesCount:  r.MaxNotesCount,
		Cookies:        r.Cookies,
	}.WithDefaults()
}

// SubmitTaskResponse is returned when a task was accepted.
type SubmitTaskResponse struct {
	Success bool      `json:"success"`
	TaskID  uuid.UUID `json:"task_id"`
	Message string    `json:"message"`
}

// CrawlConfigResponse is a crawl configuration as shown to clients. Cookies
// are never echoed back.
type CrawlConfigResponse struct {
	Platform       string `json:"platform"`
	LoginType      string `json:"login_type"`
	CrawlerType    string `json:"crawler_type"`
	Keywords       string `json:"keywords"`
	CreatorID      string `json:"creator_id"`
	StartPage      int    `json:"start_page"`
	GetComments    bool   `json:"get_comments"`
	GetSubComments bool   `json:"get_sub_comments"`
	SaveDataOption string `json:"save_data_option"`
	MaxNotesCount  int    `json:"max_notes_count"`
	HasCookies     bool   `json:"has_cookies"`
}

// TaskResponse is the client view of a task record.
type TaskResponse struct {
	ID          uuid.UUID           `json:"id"`
	Status      string              `json:"status"`
	Config      CrawlConfigResponse `json:"config"`
	CreatedAt   time.Time           `json:"created_at"`
	StartedAt   *time.Time          `json:"started_at"`
	CompletedAt *time.Time          `json:"completed_at"`
	Message     string              `json:"message"`
	Error       string              `json:"error,omitempty"`
	OutputFiles []string            `json:"output_files"`
}

// TaskEnvelope wraps a single task.
type TaskEnvelope struct {
	Success bool         `json:"success"`
	Task    TaskResponse `json:"task"`
}

// TaskListResponse wraps every task, newest first.
type TaskListResponse struct {
	Success bool           `json:"success"`
	Tasks   []TaskResponse `json:"tasks"`
}

// StopTaskResponse reports whether a stop request was accepted.
type StopTaskResponse struct {
	Success  bool   `json:"success"`
	Accepted bool   `json:"accepted"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// TaskEventResponse is one recorded status transition.
type TaskEventResponse struct {
	From       string    `json:"from,omitempty"`
	To         string    `json:"to"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TaskEventsResponse wraps the transition history of a task.
type TaskEventsResponse struct {
	Success bool                `json:"success"`
	TaskID  uuid.UUID           `json:"task_id"`
	Events  []TaskEventResponse `json:"events"`
}

// OptionsResponse carries the selectable values of each submission field.
type OptionsResponse struct {
	Success         bool            `json:"success"`
	Platforms       []domain.Option `json:"platforms"`
	LoginTypes      []domain.Option `json:"login_types"`
	CrawlerTypes    []domain.Option `json:"crawler_types"`
	SaveDataOptions []domain.Option `json:"save_data_options"`
}

// DataFileResponse describes one output file. ModifiedTime is in seconds
// since the Unix epoch.
type DataFileResponse struct {
	Name         string  `json:"name"`
	Size         int64   `json:"size"`
	ModifiedTime float64 `json:"modified_time"`
}

// DataFilesResponse lists the output directory.
type DataFilesResponse struct {
	Success bool               `json:"success"`
	Files   []DataFileResponse `json:"files"`
}

// modifiedLayout formats ResultFileResponse.Modified.
const modifiedLayout = "2006-01-02 15:04:05"

// ResultFileResponse describes one JSON or CSV result file.
type ResultFileResponse struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// ResultFilesResponse lists the result files.
type ResultFilesResponse struct {
	Success bool                 `json:"success"`
	Files   []ResultFileResponse `json:"files"`
}

func taskToResponse(rec task.Record) TaskResponse {
	files := rec.OutputFiles
	if files == nil {
		files = []string{}
	}
	cfg := rec.Config
	return TaskResponse{
		ID:     rec.ID,
		Status: string(rec.Status),
		Config: CrawlConfigResponse{
			Platform:       string(cfg.Platform),
			LoginType:      string(cfg.LoginType),
			CrawlerType:    string(cfg.CrawlerType),
			Keywords:       cfg.Keywords,
			CreatorID:      cfg.CreatorID,
			StartPage:      cfg.StartPage,
			GetComments:    cfg.GetComments,
			GetSubComments: cfg.GetSubComments,
			SaveDataOption: string(cfg.SaveDataOption),
			MaxNotesCount:  cfg.MaxNotesCount,
			HasCookies:     cfg.Cookies != "",
		},
		CreatedAt:   rec.CreatedAt,
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
		Message:     rec.Message,
		Error:       rec.Error,
		OutputFiles: files,
	}
}

func eventToResponse(e events.TaskEvent) TaskEventResponse {
	return TaskEventResponse{
		From:       e.From,
		To:         e.To,
		Message:    e.Message,
		Error:      e.Error,
		OccurredAt: e.OccurredAt,
	}
}

func fileToResponse(f artifact.FileInfo) DataFileResponse {
	return DataFileResponse{
		Name:         f.Name,
		Size:         f.Size,
		ModifiedTime: float64(f.ModifiedTime.UnixNano()) / float64(time.Second),
	}
}
