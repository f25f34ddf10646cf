package api

import (
	"errors"
	"os"

	"github.com/google/uuid"
	"github.com/phrazzld/crawl-api/internal/artifact"
	"github.com/phrazzld/crawl-api/internal/domain"
	"github.com/phrazzld/crawl-api/internal/events"
	"github.com/phrazzld/crawl-api/internal/task"
)

type mockTaskService struct {
	SubmitFn func(cfg domain.CrawlConfig) (task.Record, error)
	StopFn   func(id uuid.UUID) (task.Record, bool, error)
	GetFn    func(id uuid.UUID) (task.Record, error)
	ListFn   func() []task.Record
}

func (m *mockTaskService) Submit(cfg domain.CrawlConfig) (task.Record, error) {
	if m.SubmitFn == nil {
		return task.Record{}, errors.New("Submit not mocked")
	}
	return m.SubmitFn(cfg)
}

func (m *mockTaskService) Stop(id uuid.UUID) (task.Record, bool, error) {
	if m.StopFn == nil {
		return task.Record{}, false, errors.New("Stop not mocked")
	}
	return m.StopFn(id)
}

func (m *mockTaskService) Get(id uuid.UUID) (task.Record, error) {
	if m.GetFn == nil {
		return task.Record{}, task.ErrTaskNotFound
	}
	return m.GetFn(id)
}

func (m *mockTaskService) List() []task.Record {
	if m.ListFn == nil {
		return nil
	}
	return m.ListFn()
}

type mockHistory struct {
	EventsFn func(taskID uuid.UUID) []events.TaskEvent
}

func (m *mockHistory) Events(taskID uuid.UUID) []events.TaskEvent {
	return m.EventsFn(taskID)
}

type mockOutputFiles struct {
	ListFn     func() ([]artifact.FileInfo, error)
	ListDataFn func() ([]artifact.FileInfo, error)
	OpenFn     func(name string) (*os.File, artifact.FileInfo, error)
}

func (m *mockOutputFiles) List() ([]artifact.FileInfo, error) {
	return m.ListFn()
}

func (m *mockOutputFiles) ListData() ([]artifact.FileInfo, error) {
	return m.ListDataFn()
}

func (m *mockOutputFiles) Open(name string) (*os.File, artifact.FileInfo, error) {
	return m.OpenFn(name)
}
