package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the control surface on r.
func RegisterRoutes(r chi.Router, tasks *TaskHandler, data *DataHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", tasks.SubmitTask)
		r.Get("/tasks", tasks.ListTasks)
		r.Get("/tasks/{id}", tasks.GetTask)
		r.Post("/tasks/{id}/stop", tasks.StopTask)
		r.Get("/tasks/{id}/events", tasks.GetTaskEvents)
		r.Get("/options", tasks.GetOptions)

		r.Get("/data/files", data.ListFiles)
		r.Get("/data/files/{name}", data.DownloadFile)
		r.Get("/data_files", data.ListDataFiles)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
