package api

import (
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/crawl-api/internal/api/shared"
	"github.com/phrazzld/crawl-api/internal/artifact"
)

// OutputFiles is the crawler output directory as seen by the handlers.
type OutputFiles interface {
	List() ([]artifact.FileInfo, error)
	ListData() ([]artifact.FileInfo, error)
	Open(name string) (*os.File, artifact.FileInfo, error)
}

// DataHandler serves the crawler's output files.
type DataHandler struct {
	files  OutputFiles
	logger *slog.Logger
}

// NewDataHandler creates a new DataHandler
func NewDataHandler(files OutputFiles, logger *slog.Logger) *DataHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataHandler{
		files:  files,
		logger: logger.With("component", "data_handler"),
	}
}

// ListFiles handles GET /api/data/files
func (h *DataHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.List()
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	out := make([]DataFileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, fileToResponse(f))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DataFilesResponse{Success: true, Files: out})
}

// ListDataFiles handles GET /api/data_files. It reports only JSON and CSV
// results, with a local wall-clock modification time.
func (h *DataHandler) ListDataFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.ListData()
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	out := make([]ResultFileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, ResultFileResponse{
			Name:     f.Name,
			Size:     f.Size,
			Modified: f.ModifiedTime.Local().Format(modifiedLayout),
		})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ResultFilesResponse{Success: true, Files: out})
}

// DownloadFile handles GET /api/data/files/{name} and serves the file as an
// attachment.
func (h *DataHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		HandleAPIError(w, r, artifact.ValidateName(""))
		return
	}

	f, info, err := h.files.Open(name)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			h.logger.Warn("failed to close output file", "name", name, "error", cerr)
		}
	}()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModifiedTime, f)
}
