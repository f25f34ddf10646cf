package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/crawl-api/internal/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFiles(t *testing.T) {
	modified := time.Unix(1714557600, 500_000_000)
	files := &mockOutputFiles{ListFn: func() ([]artifact.FileInfo, error) {
		return []artifact.FileInfo{
			{Name: "xhs_search_contents.json", Size: 120, ModifiedTime: modified},
		}, nil
	}}
	router := newTestRouter(&mockTaskService{}, nil, files)

	w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/data/files", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"success":true,"files":[{"name":"xhs_search_contents.json","size":120,"modified_time":1714557600.5}]}`,
		w.Body.String())
}

func TestListFiles_Error(t *testing.T) {
	files := &mockOutputFiles{ListFn: func() ([]artifact.FileInfo, error) {
		return nil, errors.New("permission denied")
	}}
	router := newTestRouter(&mockTaskService{}, nil, files)

	w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/data/files", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "permission denied")
}

func TestListDataFiles(t *testing.T) {
	modified := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	files := &mockOutputFiles{ListDataFn: func() ([]artifact.FileInfo, error) {
		return []artifact.FileInfo{
			{Name: "dy_comments.csv", Size: 64, ModifiedTime: modified},
		}, nil
	}}
	router := newTestRouter(&mockTaskService{}, nil, files)

	w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/data_files", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"success":true,"files":[{"name":"dy_comments.csv","size":64,"modified":"2024-05-01 10:00:00"}]}`,
		w.Body.String())
}

func TestListDataFiles_FiltersRealDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "xhs.json"), []byte(`[]`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crawl.db"), []byte(`x`), 0o600))
	router := newTestRouter(&mockTaskService{}, nil, artifact.NewDir(dir))

	w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/data_files", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ResultFilesResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "xhs.json", resp.Files[0].Name)
}

func TestDownloadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "xhs.json"), []byte(`[{"id":1}]`), 0o600))
	router := newTestRouter(&mockTaskService{}, nil, artifact.NewDir(dir))

	t.Run("existing file", func(t *testing.T) {
		w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/data/files/xhs.json", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `[{"id":1}]`, w.Body.String())
		assert.Equal(t, `attachment; filename=xhs.json`, w.Header().Get("Content-Disposition"))
	})

	t.Run("missing file", func(t *testing.T) {
		w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/data/files/absent.json", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("encoded traversal", func(t *testing.T) {
		w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/data/files/..%2Fsecret", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("dot dot name", func(t *testing.T) {
		w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/data/files/a..b", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDownloadFile_OpenError(t *testing.T) {
	files := &mockOutputFiles{OpenFn: func(name string) (*os.File, artifact.FileInfo, error) {
		return nil, artifact.FileInfo{}, fmt.Errorf("%w: %s", artifact.ErrNotFound, name)
	}}
	router := newTestRouter(&mockTaskService{}, nil, files)

	w := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/data/files/gone.csv", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "File not found")
}
