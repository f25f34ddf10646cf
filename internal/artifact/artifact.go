// Package artifact reads the crawler's shared output directory: it
// attributes result files to finished tasks, lists the directory and serves
// individual files by name.
//
// Attribution is heuristic. A file belongs to a task when its name contains
// the task's platform id and it was modified at or after the task started,
// so two overlapping tasks on the same platform will each claim the other's
// files.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

var (
	// ErrInvalidName is returned for names that could escape the directory.
	ErrInvalidName = errors.New("invalid file name")
	// ErrNotFound is returned when the named file does not exist or is not
	// a regular file.
	ErrNotFound = errors.New("file not found")
)

// FileInfo describes one output file.
type FileInfo struct {
	Name         string
	Size         int64
	ModifiedTime time.Time
}

// Dir is the crawler output directory.
type Dir struct {
	path string
}

// NewDir returns a Dir rooted at path. The directory need not exist yet.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// Correlate returns the names of regular files whose name contains platform
// (case-insensitive) and whose modification time is not before since,
// sorted by name. A missing directory yields no files and no error.
func (d *Dir) Correlate(platform string, since time.Time) ([]string, error) {
	files, err := d.scan()
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(platform)
	names := make([]string, 0)
	for _, f := range files {
		if !strings.Contains(strings.ToLower(f.Name), needle) {
			continue
		}
		if f.ModifiedTime.Before(since) {
			continue
		}
		names = append(names, f.Name)
	}

	slices.Sort(names)
	return names, nil
}

// List returns every regular file in the directory, most recently modified
// first. The directory is created when missing.
func (d *Dir) List() ([]FileInfo, error) {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	files, err := d.scan()
	if err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b FileInfo) int {
		if c := b.ModifiedTime.Compare(a.ModifiedTime); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return files, nil
}

// dataExtensions are the result file types ListData reports.
var dataExtensions = []string{".json", ".csv"}

// ListData returns the JSON and CSV result files, sorted by name. Unlike
// List it leaves a missing directory alone and reports no files.
func (d *Dir) ListData() ([]FileInfo, error) {
	files, err := d.scan()
	if errors.Is(err, fs.ErrNotExist) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	data := make([]FileInfo, 0, len(files))
	for _, f := range files {
		if slices.Contains(dataExtensions, filepath.Ext(f.Name)) {
			data = append(data, f)
		}
	}
	slices.SortFunc(data, func(a, b FileInfo) int { return strings.Compare(a.Name, b.Name) })
	return data, nil
}

// Open opens the named file for reading. Names that are empty or contain a
// path separator or ".." are rejected before the file system is touched.
// The caller must close the returned file.
func (d *Dir) Open(name string) (*os.File, FileInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, FileInfo{}, err
	}

	f, err := os.Open(filepath.Join(d.path, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("failed to open %s: %w", name, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, FileInfo{}, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if !st.Mode().IsRegular() {
		_ = f.Close()
		return nil, FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return f, FileInfo{Name: name, Size: st.Size(), ModifiedTime: st.ModTime()}, nil
}

// ValidateName rejects names that could address anything outside the
// output directory.
func ValidateName(name string) error {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// scan reads the regular files in the directory.
func (d *Dir) scan() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if errors.Is(err, fs.ErrNotExist) {
			// removed between ReadDir and Info
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		files = append(files, FileInfo{
			Name:         entry.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})
	}
	return files, nil
}
