// Package workspace manages the transient per-job directories that hold split
// pages, SVG fragments and intermediate PDFs.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

var invalidNameChar = regexp.MustCompile(`[^a-zA-Z0-9\-_]+`)

// sanitize makes a filesystem-safe job label from a document path.
func sanitize(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	safe := strings.Trim(invalidNameChar.ReplaceAllString(base, "_"), "_")
	if safe == "" {
		return "job"
	}
	return safe
}

// Manager creates jobs under a base directory.
type Manager struct {
	baseDir string
	fs      afs.Service
	logger  *slog.Logger
}

// NewManager creates a manager rooted at baseDir (os.TempDir() when empty).
func NewManager(baseDir string, logger *slog.Logger) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{baseDir: baseDir, fs: afs.New(), logger: logger}
}

// Job is one transient directory. Always Cleanup a job, on every path.
type Job struct {
	dir    string
	fs     afs.Service
	logger *slog.Logger
}

// NewJob creates a fresh directory named after label.
func (m *Manager) NewJob(ctx context.Context, label string) (*Job, error) {
	dir := filepath.Join(m.baseDir, fmt.Sprintf("%s-%s", sanitize(label), uuid.NewString()[:8]))
	if err := m.fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
		return nil, fmt.Errorf("failed to create job directory %s: %w", dir, err)
	}
	m.logger.Debug("Created job directory", "dir", dir)
	return &Job{dir: dir, fs: m.fs, logger: m.logger}, nil
}

func (j *Job) Dir() string {
	return j.dir
}

// Path returns the path of a file inside the job directory.
func (j *Job) Path(format string, args ...any) string {
	return filepath.Join(j.dir, fmt.Sprintf(format, args...))
}

// Write stores data in the job directory and returns its path.
func (j *Job) Write(ctx context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(j.dir, name)
	if err := j.fs.Upload(ctx, path, file.DefaultFileOsMode, strings.NewReader(string(data))); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Cleanup removes the job directory and everything in it.
func (j *Job) Cleanup(ctx context.Context) {
	if err := j.fs.Delete(ctx, j.dir); err != nil {
		j.logger.Warn("Failed to remove job directory", "dir", j.dir, "error", err)
	}
}

// Copy copies a single file.
func Copy(ctx context.Context, fs afs.Service, src, dst string) error {
	if fs == nil {
		fs = afs.New()
	}
	exists, err := fs.Exists(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if !exists {
		return fmt.Errorf("failed to copy %s: %w", src, os.ErrNotExist)
	}
	if err := fs.Copy(ctx, src, dst); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return nil
}
