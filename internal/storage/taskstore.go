// Package storage implements the JSONL persistence layer for dex: the
// active task store, the archive store, and the plain-text audit log.
package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dexhq/dex/internal/core"
	"github.com/dexhq/dex/pkg/models"
)

// TasksFile is the active store file name inside the base directory.
const TasksFile = "tasks.jsonl"

// CorruptError reports a store file that failed to parse or validate,
// naming the offending line. Corruption is fatal for the read and is never
// auto-repaired.
type CorruptError struct {
	Path string
	Line int
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt store file %s: line %d: %v", e.Path, e.Line, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// TaskStoreManager defines the interface for the active task store. The
// whole file is the unit of read and write; one Save call is the unit of
// atomicity.
type TaskStoreManager interface {
	Load() ([]*models.Task, error)
	Save(tasks []*models.Task) error
	Path() string
}

// fileTaskStore implements TaskStoreManager over a JSONL file, one compact
// JSON record per line sorted by id, written via a temp file and atomic
// rename so a crash mid-write never leaves a truncated store visible.
type fileTaskStore struct {
	basePath string
}

// NewTaskStore creates a TaskStoreManager backed by tasks.jsonl in the
// given base directory.
func NewTaskStore(basePath string) TaskStoreManager {
	return &fileTaskStore{basePath: basePath}
}

func (s *fileTaskStore) Path() string {
	return filepath.Join(s.basePath, TasksFile)
}

// Load reads the active set. A missing or empty file is an empty store;
// an unparseable or schema-invalid line is a CorruptError naming the line.
func (s *fileTaskStore) Load() ([]*models.Task, error) {
	path := s.Path()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapIOError("opening task store", path, err)
	}
	defer func() { _ = f.Close() }()

	var tasks []*models.Task
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var task models.Task
		if err := json.Unmarshal(line, &task); err != nil {
			return nil, &CorruptError{Path: path, Line: lineNo, Err: err}
		}
		if err := validateTask(&task); err != nil {
			return nil, &CorruptError{Path: path, Line: lineNo, Err: err}
		}
		tasks = append(tasks, &task)
	}
	if err := scanner.Err(); err != nil {
		return nil, wrapIOError("reading task store", path, err)
	}

	return tasks, nil
}

// Save writes the full active set, sorted by id, replacing the store file
// atomically.
func (s *fileTaskStore) Save(tasks []*models.Task) error {
	sorted := append([]*models.Task(nil), tasks...)
	core.SortTasksByID(sorted)

	var buf bytes.Buffer
	for _, t := range sorted {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshalling task %s: %w", t.ID, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	return atomicWrite(s.Path(), buf.Bytes())
}

// validateTask enforces the per-record schema: a non-empty id and a
// CompletedAt timestamp present iff the task is completed.
func validateTask(t *models.Task) error {
	if t.ID == "" {
		return fmt.Errorf("task record has no id")
	}
	if t.Completed && t.CompletedAt == nil {
		return fmt.Errorf("task %s is completed but has no completed_at", t.ID)
	}
	if !t.Completed && t.CompletedAt != nil {
		return fmt.Errorf("task %s has completed_at but is not completed", t.ID)
	}
	return nil
}

// atomicWrite writes data to a temp file in the target directory and
// renames it over the destination.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return wrapIOError("creating store directory", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return wrapIOError("creating temp file", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return wrapIOError("writing temp file", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return wrapIOError("closing temp file", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		_ = os.Remove(tmpPath)
		return wrapIOError("setting temp file permissions", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return wrapIOError("replacing store file", path, err)
	}
	return nil
}

// wrapIOError wraps a storage I/O failure with a recovery suggestion. The
// error is propagated, not retried.
func wrapIOError(action, path string, err error) error {
	return fmt.Errorf("%s %s: %w (check file permissions and free disk space)", action, path, err)
}
