package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/dexhq/dex/internal/core"
	"github.com/dexhq/dex/pkg/models"
)

// ArchiveFile is the archive store file name inside the base directory.
const ArchiveFile = "archive.jsonl"

// ArchiveStoreManager defines the interface for the compacted-task store.
// Records are immutable once written; Append deduplicates by id so
// re-archiving an already-archived id is a silent no-op.
type ArchiveStoreManager interface {
	Load() ([]models.ArchivedTask, error)
	Append(records []models.ArchivedTask) (int, error)
	Path() string
}

// fileArchiveStore implements ArchiveStoreManager over a JSONL file with
// the same ordering and atomicity rules as the active store.
type fileArchiveStore struct {
	basePath string
}

// NewArchiveStore creates an ArchiveStoreManager backed by archive.jsonl
// in the given base directory.
func NewArchiveStore(basePath string) ArchiveStoreManager {
	return &fileArchiveStore{basePath: basePath}
}

func (s *fileArchiveStore) Path() string {
	return filepath.Join(s.basePath, ArchiveFile)
}

// Load reads all archived records. Missing or empty file means an empty
// archive; a bad line is a CorruptError naming its number.
func (s *fileArchiveStore) Load() ([]models.ArchivedTask, error) {
	path := s.Path()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapIOError("opening archive store", path, err)
	}
	defer func() { _ = f.Close() }()

	var records []models.ArchivedTask
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record models.ArchivedTask
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, &CorruptError{Path: path, Line: lineNo, Err: err}
		}
		if record.ID == "" {
			return nil, &CorruptError{Path: path, Line: lineNo, Err: errNoID}
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, wrapIOError("reading archive store", path, err)
	}

	return records, nil
}

// Append merges new records into the archive, skipping any id already
// present, and rewrites the file atomically sorted by id. It returns the
// number of records actually added.
func (s *fileArchiveStore) Append(records []models.ArchivedTask) (int, error) {
	existing, err := s.Load()
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.ID] = true
	}

	added := 0
	merged := existing
	for _, r := range records {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		merged = append(merged, r)
		added++
	}

	sort.Slice(merged, func(i, j int) bool {
		return core.LessID(merged[i].ID, merged[j].ID)
	})

	var buf bytes.Buffer
	for _, r := range merged {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, wrapIOError("marshalling archive record", r.ID, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	if err := atomicWrite(s.Path(), buf.Bytes()); err != nil {
		return 0, err
	}
	return added, nil
}

var errNoID = errors.New("archive record has no id")
