package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// AuditFile is the plain-text audit log file name.
const AuditFile = "audit.log"

// AuditLog appends one human-readable line per auto-archive event.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// NewAuditLog creates an AuditLog writing to audit.log in the given base
// directory.
func NewAuditLog(basePath string) *AuditLog {
	return &AuditLog{path: filepath.Join(basePath, AuditFile)}
}

// RecordAutoArchive appends an "AUTO-ARCHIVED <id>: <name>" line.
func (l *AuditLog) RecordAutoArchive(id, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return wrapIOError("opening audit log", l.path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintf(f, "AUTO-ARCHIVED %s: %s\n", id, name); err != nil {
		return wrapIOError("writing audit log", l.path, err)
	}
	return nil
}
