package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dexhq/dex/pkg/models"
)

func archivedRecord(id, name string) models.ArchivedTask {
	completedAt := storeClock.Add(-time.Hour)
	return models.ArchivedTask{
		ID:          id,
		Name:        name,
		CompletedAt: &completedAt,
		ArchivedAt:  storeClock,
	}
}

func TestArchiveStoreLoadMissingFileIsEmpty(t *testing.T) {
	records, err := NewArchiveStore(t.TempDir()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %v, want empty", records)
	}
}

func TestArchiveStoreAppendAndLoad(t *testing.T) {
	store := NewArchiveStore(t.TempDir())

	added, err := store.Append([]models.ArchivedTask{
		archivedRecord("2", "second"),
		archivedRecord("1", "first"),
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	// Sorted by id on write.
	if records[0].ID != "1" || records[1].ID != "2" {
		t.Errorf("order = [%s %s], want [1 2]", records[0].ID, records[1].ID)
	}
}

func TestArchiveStoreAppendDeduplicatesByID(t *testing.T) {
	store := NewArchiveStore(t.TempDir())

	if _, err := store.Append([]models.ArchivedTask{archivedRecord("1", "original")}); err != nil {
		t.Fatalf("first Append: %v", err)
	}

	// Re-archiving the same id is a silent no-op; the original record wins.
	added, err := store.Append([]models.ArchivedTask{
		archivedRecord("1", "replacement"),
		archivedRecord("2", "new"),
	})
	if err != nil {
		t.Fatalf("second Append: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Name != "original" {
		t.Errorf("record 1 name = %q, want the original to survive", records[0].Name)
	}
}

func TestArchiveStoreLoadReportsCorruptLine(t *testing.T) {
	dir := t.TempDir()
	content := "{\"id\":\"1\",\"name\":\"ok\",\"archived_at\":\"2024-06-01T12:00:00Z\"}\n{broken\n"
	if err := os.WriteFile(filepath.Join(dir, ArchiveFile), []byte(content), 0o600); err != nil {
		t.Fatalf("writing archive file: %v", err)
	}

	_, err := NewArchiveStore(dir).Load()
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("err = %v, want CorruptError", err)
	}
	if corrupt.Line != 2 {
		t.Errorf("Line = %d, want 2", corrupt.Line)
	}
}

func TestArchiveStoreLoadRejectsRecordWithoutID(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ArchiveFile), []byte("{\"name\":\"anonymous\"}\n"), 0o600); err != nil {
		t.Fatalf("writing archive file: %v", err)
	}

	_, err := NewArchiveStore(dir).Load()
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("err = %v, want CorruptError", err)
	}
}

func TestArchiveStorePreservesRollup(t *testing.T) {
	store := NewArchiveStore(t.TempDir())

	record := archivedRecord("1", "root")
	record.ArchivedChildren = []models.ArchivedChild{
		{ID: "2", Name: "child", Description: "notes", Result: "done"},
	}
	if _, err := store.Append([]models.ArchivedTask{record}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records[0].ArchivedChildren) != 1 || records[0].ArchivedChildren[0].Name != "child" {
		t.Errorf("rollup lost: %+v", records[0].ArchivedChildren)
	}
}
