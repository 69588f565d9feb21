package ingest

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDiscoverDocuments_WalksDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "session-1.txt", "Alice: hello")
	writeFile(t, dir, "notes.md", "not a transcript")
	sub := filepath.Join(dir, "wave-2")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, sub, "session-2.txt", "Bob: hi")

	docs, err := DiscoverDocuments(dir, discardLogger())
	if err != nil {
		t.Fatalf("DiscoverDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("documents = %d, want 2", len(docs))
	}

	ids := map[string]bool{}
	for _, d := range docs {
		ids[d.ID] = true
	}
	if !ids["session-1"] || !ids["session-2"] {
		t.Errorf("doc ids = %v", ids)
	}
}

func TestDiscoverDocuments_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "interview.txt", "Carol: fine thanks")

	docs, err := DiscoverDocuments(path, discardLogger())
	if err != nil {
		t.Fatalf("DiscoverDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "interview" || docs[0].Text != "Carol: fine thanks" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestDiscoverDocuments_EmptyDirFails(t *testing.T) {
	if _, err := DiscoverDocuments(t.TempDir(), discardLogger()); err == nil {
		t.Fatal("expected error for directory with no transcripts")
	}
}

func TestDiscoverDocuments_MissingDirFails(t *testing.T) {
	if _, err := DiscoverDocuments(filepath.Join(t.TempDir(), "nope"), discardLogger()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
