// Package ingest discovers and loads transcript files. It consumes plain or
// annotated (paragraph/line-indexed) text; annotation markers are stripped
// later by the dialogue detector, so identical files parse identically no
// matter which reader produced them.
package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/meridian-research/colloquy/internal/pipeline"
)

// DiscoverDocuments walks dir for transcript files and loads each one. A
// single unreadable file is logged and skipped — it will surface as a missing
// document, not a failed run.
func DiscoverDocuments(dir string, logger *slog.Logger) ([]pipeline.Document, error) {
	dir = expandHome(dir)

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("transcript dir: %w", err)
	}
	if !info.IsDir() {
		doc, err := loadDocument(dir)
		if err != nil {
			return nil, err
		}
		return []pipeline.Document{doc}, nil
	}

	var docs []pipeline.Document
	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".txt") {
			return nil
		}
		doc, err := loadDocument(path)
		if err != nil {
			logger.Warn("skipping unreadable transcript", "path", path, "error", err)
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, walkErr)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no transcripts found under %s", dir)
	}
	return docs, nil
}

func loadDocument(path string) (pipeline.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return pipeline.Document{
		ID:   docID(path),
		Path: path,
		Text: string(data),
	}, nil
}

func docID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
