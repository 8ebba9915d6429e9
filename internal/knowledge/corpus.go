// Package knowledge provides the technical knowledge corpus and the
// relevance-ranking engine that matches free-text problem descriptions
// against it.
package knowledge

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vet-eye/serviceflow/internal/models"
)

// Corpus file names inside the knowledge data directory.
const (
	troubleshootingFile = "troubleshooting.json"
	documentsFile       = "documents.json"
	usageFile           = "usage.json"
)

// Base is the loaded knowledge corpus. It is read-only after Load and safe
// for unsynchronized concurrent reads.
type Base struct {
	Troubleshooting []models.TroubleshootingEntry
	Documents       []models.Document
	UsageGuides     []models.UsageGuide
}

// Load reads the three corpus collections from dir. A missing or malformed
// file yields an empty collection for that source; it is never fatal.
func Load(dir string) *Base {
	slog.Debug("knowledge.Load: initializing knowledge base", "dir", dir)

	b := &Base{}
	loadJSONFile(filepath.Join(dir, troubleshootingFile), &b.Troubleshooting)
	loadDocuments(filepath.Join(dir, documentsFile), &b.Documents)
	loadJSONFile(filepath.Join(dir, usageFile), &b.UsageGuides)

	slog.Info("knowledge.Load: knowledge base initialized",
		"documents", len(b.Documents),
		"troubleshooting", len(b.Troubleshooting),
		"usageGuides", len(b.UsageGuides))
	return b
}

// loadJSONFile decodes a JSON array file into out, leaving out untouched on
// any failure.
func loadJSONFile(path string, out interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("knowledge.loadJSONFile: file not readable, using empty collection", "path", path, "error", err)
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Error("knowledge.loadJSONFile: failed to parse file, using empty collection", "path", path, "error", err)
	}
}

// loadDocuments decodes the documents file, flattening entries that are
// themselves wrapped in a one-element array (a shape some corpus exports
// produce).
func loadDocuments(path string, out *[]models.Document) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("knowledge.loadDocuments: file not readable, using empty collection", "path", path, "error", err)
		return
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Error("knowledge.loadDocuments: failed to parse file, using empty collection", "path", path, "error", err)
		return
	}

	for _, entry := range raw {
		var doc models.Document
		if err := json.Unmarshal(entry, &doc); err == nil {
			*out = append(*out, doc)
			continue
		}
		var nested []models.Document
		if err := json.Unmarshal(entry, &nested); err == nil && len(nested) > 0 {
			*out = append(*out, nested[0])
			continue
		}
		slog.Warn("knowledge.loadDocuments: skipping unparseable document entry", "path", path)
	}
}
