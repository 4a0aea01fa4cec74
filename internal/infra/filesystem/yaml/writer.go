package yaml

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dahlia-labs/deployctl/internal/document"
)

// Writer persists configuration documents
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// WriteYAML overwrites path with doc encoded with sorted keys, creating parent
// directories as needed.
func (w *Writer) WriteYAML(path string, doc *document.Map) error {
	content, err := document.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
