package yaml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dahlia-labs/deployctl/internal/document"
)

// Reader loads configuration documents from disk
type Reader struct{}

// NewReader creates a new filesystem reader
func NewReader() *Reader {
	return &Reader{}
}

// ReadYAML reads and parses a YAML document.
// A missing file yields an empty document; malformed content yields a *document.ParseError.
func (r *Reader) ReadYAML(path string) (*document.Map, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return document.NewMap(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return document.Parse(data, path)
}
