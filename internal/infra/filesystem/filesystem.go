// Package filesystem declares how configuration documents are read from and
// written to disk. Implementations live in subpackages per encoding.
package filesystem

import "github.com/dahlia-labs/deployctl/internal/document"

type (
	Reader interface {
		ReadYAML(path string) (*document.Map, error)
	}
	Writer interface {
		WriteYAML(path string, doc *document.Map) error
	}
)
