package document

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("document: key not found")

// ParseError reports a malformed configuration document.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("failed to parse document: %v", e.Err)
	}
	return fmt.Sprintf("failed to parse document '%s': %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ShapeError reports a value present with an unexpected kind.
type ShapeError struct {
	Path string
	Want Kind
	Got  Kind
}

func (e *ShapeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("expected %s, got %s", e.Want, e.Got)
	}
	return fmt.Sprintf("'%s': expected %s, got %s", e.Path, e.Want, e.Got)
}

type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("'%s' not found", e.Path)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func withPath(err error, path string) error {
	var shapeErr *ShapeError
	if errors.As(err, &shapeErr) && shapeErr.Path == "" {
		return &ShapeError{Path: path, Want: shapeErr.Want, Got: shapeErr.Got}
	}
	return err
}
