package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic checking via errors.Is().
var (
	// ErrNotFound indicates the input file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrInvalidJSON indicates the input is not well-formed JSON.
	ErrInvalidJSON = errors.New("invalid JSON")

	// ErrNotWorkflow indicates valid JSON whose top level is not an object.
	ErrNotWorkflow = errors.New("not a workflow document")
)

// LoadError records which input failed to load and why.
// Err is one of the sentinels above, or an underlying I/O error.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
