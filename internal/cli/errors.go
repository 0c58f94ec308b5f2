package cli

import (
	"errors"
	"fmt"

	"scrubflow/internal/workflow"
)

// PendingChangesError is returned by --check when documents are not yet
// sanitized.
type PendingChangesError struct {
	Count int
}

func (e *PendingChangesError) Error() string {
	return fmt.Sprintf("%d document(s) would change", e.Count)
}

// ExitMessage renders err as the single line printed before exiting.
func ExitMessage(err error) string {
	var pending *PendingChangesError
	if errors.As(err, &pending) {
		return fmt.Sprintf("Error: %d document(s) would change.", pending.Count)
	}

	var le *workflow.LoadError
	if errors.As(err, &le) {
		switch {
		case errors.Is(le.Err, workflow.ErrNotFound):
			return fmt.Sprintf("Error: File '%s' not found.", le.Path)
		case errors.Is(le.Err, workflow.ErrInvalidJSON):
			return fmt.Sprintf("Error: '%s' is not a valid JSON file.", le.Path)
		case errors.Is(le.Err, workflow.ErrNotWorkflow):
			return fmt.Sprintf("Error: '%s' is not a workflow document.", le.Path)
		}
	}

	return fmt.Sprintf("An error occurred: %v", err)
}
