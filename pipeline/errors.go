package pipeline

import (
	"fmt"

	"github.com/kenjpais/diagram-generator/errors"
)

// MaxRetriesExceededError is returned when the source is still invalid after
// the last permitted correction.
type MaxRetriesExceededError struct {
	Attempts  int
	LastError string
}

func (e *MaxRetriesExceededError) Error() string {
	return fmt.Sprintf("diagram still invalid after %d correction attempt(s): %s", e.Attempts, e.LastError)
}

// Is matches errors.ErrMaxRetries
func (e *MaxRetriesExceededError) Is(target error) bool {
	return target == errors.ErrMaxRetries
}
