package tsp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAction is matched by every InvalidActionError
	ErrInvalidAction = errors.New("invalid action")
	// ErrUninitialized is returned when the environment is used before Reset
	ErrUninitialized = errors.New("environment not initialized, call Reset first")
	// ErrInvalidSize is returned for problem sizes smaller than one node
	ErrInvalidSize = errors.New("invalid problem size")
	// ErrInvalidInstance is returned when a persisted instance is inconsistent
	ErrInvalidInstance = errors.New("invalid problem instance")
)

// InvalidActionError reports an action outside [0, Size)
type InvalidActionError struct {
	Action int
	Size   int
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %d: expected a node index in [0, %d)", e.Action, e.Size)
}

func (e *InvalidActionError) Is(target error) bool {
	return target == ErrInvalidAction
}
