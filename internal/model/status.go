package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a status change is not allowed
// from the current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError describes a refused status change.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s cannot move from %s to %s", e.Entity, e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
