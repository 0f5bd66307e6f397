package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOptions is returned when run options are out of range.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrNotIdle is returned when Start is called on a run that already started.
	ErrNotIdle = errors.New("run already started")
)

// OptionError describes one rejected option.
//
// It unwraps to ErrInvalidOptions.
type OptionError struct {
	Option string
	Value  any
	Reason string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("invalid option %s=%v: %s", e.Option, e.Value, e.Reason)
}

func (e *OptionError) Unwrap() error { return ErrInvalidOptions }
