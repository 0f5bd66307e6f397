package graphdig

import (
	"errors"
	"fmt"

	"github.com/hupe1980/graphdig/internal/engine"
	"github.com/hupe1980/graphdig/internal/resource"
	"github.com/hupe1980/graphdig/nodepath"
)

var (
	// ErrClosed is returned by operations on a closed Digger.
	ErrClosed = errors.New("digger is closed")

	// ErrInvalidOptions is returned when search options are out of range.
	// The concrete error is an *OptionError.
	ErrInvalidOptions = engine.ErrInvalidOptions

	// ErrTooManyRuns is returned when every run slot is taken and the
	// Digger was configured WithRejectWhenBusy.
	ErrTooManyRuns = resource.ErrTooManyRuns

	// ErrUnknownAction is returned by a Dispatcher for unrecognized requests.
	ErrUnknownAction = errors.New("unknown action")
)

// OptionError describes one rejected search option.
//
// It unwraps to ErrInvalidOptions.
type OptionError = engine.OptionError

// InvalidPathError reports a path that failed to parse.
//
// It unwraps to nodepath.ErrInvalidPath.
type InvalidPathError = nodepath.InvalidPathError

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var oe *engine.OptionError
	if errors.As(err, &oe) {
		return err
	}
	if errors.Is(err, engine.ErrNotIdle) {
		return fmt.Errorf("graphdig: %w", err)
	}

	return err
}
