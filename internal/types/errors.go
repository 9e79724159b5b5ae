package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout         = errors.New("timed out")
	ErrElementNotFound = errors.New("element not found")
	ErrNoAlert         = errors.New("no alert present")
	ErrDriverClosed    = errors.New("browser driver is closed")
)

// ValidationError is an inline error banner rendered by the site after a
// form submission (login, shipping details).
type ValidationError struct {
	Context string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Context == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Context, e.Message)
}

// AlertError reports a native browser dialog that opened while the flow was
// waiting on the page.
type AlertError struct {
	Text string
}

func (e *AlertError) Error() string {
	return fmt.Sprintf("unexpected alert open: %q", e.Text)
}

// InteractionError wraps a failed input-level interaction such as a click.
type InteractionError struct {
	Op  string
	Err error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *InteractionError) Unwrap() error { return e.Err }

// StepError ties an error to the flow step that produced it.
type StepError struct {
	Step    string
	Account string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q for %s: %v", e.Step, e.Account, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is, or wraps, ErrTimeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }
