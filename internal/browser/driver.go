// Package browser wraps the browser-automation driver behind small
// capability interfaces and layers human-like input pacing on top.
package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod/lib/input"
	"github.com/ysmood/gson"
)

// Point is a viewport coordinate in CSS pixels.
type Point struct {
	X, Y float64
}

// Driver is everything the bot needs from a browser. Lookups never wait;
// waiting is explicit through WaitFor, WaitClickable and WaitUntil, which
// return an error wrapping types.ErrTimeout when the deadline passes.
type Driver interface {
	Navigate(ctx context.Context, url string) error

	// Find returns the first element matching selector or an error wrapping
	// types.ErrElementNotFound.
	Find(ctx context.Context, selector string) (Element, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)

	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	WaitClickable(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	WaitUntil(ctx context.Context, timeout time.Duration, cond func() (bool, error)) error

	Eval(ctx context.Context, js string, args ...any) (gson.JSON, error)

	// DispatchMouseMove sends a raw pointer move through the input domain.
	DispatchMouseMove(ctx context.Context, to Point) error
	PressKey(ctx context.Context, key input.Key) error

	// AcceptAlert accepts an open JavaScript dialog and returns its text.
	// ok is false when no dialog was open.
	AcceptAlert(ctx context.Context) (text string, ok bool, err error)

	Screenshot(ctx context.Context, path string) error
	Close() error
}

// Element is a located node. Lookups on it never wait.
type Element interface {
	Text() (string, error)
	Find(selector string) (Element, error)
	FindAll(selector string) ([]Element, error)

	// Center is the middle of the element's bounding client rect.
	Center() (Point, error)
	// Click moves the pointer onto the element and clicks it with input events.
	Click() error
	Clear() error
	Type(text string) error
	// Press focuses the element and sends key.
	Press(key input.Key) error
}
