package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod/lib/input"

	"github.com/IshaanNene/SauceBot/internal/types"
)

// ScrollStep is the distance of one mouse-wheel scroll.
const ScrollStep = 300

// maxScrollSteps bounds one scroll direction on pages that keep growing.
const maxScrollSteps = 500

// Direction selects which way ScrollPage moves.
type Direction string

const (
	ScrollDown Direction = "down"
	ScrollUp   Direction = "up"
	// ScrollBoth scrolls to the bottom, then back to the top.
	ScrollBoth Direction = ""
)

// ScrollMethod selects how ScrollPage moves.
type ScrollMethod string

const (
	ScrollMouse    ScrollMethod = "mouse"
	ScrollKeyboard ScrollMethod = "keyboard"
)

// Controller paces every interaction like a person would: pointer moved to
// the target first, randomized pauses in between.
type Controller struct {
	driver Driver
	logger *slog.Logger
	rnd    types.Rand
	sleep  func(ctx context.Context, d time.Duration) error
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithRand sets the random source behind pauses.
func WithRand(r types.Rand) ControllerOption {
	return func(c *Controller) { c.rnd = r }
}

// WithSleep replaces the blocking sleep, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ControllerOption {
	return func(c *Controller) { c.sleep = sleep }
}

// NewController wraps driver with human-like input helpers.
func NewController(driver Driver, logger *slog.Logger, opts ...ControllerOption) *Controller {
	c := &Controller{
		driver: driver,
		logger: logger.With("component", "controller"),
		rnd:    types.NewRand(0),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Driver exposes the wrapped driver for lookups and waits.
func (c *Controller) Driver() Driver { return c.driver }

// Rand is the controller's random source.
func (c *Controller) Rand() types.Rand { return c.rnd }

// WaitRandomDelay blocks for a uniformly sampled duration in [min, max].
func (c *Controller) WaitRandomDelay(ctx context.Context, min, max time.Duration) error {
	if max < min {
		min, max = max, min
	}
	d := min + time.Duration(c.rnd.Float64()*float64(max-min))
	return c.sleep(ctx, d)
}

// Pause is the default 1-3s gap between actions.
func (c *Controller) Pause(ctx context.Context) error {
	return c.WaitRandomDelay(ctx, time.Second, 3*time.Second)
}

// MovePointerTo dispatches a raw pointer move to the element's visual center.
func (c *Controller) MovePointerTo(ctx context.Context, el Element) error {
	center, err := el.Center()
	if err != nil {
		return err
	}
	c.logger.Info("moving pointer", "x", center.X, "y", center.Y)
	return c.driver.DispatchMouseMove(ctx, center)
}

// ClickLikeHuman moves the pointer onto el, pauses, then clicks it. Any
// failure comes back as an InteractionError.
func (c *Controller) ClickLikeHuman(ctx context.Context, el Element) error {
	if err := c.MovePointerTo(ctx, el); err != nil {
		return &types.InteractionError{Op: "pointer move", Err: err}
	}
	if err := c.Pause(ctx); err != nil {
		return err
	}
	if err := el.Click(); err != nil {
		return &types.InteractionError{Op: "click", Err: err}
	}
	return nil
}

// ScrollPage scrolls step by step until the page stops moving, for each
// requested direction in turn.
func (c *Controller) ScrollPage(ctx context.Context, dir Direction, method ScrollMethod) error {
	dirs := []Direction{dir}
	if dir == ScrollBoth {
		dirs = []Direction{ScrollDown, ScrollUp}
	}

	for _, d := range dirs {
		for i := 0; i < maxScrollSteps; i++ {
			before, err := c.scrollY(ctx)
			if err != nil {
				return err
			}
			if err := c.scrollOnce(ctx, d, method); err != nil {
				return err
			}
			if err := c.WaitRandomDelay(ctx, 300*time.Millisecond, 700*time.Millisecond); err != nil {
				return err
			}
			after, err := c.scrollY(ctx)
			if err != nil {
				return err
			}
			if after == before {
				break
			}
		}
	}
	return nil
}

func (c *Controller) scrollOnce(ctx context.Context, d Direction, method ScrollMethod) error {
	if method == ScrollKeyboard {
		key := input.PageDown
		if d == ScrollUp {
			key = input.PageUp
		}
		return c.driver.PressKey(ctx, key)
	}

	delta := ScrollStep
	if d == ScrollUp {
		delta = -ScrollStep
	}
	_, err := c.driver.Eval(ctx, `(dy) => window.scrollBy(0, dy)`, delta)
	return err
}

func (c *Controller) scrollY(ctx context.Context) (float64, error) {
	v, err := c.driver.Eval(ctx, `() => window.scrollY`)
	if err != nil {
		return 0, err
	}
	return v.Num(), nil
}

// InputText clears el and types text. Failures are logged, not returned;
// an empty field surfaces later through the site's own validation.
func (c *Controller) InputText(ctx context.Context, el Element, text string) {
	if err := ctx.Err(); err != nil {
		return
	}
	if err := el.Clear(); err != nil {
		c.logger.Error("failed to clear field", "text", text, "error", err)
		return
	}
	if err := el.Type(text); err != nil {
		c.logger.Error("failed to type text", "text", text, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
