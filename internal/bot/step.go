package bot

import (
	"context"

	"github.com/pkg/errors"

	"github.com/IshaanNene/SauceBot/internal/types"
)

// step is one guarded unit of the flow. Its failure is reported and recorded
// but never escapes to the account loop.
type step struct {
	name string
	// what completes "could not ..." in failure messages.
	what string
	run  func(ctx context.Context, acc *accountRun) error

	validationShot string
	timeoutShot    string

	// gating failures skip every later gated step and what follows it.
	gating bool
}

func (b *Bot) loginStep() step {
	return step{name: "login", what: "log in", run: b.login}
}

func (b *Bot) postLoginSteps() []step {
	return []step{
		{name: "sort", what: "apply sorting", run: b.applySort},
		{name: "reset_state", what: "reset the app state", run: b.resetState},
		{name: "cart_peek", what: "check the cart", run: b.peekCart},
		{name: "add_products", what: "add products", run: b.addAllProducts},
		{name: "checkout", what: "process the cart", run: b.checkout},
		{name: "order_form", what: "fill the order form", run: b.fillOrderForm, validationShot: "order_form_error", gating: true},
		{name: "step_two", what: "finish checkout step two", run: b.completeStepTwo, timeoutShot: "step_two_error", gating: true},
		{name: "confirm", what: "confirm the order", run: b.confirmOrder},
	}
}

func (b *Bot) logoutStep() step {
	return step{name: "logout", what: "log out", run: b.logout}
}

func (b *Bot) runStep(ctx context.Context, acc *accountRun, s step) StepResult {
	res := StepResult{Step: s.name, Outcome: OutcomeOK}
	if err := guard(func() error { return s.run(ctx, acc) }); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = &types.StepError{Step: s.name, Account: acc.name, Err: err}
		b.report(ctx, acc, s, err)
	}
	b.metrics.Step(s.name, string(res.Outcome))
	return res
}

func (b *Bot) skip(s step) StepResult {
	b.metrics.Step(s.name, string(OutcomeSkipped))
	return StepResult{Step: s.name, Outcome: OutcomeSkipped}
}

// report logs err the way its kind calls for: banners as their text,
// timeouts and alerts as a short line, anything else with its trace.
func (b *Bot) report(ctx context.Context, acc *accountRun, s step, err error) {
	var verr *types.ValidationError
	var aerr *types.AlertError

	switch {
	case errors.Is(err, context.Canceled):
		b.log.Warning("step " + s.name + " interrupted")
	case errors.As(err, &verr):
		b.log.Error("", verr)
		if s.validationShot != "" && b.cfg.Output.Screenshots {
			b.saveScreenshot(ctx, acc.name, s.validationShot)
		}
	case errors.As(err, &aerr):
		text := aerr.Text
		if accepted, ok, aErr := b.ctl.Driver().AcceptAlert(ctx); aErr == nil && ok && text == "" {
			text = accepted
		}
		b.log.Error("could not "+s.what+"! Alert.", nil)
		b.log.Warning("[ALERT] alert detected with text: «" + text + "»")
	case types.IsTimeout(err):
		b.log.Error("could not "+s.what+"! Timeout.", nil)
		if s.timeoutShot != "" && b.cfg.Output.Screenshots {
			b.saveScreenshot(ctx, acc.name, s.timeoutShot)
		}
	default:
		b.log.Error("error while trying to "+s.what+": ", err)
	}
}

// guard runs fn and turns a panic into an error carrying the panic site's
// stack.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
