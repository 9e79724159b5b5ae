// Package bot drives the demo shop through a fixed, human-paced interaction
// sequence for each configured account.
package bot

import (
	"context"
	"strings"
	"time"

	"github.com/IshaanNene/SauceBot/internal/browser"
	"github.com/IshaanNene/SauceBot/internal/config"
	"github.com/IshaanNene/SauceBot/internal/observability"
	"github.com/IshaanNene/SauceBot/internal/types"
)

// Name is the bot's class name; it prefixes log and screenshot files.
const Name = "SauceDemoBot"

// Logger is the session log the bot reports through.
type Logger interface {
	Info(msg string)
	Message(msg string)
	Warning(msg string)
	Error(msg string, err error)
	Time(msg string)
	Start() time.Time
}

// Outcome of one step.
type Outcome string

const (
	OutcomeOK      Outcome = observability.OutcomeOK
	OutcomeFailed  Outcome = observability.OutcomeFailed
	OutcomeSkipped Outcome = observability.OutcomeSkipped
)

// StepResult records how one step went.
type StepResult struct {
	Step    string
	Outcome Outcome
	Err     error
}

// AccountResult records the steps run for one account, in order.
type AccountResult struct {
	Account  string
	LoggedIn bool
	Steps    []StepResult
}

// Failed reports whether any step for the account failed.
func (r AccountResult) Failed() bool {
	if !r.LoggedIn {
		return true
	}
	for _, s := range r.Steps {
		if s.Outcome == OutcomeFailed {
			return true
		}
	}
	return false
}

// Bot runs the interaction sequence. It is not safe for concurrent use.
type Bot struct {
	cfg     *config.Config
	ctl     *browser.Controller
	log     Logger
	rnd     types.Rand
	metrics *observability.Metrics
	timeout time.Duration
}

// Option configures a Bot.
type Option func(*Bot)

// WithRand sets the random source for sort and cart choices.
func WithRand(r types.Rand) Option {
	return func(b *Bot) { b.rnd = r }
}

// WithMetrics records step and account outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bot) { b.metrics = m }
}

// New creates a Bot. cfg is only read.
func New(cfg *config.Config, ctl *browser.Controller, log Logger, opts ...Option) *Bot {
	b := &Bot{
		cfg:     cfg,
		ctl:     ctl,
		log:     log,
		rnd:     ctl.Rand(),
		timeout: cfg.EffectiveTimeout(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run processes every account in order. A failure for one account never
// stops the next one; cancelling ctx does, before the next account starts.
func (b *Bot) Run(ctx context.Context) []AccountResult {
	if b.cfg.Browser.Proxy != "" {
		b.checkProxy(ctx)
	}

	var results []AccountResult
	for _, account := range b.cfg.Accounts.Usernames {
		if ctx.Err() != nil {
			b.log.Warning("run cancelled, skipping remaining accounts")
			break
		}
		res := b.runAccount(ctx, account)
		results = append(results, res)

		outcome := observability.OutcomeOK
		if res.Failed() {
			outcome = observability.OutcomeFailed
		}
		b.metrics.Account(outcome)
	}

	b.log.Time("total bot run time: ")
	return results
}

func (b *Bot) runAccount(ctx context.Context, account string) AccountResult {
	acc := &accountRun{name: account}
	res := AccountResult{Account: account}

	login := b.runStep(ctx, acc, b.loginStep())
	res.Steps = append(res.Steps, login)
	if login.Outcome != OutcomeOK {
		if b.cfg.Output.Screenshots {
			b.saveScreenshot(ctx, account, "login_error")
		}
		return res
	}
	res.LoggedIn = true

	b.log.Message("simulating user activity on the site")
	blocked := false
	for _, s := range b.postLoginSteps() {
		if blocked {
			res.Steps = append(res.Steps, b.skip(s))
			continue
		}
		r := b.runStep(ctx, acc, s)
		res.Steps = append(res.Steps, r)
		if r.Outcome != OutcomeOK && s.gating {
			blocked = true
		}
	}

	res.Steps = append(res.Steps, b.runStep(ctx, acc, b.logoutStep()))
	return res
}

func (b *Bot) checkProxy(ctx context.Context) {
	b.log.Info("checking proxy...")
	d := b.ctl.Driver()
	if err := d.Navigate(ctx, b.cfg.Site.ProxyCheckURL); err != nil {
		b.log.Error("proxy check failed: ", err)
		return
	}
	el, err := d.WaitFor(ctx, selProxyAddress, b.timeout)
	if err != nil {
		if types.IsTimeout(err) {
			b.log.Error("could not check the proxy! Timeout.", nil)
			return
		}
		b.log.Error("proxy check failed: ", err)
		return
	}
	text, err := el.Text()
	if err != nil {
		b.log.Error("proxy check failed: ", err)
		return
	}
	b.log.Info("your proxy: " + strings.TrimSpace(text))
}

// accountRun is the per-account state threaded through the steps.
type accountRun struct {
	name string
}
