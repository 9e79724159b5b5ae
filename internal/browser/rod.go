package browser

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/rod/lib/utils"
	"github.com/go-rod/stealth"
	"github.com/pkg/errors"
	"github.com/ysmood/gson"

	"github.com/IshaanNene/SauceBot/internal/types"
)

const centerJS = `() => {
	const rect = this.getBoundingClientRect();
	return {x: rect.left + rect.width / 2, y: rect.top + rect.height / 2};
}`

// RodDriver implements Driver on a single stealth page of a Chromium
// instance launched in incognito mode.
type RodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	timeout  time.Duration
	logger   *slog.Logger

	dialog atomic.Pointer[proto.PageJavascriptDialogOpening]
	closed atomic.Bool
}

// Launch starts Chromium and opens the page every interaction runs on.
func Launch(opts Options, logger *slog.Logger) (*RodDriver, error) {
	d := &RodDriver{
		timeout: opts.Timeout,
		logger:  logger.With("component", "rod_driver"),
	}
	if d.timeout <= 0 {
		d.timeout = 10 * time.Second
	}

	server, user, pass, err := proxyEndpoint(opts.Proxy)
	if err != nil {
		return nil, errors.Wrap(err, "parse proxy")
	}

	l := launcher.New().
		Headless(opts.Headless).
		Set("incognito").
		Set("disable-blink-features", "AutomationControlled")
	if opts.Headless {
		for _, f := range headlessFlags {
			l = l.Set(flags.Flag(f))
		}
	}
	if server != "" {
		l = l.Proxy(server)
	}
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	d.launcher = l

	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "launch browser")
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, errors.Wrap(err, "connect browser")
	}
	d.browser = b

	incognito, err := b.Incognito()
	if err != nil {
		_ = d.Close()
		return nil, errors.Wrap(err, "incognito context")
	}
	if user != "" {
		go d.answerProxyAuth(incognito, user, pass)
	}

	page, err := stealth.Page(incognito)
	if err != nil {
		_ = d.Close()
		return nil, errors.Wrap(err, "stealth page")
	}
	d.page = page

	if !opts.Headless {
		err := page.SetWindow(&proto.BrowserBounds{WindowState: proto.BrowserWindowStateMaximized})
		if err != nil {
			d.logger.Warn("failed to maximize window", "error", err)
		}
	}

	go page.EachEvent(
		func(e *proto.PageJavascriptDialogOpening) {
			d.dialog.Store(e)
			d.logger.Debug("dialog opened", "type", e.Type, "message", e.Message)
		},
		func(e *proto.PageJavascriptDialogClosed) {
			d.dialog.Store(nil)
		},
	)()

	d.logger.Info("browser ready",
		"headless", opts.Headless,
		"proxy", server != "",
		"timeout", d.timeout,
	)
	return d, nil
}

// answerProxyAuth keeps answering proxy credential challenges until the
// driver closes.
func (d *RodDriver) answerProxyAuth(b *rod.Browser, user, pass string) {
	for !d.closed.Load() {
		if err := b.HandleAuth(user, pass)(); err != nil {
			d.logger.Debug("proxy auth handler stopped", "error", err)
			return
		}
	}
}

func (d *RodDriver) Navigate(ctx context.Context, url string) error {
	p := d.page.Context(ctx).Timeout(d.timeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return d.wrap(err, "navigate to %s", url)
	}
	if err := p.WaitLoad(); err != nil {
		return d.wrap(err, "load %s", url)
	}
	return nil
}

func (d *RodDriver) Find(ctx context.Context, selector string) (Element, error) {
	els, err := d.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, errors.Wrapf(types.ErrElementNotFound, "%s", selector)
	}
	return els[0], nil
}

func (d *RodDriver) FindAll(ctx context.Context, selector string) ([]Element, error) {
	p := d.page.Context(ctx).Timeout(d.timeout)
	defer p.CancelTimeout()

	els, err := p.Elements(selector)
	if err != nil {
		return nil, d.wrap(err, "find %s", selector)
	}
	return d.elements(ctx, els), nil
}

func (d *RodDriver) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	p := d.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	el, err := p.Element(selector)
	if err != nil {
		return nil, d.wrap(err, "wait for %s", selector)
	}
	return d.element(ctx, el), nil
}

func (d *RodDriver) WaitClickable(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	p := d.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	el, err := p.Element(selector)
	if err != nil {
		return nil, d.wrap(err, "wait for %s", selector)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, d.wrap(err, "wait for %s to be visible", selector)
	}
	if err := el.WaitEnabled(); err != nil {
		return nil, d.wrap(err, "wait for %s to be enabled", selector)
	}
	return d.element(ctx, el), nil
}

// WaitUntil polls cond with backoff until it holds. A missing element counts
// as "not yet"; any other error from cond ends the wait.
func (d *RodDriver) WaitUntil(ctx context.Context, timeout time.Duration, cond func() (bool, error)) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := utils.Retry(tctx, utils.BackoffSleeper(50*time.Millisecond, 500*time.Millisecond, nil), func() (bool, error) {
		if text, open := d.pendingAlert(); open {
			return true, &types.AlertError{Text: text}
		}
		ok, err := cond()
		if err != nil {
			if errors.Is(err, types.ErrElementNotFound) {
				return false, nil
			}
			return true, err
		}
		return ok, nil
	})
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return d.wrap(err, "condition not met within %s", timeout)
	}
	return err
}

func (d *RodDriver) Eval(ctx context.Context, js string, args ...any) (gson.JSON, error) {
	p := d.page.Context(ctx).Timeout(d.timeout)
	defer p.CancelTimeout()

	res, err := p.Eval(js, args...)
	if err != nil {
		return gson.JSON{}, d.wrap(err, "eval")
	}
	return res.Value, nil
}

func (d *RodDriver) DispatchMouseMove(ctx context.Context, to Point) error {
	err := proto.InputDispatchMouseEvent{
		Type:   proto.InputDispatchMouseEventTypeMouseMoved,
		X:      to.X,
		Y:      to.Y,
		Button: proto.InputMouseButtonNone,
	}.Call(d.page.Context(ctx))
	if err != nil {
		return d.wrap(err, "dispatch mouse move")
	}
	return nil
}

func (d *RodDriver) PressKey(ctx context.Context, key input.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.page.Keyboard.Press(key); err != nil {
		return d.wrap(err, "press key")
	}
	return nil
}

func (d *RodDriver) AcceptAlert(ctx context.Context) (string, bool, error) {
	e := d.dialog.Swap(nil)
	if e == nil {
		return "", false, nil
	}
	err := proto.PageHandleJavaScriptDialog{Accept: true}.Call(d.page.Context(ctx))
	if err != nil {
		return e.Message, true, errors.Wrap(err, "accept dialog")
	}
	return e.Message, true, nil
}

func (d *RodDriver) Screenshot(ctx context.Context, path string) error {
	p := d.page.Context(ctx).Timeout(d.timeout)
	defer p.CancelTimeout()

	data, err := p.Screenshot(false, nil)
	if err != nil {
		return d.wrap(err, "capture screenshot")
	}
	if err := utils.OutputFile(path, data); err != nil {
		return errors.Wrapf(err, "write screenshot %s", path)
	}
	return nil
}

// Close quits the browser and removes its temporary profile.
func (d *RodDriver) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if d.browser != nil {
		err = d.browser.Close()
	}
	if d.launcher != nil {
		d.launcher.Kill()
		d.launcher.Cleanup()
	}
	d.logger.Info("browser closed")
	return err
}

func (d *RodDriver) pendingAlert() (string, bool) {
	e := d.dialog.Load()
	if e == nil {
		return "", false
	}
	return e.Message, true
}

// wrap attaches a stack trace and maps deadline errors to ErrTimeout, or to
// an AlertError when a dialog is what blocked the page.
func (d *RodDriver) wrap(err error, format string, args ...any) error {
	if d.closed.Load() {
		return errors.Wrapf(types.ErrDriverClosed, format, args...)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		if text, open := d.pendingAlert(); open {
			return &types.AlertError{Text: text}
		}
		return errors.Wrapf(types.ErrTimeout, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}

func (d *RodDriver) element(ctx context.Context, el *rod.Element) Element {
	return &rodElement{el: el.Context(ctx), ctx: ctx, timeout: d.timeout}
}

func (d *RodDriver) elements(ctx context.Context, els rod.Elements) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, d.element(ctx, el))
	}
	return out
}

// rodElement is bound to the run context; each call gets its own deadline.
type rodElement struct {
	el      *rod.Element
	ctx     context.Context
	timeout time.Duration
}

func (e *rodElement) bounded() *rod.Element {
	return e.el.Timeout(e.timeout)
}

func (e *rodElement) Text() (string, error) {
	el := e.bounded()
	defer el.CancelTimeout()

	text, err := el.Text()
	if err != nil {
		return "", wrapElementErr(err, "read text")
	}
	return text, nil
}

func (e *rodElement) Find(selector string) (Element, error) {
	els, err := e.FindAll(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, errors.Wrapf(types.ErrElementNotFound, "%s", selector)
	}
	return els[0], nil
}

func (e *rodElement) FindAll(selector string) ([]Element, error) {
	el := e.bounded()
	defer el.CancelTimeout()

	els, err := el.Elements(selector)
	if err != nil {
		return nil, wrapElementErr(err, "find "+selector)
	}
	out := make([]Element, 0, len(els))
	for _, child := range els {
		out = append(out, &rodElement{el: child.Context(e.ctx), ctx: e.ctx, timeout: e.timeout})
	}
	return out, nil
}

func (e *rodElement) Center() (Point, error) {
	el := e.bounded()
	defer el.CancelTimeout()

	res, err := el.Eval(centerJS)
	if err != nil {
		return Point{}, wrapElementErr(err, "measure element")
	}
	return Point{X: res.Value.Get("x").Num(), Y: res.Value.Get("y").Num()}, nil
}

func (e *rodElement) Click() error {
	el := e.bounded()
	defer el.CancelTimeout()

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return wrapElementErr(err, "click")
	}
	return nil
}

func (e *rodElement) Clear() error {
	el := e.bounded()
	defer el.CancelTimeout()

	if err := el.SelectAllText(); err != nil {
		return wrapElementErr(err, "select text")
	}
	if err := el.Type(input.Backspace); err != nil {
		return wrapElementErr(err, "clear text")
	}
	return nil
}

func (e *rodElement) Type(text string) error {
	el := e.bounded()
	defer el.CancelTimeout()

	if err := el.Input(text); err != nil {
		return wrapElementErr(err, "type text")
	}
	return nil
}

func (e *rodElement) Press(key input.Key) error {
	el := e.bounded()
	defer el.CancelTimeout()

	if err := el.Type(key); err != nil {
		return wrapElementErr(err, "press key")
	}
	return nil
}

func wrapElementErr(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(types.ErrTimeout, op)
	}
	return errors.Wrap(err, op)
}
