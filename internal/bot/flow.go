package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/input"
	"github.com/pkg/errors"

	"github.com/IshaanNene/SauceBot/internal/browser"
	"github.com/IshaanNene/SauceBot/internal/types"
)

// Shipping details typed into the order form.
const (
	orderFirstName  = "Adam"
	orderLastName   = "Tom"
	orderPostalCode = "123456"
)

func (b *Bot) login(ctx context.Context, acc *accountRun) error {
	d := b.ctl.Driver()

	b.log.Info("opening site...")
	if err := d.Navigate(ctx, b.cfg.Site.BaseURL); err != nil {
		return err
	}

	b.log.Info("logging in user: " + acc.name)
	user, err := d.WaitFor(ctx, selUsername, b.timeout)
	if err != nil {
		return err
	}
	pass, err := d.WaitFor(ctx, selPassword, b.timeout)
	if err != nil {
		return err
	}
	submit, err := d.WaitFor(ctx, selLoginButton, b.timeout)
	if err != nil {
		return err
	}

	b.ctl.InputText(ctx, user, acc.name)
	b.ctl.InputText(ctx, pass, b.cfg.Accounts.Password)
	if err := b.ctl.ClickLikeHuman(ctx, submit); err != nil {
		return err
	}
	b.log.Info("login form submitted")

	if err := b.checkBanner(ctx, "login failed"); err != nil {
		return err
	}
	if _, err := d.WaitFor(ctx, selInventory, b.timeout); err != nil {
		return err
	}
	b.log.Info("logged in successfully")
	return nil
}

// checkBanner turns the site's inline error banner, if shown, into a
// ValidationError.
func (b *Bot) checkBanner(ctx context.Context, what string) error {
	banners, err := b.ctl.Driver().FindAll(ctx, selErrorBanner)
	if err != nil {
		return err
	}
	if len(banners) == 0 {
		return nil
	}
	text, err := banners[0].Text()
	if err != nil {
		return err
	}
	return &types.ValidationError{Context: what, Message: strings.TrimSpace(text)}
}

func (b *Bot) applySort(ctx context.Context, acc *accountRun) error {
	d := b.ctl.Driver()

	if err := b.ctl.ScrollPage(ctx, browser.ScrollUp, browser.ScrollMouse); err != nil {
		return err
	}
	b.log.Info("applying sort:")

	sel, err := d.WaitFor(ctx, selSortSelect, b.timeout/2)
	if err != nil {
		return err
	}
	if err := b.ctl.ClickLikeHuman(ctx, sel); err != nil {
		return err
	}
	b.log.Info("opening the list")
	if err := b.ctl.WaitRandomDelay(ctx, 200*time.Millisecond, 500*time.Millisecond); err != nil {
		return err
	}

	current, err := activeSort(ctx, d)
	if err != nil {
		return err
	}
	options, err := sel.FindAll(selOption)
	if err != nil {
		return err
	}
	labels := make([]string, 0, len(options))
	for _, o := range options {
		text, err := o.Text()
		if err != nil {
			return err
		}
		labels = append(labels, strings.TrimSpace(text))
	}

	target, ok := pickSortTarget(b.rnd, labels, current)
	if !ok {
		return errors.Errorf("no sort option besides %q", current)
	}
	b.log.Info("choosing sort " + target)

	selected, err := checkedOption(sel)
	if err != nil {
		return err
	}
	for presses := 0; selected != target && presses < len(labels); presses++ {
		if err := sel.Press(input.ArrowDown); err != nil {
			return err
		}
		if selected, err = checkedOption(sel); err != nil {
			return err
		}
	}
	if err := sel.Press(input.Enter); err != nil {
		return err
	}

	err = d.WaitUntil(ctx, b.timeout, func() (bool, error) {
		now, err := activeSort(ctx, d)
		return now != current, err
	})
	if err != nil {
		return err
	}
	b.log.Info("sort applied: «" + target + "»")
	return nil
}

func activeSort(ctx context.Context, d browser.Driver) (string, error) {
	el, err := d.Find(ctx, selActiveSort)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	return strings.TrimSpace(text), err
}

func checkedOption(sel browser.Element) (string, error) {
	el, err := sel.Find(selCheckedOption)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	return strings.TrimSpace(text), err
}

func (b *Bot) resetState(ctx context.Context, acc *accountRun) error {
	d := b.ctl.Driver()

	b.log.Info("opening menu")
	if err := b.clickNow(ctx, selMenuButton); err != nil {
		return err
	}

	b.log.Info("clicking Reset App State")
	reset, err := d.WaitClickable(ctx, selResetLink, b.timeout)
	if err != nil {
		return err
	}
	return b.clickAndPause(ctx, reset)
}

func (b *Bot) peekCart(ctx context.Context, acc *accountRun) error {
	d := b.ctl.Driver()

	b.log.Info("checking the cart")
	if err := b.clickNow(ctx, selCartLink); err != nil {
		return err
	}
	if err := b.ctl.ScrollPage(ctx, browser.ScrollDown, browser.ScrollMouse); err != nil {
		return err
	}

	badges, err := d.FindAll(ctx, selCartBadge)
	if err != nil {
		return err
	}
	if len(badges) > 0 {
		count, _ := badges[0].Text()
		b.log.Info(fmt.Sprintf("the cart holds %s items", strings.TrimSpace(count)))
	} else {
		b.log.Info("the cart is empty")
	}

	b.log.Info("leaving the cart")
	return b.clickNow(ctx, selContinueShopping)
}

func (b *Bot) addAllProducts(ctx context.Context, acc *accountRun) error {
	products, err := b.ctl.Driver().FindAll(ctx, selProduct)
	if err != nil {
		return err
	}
	for i, p := range products {
		if err := ctx.Err(); err != nil {
			return err
		}
		name, err := b.addProduct(ctx, p)
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		switch {
		case err == nil:
		case types.IsTimeout(err):
			b.log.Error("could not add product "+name+"!", nil)
		default:
			b.log.Error("error while adding product "+name+": ", err)
		}
	}
	return nil
}

// addProduct clicks the product's button when it still offers "add to cart"
// and waits for it to flip to "remove".
func (b *Bot) addProduct(ctx context.Context, product browser.Element) (string, error) {
	nameEl, err := product.Find(selProductName)
	if err != nil {
		return "", err
	}
	name, err := nameEl.Text()
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)

	label, err := buttonLabel(product)
	if err != nil || label != "add to cart" {
		return name, err
	}

	b.log.Info("choosing product: " + name)
	btn, err := product.Find(selProductButton)
	if err != nil {
		return name, err
	}
	if err := b.ctl.ClickLikeHuman(ctx, btn); err != nil {
		return name, err
	}
	return name, b.ctl.Driver().WaitUntil(ctx, b.timeout/2, func() (bool, error) {
		label, err := buttonLabel(product)
		return label == "remove", err
	})
}

func buttonLabel(product browser.Element) (string, error) {
	btn, err := product.Find(selProductButton)
	if err != nil {
		return "", err
	}
	text, err := btn.Text()
	return strings.ToLower(strings.TrimSpace(text)), err
}

func (b *Bot) checkout(ctx context.Context, acc *accountRun) error {
	d := b.ctl.Driver()

	b.log.Info("checking the cart")
	cart, err := d.Find(ctx, selCartLink)
	if err != nil {
		return err
	}
	count, err := badgeCount(cart)
	if err != nil {
		return err
	}
	if err := b.clickAndPause(ctx, cart); err != nil {
		return err
	}

	if count > 1 {
		items, err := d.FindAll(ctx, selCartItem)
		if err != nil {
			return err
		}
		for _, i := range pickRemovals(b.rnd, count, len(items)) {
			if err := b.removeCartItem(ctx, items[i]); err != nil {
				return err
			}
		}
	}

	if err := b.ctl.ScrollPage(ctx, browser.ScrollDown, browser.ScrollMouse); err != nil {
		return err
	}

	b.log.Info("clicking Checkout")
	return b.clickNow(ctx, selCheckout)
}

// badgeCount reads the cart badge inside the cart link; no badge means 0.
func badgeCount(cart browser.Element) (int, error) {
	badge, err := cart.Find(selCartLinkBadge)
	if errors.Is(err, types.ErrElementNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	text, err := badge.Text()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, errors.Wrapf(err, "parse cart badge %q", text)
	}
	return n, nil
}

func (b *Bot) removeCartItem(ctx context.Context, item browser.Element) error {
	nameEl, err := item.Find(selProductName)
	if err != nil {
		return err
	}
	name, err := nameEl.Text()
	if err != nil {
		return err
	}
	btn, err := item.Find(selCartButton)
	if err != nil {
		return err
	}
	b.log.Info("removing unwanted item: " + strings.TrimSpace(name))
	return b.clickAndPause(ctx, btn)
}

func (b *Bot) fillOrderForm(ctx context.Context, acc *accountRun) error {
	d := b.ctl.Driver()

	fields := make([]browser.Element, 0, 4)
	for _, sel := range []string{selFirstName, selLastName, selPostalCode, selContinue} {
		el, err := d.WaitFor(ctx, sel, b.timeout)
		if err != nil {
			return err
		}
		fields = append(fields, el)
	}

	b.log.Info(fmt.Sprintf("filling the order with First Name = %s, Last Name = %s, Postal Code = %s.",
		orderFirstName, orderLastName, orderPostalCode))
	b.ctl.InputText(ctx, fields[0], orderFirstName)
	b.ctl.InputText(ctx, fields[1], orderLastName)
	b.ctl.InputText(ctx, fields[2], orderPostalCode)

	if err := b.ctl.Pause(ctx); err != nil {
		return err
	}
	if err := b.ctl.ClickLikeHuman(ctx, fields[3]); err != nil {
		return err
	}
	b.log.Info("checkout form submitted")

	return b.checkBanner(ctx, "order form error")
}

func (b *Bot) completeStepTwo(ctx context.Context, acc *accountRun) error {
	d := b.ctl.Driver()

	summary, err := d.WaitFor(ctx, selSummary, b.timeout)
	if err != nil {
		return err
	}
	items, err := summary.FindAll(selCartItem)
	if err != nil {
		return err
	}
	b.log.Info(fmt.Sprintf("items in the order: %d", len(items)))

	if err := b.ctl.ScrollPage(ctx, browser.ScrollDown, browser.ScrollMouse); err != nil {
		return err
	}

	b.log.Info("clicking Finish")
	if err := b.clickNow(ctx, selFinish); err != nil {
		return err
	}
	_, err = d.WaitFor(ctx, selBackHome, b.timeout)
	return err
}

func (b *Bot) confirmOrder(ctx context.Context, acc *accountRun) error {
	back, err := b.ctl.Driver().Find(ctx, selBackHome)
	if err != nil {
		return err
	}
	if b.cfg.Output.Screenshots {
		b.saveScreenshot(ctx, acc.name, "finish")
	}

	if err := b.ctl.ScrollPage(ctx, browser.ScrollDown, browser.ScrollMouse); err != nil {
		return err
	}

	b.log.Info("returning to products.")
	return b.clickAndPause(ctx, back)
}

func (b *Bot) logout(ctx context.Context, acc *accountRun) error {
	d := b.ctl.Driver()

	b.log.Info("logging out.")
	if err := b.clickNow(ctx, selMenuButton); err != nil {
		return err
	}
	link, err := d.WaitClickable(ctx, selLogoutLink, b.timeout/2)
	if err != nil {
		return err
	}
	return b.clickAndPause(ctx, link)
}

// clickNow finds selector without waiting, clicks it and pauses.
func (b *Bot) clickNow(ctx context.Context, selector string) error {
	el, err := b.ctl.Driver().Find(ctx, selector)
	if err != nil {
		return err
	}
	return b.clickAndPause(ctx, el)
}

func (b *Bot) clickAndPause(ctx context.Context, el browser.Element) error {
	if err := b.ctl.ClickLikeHuman(ctx, el); err != nil {
		return err
	}
	return b.ctl.Pause(ctx)
}
