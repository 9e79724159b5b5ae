package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/input"
	"github.com/ysmood/gson"

	"github.com/IshaanNene/SauceBot/internal/browser"
	"github.com/IshaanNene/SauceBot/internal/types"
)

type shopPage int

const (
	pageBlank shopPage = iota
	pageLogin
	pageInventory
	pageCart
	pageCheckoutOne
	pageCheckoutTwo
	pageComplete
	pageProxy
)

var sortLabels = []string{
	"Name (A to Z)",
	"Name (Z to A)",
	"Price (low to high)",
	"Price (high to low)",
}

var productNames = []string{
	"Sauce Labs Backpack",
	"Sauce Labs Bike Light",
	"Sauce Labs Bolt T-Shirt",
	"Sauce Labs Fleece Jacket",
	"Sauce Labs Onesie",
	"Test.allTheThings() T-Shirt (Red)",
}

const sortAlertText = "Sorting is broken! This error has been reported to Backtrace."

// fakeShop is an in-memory browser.Driver that behaves like the demo shop,
// including the quirks of error_user and locked_out_user.
type fakeShop struct {
	page     shopPage
	fields   map[string]string
	user     string
	banner   string
	menuOpen bool
	cart     []int
	alert    string
	proxyIP  string

	sortApplied     int
	sortHighlighted int

	// failure injection
	stuckFinish  bool
	panicOn      string
	brokenButton string

	clicks       []string
	navigations  []string
	screenshots  []string
	arrowPresses int
	closed       bool
}

func newFakeShop() *fakeShop {
	return &fakeShop{fields: map[string]string{}, proxyIP: "203.0.113.9"}
}

func (s *fakeShop) loggedIn() bool {
	switch s.page {
	case pageInventory, pageCart, pageCheckoutOne, pageCheckoutTwo, pageComplete:
		return true
	}
	return false
}

func (s *fakeShop) count(sel string) int {
	n := 0
	for _, c := range s.clicks {
		if c == sel {
			n++
		}
	}
	return n
}

func (s *fakeShop) el(kind string, idx int) browser.Element {
	return &shopElement{shop: s, kind: kind, idx: idx}
}

func (s *fakeShop) query(sel string) []browser.Element {
	var out []browser.Element
	one := func(ok bool) []browser.Element {
		if ok {
			return []browser.Element{s.el(sel, 0)}
		}
		return nil
	}

	switch sel {
	case selUsername, selPassword, selLoginButton:
		return one(s.page == pageLogin)
	case selErrorBanner:
		return one((s.page == pageLogin || s.page == pageCheckoutOne) && s.banner != "")
	case selMenuButton, selCartLink:
		return one(s.loggedIn())
	case selCartBadge:
		return one(s.loggedIn() && len(s.cart) > 0)
	case selResetLink, selLogoutLink:
		return one(s.loggedIn() && s.menuOpen)
	case selInventory, selSortSelect, selActiveSort:
		return one(s.page == pageInventory)
	case selProduct:
		if s.page == pageInventory {
			for i := range productNames {
				out = append(out, s.el(selProduct, i))
			}
		}
		return out
	case selContinueShopping, selCheckout:
		return one(s.page == pageCart)
	case selCartItem:
		if s.page == pageCart {
			for _, i := range s.cart {
				out = append(out, s.el(selCartItem, i))
			}
		}
		return out
	case selFirstName, selLastName, selPostalCode, selContinue:
		return one(s.page == pageCheckoutOne)
	case selSummary, selFinish:
		return one(s.page == pageCheckoutTwo)
	case selBackHome:
		return one(s.page == pageComplete)
	case selProxyAddress:
		return one(s.page == pageProxy)
	}
	return nil
}

func (s *fakeShop) Navigate(_ context.Context, url string) error {
	s.navigations = append(s.navigations, url)
	if strings.Contains(url, "proxyspace") {
		s.page = pageProxy
		return nil
	}
	s.page = pageLogin
	s.banner = ""
	s.menuOpen = false
	s.fields = map[string]string{}
	return nil
}

func (s *fakeShop) Find(_ context.Context, sel string) (browser.Element, error) {
	if sel == s.panicOn {
		panic("boom")
	}
	els := s.query(sel)
	if len(els) == 0 {
		return nil, fmt.Errorf("find %s: %w", sel, types.ErrElementNotFound)
	}
	return els[0], nil
}

func (s *fakeShop) FindAll(_ context.Context, sel string) ([]browser.Element, error) {
	return s.query(sel), nil
}

func (s *fakeShop) WaitFor(_ context.Context, sel string, _ time.Duration) (browser.Element, error) {
	if s.alert != "" {
		return nil, &types.AlertError{Text: s.alert}
	}
	els := s.query(sel)
	if len(els) == 0 {
		return nil, fmt.Errorf("wait for %s: %w", sel, types.ErrTimeout)
	}
	return els[0], nil
}

func (s *fakeShop) WaitClickable(ctx context.Context, sel string, timeout time.Duration) (browser.Element, error) {
	return s.WaitFor(ctx, sel, timeout)
}

func (s *fakeShop) WaitUntil(_ context.Context, _ time.Duration, cond func() (bool, error)) error {
	for i := 0; i < 3; i++ {
		if s.alert != "" {
			return &types.AlertError{Text: s.alert}
		}
		ok, err := cond()
		if err != nil && !errors.Is(err, types.ErrElementNotFound) {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("wait until: %w", types.ErrTimeout)
}

func (s *fakeShop) Eval(_ context.Context, js string, _ ...any) (gson.JSON, error) {
	if strings.Contains(js, "scrollY") {
		return gson.New(0), nil
	}
	return gson.New(nil), nil
}

func (s *fakeShop) DispatchMouseMove(context.Context, browser.Point) error { return nil }
func (s *fakeShop) PressKey(context.Context, input.Key) error              { return nil }

func (s *fakeShop) AcceptAlert(context.Context) (string, bool, error) {
	if s.alert == "" {
		return "", false, nil
	}
	text := s.alert
	s.alert = ""
	return text, true, nil
}

func (s *fakeShop) Screenshot(_ context.Context, path string) error {
	s.screenshots = append(s.screenshots, path)
	return nil
}

func (s *fakeShop) Close() error {
	s.closed = true
	return nil
}

func (s *fakeShop) submitLogin() {
	user, pass := s.fields[selUsername], s.fields[selPassword]
	switch {
	case user == "locked_out_user":
		s.banner = "Epic sadface: Sorry, this user has been locked out."
	case pass != "secret_sauce" || !slices.Contains(knownUsers, user):
		s.banner = "Epic sadface: Username and password do not match any user in this service"
	default:
		s.page = pageInventory
		s.user = user
		s.sortHighlighted = s.sortApplied
	}
}

var knownUsers = []string{
	"standard_user", "problem_user", "performance_glitch_user", "error_user", "visual_user",
}

func (s *fakeShop) submitOrder() {
	switch {
	case s.fields[selFirstName] == "":
		s.banner = "Error: First Name is required"
	case s.fields[selLastName] == "":
		s.banner = "Error: Last Name is required"
	case s.fields[selPostalCode] == "":
		s.banner = "Error: Postal Code is required"
	default:
		s.banner = ""
		s.page = pageCheckoutTwo
	}
}

func (s *fakeShop) inCart(idx int) bool { return slices.Contains(s.cart, idx) }

func (s *fakeShop) removeFromCart(idx int) {
	s.cart = slices.DeleteFunc(s.cart, func(i int) bool { return i == idx })
}

type shopElement struct {
	shop *fakeShop
	kind string
	idx  int
}

const (
	kindProductButton = "product-button"
	kindItemName      = "item-name"
	kindCartButton    = "cart-button"
)

func (e *shopElement) Text() (string, error) {
	s := e.shop
	switch e.kind {
	case selActiveSort:
		return sortLabels[s.sortApplied], nil
	case selOption:
		return sortLabels[e.idx], nil
	case selCheckedOption:
		return sortLabels[s.sortHighlighted], nil
	case kindProductButton:
		if productNames[e.idx] == s.brokenButton {
			return "", errors.New("node detached")
		}
		if s.inCart(e.idx) {
			return "Remove", nil
		}
		return "Add to cart", nil
	case kindItemName:
		return productNames[e.idx], nil
	case selCartBadge, selCartLinkBadge:
		return strconv.Itoa(len(s.cart)), nil
	case selErrorBanner:
		return s.banner, nil
	case selProxyAddress:
		return "  " + s.proxyIP + "\n", nil
	}
	return "", nil
}

func (e *shopElement) Find(sel string) (browser.Element, error) {
	els, _ := e.FindAll(sel)
	if len(els) == 0 {
		return nil, fmt.Errorf("find %s in %s: %w", sel, e.kind, types.ErrElementNotFound)
	}
	return els[0], nil
}

func (e *shopElement) FindAll(sel string) ([]browser.Element, error) {
	s := e.shop
	switch {
	case e.kind == selSortSelect && sel == selOption:
		out := make([]browser.Element, len(sortLabels))
		for i := range sortLabels {
			out[i] = s.el(selOption, i)
		}
		return out, nil
	case e.kind == selSortSelect && sel == selCheckedOption:
		return []browser.Element{s.el(selCheckedOption, 0)}, nil
	case e.kind == selProduct && sel == selProductButton:
		return []browser.Element{s.el(kindProductButton, e.idx)}, nil
	case (e.kind == selProduct || e.kind == selCartItem) && sel == selProductName:
		return []browser.Element{s.el(kindItemName, e.idx)}, nil
	case e.kind == selCartItem && sel == selCartButton:
		return []browser.Element{s.el(kindCartButton, e.idx)}, nil
	case e.kind == selCartLink && sel == selCartLinkBadge && len(s.cart) > 0:
		return []browser.Element{s.el(selCartLinkBadge, 0)}, nil
	case e.kind == selSummary && sel == selCartItem:
		var out []browser.Element
		for _, i := range s.cart {
			out = append(out, s.el(selCartItem, i))
		}
		return out, nil
	}
	return nil, nil
}

func (e *shopElement) Center() (browser.Point, error) {
	return browser.Point{X: 10, Y: 10}, nil
}

func (e *shopElement) Click() error {
	s := e.shop
	s.clicks = append(s.clicks, e.kind)

	switch e.kind {
	case selLoginButton:
		s.submitLogin()
	case selMenuButton:
		s.menuOpen = true
	case selResetLink:
		s.cart = nil
		s.menuOpen = false
	case selLogoutLink:
		s.page = pageLogin
		s.menuOpen = false
		s.user = ""
	case selCartLink:
		s.page = pageCart
		s.menuOpen = false
	case selContinueShopping, selBackHome:
		s.page = pageInventory
	case kindProductButton:
		if productNames[e.idx] == s.brokenButton {
			return errors.New("node detached")
		}
		if s.inCart(e.idx) {
			s.removeFromCart(e.idx)
		} else {
			s.cart = append(s.cart, e.idx)
		}
	case kindCartButton:
		s.removeFromCart(e.idx)
	case selCheckout:
		s.page = pageCheckoutOne
		s.fields = map[string]string{}
		s.banner = ""
	case selContinue:
		s.submitOrder()
	case selFinish:
		if !s.stuckFinish {
			s.page = pageComplete
			s.cart = nil
		}
	}
	return nil
}

func (e *shopElement) Clear() error {
	e.shop.fields[e.kind] = ""
	return nil
}

func (e *shopElement) Type(text string) error {
	s := e.shop
	if s.user == "error_user" && e.kind == selLastName {
		return nil
	}
	s.fields[e.kind] += text
	return nil
}

func (e *shopElement) Press(key input.Key) error {
	s := e.shop
	if e.kind != selSortSelect {
		return nil
	}
	switch key {
	case input.ArrowDown:
		s.arrowPresses++
		if s.sortHighlighted < len(sortLabels)-1 {
			s.sortHighlighted++
		}
	case input.Enter:
		if s.user == "error_user" {
			s.alert = sortAlertText
			return nil
		}
		s.sortApplied = s.sortHighlighted
	}
	return nil
}
