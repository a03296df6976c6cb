// Package browsertest provides an in-memory browser.Driver for unit tests.
//
// Pages are modeled as a map from selector to elements. Tests register the
// elements a helper will look for, route handlers that build a page on
// navigation, and click/script handlers that change state. Every call is
// recorded for later inspection.
package browsertest

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/kuitang/drupal-e2e/internal/browser"
	"github.com/kuitang/drupal-e2e/internal/errs"
)

// Element is a fake DOM node. The zero value is a visible, empty element.
type Element struct {
	Text    string
	Hidden  bool
	Attrs   map[string]string
	Value   string
	Checked bool
}

// Call is one recorded Driver invocation.
type Call struct {
	Method string
	Args   []string
}

// Handler mutates the fake page, e.g. to render the result of a navigation
// or click.
type Handler func(p *Page)

// Page is the view of the fake browser given to handlers. Handlers run while
// the driver is locked, so they must use Page rather than Driver methods.
type Page struct {
	d *Driver
}

// Set replaces the elements matching selector.
func (p *Page) Set(selector string, els ...Element) {
	p.d.setLocked(selector, els...)
}

// Remove deletes the elements registered under selector.
func (p *Page) Remove(selector string) {
	delete(p.d.dom, selector)
}

// Element returns the first element matching selector, or nil.
func (p *Page) Element(selector string) *Element {
	els := p.d.lookup(selector)
	if len(els) == 0 {
		return nil
	}
	return els[0]
}

// Count returns the number of elements matching selector.
func (p *Page) Count(selector string) int {
	return len(p.d.lookup(selector))
}

// SetCookie sets a browser cookie.
func (p *Page) SetCookie(name, value string) {
	p.d.cookies[name] = value
}

// DeleteCookie removes a browser cookie.
func (p *Page) DeleteCookie(name string) {
	delete(p.d.cookies, name)
}

// Cookie returns a browser cookie.
func (p *Page) Cookie(name string) (string, bool) {
	v, ok := p.d.cookies[name]
	return v, ok
}

// URL returns the current URL.
func (p *Page) URL() string {
	return p.d.url
}

// Navigate changes the current URL without running route handlers, as a
// redirect would. Navigation hooks still run.
func (p *Page) Navigate(url string) {
	p.d.url = url
	p.d.runNavigateHooks()
}

// ScriptHandler answers ExecuteJS for one script.
type ScriptHandler func(args []any) (any, error)

// Driver is a scriptable browser.Driver.
type Driver struct {
	mu        sync.Mutex
	baseURL   string
	url       string
	dom       map[string][]*Element
	routes    map[string]Handler
	clicks    map[string]Handler
	onNav     []Handler
	scripts   map[string]ScriptHandler
	cookies   map[string]string
	snapshots map[string]map[string]string
	calls     []Call
}

var _ browser.Driver = (*Driver)(nil)

// New returns a fake browser on about:blank with an empty body.
func New(baseURL string) *Driver {
	return &Driver{
		baseURL:   baseURL,
		url:       "about:blank",
		dom:       map[string][]*Element{"body": {{}}},
		routes:    map[string]Handler{},
		clicks:    map[string]Handler{},
		scripts:   map[string]ScriptHandler{},
		cookies:   map[string]string{},
		snapshots: map[string]map[string]string{},
	}
}

// Set replaces the elements matching selector.
func (d *Driver) Set(selector string, els ...Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setLocked(selector, els...)
}

func (d *Driver) setLocked(selector string, els ...Element) {
	list := make([]*Element, len(els))
	for i := range els {
		el := els[i]
		list[i] = &el
	}
	d.dom[selector] = list
}

// Remove deletes every element registered under selector.
func (d *Driver) Remove(selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.dom, selector)
}

// Element returns the first element registered under selector, or nil.
func (d *Driver) Element(selector string) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	els := d.lookup(selector)
	if len(els) == 0 {
		return nil
	}
	return els[0]
}

// Route registers h to build the page at path (relative to the base URL)
// after navigation.
func (d *Driver) Route(path string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes["/"+strings.TrimLeft(path, "/")] = h
}

// OnClick registers h to run after selector is clicked.
func (d *Driver) OnClick(selector string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicks[selector] = h
}

// OnNavigate registers h to run after every navigation, once the route
// handler has built the page.
func (d *Driver) OnNavigate(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onNav = append(d.onNav, h)
}

// OnScript registers the answer for ExecuteJS(script).
func (d *Driver) OnScript(script string, h ScriptHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts[script] = h
}

// SetCookie sets a cookie in the fake browser.
func (d *Driver) SetCookie(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cookies[name] = value
}

// Cookies returns a copy of the current cookies.
func (d *Driver) Cookies() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.cookies)
}

// HasSnapshot reports whether a snapshot named name is stored.
func (d *Driver) HasSnapshot(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.snapshots[name]
	return ok
}

// Calls returns the recorded calls in order.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// CallsTo returns the recorded calls of one method.
func (d *Driver) CallsTo(method string) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Call
	for _, c := range d.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets recorded calls.
func (d *Driver) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

func (d *Driver) record(method string, args ...string) {
	d.calls = append(d.calls, Call{Method: method, Args: args})
}

var (
	nthChildRe = regexp.MustCompile(`^(.*):nth-child\((\d+)\)$`)
	attrRe     = regexp.MustCompile(`^(.*)\[([A-Za-z_:][-A-Za-z0-9_:.]*)\]$`)
)

// lookup resolves selector: exact registrations first, then a trailing
// :nth-child(n) or [attr] applied to the registered base selector.
func (d *Driver) lookup(selector string) []*Element {
	if els, ok := d.dom[selector]; ok {
		return els
	}
	if m := nthChildRe.FindStringSubmatch(selector); m != nil {
		n, _ := strconv.Atoi(m[2])
		base := d.lookup(m[1])
		if n >= 1 && n <= len(base) {
			return base[n-1 : n]
		}
		return nil
	}
	if m := attrRe.FindStringSubmatch(selector); m != nil {
		var out []*Element
		for _, el := range d.lookup(m[1]) {
			if _, ok := el.Attrs[m[2]]; ok {
				out = append(out, el)
			}
		}
		return out
	}
	return nil
}

func (d *Driver) first(selector string) (*Element, error) {
	els := d.lookup(selector)
	if len(els) == 0 {
		return nil, errs.New(errs.NotFound, fmt.Sprintf("element %s not found", selector))
	}
	return els[0], nil
}

func (d *Driver) AmOnPage(ctx context.Context, path string) error {
	return d.AmOnURL(ctx, browser.JoinURL(d.baseURL, path))
}

// AmOnURL resets the page to an empty body and runs the route handler whose
// path matches url, if any.
func (d *Driver) AmOnURL(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("AmOnURL", url)
	d.url = url
	d.dom = map[string][]*Element{"body": {{}}}

	path := url
	if base := strings.TrimRight(d.baseURL, "/"); base != "" && strings.HasPrefix(url, base) {
		path = "/" + strings.TrimLeft(strings.TrimPrefix(url, base), "/")
	}
	if h, ok := d.routes[path]; ok {
		h(&Page{d: d})
	}
	d.runNavigateHooks()
	return nil
}

func (d *Driver) runNavigateHooks() {
	for _, h := range d.onNav {
		h(&Page{d: d})
	}
}

func (d *Driver) CurrentURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

func (d *Driver) See(ctx context.Context, text, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("See", text, selector)
	for _, el := range d.lookup(selector) {
		if !el.Hidden && strings.Contains(el.Text, text) {
			return nil
		}
	}
	return errs.Assertf("did not see %q in %s", text, selector)
}

func (d *Driver) SeeElement(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SeeElement", selector)
	for _, el := range d.lookup(selector) {
		if !el.Hidden {
			return nil
		}
	}
	return errs.Assertf("element %s is not visible", selector)
}

func (d *Driver) DontSeeElement(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DontSeeElement", selector)
	for _, el := range d.lookup(selector) {
		if !el.Hidden {
			return errs.Assertf("element %s is visible: %q", selector, el.Text)
		}
	}
	return nil
}

func (d *Driver) SeeElementInDOM(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SeeElementInDOM", selector)
	if len(d.lookup(selector)) == 0 {
		return errs.Assertf("element %s is not in the DOM", selector)
	}
	return nil
}

func (d *Driver) DontSeeElementInDOM(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DontSeeElementInDOM", selector)
	if n := len(d.lookup(selector)); n > 0 {
		return errs.Assertf("element %s is in the DOM (%d match(es))", selector, n)
	}
	return nil
}

func (d *Driver) GrabAttributeFrom(ctx context.Context, selector, attr string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("GrabAttributeFrom", selector, attr)
	el, err := d.first(selector)
	if err != nil {
		return "", false, err
	}
	v, ok := el.Attrs[attr]
	return v, ok, nil
}

func (d *Driver) GrabTextFrom(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("GrabTextFrom", selector)
	el, err := d.first(selector)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (d *Driver) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Count", selector)
	return len(d.lookup(selector)), nil
}

// Click runs the selector's click handler, if any.
func (d *Driver) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Click", selector)
	if _, err := d.first(selector); err != nil {
		return err
	}
	if h, ok := d.clicks[selector]; ok {
		h(&Page{d: d})
	}
	return nil
}

func (d *Driver) FillField(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("FillField", selector, value)
	el, err := d.first(selector)
	if err != nil {
		return err
	}
	el.Value = value
	return nil
}

func (d *Driver) SelectOption(ctx context.Context, selector, option string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SelectOption", selector, option)
	el, err := d.first(selector)
	if err != nil {
		return err
	}
	el.Value = option
	return nil
}

func (d *Driver) CheckOption(ctx context.Context, selector string) error {
	return d.setChecked(ctx, "CheckOption", selector, true)
}

func (d *Driver) UncheckOption(ctx context.Context, selector string) error {
	return d.setChecked(ctx, "UncheckOption", selector, false)
}

func (d *Driver) setChecked(ctx context.Context, method, selector string, checked bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(method, selector)
	el, err := d.first(selector)
	if err != nil {
		return err
	}
	el.Checked = checked
	return nil
}

// ExecuteJS answers from the handler registered for script; unknown scripts
// return nil.
func (d *Driver) ExecuteJS(ctx context.Context, script string, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	h, ok := d.scripts[script]
	strArgs := make([]string, 0, len(args)+1)
	strArgs = append(strArgs, script)
	for _, a := range args {
		strArgs = append(strArgs, fmt.Sprint(a))
	}
	d.record("ExecuteJS", strArgs...)
	d.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return h(args)
}

func (d *Driver) ScrollTo(ctx context.Context, selector string, offsetX, offsetY int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ScrollTo", selector, strconv.Itoa(offsetX), strconv.Itoa(offsetY))
	_, err := d.first(selector)
	return err
}

func (d *Driver) SaveSessionSnapshot(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SaveSessionSnapshot", name)
	d.snapshots[name] = maps.Clone(d.cookies)
	return nil
}

func (d *Driver) LoadSessionSnapshot(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("LoadSessionSnapshot", name)
	snap, ok := d.snapshots[name]
	if !ok {
		return false, nil
	}
	d.cookies = maps.Clone(snap)
	if d.cookies == nil {
		d.cookies = map[string]string{}
	}
	return true, nil
}

func (d *Driver) DeleteSessionSnapshot(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteSessionSnapshot", name)
	delete(d.snapshots, name)
}

func (d *Driver) DeleteAllCookies(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteAllCookies")
	d.cookies = map[string]string{}
	return nil
}
