// Package drupaltest fakes the parts of a Drupal site the helpers touch: the
// login form, node/term/product forms and the cart, backed by the in-memory
// Drupal database and a fake browser.
package drupaltest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/kuitang/drupal-e2e/internal/acceptance"
	"github.com/kuitang/drupal-e2e/internal/browser/browsertest"
	"github.com/kuitang/drupal-e2e/internal/db"
	"github.com/kuitang/drupal-e2e/internal/drush"
	"github.com/kuitang/drupal-e2e/internal/testdb"
)

// BaseURL is the fake site's address.
const BaseURL = "http://drupal.test"

// SessionCookie is the cookie the fake login sets.
const SessionCookie = "SESSdrupaltest"

// SettingsSelector holds the uid rendered into the current page, the fake's
// stand-in for drupalSettings.
const SettingsSelector = `script[data-drupal-selector="drupal-settings-json"]`

// Account is a fake user account.
type Account struct {
	UID      int64
	Password string
}

// DrushCall is one recorded drush invocation.
type DrushCall struct {
	Name string
	Args []string
}

// Drush records drush invocations instead of running them.
type Drush struct {
	mu    sync.Mutex
	calls []DrushCall
	// Err, when set, is returned by every invocation.
	Err error
}

// Run implements drush.Executor.
func (d *Drush) Run(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, DrushCall{Name: name, Args: append([]string(nil), args...)})
	return nil, d.Err
}

// Calls returns the recorded invocations.
func (d *Drush) Calls() []DrushCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DrushCall(nil), d.calls...)
}

// Site is a fake Drupal site.
type Site struct {
	Browser  *browsertest.Driver
	DB       *db.Client
	Seed     testdb.Seeder
	Drush    *Drush
	Runner   *drush.Runner
	Accounts map[string]Account
}

// NewSite builds a fake site with an admin/admin account (uid 1) and the
// anonymous user (uid 0).
func NewSite(t testing.TB) *Site {
	t.Helper()
	client, err := testdb.NewDrupalDBInMemory()
	if err != nil {
		t.Fatalf("in-memory drupal db: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	rec := &Drush{}
	runner, err := drush.New("vendor/bin/drush", drush.WithExecutor(rec))
	if err != nil {
		t.Fatalf("drush runner: %v", err)
	}

	s := &Site{
		Browser:  browsertest.New(BaseURL),
		DB:       client,
		Seed:     testdb.Seeder{Client: client},
		Drush:    rec,
		Runner:   runner,
		Accounts: map[string]Account{},
	}
	s.AddAccount(t, 0, "", "")
	s.AddAccount(t, 1, "admin", "admin")
	s.installLogin()
	s.Browser.OnClick("#edit-submit", s.submitEntityForm)
	return s
}

// Acceptance returns an acceptance helper on the fake browser and database.
func (s *Site) Acceptance() *acceptance.Helper {
	return acceptance.New(s.Browser, s.DB)
}

// AddAccount creates a user account.
func (s *Site) AddAccount(t testing.TB, uid int64, name, password string) {
	t.Helper()
	if err := s.Seed.User(context.Background(), uid, name); err != nil {
		t.Fatalf("seed user %q: %v", name, err)
	}
	if name != "" {
		s.Accounts[name] = Account{UID: uid, Password: password}
	}
}

// LoggedInAs returns the username owning the session cookie, "" when anonymous.
func (s *Site) LoggedInAs() string {
	return s.Browser.Cookies()[SessionCookie]
}

// FormSubmissions counts clicks on the login button.
func (s *Site) FormSubmissions() int {
	n := 0
	for _, c := range s.Browser.CallsTo("Click") {
		if c.Args[0] == ".user-login-form .form-submit" {
			n++
		}
	}
	return n
}

func (s *Site) installLogin() {
	const (
		name   = `.user-login-form input[name="name"]`
		pass   = `.user-login-form input[name="pass"]`
		submit = ".user-login-form .form-submit"
	)
	b := s.Browser
	b.Route("/user/login", func(p *browsertest.Page) {
		if v, ok := p.Cookie(SessionCookie); ok && v != "" {
			p.Set(".page-title", browsertest.Element{Text: "Access denied"})
			return
		}
		p.Set(".user-login-form", browsertest.Element{})
		p.Set(name, browsertest.Element{})
		p.Set(pass, browsertest.Element{})
		p.Set(submit, browsertest.Element{Text: "Log in"})
	})
	b.OnClick(submit, func(p *browsertest.Page) {
		username := p.Element(name).Value
		acct, ok := s.Accounts[username]
		if !ok || acct.Password != p.Element(pass).Value {
			p.Set(".messages--error", browsertest.Element{Text: "Unrecognized username or password."})
			return
		}
		p.SetCookie(SessionCookie, username)
		p.Navigate(fmt.Sprintf("%s/user/%d", BaseURL, acct.UID))
	})
	b.Route("/user/logout", func(p *browsertest.Page) {
		p.DeleteCookie(SessionCookie)
	})
	b.OnNavigate(func(p *browsertest.Page) {
		if !strings.HasPrefix(p.URL(), BaseURL) {
			return
		}
		uid := "0"
		if username, _ := p.Cookie(SessionCookie); username != "" {
			uid = fmt.Sprint(s.Accounts[username].UID)
		}
		p.Set(SettingsSelector, browsertest.Element{Attrs: map[string]string{"data-uid": uid}})
	})
	b.OnScript("return drupalSettings.user.uid;", func([]any) (any, error) {
		el := b.Element(SettingsSelector)
		if el == nil {
			return nil, errors.New("ReferenceError: drupalSettings is not defined")
		}
		return el.Attrs["data-uid"], nil
	})
}

// requireLogin renders Drupal's access denied page for anonymous visitors.
func requireLogin(p *browsertest.Page) bool {
	if v, ok := p.Cookie(SessionCookie); ok && v != "" {
		return true
	}
	p.Set(".page-title", browsertest.Element{Text: "Access denied"})
	return false
}

// NodeForm serves /node/add/<nodeType>; submitting it inserts the node.
func (s *Site) NodeForm(nodeType string) {
	s.Browser.Route("/node/add/"+nodeType, func(p *browsertest.Page) {
		if !requireLogin(p) {
			return
		}
		p.Set(`[name="title[0][value]"]`, browsertest.Element{})
		p.Set(`[name="body[0][value]"]`, browsertest.Element{})
		p.Set("#edit-submit", browsertest.Element{Text: "Save"})
	})
}

// TermForm serves the add-term form of vocabulary; submitting inserts the term.
func (s *Site) TermForm(vocabulary string) {
	s.Browser.Route("/admin/structure/taxonomy/manage/"+vocabulary+"/add", func(p *browsertest.Page) {
		if !requireLogin(p) {
			return
		}
		p.Set(`[name="name[0][value]"]`, browsertest.Element{})
		p.Set("#edit-submit", browsertest.Element{Text: "Save"})
	})
}

// submitEntityForm saves the node or term form on the current page.
func (s *Site) submitEntityForm(p *browsertest.Page) {
	ctx := context.Background()
	path := strings.TrimPrefix(p.URL(), BaseURL)
	var err error
	switch {
	case strings.HasPrefix(path, "/node/add/"):
		title := p.Element(`[name="title[0][value]"]`)
		if title == nil || title.Value == "" {
			p.Set(".messages--error", browsertest.Element{Text: "Title field is required."})
			return
		}
		_, err = s.Seed.Node(ctx, strings.TrimPrefix(path, "/node/add/"), title.Value)
	case strings.HasPrefix(path, "/admin/structure/taxonomy/manage/"):
		name := p.Element(`[name="name[0][value]"]`)
		if name == nil || name.Value == "" {
			p.Set(".messages--error", browsertest.Element{Text: "Name field is required."})
			return
		}
		vid := strings.TrimSuffix(strings.TrimPrefix(path, "/admin/structure/taxonomy/manage/"), "/add")
		_, err = s.Seed.Term(ctx, vid)
	default:
		return
	}
	if err != nil {
		p.Set(".messages--error", browsertest.Element{Text: err.Error()})
	}
}

// ProductDeleteForm serves /product/<id>/delete; confirming deletes the
// product rows.
func (s *Site) ProductDeleteForm(productID int64) {
	path := fmt.Sprintf("/product/%d/delete", productID)
	s.Browser.Route(path, func(p *browsertest.Page) {
		if !requireLogin(p) {
			return
		}
		p.Set("body", browsertest.Element{Attrs: map[string]string{"data-product": fmt.Sprint(productID)}})
		p.Set(".form-submit", browsertest.Element{Text: "Delete"})
	})
	s.Browser.OnClick(".form-submit", func(p *browsertest.Page) {
		id, err := strconv.ParseInt(p.Element("body").Attrs["data-product"], 10, 64)
		if err != nil {
			p.Set(".messages--error", browsertest.Element{Text: err.Error()})
			return
		}
		ctx := context.Background()
		for _, table := range []string{"commerce_product", "commerce_product_field_data"} {
			if _, err := s.DB.DeleteFrom(ctx, table, db.Criteria{"product_id": id}); err != nil {
				p.Set(".messages--error", browsertest.Element{Text: err.Error()})
				return
			}
		}
	})
}

// Cart serves /cart with items order items, each removable with its
// .delete-order-item button.
func (s *Site) Cart(items int) {
	remaining := items
	render := func(p *browsertest.Page) {
		buttons := make([]browsertest.Element, remaining)
		for i := range buttons {
			buttons[i] = browsertest.Element{Text: "Remove"}
		}
		if remaining == 0 {
			p.Remove(".delete-order-item")
			p.Set(".cart-empty-page", browsertest.Element{Text: "Your shopping cart is empty."})
			return
		}
		p.Set(".delete-order-item", buttons...)
	}
	s.Browser.Route("/cart", render)
	s.Browser.OnClick(".delete-order-item", func(p *browsertest.Page) {
		if remaining > 0 {
			remaining--
		}
		render(p)
	})
}
