package browsertest

import (
	"context"
	"testing"

	"github.com/kuitang/drupal-e2e/internal/errs"
)

func TestLookup_NthChildAndAttr(t *testing.T) {
	d := New("http://drupal.test")
	ctx := context.Background()
	d.Set(".breadcrumb__item",
		Element{Text: "Home"},
		Element{Text: "Blog", Attrs: map[string]string{"class": "active"}},
	)

	if err := d.See(ctx, "Blog", ".breadcrumb__item:nth-child(2)"); err != nil {
		t.Fatalf("See nth-child(2): %v", err)
	}
	if err := d.See(ctx, "Blog", ".breadcrumb__item:nth-child(1)"); !errs.IsAssertion(err) {
		t.Fatalf("See nth-child(1) expected assertion, got %v", err)
	}
	if n, _ := d.Count(ctx, ".breadcrumb__item:nth-child(3)"); n != 0 {
		t.Fatalf("nth-child out of range matched %d", n)
	}
	if n, _ := d.Count(ctx, ".breadcrumb__item[class]"); n != 1 {
		t.Fatalf("[class] matched %d, want 1", n)
	}
}

func TestVisibility(t *testing.T) {
	d := New("")
	ctx := context.Background()
	d.Set(".messages--error", Element{Text: "boom", Hidden: true})

	if err := d.DontSeeElement(ctx, ".messages--error"); err != nil {
		t.Fatalf("hidden element seen: %v", err)
	}
	if err := d.SeeElementInDOM(ctx, ".messages--error"); err != nil {
		t.Fatalf("hidden element not in DOM: %v", err)
	}
	if err := d.SeeElement(ctx, ".messages--error"); !errs.IsAssertion(err) {
		t.Fatalf("SeeElement(hidden) expected assertion, got %v", err)
	}
	d.Element(".messages--error").Hidden = false
	if err := d.DontSeeElement(ctx, ".messages--error"); !errs.IsAssertion(err) {
		t.Fatalf("visible element not reported: %v", err)
	}
}

func TestRoutesResetDOMAndRunHandlers(t *testing.T) {
	d := New("http://drupal.test/")
	ctx := context.Background()
	d.Set(".stale")
	d.Route("/user/login", func(p *Page) {
		p.Set(`.user-login-form input[name="name"]`, Element{})
	})

	if err := d.AmOnPage(ctx, "user/login"); err != nil {
		t.Fatalf("AmOnPage: %v", err)
	}
	if got := d.CurrentURL(); got != "http://drupal.test/user/login" {
		t.Fatalf("CurrentURL = %q", got)
	}
	if d.Element(".stale") != nil {
		t.Fatal("navigation kept previous page elements")
	}
	if d.Element(`.user-login-form input[name="name"]`) == nil {
		t.Fatal("route handler did not run")
	}
	if d.Element("body") == nil {
		t.Fatal("body missing after navigation")
	}
}

func TestClickHandlersAndForms(t *testing.T) {
	d := New("")
	ctx := context.Background()
	d.Set("#name", Element{})
	d.Set("#agree", Element{})
	d.Set("#submit", Element{})
	d.OnClick("#submit", func(p *Page) {
		p.SetCookie("SESS1", p.Element("#name").Value)
	})

	if err := d.FillField(ctx, "#name", "editor"); err != nil {
		t.Fatalf("FillField: %v", err)
	}
	if err := d.CheckOption(ctx, "#agree"); err != nil {
		t.Fatalf("CheckOption: %v", err)
	}
	if !d.Element("#agree").Checked {
		t.Fatal("checkbox not checked")
	}
	if err := d.Click(ctx, "#submit"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if got := d.Cookies()["SESS1"]; got != "editor" {
		t.Fatalf("click handler cookie = %q", got)
	}
	if err := d.Click(ctx, "#missing"); errs.CodeOf(err) != errs.NotFound {
		t.Fatalf("click on missing element expected not_found, got %v", err)
	}
	if got := len(d.CallsTo("Click")); got != 2 {
		t.Fatalf("recorded %d clicks, want 2", got)
	}
}

func TestSnapshots(t *testing.T) {
	d := New("")
	ctx := context.Background()
	d.SetCookie("SESS1", "admin")

	if err := d.SaveSessionSnapshot(ctx, "user_admin"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := d.DeleteAllCookies(ctx); err != nil {
		t.Fatalf("DeleteAllCookies: %v", err)
	}
	if len(d.Cookies()) != 0 {
		t.Fatal("cookies not cleared")
	}
	ok, err := d.LoadSessionSnapshot(ctx, "user_admin")
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if d.Cookies()["SESS1"] != "admin" {
		t.Fatalf("cookies after load = %v", d.Cookies())
	}
	d.DeleteSessionSnapshot("user_admin")
	if ok, _ := d.LoadSessionSnapshot(ctx, "user_admin"); ok {
		t.Fatal("deleted snapshot loaded")
	}
}

func TestExecuteJS(t *testing.T) {
	d := New("")
	ctx := context.Background()
	d.OnScript("return drupalSettings.user.uid;", func([]any) (any, error) { return "7", nil })

	v, err := d.ExecuteJS(ctx, "return drupalSettings.user.uid;")
	if err != nil || v != "7" {
		t.Fatalf("ExecuteJS = %v, %v", v, err)
	}
	if v, err := d.ExecuteJS(ctx, "return 1;", "x"); err != nil || v != nil {
		t.Fatalf("unknown script = %v, %v", v, err)
	}
	calls := d.CallsTo("ExecuteJS")
	if len(calls) != 2 || calls[1].Args[1] != "x" {
		t.Fatalf("calls = %+v", calls)
	}
}

func TestOnNavigate_RunsAfterRoutesAndRedirects(t *testing.T) {
	d := New("http://drupal.test")
	ctx := context.Background()
	d.Route("/user/login", func(p *Page) {
		p.Set(".form-submit", Element{Text: "Log in"})
	})
	d.OnClick(".form-submit", func(p *Page) {
		p.Navigate("http://drupal.test/user/1")
	})
	var seen []string
	d.OnNavigate(func(p *Page) {
		seen = append(seen, p.URL())
		p.Set(".settings", Element{Attrs: map[string]string{"data-url": p.URL()}})
	})

	if err := d.AmOnPage(ctx, "/user/login"); err != nil {
		t.Fatalf("AmOnPage: %v", err)
	}
	if err := d.SeeElement(ctx, ".form-submit"); err != nil {
		t.Fatalf("route handler did not run: %v", err)
	}
	if err := d.Click(ctx, ".form-submit"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if len(seen) != 2 || seen[1] != "http://drupal.test/user/1" {
		t.Fatalf("navigations seen = %v", seen)
	}
	v, ok, err := d.GrabAttributeFrom(ctx, ".settings", "data-url")
	if err != nil || !ok || v != "http://drupal.test/user/1" {
		t.Fatalf("settings after redirect = %q %v %v", v, ok, err)
	}
}

func TestCanceledContext(t *testing.T) {
	d := New("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.AmOnPage(ctx, "/"); err == nil {
		t.Fatal("expected context error")
	}
	if len(d.Calls()) != 0 {
		t.Fatal("canceled call was recorded")
	}
}
