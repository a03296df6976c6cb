package drupal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/drupal-e2e/internal/drupal/drupaltest"
	"github.com/kuitang/drupal-e2e/internal/errs"
)

func TestLogin_CachesSessionSnapshot(t *testing.T) {
	h, site := newHelper(t)
	ctx := context.Background()

	require.NoError(t, h.LoginAsAdmin(ctx))
	require.Equal(t, "admin", site.LoggedInAs())
	require.Equal(t, "admin", h.Current().Username)
	require.True(t, site.Browser.HasSnapshot("user_admin"))
	require.Equal(t, 1, site.FormSubmissions())

	require.NoError(t, h.Logout(ctx, false))
	require.Empty(t, site.LoggedInAs())
	require.True(t, h.Current().Anonymous())

	require.NoError(t, h.LoginAsAdmin(ctx))
	require.Equal(t, "admin", site.LoggedInAs())
	require.Equal(t, 1, site.FormSubmissions(), "second login must reuse the snapshot")
}

func TestLogin_WrongPassword(t *testing.T) {
	h, site := newHelper(t)
	ctx := context.Background()

	err := h.Login(ctx, "admin", "wrong")
	require.True(t, errs.IsAssertion(err), "got %v", err)
	require.Contains(t, err.Error(), "login as admin")
	require.False(t, site.Browser.HasSnapshot("user_admin"))
	require.True(t, h.Current().Anonymous())
}

func TestLogin_RequiresUsername(t *testing.T) {
	h, _ := newHelper(t)
	require.Equal(t, errs.InvalidArgument, errs.CodeOf(h.Login(context.Background(), "", "x")))
}

func TestLogout_HardForgetsSnapshot(t *testing.T) {
	h, site := newHelper(t)
	ctx := context.Background()
	site.AddAccount(t, 2, "editor", "editor-pass")

	require.NoError(t, h.Login(ctx, "editor", "editor-pass"))
	require.NoError(t, h.Logout(ctx, true))
	require.Empty(t, site.LoggedInAs())
	require.False(t, site.Browser.HasSnapshot("user_editor"))
	require.Equal(t, drupaltest.BaseURL+"/user/logout", site.Browser.CurrentURL())

	require.NoError(t, h.Login(ctx, "editor", "editor-pass"))
	require.Equal(t, 2, site.FormSubmissions())
}

func TestLogout_HardLooksUpUnknownUser(t *testing.T) {
	h, site := newHelper(t)
	ctx := context.Background()
	site.AddAccount(t, 5, "author", "pw")

	require.NoError(t, h.Login(ctx, "author", "pw"))
	h.setCurrent(Credentials{})

	require.NoError(t, h.Logout(ctx, true))
	require.False(t, site.Browser.HasSnapshot("user_author"))
}

func TestSessionStack_RestoresAnonymous(t *testing.T) {
	h, site := newHelper(t)
	ctx := context.Background()

	h.RememberCurrentSession()
	require.NoError(t, h.LoginAsAdmin(ctx))
	require.NoError(t, h.RestoreRememberedSession(ctx))

	require.Empty(t, site.LoggedInAs())
	require.True(t, h.Current().Anonymous())
	require.Empty(t, h.RememberedSessions())
}

func TestSessionStack_Nested(t *testing.T) {
	h, site := newHelper(t)
	ctx := context.Background()
	site.AddAccount(t, 2, "editor", "editor-pass")
	site.AddAccount(t, 3, "customer", "customer-pass")

	require.NoError(t, h.Login(ctx, "editor", "editor-pass"))
	h.RememberCurrentSession()
	require.NoError(t, h.Login(ctx, "customer", "customer-pass"))
	h.RememberCurrentSession()
	require.NoError(t, h.LoginAsAdmin(ctx))

	require.NoError(t, h.RestoreRememberedSession(ctx))
	require.Equal(t, "customer", site.LoggedInAs())
	require.NoError(t, h.RestoreRememberedSession(ctx))
	require.Equal(t, "editor", site.LoggedInAs())

	err := h.RestoreRememberedSession(ctx)
	require.Equal(t, errs.FailedPrecondition, errs.CodeOf(err))
	require.Equal(t, "editor", site.LoggedInAs())
}

func TestAsAdmin_RestoresAfterFailure(t *testing.T) {
	h, site := newHelper(t)
	ctx := context.Background()
	site.AddAccount(t, 2, "editor", "editor-pass")
	require.NoError(t, h.Login(ctx, "editor", "editor-pass"))

	boom := errors.New("boom")
	var inside string
	err := h.AsAdmin(ctx, func(ctx context.Context) error {
		inside = site.LoggedInAs()
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, "admin", inside)
	require.Equal(t, "editor", site.LoggedInAs())
	require.Equal(t, "editor", h.Current().Username)
	require.Empty(t, h.RememberedSessions())
}

func TestAsAdmin_FromSignedInSessionWithoutSnapshot(t *testing.T) {
	h, site := newHelper(t)
	ctx := context.Background()
	site.AddAccount(t, 2, "editor", "editor-pass")
	require.NoError(t, h.Login(ctx, "editor", "editor-pass"))

	// Drupal denies the login form to signed-in visitors.
	require.NoError(t, h.AmOnDrupalPage(ctx, "/user/login"))
	require.NoError(t, site.Browser.See(ctx, "Access denied", ".page-title"))
	require.False(t, site.Browser.HasSnapshot("user_admin"))

	site.Browser.ResetCalls()
	var inside string
	err := h.AsAdmin(ctx, func(ctx context.Context) error {
		inside = site.LoggedInAs()
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "admin", inside)
	require.Equal(t, "editor", site.LoggedInAs())
	require.Equal(t, 2, site.FormSubmissions(), "editor is restored from its snapshot")

	var order []string
	for _, c := range site.Browser.Calls() {
		if c.Method == "DeleteAllCookies" || (c.Method == "AmOnURL" && c.Args[0] == drupaltest.BaseURL+"/user/login") {
			order = append(order, c.Method)
		}
	}
	require.Equal(t, []string{"DeleteAllCookies", "AmOnURL"}, order, "cookies must be cleared before the login form")
}

func TestAsUser_LoginFailureStillRestores(t *testing.T) {
	h, site := newHelper(t)
	ctx := context.Background()

	called := false
	err := h.AsUser(ctx, "admin", "wrong", func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
	require.Empty(t, site.LoggedInAs())
	require.Empty(t, h.RememberedSessions())
}

// The stack behaves like a LIFO of usernames whatever the interleaving of
// logins, remembers and restores.
func TestSessionStack_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h, site := newHelper(t)
		site.AddAccount(t, 2, "editor", "editor-pass")
		site.AddAccount(t, 3, "customer", "customer-pass")
		passwords := map[string]string{"admin": "admin", "editor": "editor-pass", "customer": "customer-pass"}
		ctx := context.Background()

		var model []string
		current := ""

		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				user := rapid.SampledFrom([]string{"admin", "editor", "customer"}).Draw(rt, "user")
				if err := h.Login(ctx, user, passwords[user]); err != nil {
					rt.Fatalf("login %s: %v", user, err)
				}
				current = user
			case 1:
				h.RememberCurrentSession()
				model = append(model, current)
			case 2:
				err := h.RestoreRememberedSession(ctx)
				if len(model) == 0 {
					if errs.CodeOf(err) != errs.FailedPrecondition {
						rt.Fatalf("restore on empty stack: %v", err)
					}
					continue
				}
				if err != nil {
					rt.Fatalf("restore: %v", err)
				}
				current = model[len(model)-1]
				model = model[:len(model)-1]
			case 3:
				if err := h.Logout(ctx, false); err != nil {
					rt.Fatalf("logout: %v", err)
				}
				current = ""
			}

			if got := site.LoggedInAs(); got != current {
				rt.Fatalf("step %d: browser logged in as %q, want %q", i, got, current)
			}
			if got := h.Current().Username; got != current {
				rt.Fatalf("step %d: helper thinks %q, want %q", i, got, current)
			}
			if got := len(h.RememberedSessions()); got != len(model) {
				rt.Fatalf("step %d: stack depth %d, want %d", i, got, len(model))
			}
		}
	})
}
