package drupal

import (
	"context"
	"errors"
	"fmt"

	"github.com/kuitang/drupal-e2e/internal/errs"
	"github.com/kuitang/drupal-e2e/internal/obs"
)

const (
	loginPath      = "/user/login"
	logoutPath     = "/user/logout"
	loginNameField = `.user-login-form input[name="name"]`
	loginPassField = `.user-login-form input[name="pass"]`
	loginSubmit    = ".user-login-form .form-submit"
	snapshotPrefix = "user_"
)

// Credentials identify a Drupal account. The zero value is the anonymous user.
type Credentials struct {
	Username string
	Password string
}

// Anonymous reports whether c is the anonymous user.
func (c Credentials) Anonymous() bool {
	return c.Username == ""
}

func (c Credentials) String() string {
	if c.Anonymous() {
		return "anonymous"
	}
	return c.Username
}

func snapshotName(username string) string {
	return snapshotPrefix + username
}

// Login signs in as username. A session saved by an earlier login of the
// same user is restored instead of submitting the form again.
func (h *Helper) Login(ctx context.Context, username, password string) error {
	if username == "" {
		return errs.New(errs.InvalidArgument, "username is required")
	}
	log := obs.From(obs.WithUser(ctx, username), "drupal")

	restored, err := h.browser.LoadSessionSnapshot(ctx, snapshotName(username))
	if err != nil {
		return err
	}
	if restored {
		log.Debug("session restored from snapshot")
		h.setCurrent(Credentials{Username: username, Password: password})
		return nil
	}

	// Drupal denies the login form to signed-in visitors.
	if err := h.browser.DeleteAllCookies(ctx); err != nil {
		return err
	}
	h.setCurrent(Credentials{})
	if err := h.AmOnDrupalPage(ctx, loginPath); err != nil {
		return err
	}
	if err := h.browser.FillField(ctx, loginNameField, username); err != nil {
		return err
	}
	if err := h.browser.FillField(ctx, loginPassField, password); err != nil {
		return err
	}
	if err := h.browser.Click(ctx, loginSubmit); err != nil {
		return err
	}
	if err := h.DontSeeDrupalErrors(ctx); err != nil {
		return fmt.Errorf("login as %s: %w", username, err)
	}
	if err := h.browser.SaveSessionSnapshot(ctx, snapshotName(username)); err != nil {
		return err
	}
	log.Info("logged in")
	h.setCurrent(Credentials{Username: username, Password: password})
	return nil
}

// LoginAsAdmin signs in with the configured admin credentials.
func (h *Helper) LoginAsAdmin(ctx context.Context) error {
	return h.Login(ctx, h.settings.AdminUsername, h.settings.AdminPassword)
}

// Logout ends the current session. A soft logout only drops the browser
// cookies, keeping the server session and its snapshot reusable. A hard
// logout visits /user/logout and forgets the user's snapshot.
func (h *Helper) Logout(ctx context.Context, hard bool) error {
	current := h.Current()
	if !hard {
		if err := h.browser.DeleteAllCookies(ctx); err != nil {
			return err
		}
		h.setCurrent(Credentials{})
		return nil
	}

	username := current.Username
	if username == "" {
		// Logged in outside Login, e.g. by a snapshot restored elsewhere.
		// drupalSettings only reflects the cookies once a page is loaded.
		if err := h.AmOnDrupalPage(ctx, "/"); err != nil {
			return err
		}
		name, err := h.GrabCurrentUserName(ctx)
		if err != nil {
			return err
		}
		username = name
	}
	if err := h.AmOnDrupalPage(ctx, logoutPath); err != nil {
		return err
	}
	if username != "" {
		h.browser.DeleteSessionSnapshot(snapshotName(username))
	}
	obs.From(ctx, "drupal").Info("logged out", "user", username)
	h.setCurrent(Credentials{})
	return nil
}

// Current returns the credentials of the signed-in user, zero when anonymous.
func (h *Helper) Current() Credentials {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *Helper) setCurrent(c Credentials) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = c
}

// RememberCurrentSession pushes the current user onto the session stack.
func (h *Helper) RememberCurrentSession() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remembered = append(h.remembered, h.current)
}

// RememberedSessions returns the session stack, oldest first.
func (h *Helper) RememberedSessions() []Credentials {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Credentials(nil), h.remembered...)
}

// RestoreRememberedSession pops the session stack and switches back to that
// user, logging out softly when it was anonymous.
func (h *Helper) RestoreRememberedSession(ctx context.Context) error {
	h.mu.Lock()
	n := len(h.remembered)
	if n == 0 {
		h.mu.Unlock()
		return errs.New(errs.FailedPrecondition, "no remembered session to restore")
	}
	prev := h.remembered[n-1]
	h.remembered = h.remembered[:n-1]
	h.mu.Unlock()

	obs.From(ctx, "drupal").Debug("restoring session", "user", prev.String())
	if prev.Anonymous() {
		return h.Logout(ctx, false)
	}
	return h.Login(ctx, prev.Username, prev.Password)
}

// AsUser runs fn signed in as username, then switches back to the previous
// user even when fn fails.
func (h *Helper) AsUser(ctx context.Context, username, password string, fn func(ctx context.Context) error) error {
	h.RememberCurrentSession()
	userCtx := obs.WithUser(ctx, username)

	var runErr error
	if err := h.Login(userCtx, username, password); err != nil {
		runErr = err
	} else {
		runErr = fn(userCtx)
	}
	if err := h.RestoreRememberedSession(ctx); err != nil {
		return errors.Join(runErr, fmt.Errorf("restore session: %w", err))
	}
	return runErr
}

// AsAdmin runs fn signed in as the configured admin.
func (h *Helper) AsAdmin(ctx context.Context, fn func(ctx context.Context) error) error {
	return h.AsUser(ctx, h.settings.AdminUsername, h.settings.AdminPassword, fn)
}
