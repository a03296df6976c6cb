package browser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// These suites run against the configured live site.

func TestDrupal_FrontPageRendersCleanly(t *testing.T) {
	env := SetupDrupalTestEnv(t)
	i := env.NewActor(t)

	i.AmOnDrupalPage("/")
	i.SeeElement("body")
	i.TestURLs("/user/login", "/user/password")
}

func TestDrupal_LoginAsAdmin(t *testing.T) {
	env := SetupDrupalTestEnv(t)
	i := env.NewActor(t)

	i.LoginAsAdmin()
	require.Contains(t, env.SessionSnapshots(), "user_"+env.Config.AdminUsername)
	i.AmOnDrupalPage("/")
	require.Equal(t, env.Config.AdminUsername, i.GrabCurrentUserName())
	require.NotZero(t, i.GrabCurrentUserID())

	// A second login in a fresh page reuses the saved session. Restoring
	// cookies does not load a page, so load one before reading drupalSettings.
	second := env.NewActor(t)
	second.LoginAsAdmin()
	second.AmOnDrupalPage("/")
	require.Equal(t, env.Config.AdminUsername, second.GrabCurrentUserName())

	i.Logout(false)
	i.AmOnDrupalPage("/")
	require.Zero(t, i.GrabCurrentUserID())
}

func TestDrupal_SessionStack(t *testing.T) {
	env := SetupDrupalTestEnv(t)
	i := env.NewActor(t)

	i.AmOnDrupalPage("/")
	i.AsAdmin(func() {
		i.AmOnDrupalPage("/admin/content")
		i.SeePageTitle("Content")
	})
	i.AmOnDrupalPage("/")
	require.Zero(t, i.GrabCurrentUserID(), "anonymous session must be restored")
}

func TestDrupal_CreateNodeAndTerm(t *testing.T) {
	env := SetupDrupalTestEnv(t)
	i := env.NewActor(t)

	title := GenerateUniqueTitle("E2E page")
	nid := i.CreateNode("page", title, "<p>Created by the end-to-end suite.</p>")
	defer i.DeleteEntities("node", nid)

	i.LoginAsAdmin()
	i.AmOnDrupalPage(i.GrabPathAlias(fmt.Sprintf("/node/%d", nid)))
	i.SeePageTitle(title)

	name := GenerateUniqueTitle("E2E tag")
	tid := i.CreateTerm("tags", name)
	defer i.DeleteEntities("taxonomy_term", tid)
	require.Equal(t, tid, i.GrabLastAddedTermID("tags"))
}

func TestDrupal_NodeFormWidgets(t *testing.T) {
	env := SetupDrupalTestEnv(t)
	i := env.NewActor(t)

	i.LoginAsAdmin()
	i.AmOnDrupalPage("/node/add/page")
	i.SeeField("title[0][value]")
	i.SeeFieldInDOM("body[0][value]")
	i.OpenDetails("#edit-path-0")
	i.SeeElementAttribute("#edit-path-0", "open")
	i.FillCheckbox(`[name="status[value]"]`, false)
	i.FillCheckbox(`[name="status[value]"]`, true)
}

func TestCommerce_ClearCart(t *testing.T) {
	env := SetupDrupalTestEnv(t)
	exists, err := env.DB.TableExists(t.Context(), "commerce_product")
	require.NoError(t, err)
	if !exists {
		t.Skip("Drupal Commerce is not installed")
	}
	i := env.NewActor(t)

	i.AmOnDrupalPage("/cart")
	i.ClearCart()
	require.Zero(t, i.GrabNumberOfElements(".delete-order-item"))
}
