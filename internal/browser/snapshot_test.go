package browser

import (
	"reflect"
	"testing"

	"github.com/playwright-community/playwright-go"
	"pgregory.net/rapid"
)

func TestSnapshotStore_SaveGetDelete(t *testing.T) {
	s := NewSnapshotStore()
	if _, ok := s.Get("admin"); ok {
		t.Fatal("empty store returned a snapshot")
	}

	s.Save("admin", []playwright.Cookie{
		{Name: "SESSabc", Value: "v1", Domain: "localhost", Path: "/", Expires: -1, HttpOnly: true},
		{Name: "has_js", Value: "1", Domain: "localhost", Path: "/", Expires: 1893456000},
	})
	snap, ok := s.Get("admin")
	if !ok {
		t.Fatal("snapshot not saved")
	}
	if len(snap.Cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(snap.Cookies))
	}
	if snap.Cookies[0].Expires != nil {
		t.Errorf("session cookie should have no expiry, got %v", *snap.Cookies[0].Expires)
	}
	if snap.Cookies[1].Expires == nil || *snap.Cookies[1].Expires != 1893456000 {
		t.Errorf("persistent cookie expiry lost: %v", snap.Cookies[1].Expires)
	}
	if snap.Cookies[0].HttpOnly == nil || !*snap.Cookies[0].HttpOnly {
		t.Error("httpOnly lost")
	}
	if snap.SavedAt.IsZero() {
		t.Error("SavedAt not set")
	}

	s.Delete("admin")
	if _, ok := s.Get("admin"); ok {
		t.Fatal("snapshot survived Delete")
	}
}

func TestSnapshotStore_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewSnapshotStore()
		model := map[string]int{}

		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 30).Draw(t, "ops")
		for i, op := range ops {
			name := rapid.SampledFrom([]string{"admin", "editor", "anon", "user-1"}).Draw(t, "name")
			switch op {
			case 0:
				n := rapid.IntRange(0, 4).Draw(t, "cookies")
				cookies := make([]playwright.Cookie, n)
				for j := range cookies {
					cookies[j] = playwright.Cookie{Name: "c", Value: name, Path: "/"}
				}
				s.Save(name, cookies)
				model[name] = n
			case 1:
				s.Delete(name)
				delete(model, name)
			case 2:
				snap, ok := s.Get(name)
				want, wantOK := model[name]
				if ok != wantOK {
					t.Fatalf("op %d: Get(%q) ok=%v, model says %v", i, name, ok, wantOK)
				}
				if ok && len(snap.Cookies) != want {
					t.Fatalf("op %d: Get(%q) has %d cookies, want %d", i, name, len(snap.Cookies), want)
				}
			}
		}

		names := s.Names()
		if len(names) != len(model) {
			t.Fatalf("Names() = %v, model = %v", names, model)
		}
		for _, n := range names {
			if _, ok := model[n]; !ok {
				t.Fatalf("unexpected name %q", n)
			}
		}
		s.Clear()
		if got := s.Names(); len(got) != 0 {
			t.Fatalf("Clear left %v", got)
		}
	})
}

func TestJoinURL(t *testing.T) {
	cases := []struct{ base, path, want string }{
		{"http://drupal.test", "/node/1", "http://drupal.test/node/1"},
		{"http://drupal.test/", "node/1", "http://drupal.test/node/1"},
		{"http://drupal.test//", "//user/login", "http://drupal.test/user/login"},
		{"http://drupal.test/sub", "", "http://drupal.test/sub/"},
	}
	for _, tc := range cases {
		if got := JoinURL(tc.base, tc.path); got != tc.want {
			t.Errorf("JoinURL(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
		}
	}
}

func TestToOptionalCookie_KeepsSameSite(t *testing.T) {
	c := playwright.Cookie{Name: "a", Value: "b", Domain: "d", Path: "/", SameSite: playwright.SameSiteAttributeStrict}
	oc := toOptionalCookie(c)
	if !reflect.DeepEqual(oc.SameSite, playwright.SameSiteAttributeStrict) {
		t.Fatalf("SameSite = %v", oc.SameSite)
	}
	if *oc.Domain != "d" || *oc.Path != "/" {
		t.Fatalf("domain/path = %q %q", *oc.Domain, *oc.Path)
	}
}
