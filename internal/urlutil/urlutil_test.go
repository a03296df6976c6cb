package urlutil

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestBuildAbsolute_GeneratesExpectedURLs(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := fmt.Sprintf(
			"https://%s.%s",
			rapid.StringMatching(`[a-z]{3,12}`).Draw(rt, "baseHost"),
			rapid.StringMatching(`[a-z]{2,8}`).Draw(rt, "baseTld"),
		)
		if rapid.Bool().Draw(rt, "baseHasSlash") {
			base += "/"
		}

		pathKind := rapid.IntRange(0, 3).Draw(rt, "pathKind")
		var path string
		switch pathKind {
		case 0:
			path = ""
		case 1:
			path = "/" + rapid.StringMatching(`[a-z]{1,12}`).Draw(rt, "relativePath")
		case 2:
			path = "node/" + rapid.StringMatching(`[0-9]{1,6}`).Draw(rt, "nid")
		case 3:
			path = fmt.Sprintf(
				"https://%s.%s/user/login",
				rapid.StringMatching(`[a-z]{3,10}`).Draw(rt, "absoluteHost"),
				rapid.StringMatching(`[a-z]{2,6}`).Draw(rt, "absoluteTld"),
			)
		}

		got := BuildAbsolute(base, path)
		var want string
		switch {
		case path == "":
			want = strings.TrimRight(base, "/")
		case strings.HasPrefix(path, "https://"):
			want = path
		case strings.HasPrefix(path, "/"):
			want = strings.TrimRight(base, "/") + path
		default:
			want = strings.TrimRight(base, "/") + "/" + path
		}

		if got != want {
			rt.Fatalf("BuildAbsolute mismatch: got=%s want=%s", got, want)
		}
		parsed, err := url.Parse(got)
		if err != nil {
			rt.Fatalf("BuildAbsolute returned invalid URL %s: %v", got, err)
		}
		if parsed.Scheme != "https" {
			rt.Fatalf("expected absolute URL with scheme, got=%s", got)
		}
	})
}

func TestIsAbsolute(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/node/1": true,
		"http://localhost:8080":      true,
		"/node/1":                    false,
		"node/1":                     false,
		"":                           false,
	}
	for in, want := range cases {
		if got := IsAbsolute(in); got != want {
			t.Errorf("IsAbsolute(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHost(t *testing.T) {
	const base = "http://drupal.test:8080/"
	cases := []struct {
		in, want string
	}{
		{"/node/1", "drupal.test:8080"},
		{"node/1", "drupal.test:8080"},
		{"", "drupal.test:8080"},
		{"https://cdn.example.com/a.png", "cdn.example.com"},
	}
	for _, tc := range cases {
		if got := Host(base, tc.in); got != tc.want {
			t.Errorf("Host(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := Host("", "/node/1"); got != "" {
		t.Errorf("Host without base = %q, want empty", got)
	}
}
