// Package urlutil resolves site-relative paths against the site base URL.
package urlutil

import (
	"net/url"
	"strings"
)

// IsAbsolute reports whether u carries a scheme. Anything containing "://"
// is treated as absolute, matching how suites pass URLs to the helpers.
func IsAbsolute(u string) bool {
	return strings.Contains(u, "://")
}

// BuildAbsolute builds an absolute URL from a base origin and a path.
// Absolute paths are returned unchanged.
func BuildAbsolute(base, path string) string {
	base = normalizeBaseURL(base)
	if path == "" {
		return base
	}
	if IsAbsolute(path) {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}

// Host returns the host[:port] u points at, resolving relative paths against
// base. It returns "" when neither parses.
func Host(base, u string) string {
	parsed, err := url.Parse(BuildAbsolute(base, u))
	if err != nil {
		return ""
	}
	return parsed.Host
}

func normalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/")
}
