package logutil

import (
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const redacted = "[REDACTED]"

// IsSensitiveLogField returns true when a key likely contains sensitive data.
func IsSensitiveLogField(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, "_", "")

	switch {
	case normalized == "pass" || normalized == "pwd":
		return true
	case strings.Contains(normalized, "password"):
		return true
	case strings.Contains(normalized, "token"):
		return true
	case strings.Contains(normalized, "secret"):
		return true
	case strings.Contains(normalized, "cookie"):
		return true
	case strings.Contains(normalized, "session"):
		return true
	default:
		return false
	}
}

// RedactField redacts a value when the key looks sensitive.
func RedactField(key, value string) string {
	if IsSensitiveLogField(key) && value != "" {
		return redacted
	}
	return value
}

// RedactDSN hides the password in a database DSN for the given driver.
// Unparseable DSNs are fully redacted.
func RedactDSN(driver, dsn string) string {
	if strings.TrimSpace(dsn) == "" {
		return ""
	}
	switch driver {
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return redacted
		}
		if cfg.Passwd != "" {
			cfg.Passwd = "xxxxx"
		}
		return cfg.FormatDSN()
	case "postgres":
		if strings.Contains(dsn, "://") {
			u, err := url.Parse(dsn)
			if err != nil {
				return redacted
			}
			return u.Redacted()
		}
		return redactKeyValueDSN(dsn)
	default:
		return redactKeyValueDSN(dsn)
	}
}

// redactKeyValueDSN handles "key=value key=value" and "path?key=value&key=value" forms.
func redactKeyValueDSN(dsn string) string {
	sep := " "
	prefix := ""
	body := dsn
	if i := strings.Index(dsn, "?"); i >= 0 {
		prefix, body = dsn[:i+1], dsn[i+1:]
		sep = "&"
	}
	parts := strings.Split(body, sep)
	for i, part := range parts {
		key, _, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		if IsSensitiveLogField(key) || strings.Contains(strings.ToLower(key), "key") {
			parts[i] = key + "=" + redacted
		}
	}
	return prefix + strings.Join(parts, sep)
}

// FormatSQLForLog collapses whitespace in a statement and truncates it.
func FormatSQLForLog(query string, maxChars int) string {
	return TruncateForLog(strings.Join(strings.Fields(query), " "), maxChars)
}

// TruncateForLog returns a single-line truncated preview for unstructured values.
func TruncateForLog(value string, maxChars int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	normalized := strings.ReplaceAll(trimmed, "\n", "\\n")
	if maxChars <= 0 || len(normalized) <= maxChars {
		return normalized
	}
	return normalized[:maxChars] + "... [truncated]"
}
