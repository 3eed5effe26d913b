package logging

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"reason":    {},
	"component": {},
	"tx":        {},
	"type":      {},
	"events":    {},
	"addr":      {},
	"backend":   {},
	"chain_id":  {},
	"treasury":  {},
	"driver":    {},
	"subject":   {},
}

// Connection strings keep their shape; only embedded credentials are masked.
var connectionKeys = map[string]struct{}{
	"dsn": {},
	"url": {},
}

var keywordPassword = regexp.MustCompile(`(?i)\b(password|pass|token)=('[^']*'|\S+)`)

// IsAllowlisted reports whether key is exempt from redaction.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskDSN hides the credentials of a database or broker connection string.
// URL forms lose their password, keyword forms lose password and token values.
func MaskDSN(dsn string) string {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return dsn
	}
	if parsed, err := url.Parse(trimmed); err == nil && parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), RedactedValue)
		} else {
			parsed.User = url.User(RedactedValue)
		}
		masked := parsed.String()
		// url encodes the brackets of the placeholder.
		return strings.ReplaceAll(masked, url.QueryEscape(RedactedValue), RedactedValue)
	}
	return keywordPassword.ReplaceAllString(trimmed, "${1}="+RedactedValue)
}

// MaskField returns a slog.Attr for key. Allowlisted keys pass through,
// connection strings are masked with MaskDSN and everything else is redacted.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	if _, ok := connectionKeys[strings.ToLower(strings.TrimSpace(key))]; ok {
		return slog.String(key, MaskDSN(value))
	}
	return slog.String(key, RedactedValue)
}
