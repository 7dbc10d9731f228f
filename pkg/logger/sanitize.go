package logger

import (
	"net/url"
	"strings"
)

var sensitiveParams = map[string]bool{
	"password":      true,
	"token":         true,
	"access_token":  true,
	"code":          true,
	"state":         true,
	"secret":        true,
	"email":         true,
	"client_secret": true,
}

// SanitizedEmail masks an email address for logging, e.g. "u***@*******.com".
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// SanitizeQueryString reports whether rawQuery carries a parameter that must
// not reach the logs. Unparseable queries are treated as sensitive.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return true
	}
	for key := range values {
		if sensitiveParams[strings.ToLower(key)] {
			return true
		}
	}
	return false
}
