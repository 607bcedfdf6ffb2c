// Package outputfmt prepares error text for chat replies and logs.
package outputfmt

import (
	"net/url"
	"regexp"
	"strings"
)

const redacted = "[redacted]"

var (
	urlInText = regexp.MustCompile(`https?://[^\s"'<>]+`)
	// Bot API tokens look like "123456789:AAH...". They show up in request
	// URLs as a "/bot<token>" path segment.
	botToken   = regexp.MustCompile(`\b\d{5,}:[A-Za-z0-9_-]{30,}\b`)
	botSegment = regexp.MustCompile(`/bot[^/\s"'<>?#]+`)
)

var sensitiveQueryWords = []string{"apikey", "authorization", "token", "secret", "password", "cookie"}

// FormatErrorForDisplay turns err into text that is safe to send to a chat:
// URLs lose their host, and credentials in paths or queries are redacted.
func FormatErrorForDisplay(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeErrorText(err.Error())
}

func SanitizeErrorText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return RedactBotToken(urlInText.ReplaceAllStringFunc(raw, stripHost))
}

// RedactBotToken hides anything shaped like a bot token.
func RedactBotToken(s string) string {
	return botToken.ReplaceAllString(s, redacted)
}

func stripHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	path := botSegment.ReplaceAllString(u.EscapedPath(), "/bot"+redacted)
	if path == "" {
		path = "/"
	}
	if q := redactQuery(u.Query()); q != "" {
		path += "?" + q
	}
	if frag := u.EscapedFragment(); frag != "" {
		path += "#" + frag
	}
	return path
}

func redactQuery(q url.Values) string {
	for k := range q {
		if isSensitiveQueryKey(k) {
			q.Set(k, redacted)
		}
	}
	return q.Encode()
}

func isSensitiveQueryKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.NewReplacer("-", "", "_", "").Replace(k)
	if k == "" {
		return false
	}
	if k == "key" {
		return true
	}
	for _, w := range sensitiveQueryWords {
		if strings.Contains(k, w) {
			return true
		}
	}
	return false
}
