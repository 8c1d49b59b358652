package models

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseTargetURL validates that raw is an absolute http/https URL and
// returns the parsed form. Any other scheme (file, ftp, javascript, data,
// ...) is rejected as invalid input.
func ParseTargetURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, NewPeelError(ErrKindInvalidInput, "malformed URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, NewPeelError(ErrKindInvalidInput, fmt.Sprintf("unsupported protocol %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return nil, NewPeelError(ErrKindInvalidInput, "missing host", nil)
	}
	return u, nil
}

// NormalizeURL reduces a URL to its deduplication key: lowercased host
// with a leading "www." stripped, plus the path with trailing slashes
// trimmed. Query and fragment are dropped.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	path := strings.TrimRight(u.Path, "/")
	return host + path
}
