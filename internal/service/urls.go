package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned before any store call when a shortcut URL
// cannot be parsed.
var ErrInvalidURL = errors.New("invalid URL")

// NormalizeURL accepts an absolute URL as is and otherwise retries the input
// with an https:// prefix.
func NormalizeURL(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if u, err := url.Parse(s); err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "") {
		return canonical(u), nil
	}
	u, err := url.Parse("https://" + s)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, input)
	}
	return canonical(u), nil
}

func canonical(u *url.URL) string {
	u.Host = strings.ToLower(u.Host)
	if u.Host != "" && u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// HostTitle is the hostname of rawURL without a leading "www.". Input that
// does not parse is returned unchanged.
func HostTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
