package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// HashKey creates a SHA256 hash of s.
// Used to build fixed-length, safe keys for Redis.
func HashKey(s string) string {
	h := sha256.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// QueryKey is the canonical form of a region/category pair used to detect
// repeated searches.
func QueryKey(region, category string) string {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return norm(region) + "|" + norm(category)
}

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(relURL).String(), nil
}

// UnwrapRedirect returns the target of a "/url?q=<target>" redirect wrapper,
// or raw unchanged when it is not one.
func UnwrapRedirect(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path != "/url" {
		return raw
	}
	if q := u.Query().Get("q"); q != "" {
		return q
	}
	return raw
}

// NormalizeLink resolves href against pageURL and unwraps redirect wrappers.
// A href that cannot be parsed is returned trimmed but otherwise untouched.
func NormalizeLink(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if base, err := url.Parse(pageURL); err == nil && pageURL != "" {
		if abs, err := ToAbsoluteURL(base, href); err == nil {
			href = abs
		}
	}
	return UnwrapRedirect(href)
}
