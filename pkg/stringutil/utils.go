// Package stringutil holds small string helpers shared by the server packages.
package stringutil

import (
	"net/mail"
	"strings"
)

// StringAddress renders an address for display, returning an empty string for nil.
func StringAddress(a *mail.Address) string {
	if a == nil {
		return ""
	}
	return a.String()
}

// MakePathPrefixer returns a function that prefixes paths with the provided base path.  The base
// path is normalized to have a leading slash and no trailing slash.
func MakePathPrefixer(prefix string) func(string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix = "/" + prefix
	}
	return func(path string) string {
		if path == "" {
			path = "/"
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return prefix + path
	}
}
