package sanitize

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"mvdan.cc/xurls/v2"
)

var (
	urlFinder     = xurls.Relaxed()
	urlSchemeRE   = regexp.MustCompile(`(?i)^(https?|ftp)://`)
	bareURLRE     = regexp.MustCompile(`(?i)^((https?|ftp)://|//|www\.)\S+$`)
	inlineImageRE = regexp.MustCompile(`(?i)^(cid:\S+|data:[a-z0-9.+/-]*(;[a-z0-9=.+/-]+)*;base64,\S*|[^/:\s]+\.(png|gif|jpe?g|bmp|tiff?|webp|ico))$`)
)

// rewritePossibleURL normalizes the first http, https, ftp or www. URL found in text.  Text is
// returned unchanged when no URL is found or the URL does not parse.
func rewritePossibleURL(text string) string {
	for _, loc := range urlFinder.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		if !urlSchemeRE.MatchString(raw) && !hasPrefixFold(raw, "www.") {
			continue
		}
		norm, ok := normalizeURL(raw)
		if !ok {
			return text
		}
		return text[:loc[0]] + norm + text[loc[1]:]
	}
	return text
}

// normalizeURL converts the host to its ASCII form and re-escapes the path.
func normalizeURL(raw string) (string, bool) {
	s := raw
	schemeless := hasPrefixFold(s, "www.")
	if schemeless {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}
	host, err := idna.Lookup.ToASCII(u.Hostname())
	if err != nil || host == "" {
		return "", false
	}
	if port := u.Port(); port != "" {
		host = net.JoinHostPort(host, port)
	}
	u.Host = host
	out := u.String()
	if schemeless {
		out = strings.TrimPrefix(out, "http://")
	}
	return out, true
}

// looksLikeInlineImageReference reports whether value refers to an image carried in the message:
// a cid: reference, a base64 data URI, or a bare file name.
func looksLikeInlineImageReference(value string) bool {
	return inlineImageRE.MatchString(strings.TrimSpace(value))
}

// isBareURL reports whether value is nothing but an absolute or protocol relative URL.
func isBareURL(value string) bool {
	return bareURLRE.MatchString(strings.TrimSpace(value))
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
