package imageproxy

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// Path is the route the proxy handler is mounted on.
const Path = "/api/image"

// ExpiringHosts are the storage hosts behind Notion's signed, short-lived
// file links.
var ExpiringHosts = []string{
	"prod-files-secure.s3.us-west-2.amazonaws.com",
	"s3.us-west-2.amazonaws.com",
	"secure.notion-static.com",
	"file.notion.so",
}

var markupURL = regexp.MustCompile(buildPattern(ExpiringHosts))

func buildPattern(hosts []string) string {
	quoted := make([]string, len(hosts))
	for i, h := range hosts {
		quoted[i] = regexp.QuoteMeta(h)
	}
	return `(?i)https?://[^"'\s<>]*?(?:` + strings.Join(quoted, "|") + `)[^"'\s<>]*`
}

// IsExpiring reports whether raw is an absolute http(s) URL on one of the
// expiring hosts or a subdomain of one.
func IsExpiring(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range ExpiringHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// IsProxied reports whether raw already points at the proxy.
func IsProxied(raw string) bool {
	return strings.HasPrefix(raw, Path+"?url=")
}

// RewriteURL maps an expiring link to the proxy; anything else, including
// an already proxied reference, comes back unchanged.
func RewriteURL(raw string) string {
	if raw == "" || IsProxied(raw) || !IsExpiring(raw) {
		return raw
	}
	return Path + "?url=" + encodeComponent(raw)
}

// RewriteMarkup rewrites every expiring link found in an HTML fragment.
// Entities inside a match are decoded first so that "&amp;" separators in
// signed query strings reach the upstream as "&".
func RewriteMarkup(markup string) string {
	if markup == "" {
		return markup
	}
	return markupURL.ReplaceAllStringFunc(markup, rewriteMatch)
}

// rewriteMatch proxies match, or, when match is some other URL carrying an
// expiring link inside it (a viewer's ?url= parameter), rewrites the links
// found after its own scheme.
func rewriteMatch(match string) string {
	if rewritten := RewriteURL(html.UnescapeString(match)); IsProxied(rewritten) {
		return rewritten
	}
	i := strings.Index(match, "://")
	if i < 0 {
		return match
	}
	i += len("://")
	return match[:i] + markupURL.ReplaceAllStringFunc(match[i:], rewriteMatch)
}

// encodeComponent escapes like JavaScript's encodeURIComponent.
func encodeComponent(s string) string {
	var b strings.Builder
	const hex = "0123456789ABCDEF"
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
