package common

import (
	"net/url"
	"path"
	"strings"
)

// NormalizeURL canonicalizes a URL for dedup comparisons: lowercases the
// scheme and host, strips the fragment and drops a trailing slash from
// non-root paths. Query strings are preserved because several publishers
// key downloads off them.
func NormalizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	if len(parsed.Path) > 1 && strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimRight(parsed.Path, "/")
	}
	return parsed.String()
}

// ResolveURL resolves href against base, returning an absolute URL.
// Returns "" when either side fails to parse.
func ResolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}

// HostOf extracts the lowercased host from a URL, with any leading
// "www." stripped so that www.treasury.go.ke and treasury.go.ke compare
// equal.
func HostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// SameHost reports whether two URLs point at the same publisher host,
// ignoring a "www." prefix on either side.
func SameHost(a, b string) bool {
	ha, hb := HostOf(a), HostOf(b)
	return ha != "" && ha == hb
}

// URLExtension returns the lowercased file extension of the URL path
// without the leading dot, e.g. "pdf". Empty when the path has none.
func URLExtension(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	return strings.TrimPrefix(ext, ".")
}

// URLBasename returns the final path segment of the URL, or "" for root.
func URLBasename(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// JoinPath safely joins path segments, preventing duplicate slashes
func JoinPath(segments ...string) string {
	result := ""
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if result == "" {
			result = seg
		} else if result[len(result)-1] == '/' {
			if seg[0] == '/' {
				result += seg[1:]
			} else {
				result += seg
			}
		} else {
			if seg[0] == '/' {
				result += seg
			} else {
				result += "/" + seg
			}
		}
	}
	return result
}
