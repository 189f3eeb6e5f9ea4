// Package normalize canonicalizes bookmark URLs for equality and storage.
package normalize

import (
	"net/url"
	"strings"
)

// URL returns the canonical form of raw used for equality comparisons and
// as the storage key for bookmarks (spec §4.2).
//
// Steps: parse (fall back to a lowercased/trimmed string on failure),
// lowercase the host, drop default ports, strip a trailing slash (a bare
// host with no path and a host with only "/" are the same resource), and
// leave query/fragment untouched.
func URL(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}

	u.Host = strings.ToLower(u.Host)
	u.Host = dropDefaultPort(u)

	if u.Path == "/" {
		u.Path = ""
	} else {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String()
}

func dropDefaultPort(u *url.URL) string {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		return u.Host
	}

	switch {
	case u.Scheme == "http" && port == "80":
		return host
	case u.Scheme == "https" && port == "443":
		return host
	default:
		return host + ":" + port
	}
}

// Equal reports whether two raw URLs canonicalize to the same form.
func Equal(a, b string) bool {
	return URL(a) == URL(b)
}
