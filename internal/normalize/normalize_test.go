package normalize

import "testing"

func TestURLCanonicalForm(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "https://GitHub.com/a/b", "https://github.com/a/b"},
		{"drops default https port", "https://example.com:443/path", "https://example.com/path"},
		{"drops default http port", "http://example.com:80/path", "http://example.com/path"},
		{"keeps non-default port", "http://example.com:8080/path", "http://example.com:8080/path"},
		{"strips one trailing slash", "https://x.com/a/", "https://x.com/a"},
		{"keeps root slash", "https://x.com/", "https://x.com"},
		{"preserves query order", "https://x.com/a?b=1&a=2", "https://x.com/a?b=1&a=2"},
		{"preserves path case", "https://x.com/MixedCase", "https://x.com/MixedCase"},
		{"preserves fragment", "https://x.com/a#frag", "https://x.com/a#frag"},
		{"unparseable falls back lowercased trimmed", "  NOT A URL ", "not a url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := URL(tc.in)
			if got != tc.want {
				t.Errorf("URL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestURLDuplicateFolding(t *testing.T) {
	variants := []string{"https://x.com/", "https://x.com", "HTTPS://X.COM/"}
	first := URL(variants[0])
	for _, v := range variants[1:] {
		if URL(v) != first {
			t.Errorf("expected %q and %q to normalize identically, got %q and %q", variants[0], v, first, URL(v))
		}
	}
	if first != "https://x.com" {
		t.Errorf("expected canonical form https://x.com, got %q", first)
	}
}

func TestEqual(t *testing.T) {
	if !Equal("https://x.com/", "https://x.com") {
		t.Error("expected trailing-slash variants to be equal")
	}
	if Equal("https://x.com/a", "https://x.com/b") {
		t.Error("expected different paths to be unequal")
	}
}
