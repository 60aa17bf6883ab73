package httpapi

import "testing"

func TestIsValidHTTPURL(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"https://example.com", true},
		{"http://EXAMPLE.com", true},
		{"ftp://x", false},
		{"", false},
		{"https://", false},
		{"http://[::1]:8080/", true},
		{"/relative/path", false},
	}
	for _, c := range cases {
		if got := isValidHTTPURL(c.in); got != c.want {
			t.Fatalf("isValidHTTPURL(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeHTTPURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://EXAMPLE.com/", "https://example.com"},
		{"http://example.com:80", "http://example.com"},
		{"https://example.com:443/", "https://example.com"},
		{"https://example.com/p/", "https://example.com/p/"},
		{"https://example.com/a#section", "https://example.com/a"},
		{"http://x:8080", "http://x:8080"},
		{"HTTP://Example.com:8443/p?q=1", "http://example.com:8443/p?q=1"},
		{"http://[::1]:80/", "http://[::1]"},
		{"http://[FE80::1]:8080/p", "http://[fe80::1]:8080/p"},
	}
	for _, c := range cases {
		if got := normalizeHTTPURL(c.in); got != c.want {
			t.Fatalf("normalizeHTTPURL(%q)=%q want %q", c.in, got, c.want)
		}
	}
}
