package probe

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultHeaders emulate a desktop browser; some origins reject bare clients.
var DefaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/100.0.4896.127 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Cache-Control":   "no-cache",
}

// HeaderTable resolves the request headers for a hostname: the defaults,
// overlaid with the most specific per-domain override. It is read-only
// after construction.
type HeaderTable struct {
	defaults  http.Header
	overrides map[string]http.Header
}

func NewHeaderTable(overrides map[string]map[string]string) *HeaderTable {
	t := &HeaderTable{
		defaults:  toHeader(DefaultHeaders),
		overrides: make(map[string]http.Header, len(overrides)),
	}
	for host, hs := range overrides {
		t.overrides[normalizeHost(host)] = toHeader(hs)
	}
	return t
}

// For returns a fresh header set for host. An override registered for
// "example.com" also applies to "www.example.com".
func (t *HeaderTable) For(host string) http.Header {
	h := t.defaults.Clone()
	host = normalizeHost(host)
	for host != "" {
		if o, ok := t.overrides[host]; ok {
			for k, vs := range o {
				h[k] = append([]string(nil), vs...)
			}
			break
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return h
}

type headerFile struct {
	Hosts map[string]map[string]string `yaml:"hosts"`
}

// LoadHeaderOverrides reads a YAML file of the form
//
//	hosts:
//	  example.com:
//	    Referer: https://www.example.com/
func LoadHeaderOverrides(path string) (map[string]map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read header overrides: %w", err)
	}
	var f headerFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse header overrides %s: %w", path, err)
	}
	return f.Hosts, nil
}

func toHeader(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}
