package util

import (
	"net/http"
	"net/url"
	"testing"
)

func proxyFor(t *testing.T, fn func(*http.Request) (*url.URL, error), rawURL string) *url.URL {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	proxy, err := fn(req)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	return proxy
}

func TestNewProxyFunc(t *testing.T) {
	fn := NewProxyFunc("http://proxy.internal:3128", "http://sproxy.internal:3128", "localhost,.example.org")

	if got := proxyFor(t, fn, "http://upstream.net/page"); got == nil || got.Host != "proxy.internal:3128" {
		t.Errorf("Expected http proxy, got %v", got)
	}
	if got := proxyFor(t, fn, "https://upstream.net/page"); got == nil || got.Host != "sproxy.internal:3128" {
		t.Errorf("Expected https proxy, got %v", got)
	}

	// noProxy entries bypass both exact hosts and domain suffixes
	if got := proxyFor(t, fn, "http://localhost:8080/page"); got != nil {
		t.Errorf("Expected direct connection for localhost, got %v", got)
	}
	if got := proxyFor(t, fn, "https://api.example.org/page"); got != nil {
		t.Errorf("Expected direct connection for bypassed domain, got %v", got)
	}
}

func TestNewProxyFunc_HTTPOnlyCoversHTTPS(t *testing.T) {
	fn := NewProxyFunc("http://proxy.internal:3128", "", "")
	if got := proxyFor(t, fn, "https://upstream.net/page"); got == nil || got.Host != "proxy.internal:3128" {
		t.Errorf("Expected http proxy to cover https traffic, got %v", got)
	}
}
