package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/watchtower/internal/cache"
	"github.com/ppiankov/watchtower/internal/model"
	"github.com/ppiankov/watchtower/internal/store"
)

func testHTTPConfig() (model.HTTPConfig, model.CollectConfig, model.CacheConfig) {
	httpCfg := model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "Watchtower-test/0.1",
		MaxBodyBytes: 1 << 20,
	}
	collectCfg := model.CollectConfig{RespectRobots: false, RequestsPerSecond: 100}
	cacheCfg := model.CacheConfig{Enabled: false}
	return httpCfg, collectCfg, cacheCfg
}

func TestHTTP_Extract(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("User-Agent") != "Watchtower-test/0.1" {
			t.Errorf("Expected configured user agent, got %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body>
			<p>incident report text</p>
			<a href="/followup">relative</a>
			<a href="https://external.example/page#frag">external</a>
			<a href="mailto:someone@example.org">mail</a>
		</body></html>`)
	}))
	defer srv.Close()

	httpCfg, collectCfg, cacheCfg := testHTTPConfig()
	h := NewHTTP(httpCfg, collectCfg, cacheCfg, nil)

	inputs, err := h.Extract(context.Background(), Descriptor{Source: srv.URL})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(inputs) != 1 {
		t.Fatalf("Expected one input, got %d", len(inputs))
	}
	in := inputs[0]
	if !strings.Contains(in.Content, "incident report text") {
		t.Error("Expected page body in the input content")
	}
	if in.Metadata["status_code"] != "200" {
		t.Errorf("Expected status metadata, got %v", in.Metadata)
	}
	if !strings.Contains(in.Metadata["content_type"], "text/html") {
		t.Errorf("Expected content type metadata, got %v", in.Metadata)
	}

	links := in.Metadata["links"]
	if !strings.Contains(links, srv.URL+"/followup") {
		t.Errorf("Expected relative link resolved against the page URL, got %q", links)
	}
	if !strings.Contains(links, "https://external.example/page") {
		t.Errorf("Expected external link captured, got %q", links)
	}
	if strings.Contains(links, "mailto:") {
		t.Errorf("Expected non-http links dropped, got %q", links)
	}
	if strings.Contains(links, "#frag") {
		t.Errorf("Expected fragments stripped, got %q", links)
	}
}

func TestHTTP_Extract_CacheHitSkipsNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, "<html><body>cacheable body</body></html>")
	}))
	defer srv.Close()

	httpCfg, collectCfg, _ := testHTTPConfig()
	cacheCfg := model.CacheConfig{Enabled: true, TTL: time.Minute}
	h := NewHTTP(httpCfg, collectCfg, cacheCfg, cache.NewMemory(time.Minute, time.Minute))

	if _, err := h.Extract(context.Background(), Descriptor{Source: srv.URL}); err != nil {
		t.Fatalf("first Extract failed: %v", err)
	}
	inputs, err := h.Extract(context.Background(), Descriptor{Source: srv.URL})
	if err != nil {
		t.Fatalf("second Extract failed: %v", err)
	}

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("Expected one network fetch, got %d", got)
	}
	if inputs[0].Metadata["cache"] != "hit" {
		t.Errorf("Expected cache hit metadata, got %v", inputs[0].Metadata)
	}
	if !strings.Contains(inputs[0].Content, "cacheable body") {
		t.Error("Expected cached body to be served")
	}
}

func TestHTTP_Extract_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	httpCfg, collectCfg, cacheCfg := testHTTPConfig()
	h := NewHTTP(httpCfg, collectCfg, cacheCfg, nil)

	if _, err := h.Extract(context.Background(), Descriptor{Source: srv.URL}); err == nil {
		t.Error("Expected error for a 410 response")
	}
	if _, err := h.Extract(context.Background(), Descriptor{}); err == nil {
		t.Error("Expected error for empty source")
	}
}

func TestHTTP_Extract_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 5000))
	}))
	defer srv.Close()

	httpCfg, collectCfg, cacheCfg := testHTTPConfig()
	httpCfg.MaxBodyBytes = 1024
	h := NewHTTP(httpCfg, collectCfg, cacheCfg, nil)

	inputs, err := h.Extract(context.Background(), Descriptor{Source: srv.URL})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(inputs[0].Content) != 1024 {
		t.Errorf("Expected body truncated to 1024 bytes, got %d", len(inputs[0].Content))
	}
}

func TestCollectAll_StoresInDescriptorOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body>page %s</body></html>", r.URL.Path)
	}))
	defer srv.Close()

	httpCfg, collectCfg, cacheCfg := testHTTPConfig()
	reg := NewRegistry()
	if err := reg.Register(NewHTTP(httpCfg, collectCfg, cacheCfg, nil)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(&Manual{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	ledger := store.NewMemory(0)
	descriptors := []Descriptor{
		{Collector: "http", Source: srv.URL + "/one"},
		{Collector: "manual", Content: "typed note", Source: "notebook"},
		{Collector: "http", Source: srv.URL + "/two"},
		{Collector: "carrier-pigeon", Source: "nowhere"},
	}

	results, err := CollectAll(context.Background(), reg, ledger, descriptors, 3)
	if err != nil {
		t.Fatalf("CollectAll failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}

	for i := 0; i < 3; i++ {
		if results[i].Err != nil {
			t.Errorf("Result %d: unexpected error %v", i, results[i].Err)
		}
		if len(results[i].Evidence) != 1 {
			t.Errorf("Result %d: expected one evidence record, got %d", i, len(results[i].Evidence))
		}
	}
	if results[3].Err == nil {
		t.Error("Expected the unknown collector to fail its descriptor")
	}

	// storage order follows descriptor order regardless of fetch completion order
	items, err := ledger.ListEvidence(store.EvidenceFilter{})
	if err != nil {
		t.Fatalf("ListEvidence failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 stored records, got %d", len(items))
	}
	if !strings.Contains(items[0].Content, "/one") || items[1].Source != "notebook" || !strings.Contains(items[2].Content, "/two") {
		t.Error("Expected ledger order to follow descriptor order")
	}

	// collector identity is stamped on the records
	if items[0].Tool.Name != "http" || items[1].Tool.Name != "manual" {
		t.Errorf("Expected collector tool identities, got %s and %s", items[0].Tool.Name, items[1].Tool.Name)
	}
}
