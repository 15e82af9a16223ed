package collect

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/ppiankov/watchtower/internal/cache"
	"github.com/ppiankov/watchtower/internal/model"
	"github.com/ppiankov/watchtower/internal/util"
)

// maxCapturedLinks caps how many outbound links are recorded per page.
const maxCapturedLinks = 50

// HTTP collects evidence from web sources: robots-aware, rate-limited, with
// a read-through byte cache so re-collection inside the TTL window does not
// hit the network.
type HTTP struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	robots    *util.RobotsChecker // nil disables robots checking
	limiter   *rate.Limiter
	cache     cache.Cache // nil disables caching
	cacheTTL  time.Duration
}

// NewHTTP builds the http collector from configuration. byteCache may be nil.
func NewHTTP(httpCfg model.HTTPConfig, collectCfg model.CollectConfig, cacheCfg model.CacheConfig, byteCache cache.Cache) *HTTP {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
	}
	if httpCfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	var robots *util.RobotsChecker
	if collectCfg.RespectRobots {
		robots = util.NewRobotsChecker(util.NormalizeUserAgent(httpCfg.UserAgent), 10*time.Second)
	}

	rps := collectCfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	if !cacheCfg.Enabled {
		byteCache = nil
	}

	return &HTTP{
		client: &http.Client{
			Timeout:   httpCfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: httpCfg.UserAgent,
		maxBytes:  httpCfg.MaxBodyBytes,
		robots:    robots,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		cache:     byteCache,
		cacheTTL:  cacheCfg.TTL,
	}
}

// Name returns the registry name.
func (h *HTTP) Name() string { return "http" }

// Version returns the collector version.
func (h *HTTP) Version() string { return "0.1.0" }

// Extract fetches the descriptor's URL and wraps the body as one input,
// capturing outbound links and response metadata.
func (h *HTTP) Extract(ctx context.Context, d Descriptor) ([]Input, error) {
	if d.Source == "" {
		return nil, fmt.Errorf("http collector: source URL is required")
	}

	if h.cache != nil {
		if body, found := h.cache.Get(cache.Key(d.Source)); found {
			return h.inputs(d, d.Source, string(body), map[string]string{"cache": "hit"}), nil
		}
	}

	if h.robots != nil {
		allowed, crawlDelay, err := h.robots.CanFetch(ctx, d.Source)
		if err != nil {
			return nil, fmt.Errorf("http collector: robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("http collector: robots.txt disallows fetching %s", d.Source)
		}
		if crawlDelay > 0 {
			select {
			case <-time.After(crawlDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.Source, nil)
	if err != nil {
		return nil, fmt.Errorf("http collector: create request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http collector: fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http collector: unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("http collector: read body: %w", err)
	}

	if h.cache != nil {
		_ = h.cache.Set(cache.Key(d.Source), body, h.cacheTTL)
	}

	meta := map[string]string{
		"status_code": strconv.Itoa(resp.StatusCode),
	}
	for header, key := range map[string]string{
		"Content-Type":  "content_type",
		"Last-Modified": "last_modified",
		"ETag":          "etag",
	} {
		if v := resp.Header.Get(header); v != "" {
			meta[key] = v
		}
	}

	return h.inputs(d, resp.Request.URL.String(), string(body), meta), nil
}

func (h *HTTP) inputs(d Descriptor, finalURL, body string, meta map[string]string) []Input {
	if links := extractLinks(body, finalURL); len(links) > 0 {
		meta["links"] = strings.Join(links, " ")
	}
	return []Input{{
		Content:  body,
		Source:   finalURL,
		Metadata: mergeMetadata(meta, d.Metadata),
	}}
}

// extractLinks walks the HTML and collects absolute outbound hrefs.
func extractLinks(body, baseURL string) []string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	links := []string{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(links) >= maxCapturedLinks {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				ref, err := url.Parse(attr.Val)
				if err != nil {
					continue
				}
				abs := base.ResolveReference(ref)
				if abs.Scheme != "http" && abs.Scheme != "https" {
					continue
				}
				abs.Fragment = ""
				s := abs.String()
				if !seen[s] {
					seen[s] = true
					links = append(links, s)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}
