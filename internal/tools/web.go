package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	// DuckDuckGoEndpoint is the HTML-only search front end.
	DuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

	// TruncationMarker is appended to fetched pages cut at MaxPageLength.
	TruncationMarker = "\n\n[content truncated]"

	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	redirectPrefix = "//duckduckgo.com/l/?uddg="

	searchBodyLimit = 1 << 20
	fetchBodyLimit  = 2 << 20
)

var (
	blankLines  = regexp.MustCompile(`\n{3,}`)
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	skippedTags = map[string]bool{
		"script": true, "style": true, "noscript": true, "meta": true,
		"head": true, "nav": true, "footer": true, "svg": true, "iframe": true,
	}
	blockTags = map[string]bool{
		"p": true, "div": true, "section": true, "article": true, "br": true,
		"li": true, "tr": true, "h1": true, "h2": true, "h3": true,
		"h4": true, "h5": true, "h6": true, "pre": true, "blockquote": true,
	}
)

// WebConfig tunes a Web gateway.
type WebConfig struct {
	// SearchEndpoint overrides DuckDuckGoEndpoint.
	SearchEndpoint string
	MaxResults     int
	MaxPageLength  int
	// Timeout bounds each Search or Fetch call. Zero means no extra bound.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Web searches DuckDuckGo and fetches pages as plain text.
type Web struct {
	cfg    WebConfig
	http   *http.Client
	logger *zap.Logger
}

// NewWeb creates a Web gateway.
func NewWeb(cfg WebConfig, logger *zap.Logger) *Web {
	if cfg.SearchEndpoint == "" {
		cfg.SearchEndpoint = DuckDuckGoEndpoint
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Web{cfg: cfg, http: client, logger: logger}
}

// Search returns up to MaxResults hits for the query.
func (w *Web) Search(ctx context.Context, query string) ([]Snippet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", ErrToolUnavailable)
	}

	ctx, cancel := w.bound(ctx)
	defer cancel()

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.SearchEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create search request: %v", ErrToolUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	body, err := w.do(req, searchBodyLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %v", ErrToolUnavailable, query, err)
	}

	results, err := parseResults(body, w.cfg.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("%w: parse search results: %v", ErrToolUnavailable, err)
	}

	w.logger.Debug("search completed", zap.String("query", query), zap.Int("results", len(results)))
	return results, nil
}

// Fetch downloads a page and reduces it to readable text.
func (w *Web) Fetch(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("%w: unsupported URL %q", ErrToolUnavailable, pageURL)
	}

	ctx, cancel := w.bound(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create fetch request: %v", ErrToolUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9")

	body, err := w.do(req, fetchBodyLimit)
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %v", ErrToolUnavailable, pageURL, err)
	}

	text, err := pageText(body)
	if err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", ErrToolUnavailable, pageURL, err)
	}

	w.logger.Debug("fetch completed", zap.String("url", pageURL), zap.Int("chars", len(text)))
	return truncate(text, w.cfg.MaxPageLength), nil
}

func (w *Web) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, w.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (w *Web) do(req *http.Request, limit int64) (string, error) {
	resp, err := w.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

// parseResults walks DuckDuckGo's HTML results page.
func parseResults(content string, max int) ([]Snippet, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	var results []Snippet
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= max {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if r := extractResult(n); r.URL != "" && r.Title != "" {
				results = append(results, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func extractResult(n *html.Node) Snippet {
	var r Snippet
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				r.URL = attr(n, "href")
				r.Title = textContent(n)
			case hasClass(n, "result__snippet"):
				r.Snippet = textContent(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	r.URL = unwrapRedirect(r.URL)
	return r
}

// unwrapRedirect resolves DuckDuckGo's click-tracking links to the target URL.
func unwrapRedirect(link string) string {
	trimmed := strings.TrimPrefix(link, "https:")
	if !strings.HasPrefix(trimmed, redirectPrefix) {
		return link
	}
	encoded := strings.TrimPrefix(trimmed, redirectPrefix)
	if idx := strings.Index(encoded, "&"); idx > 0 {
		encoded = encoded[:idx]
	}
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return link
	}
	return decoded
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

// pageText extracts the visible text of an HTML document, one block per line.
func pageText(content string) (string, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(*html.Node, int)
	walk = func(n *html.Node, depth int) {
		if depth > 200 {
			return
		}
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString(" ")
			}
		case html.ElementNode:
			if skippedTags[n.Data] {
				return
			}
			if blockTags[n.Data] {
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth+1)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			sb.WriteString("\n")
		}
	}
	walk(doc, 0)
	return cleanText(sb.String()), nil
}

func cleanText(s string) string {
	lines := strings.Split(spaceRuns.ReplaceAllString(s, " "), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + TruncationMarker
}
