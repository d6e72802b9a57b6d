package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const resultsPage = `<html><body>
<div class="results">
  <div class="result results_links results_links_deep web-result">
    <div class="links_main result__body">
      <h2 class="result__title">
        <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Ffour-day-week&amp;rut=abc">Four-day <b>week</b> trial</a>
      </h2>
      <a class="result__snippet" href="#">Productivity held steady across 61 companies.</a>
    </div>
  </div>
  <div class="result results_links web-result">
    <a class="result__a" href="https://direct.example.org/report">Direct report</a>
    <div class="result__snippet">Second snippet</div>
  </div>
  <div class="result results_links web-result">
    <a class="result__a" href="https://third.example.net/">Third</a>
  </div>
  <div class="result result--ad"><span>no link here</span></div>
</div>
</body></html>`

func newTestWeb(t *testing.T, handler http.HandlerFunc, mutate ...func(*WebConfig)) (*Web, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := WebConfig{SearchEndpoint: srv.URL + "/html/", MaxResults: 5, MaxPageLength: 5000}
	for _, m := range mutate {
		m(&cfg)
	}
	return NewWeb(cfg, zaptest.NewLogger(t)), srv
}

func TestWeb_Search(t *testing.T) {
	web, _ := newTestWeb(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "4-day workweek", r.PostForm.Get("q"))
		w.Write([]byte(resultsPage))
	})

	results, err := web.Search(context.Background(), "  4-day workweek ")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, Snippet{
		Title:   "Four-day week trial",
		URL:     "https://example.com/four-day-week",
		Snippet: "Productivity held steady across 61 companies.",
	}, results[0])
	assert.Equal(t, "https://direct.example.org/report", results[1].URL)
	assert.Equal(t, "Second snippet", results[1].Snippet)
	assert.Empty(t, results[2].Snippet)
}

func TestWeb_SearchRespectsMaxResults(t *testing.T) {
	web, _ := newTestWeb(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsPage))
	}, func(c *WebConfig) { c.MaxResults = 1 })

	results, err := web.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestWeb_SearchFailures(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		web := NewWeb(WebConfig{}, nil)
		_, err := web.Search(context.Background(), "   ")
		assert.ErrorIs(t, err, ErrToolUnavailable)
	})

	t.Run("http error", func(t *testing.T) {
		web, _ := newTestWeb(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		_, err := web.Search(context.Background(), "q")
		assert.ErrorIs(t, err, ErrToolUnavailable)
		assert.Contains(t, err.Error(), "HTTP 403")
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		web, _ := newTestWeb(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}, func(c *WebConfig) { c.Timeout = 50 * time.Millisecond })
		defer close(release)

		_, err := web.Search(context.Background(), "q")
		assert.ErrorIs(t, err, ErrToolUnavailable)
	})
}

func TestWeb_Fetch(t *testing.T) {
	web, srv := newTestWeb(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>T</title><style>body{}</style></head><body>
<nav>menu menu</nav>
<h1>Four-day   week</h1>
<script>alert(1)</script>
<p>Output   was stable.</p>


<p>Staff reported less burnout.</p>
<footer>copyright</footer>
</body></html>`))
	})

	text, err := web.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "Four-day week\n\nOutput was stable.\n\nStaff reported less burnout.", text)
	for _, hidden := range []string{"menu", "alert", "copyright", "body{}"} {
		assert.NotContains(t, text, hidden)
	}
}

func TestWeb_FetchTruncates(t *testing.T) {
	web, srv := newTestWeb(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>" + strings.Repeat("a", 500) + "</p>"))
	}, func(c *WebConfig) { c.MaxPageLength = 100 })

	text, err := web.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 100)+TruncationMarker, text)
}

func TestWeb_FetchFailures(t *testing.T) {
	web, srv := newTestWeb(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := web.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrToolUnavailable)

	_, err = web.Fetch(context.Background(), "file:///etc/passwd")
	assert.ErrorIs(t, err, ErrToolUnavailable)
}

func TestUnavailable(t *testing.T) {
	var g Gateway = Unavailable{}
	_, err := g.Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrToolUnavailable)
	_, err = g.Fetch(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, ErrToolUnavailable)
}

func TestUnwrapRedirect(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example%2Fx%3Fy%3D1&rut=z", "https://a.example/x?y=1"},
		{"https://duckduckgo.com/l/?uddg=https%3A%2F%2Fb.example", "https://b.example"},
		{"https://plain.example/", "https://plain.example/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, unwrapRedirect(tt.in))
	}
}
