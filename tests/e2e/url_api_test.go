// Package e2e contains end-to-end tests for full HTTP -> service -> response flows.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gourl/gourl/internal/config"
	"github.com/gourl/gourl/internal/handlers"
	"github.com/gourl/gourl/internal/idgen"
	"github.com/gourl/gourl/internal/normalize"
	"github.com/gourl/gourl/internal/repository"
	"github.com/gourl/gourl/internal/security"
	"github.com/gourl/gourl/internal/server"
	"github.com/gourl/gourl/internal/services"
	"github.com/gourl/gourl/pkg/logger"
)

// testShortenerServer creates a test server with the shortener API wired to
// an in-memory repository and a real snowflake-backed generator.
func testShortenerServer(t *testing.T) (*server.Server, string, func()) {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{
			Env:      "test",
			LogLevel: "error",
		},
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		URL: config.URLConfig{
			BaseURL:    "http://localhost:8080",
			InstanceID: 1,
		},
	}

	var buf bytes.Buffer
	log := logger.New(&buf, "error")
	srv := server.New(cfg, log)

	repo := repository.NewMemoryURLRepository()
	srv.SetURLRepository(repo)

	sf, err := idgen.NewSnowflake(cfg.URL.InstanceID)
	require.NoError(t, err)
	gen := idgen.NewShortCodeGenerator(sf)
	normalizer := normalize.New(security.DefaultConfig())

	svc := services.New(repo, gen, normalizer, cfg.URL.BaseURL, log)
	srv.SetShortenHandler(handlers.NewShortenHandler(svc))
	srv.SetRedirectHandler(handlers.NewRedirectHandler(svc))

	go func() { _ = srv.Start() }()

	time.Sleep(100 * time.Millisecond)

	addr := srv.Addr()
	require.NotEmpty(t, addr, "server should have an address")

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}

	return srv, "http://" + addr, cleanup
}

// noRedirectClient returns an HTTP client that doesn't follow redirects.
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// httpGetNoRedirect makes a GET request without following redirects.
func httpGetNoRedirect(t *testing.T, url string) *http.Response {
	t.Helper()
	ctx := context.Background()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	return resp
}

// httpPost makes a POST request with a JSON body.
func httpPost(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	jsonBody, err := json.Marshal(body)
	require.NoError(t, err)

	ctx := context.Background()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestE2E_ShortenURL(t *testing.T) {
	_, baseURL, cleanup := testShortenerServer(t)
	defer cleanup()

	t.Run("POST /api/shorten creates and returns a short URL", func(t *testing.T) {
		reqBody := handlers.ShortenRequest{
			URL: "https://example.com/very/long/path?query=value",
		}

		resp := httpPost(t, baseURL+"/api/shorten", reqBody)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var shortenResp handlers.ShortenResponse
		err := json.NewDecoder(resp.Body).Decode(&shortenResp)
		require.NoError(t, err)

		assert.NotEmpty(t, shortenResp.ShortCode)
		assert.Equal(t, "http://localhost:8080/"+shortenResp.ShortCode, shortenResp.ShortURL)
	})

	t.Run("POST /api/shorten with empty URL returns 400", func(t *testing.T) {
		reqBody := handlers.ShortenRequest{URL: ""}

		resp := httpPost(t, baseURL+"/api/shorten", reqBody)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var errResp handlers.ErrorResponse
		err := json.NewDecoder(resp.Body).Decode(&errResp)
		require.NoError(t, err)
		assert.NotEmpty(t, errResp.Error)
	})

	t.Run("POST /api/shorten with invalid URL returns 400", func(t *testing.T) {
		reqBody := handlers.ShortenRequest{URL: "not-a-valid-url"}

		resp := httpPost(t, baseURL+"/api/shorten", reqBody)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("POST /api/shorten twice with the same URL is idempotent", func(t *testing.T) {
		reqBody := handlers.ShortenRequest{URL: "https://example.com/idempotent"}

		first := httpPost(t, baseURL+"/api/shorten", reqBody)
		var firstResp handlers.ShortenResponse
		require.NoError(t, json.NewDecoder(first.Body).Decode(&firstResp))
		first.Body.Close()

		second := httpPost(t, baseURL+"/api/shorten", reqBody)
		var secondResp handlers.ShortenResponse
		require.NoError(t, json.NewDecoder(second.Body).Decode(&secondResp))
		second.Body.Close()

		assert.Equal(t, firstResp.ShortCode, secondResp.ShortCode)
	})
}

func TestE2E_Redirect(t *testing.T) {
	_, baseURL, cleanup := testShortenerServer(t)
	defer cleanup()

	t.Run("GET /{code} redirects to the original URL with 301", func(t *testing.T) {
		reqBody := handlers.ShortenRequest{URL: "https://example.com/redirect-test"}
		createResp := httpPost(t, baseURL+"/api/shorten", reqBody)
		require.Equal(t, http.StatusOK, createResp.StatusCode)

		var shortenResp handlers.ShortenResponse
		err := json.NewDecoder(createResp.Body).Decode(&shortenResp)
		createResp.Body.Close()
		require.NoError(t, err)

		resp := httpGetNoRedirect(t, baseURL+"/"+shortenResp.ShortCode)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
		assert.Equal(t, "https://example.com/redirect-test", resp.Header.Get("Location"))
	})

	t.Run("GET /{code} returns 404 for an unknown code", func(t *testing.T) {
		resp := httpGetNoRedirect(t, baseURL+"/notexist123")
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestE2E_ConcurrentShortenRequests(t *testing.T) {
	_, baseURL, cleanup := testShortenerServer(t)
	defer cleanup()

	t.Run("handles concurrent shorten requests for distinct URLs", func(t *testing.T) {
		const numRequests = 20
		results := make(chan int, numRequests)
		codes := make(chan string, numRequests)

		for i := 0; i < numRequests; i++ {
			go func(n int) {
				reqBody := handlers.ShortenRequest{
					URL: "https://example.com/concurrent/" + string(rune('a'+n)),
				}

				resp := httpPost(t, baseURL+"/api/shorten", reqBody)
				defer resp.Body.Close()

				if resp.StatusCode == http.StatusOK {
					var shortenResp handlers.ShortenResponse
					if err := json.NewDecoder(resp.Body).Decode(&shortenResp); err == nil {
						codes <- shortenResp.ShortCode
					}
				}
				results <- resp.StatusCode
			}(i)
		}

		successCount := 0
		for i := 0; i < numRequests; i++ {
			if <-results == http.StatusOK {
				successCount++
			}
		}

		assert.Equal(t, numRequests, successCount)

		close(codes)
		uniqueCodes := make(map[string]bool)
		for code := range codes {
			uniqueCodes[code] = true
		}
		assert.Equal(t, numRequests, len(uniqueCodes))
	})
}

func TestE2E_RedirectLatency(t *testing.T) {
	_, baseURL, cleanup := testShortenerServer(t)
	defer cleanup()

	t.Run("redirect latency is under 50ms for in-memory lookups", func(t *testing.T) {
		reqBody := handlers.ShortenRequest{URL: "https://example.com/latency-test"}
		createResp := httpPost(t, baseURL+"/api/shorten", reqBody)
		require.Equal(t, http.StatusOK, createResp.StatusCode)

		var shortenResp handlers.ShortenResponse
		err := json.NewDecoder(createResp.Body).Decode(&shortenResp)
		createResp.Body.Close()
		require.NoError(t, err)

		warmupResp := httpGetNoRedirect(t, baseURL+"/"+shortenResp.ShortCode)
		warmupResp.Body.Close()

		const numRequests = 10
		var totalLatency time.Duration

		for i := 0; i < numRequests; i++ {
			start := time.Now()
			resp := httpGetNoRedirect(t, baseURL+"/"+shortenResp.ShortCode)
			latency := time.Since(start)
			resp.Body.Close()

			assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
			totalLatency += latency
		}

		avgLatency := totalLatency / numRequests
		t.Logf("Average redirect latency: %v", avgLatency)

		assert.Less(t, avgLatency, 50*time.Millisecond,
			"average redirect latency should be under 50ms for in-memory lookups")
	})
}
