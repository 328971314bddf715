package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog-platform/internal/ai"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/blob"
	"github.com/sakif/blog-platform/internal/config"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository/sqlite"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Auth.JWTSecret = "server-test-secret-0123456789"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.BcryptCost = 4
	cfg.Server.ClientURL = "http://client.test"
	cfg.Storage.Driver = config.DriverSQLite
	return cfg
}

// newTestServer starts the full router over an in-memory database and a local
// blob store, and returns a client with a cookie jar.
func newTestServer(t *testing.T, ping func(context.Context) error) (*httptest.Server, *http.Client) {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts := httptest.NewUnstartedServer(nil)
	dir := t.TempDir()
	store, err := blob.NewLocalStore(dir, "http://"+ts.Listener.Addr().String()+"/uploads")
	require.NoError(t, err)

	srv, err := New(testConfig(), Deps{
		Users:     db,
		Posts:     db,
		Blobs:     store,
		UploadDir: store.Dir(),
		Ping:      ping,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts.Config.Handler = srv.Handler()
	ts.Start()
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar}
}

func do(t *testing.T, c *http.Client, method, url, contentType, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestServer_SessionFlow(t *testing.T) {
	ts, client := newTestServer(t, nil)
	const jsonType = "application/json"

	resp, body := do(t, client, http.MethodGet, ts.URL+"/api/user/profile", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "null", strings.TrimSpace(body))

	resp, _ = do(t, client, http.MethodPost, ts.URL+"/api/user/register", jsonType,
		`{"username":"alice","name":"Alice","password":"Str0ng!pass"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, client, http.MethodPost, ts.URL+"/api/post", "application/x-www-form-urlencoded", "title=Hello")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "creating requires a session")

	resp, _ = do(t, client, http.MethodPost, ts.URL+"/api/user/login", jsonType,
		`{"username":"alice","password":"Str0ng!pass"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, client, http.MethodGet, ts.URL+"/api/user/profile", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var id model.Identity
	require.NoError(t, json.Unmarshal([]byte(body), &id))
	assert.Equal(t, "alice", id.Username)

	resp, body = do(t, client, http.MethodPost, ts.URL+"/api/post", "application/x-www-form-urlencoded", "title=Hello&postTags=Web")
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	resp, body = do(t, client, http.MethodGet, ts.URL+"/api/post?following=true", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"totalPages":0,"posts":[]}`, body, "following nobody yields an empty feed")

	resp, body = do(t, client, http.MethodGet, ts.URL+"/api/post", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page model.FeedPage
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "alice", page.Posts[0].Author.Username)

	resp, body = do(t, client, http.MethodGet, ts.URL+"/api/user", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "$2a$")

	resp, _ = do(t, client, http.MethodPost, ts.URL+"/api/user/logout", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, client, http.MethodGet, ts.URL+"/api/user/profile", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "null", strings.TrimSpace(body))
}

func TestServer_InvalidCookieIsAnonymous(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/post", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "not-a-jwt"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ProtectedRoutes(t *testing.T) {
	ts, client := newTestServer(t, nil)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/user"},
		{http.MethodPut, "/api/user"},
		{http.MethodPost, "/api/user/follow/x"},
		{http.MethodPut, "/api/post"},
		{http.MethodDelete, "/api/post/x"},
		{http.MethodPost, "/api/post/x/comment"},
		{http.MethodPut, "/api/post/x/comment/c"},
		{http.MethodDelete, "/api/post/x/comment/c"},
		{http.MethodPost, "/api/post/x/like"},
		{http.MethodPost, "/api/ai/summary"},
		{http.MethodPost, "/api/ai/content"},
		{http.MethodPost, "/api/ai/image"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			resp, _ := do(t, client, rt.method, ts.URL+rt.path, "", "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}

	resp, _ := do(t, client, http.MethodGet, ts.URL+"/api/user/google", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "google routes need credentials")
}

func TestServer_CORS(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/post", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://client.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "http://client.test", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestServer_HealthAndMetrics(t *testing.T) {
	ts, client := newTestServer(t, nil)

	resp, body := do(t, client, http.MethodGet, ts.URL+"/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	do(t, client, http.MethodGet, ts.URL+"/api/post/missing", "", "")

	resp, body = do(t, client, http.MethodGet, ts.URL+"/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `blog_http_requests_total{method="GET",route="/api/post/{id}",status="404"} 1`)
}

func TestServer_HealthReportsStorageFailure(t *testing.T) {
	ts, client := newTestServer(t, func(context.Context) error { return errors.New("down") })

	resp, _ := do(t, client, http.MethodGet, ts.URL+"/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNew_RequiresSecret(t *testing.T) {
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	cfg.Auth.JWTSecret = "short"
	_, err = New(cfg, Deps{Users: db, Posts: db}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestWriteTimeout_OutlastsAIBudget(t *testing.T) {
	tests := []struct {
		name   string
		budget time.Duration
		want   time.Duration
	}{
		{name: "unset uses the default budget", budget: 0, want: ai.DefaultLimits().Timeout + aiWriteMargin},
		{name: "default budget", budget: 60 * time.Second, want: 75 * time.Second},
		{name: "long budget", budget: 3 * time.Minute, want: 3*time.Minute + aiWriteMargin},
		{name: "short budget", budget: time.Second, want: 16 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.OpenAI.Timeout = tt.budget

			got := writeTimeoutFor(cfg)
			assert.Equal(t, tt.want, got)

			effective := tt.budget
			if effective <= 0 {
				effective = ai.DefaultLimits().Timeout
			}
			assert.Greater(t, got, effective, "the response must be writable after a full AI call")
			assert.GreaterOrEqual(t, got, writeTimeout)
		})
	}
}

func TestHTTPServer_UsesAIAwareWriteTimeout(t *testing.T) {
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	cfg.OpenAI.Timeout = 90 * time.Second
	srv, err := New(cfg, Deps{Users: db, Posts: db}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	hs := srv.httpServer()
	assert.Greater(t, hs.WriteTimeout, cfg.OpenAI.Timeout)
	assert.Equal(t, readTimeout, hs.ReadTimeout)
}
