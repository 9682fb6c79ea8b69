package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"note-drop/pkg/config"
	"note-drop/pkg/logger"
	"note-drop/pkg/store"
)

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "Note-Drop", BaseURL: "https://note.example"},
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 8080, Mode: "test"},
		Session: config.SessionConfig{Name: "notedrop", Secret: "test-secret"},
		Metrics: config.MetricsConfig{Enabled: true},
		Editor:  config.EditorConfig{Debounce: config.DefaultDebounce},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, st store.Store) http.Handler {
	t.Helper()
	srv, err := New(cfg, st, logger.Nop())
	require.NoError(t, err)
	return srv.Handler()
}

func newFileStore(t *testing.T) *store.FileStore {
	return store.NewFileStore(filepath.Join(t.TempDir(), "pages.json"))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPutThenGet(t *testing.T) {
	h := newTestServer(t, testConfig(), newFileStore(t))

	w := do(t, h, http.MethodPut, "/api/pages/my-note", `{"markdown":"# Hi"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"markdown":"# Hi"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/pages/my-note", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"markdown":"# Hi"}`, w.Body.String())
}

func TestGetUnknownSlug(t *testing.T) {
	h := newTestServer(t, testConfig(), newFileStore(t))

	w := do(t, h, http.MethodGet, "/api/pages/never-seen", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"markdown":""}`, w.Body.String())
}

func TestPutInvalidPayloadKeepsStoredValue(t *testing.T) {
	st := newFileStore(t)
	h := newTestServer(t, testConfig(), st)
	require.NoError(t, st.Put(context.Background(), "note", "kept"))

	for _, body := range []string{
		`{"markdown":123}`,
		`{"markdown":null}`,
		`{"other":"x"}`,
		`["markdown"]`,
		`not json`,
	} {
		w := do(t, h, http.MethodPut, "/api/pages/note", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"error":"Invalid payload"}`, w.Body.String(), body)
	}

	got, err := st.Get(context.Background(), "note")
	require.NoError(t, err)
	assert.Equal(t, "kept", got)
}

func TestPutEmptyMarkdown(t *testing.T) {
	st := newFileStore(t)
	h := newTestServer(t, testConfig(), st)

	w := do(t, h, http.MethodPut, "/api/pages/blank", `{"markdown":""}`)
	assert.Equal(t, http.StatusOK, w.Code)

	got, err := st.Get(context.Background(), "blank")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

type failingStore struct{ store.Store }

func (failingStore) Put(ctx context.Context, slug, markdown string) error {
	return &store.StorageError{Op: "put", Slug: slug, Err: errors.New("disk full")}
}

func (failingStore) Get(ctx context.Context, slug string) (string, error) {
	return "", store.ErrNotFound
}

func TestPutStorageFailure(t *testing.T) {
	h := newTestServer(t, testConfig(), failingStore{})

	w := do(t, h, http.MethodPut, "/api/pages/note", `{"markdown":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to save"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "disk full")
}

func TestPreview(t *testing.T) {
	h := newTestServer(t, testConfig(), newFileStore(t))

	w := do(t, h, http.MethodPost, "/api/preview", `{"markdown":"**bold**"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<strong>bold</strong>`)

	w = do(t, h, http.MethodPost, "/api/preview", `{"markdown":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditorPage(t *testing.T) {
	st := newFileStore(t)
	h := newTestServer(t, testConfig(), st)
	require.NoError(t, st.Put(context.Background(), "groceries", "# Shopping\nmilk & eggs"))

	w := do(t, h, http.MethodGet, "/groceries", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<title>Shopping | Note-Drop</title>")
	assert.Contains(t, body, `data-slug="groceries"`)
	assert.Contains(t, body, `data-debounce="600"`)
	assert.Contains(t, body, "milk &amp; eggs")
	assert.Contains(t, body, `<h1 id="shopping">Shopping</h1>`)
}

func TestEditorPageUnknownSlugShowsTemplate(t *testing.T) {
	h := newTestServer(t, testConfig(), newFileStore(t))

	w := do(t, h, http.MethodGet, "/fresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<title>Untitled Page | Note-Drop</title>")
	assert.Contains(t, body, "Start writing your markdown here...")
}

func TestHomeRemembersLastSlug(t *testing.T) {
	h := newTestServer(t, testConfig(), newFileStore(t))

	w := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/change-me"`)

	w = do(t, h, http.MethodGet, "/my-notes", "")
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `href="/my-notes"`)
}

func TestSitemapFollowsSaves(t *testing.T) {
	h := newTestServer(t, testConfig(), newFileStore(t))

	w := do(t, h, http.MethodGet, "/sitemap.xml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.NotContains(t, w.Body.String(), "https://note.example/alpha")

	do(t, h, http.MethodPut, "/api/pages/alpha", `{"markdown":"a"}`)

	w = do(t, h, http.MethodGet, "/sitemap.xml", "")
	assert.Contains(t, w.Body.String(), "<loc>https://note.example/alpha</loc>")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, testConfig(), newFileStore(t))

	w := do(t, h, http.MethodGet, "/_/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	do(t, h, http.MethodPut, "/api/pages/m", `{"markdown":"x"}`)
	w = do(t, h, http.MethodGet, "/_/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `notedrop_page_saves_total{result="ok"} 1`)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="PUT",path="/api/pages/:slug",status="200"} 1`)
}

func TestStaticAssets(t *testing.T) {
	h := newTestServer(t, testConfig(), newFileStore(t))

	w := do(t, h, http.MethodGet, "/static/editor.js", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/pages/")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RateLimitRequests: 1, RateLimitBurst: 2}
	h := newTestServer(t, cfg, newFileStore(t))

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, h, http.MethodGet, "/api/pages/x", "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// routes outside /api are not limited
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/_/health", "").Code)
}

func TestPreviewBurstDoesNotBlockSaves(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RateLimitRequests: 20, RateLimitBurst: 40}
	st := newFileStore(t)
	h := newTestServer(t, cfg, st)

	limited := 0
	for i := 0; i < 45; i++ {
		if do(t, h, http.MethodPost, "/api/preview", `{"markdown":"# typing"}`).Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Positive(t, limited, "preview has its own limit")

	w := do(t, h, http.MethodPut, "/api/pages/n", `{"markdown":"kept"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := st.Get(context.Background(), "n")
	require.NoError(t, err)
	assert.Equal(t, "kept", got)
}

func TestOperationalNamesAreOrdinaryPages(t *testing.T) {
	st := newFileStore(t)
	h := newTestServer(t, testConfig(), st)

	for _, slug := range []string{"health", "metrics"} {
		w := do(t, h, http.MethodPut, "/api/pages/"+slug, `{"markdown":"# Ops notes"}`)
		require.Equal(t, http.StatusOK, w.Code)

		w = do(t, h, http.MethodGet, "/"+slug, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `data-slug="`+slug+`"`)
		assert.Contains(t, w.Body.String(), "<title>Ops notes | Note-Drop</title>")
	}
}

func TestStartAndShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 0
	srv, err := New(cfg, newFileStore(t), logger.Nop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)
}
