package server

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/servicecard/internal/clock"
	"github.com/sakif/servicecard/internal/config"
)

// memoryObjects is an in-memory object store.
type memoryObjects struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryObjects) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *memoryObjects) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.example.com/" + key, nil
}

func (m *memoryObjects) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T, cfg config.Config, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	opts = append([]Option{WithClock(clock.NewMockClock(time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)))}, opts...)
	s, err := New(context.Background(), cfg, testLogger(), opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Close(ctx)
	})
	return s, ts
}

func call(t *testing.T, ts *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type stateBody struct {
	Card struct {
		ID       string `json:"id"`
		Services []struct {
			ID string `json:"id"`
		} `json:"services"`
	} `json:"card"`
	SavedCount int    `json:"savedCount"`
	Warning    string `json:"warning"`
}

// Build a card, save it, export it, share it and publish it through the
// full middleware stack.
func TestServer_EndToEnd(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.Share.Secret = "end-to-end-secret-value"
	objects := &memoryObjects{data: map[string][]byte{}}
	_, ts := newTestServer(t, cfg, WithObjectStore(objects))

	resp := call(t, ts, http.MethodPatch, "/api/card/provider", `{"name":"Jane","phone":"555-0100"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, ts, http.MethodPost, "/api/card/services", `{"name":"Dog Walking","basePrice":25}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, ts, http.MethodPost, "/api/card/save", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved stateBody
	decodeBody(t, resp, &saved)
	require.NotEmpty(t, saved.Card.ID)
	assert.Equal(t, 1, saved.SavedCount)
	assert.Empty(t, saved.Warning)

	resp = call(t, ts, http.MethodGet, "/api/cards/"+saved.Card.ID+"/image.png?download=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "attachment; filename=Jane-card.png", resp.Header.Get("Content-Disposition"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())

	resp = call(t, ts, http.MethodGet, "/api/cards/"+saved.Card.ID+"/share", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var links struct {
		URL       string `json:"url"`
		SignedURL string `json:"signedUrl"`
	}
	decodeBody(t, resp, &links)
	assert.Equal(t, "http://localhost:8889/share/"+saved.Card.ID, links.URL)
	require.True(t, strings.HasPrefix(links.SignedURL, "http://localhost:8889/s/"), links.SignedURL)

	token := strings.TrimPrefix(links.SignedURL, "http://localhost:8889/s/")
	resp = call(t, ts, http.MethodGet, "/s/"+token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(page), "Jane - Dogge Card")

	resp = call(t, ts, http.MethodPost, "/api/cards/"+saved.Card.ID+"/publish", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var pub struct {
		URL string `json:"url"`
	}
	decodeBody(t, resp, &pub)
	assert.Equal(t, "https://objects.example.com/cards/"+saved.Card.ID+".png", pub.URL)

	resp = call(t, ts, http.MethodGet, "/share/"+saved.Card.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(page), `<meta property="og:image" content="`+pub.URL+`">`)

	resp = call(t, ts, http.MethodDelete, "/api/cards/"+saved.Card.ID+"/publish", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestServer_SavedCardsSurviveRestart(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "cards.db")

	s, err := New(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())

	call(t, ts, http.MethodPatch, "/api/card/provider", `{"name":"Jane"}`)
	resp := call(t, ts, http.MethodPost, "/api/card/save", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved stateBody
	decodeBody(t, resp, &saved)

	ts.Close()
	require.NoError(t, s.Close(context.Background()))

	_, ts2 := newTestServer(t, cfg)
	resp = call(t, ts2, http.MethodGet, "/api/cards", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cards []struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &cards)
	require.Len(t, cards, 1)
	assert.Equal(t, saved.Card.ID, cards[0].ID)

	resp = call(t, ts2, http.MethodGet, "/api/card", "")
	var current stateBody
	decodeBody(t, resp, &current)
	assert.Empty(t, current.Card.ID, "the current card is not persisted")
}

func TestServer_PublishingDisabled(t *testing.T) {
	_, ts := newTestServer(t, config.NewTestConfig())

	call(t, ts, http.MethodPatch, "/api/card/provider", `{"name":"Jane"}`)
	resp := call(t, ts, http.MethodPost, "/api/card/save", "")
	var saved stateBody
	decodeBody(t, resp, &saved)

	resp = call(t, ts, http.MethodPost, "/api/cards/"+saved.Card.ID+"/publish", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = call(t, ts, http.MethodGet, "/api/cards/"+saved.Card.ID+"/share", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var links struct {
		SignedURL string `json:"signedUrl"`
	}
	decodeBody(t, resp, &links)
	assert.Empty(t, links.SignedURL, "no secret, no signed links")
}

func TestServer_ExportRateLimit(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.Export.RatePerMinute = 2
	_, ts := newTestServer(t, cfg)
	call(t, ts, http.MethodPatch, "/api/card/provider", `{"name":"Jane"}`)

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, call(t, ts, http.MethodGet, "/api/card/image.png", "").StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Editing is not rate limited.
	resp := call(t, ts, http.MethodGet, "/api/card", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_CORSPreflight(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.CORS.AllowedOrigins = []string{"http://editor.example.com"}
	_, ts := newTestServer(t, cfg)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/card/provider", bytes.NewReader(nil))
	require.NoError(t, err)
	req.Header.Set("Origin", "http://editor.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://editor.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_RootRedirectsToPreview(t *testing.T) {
	_, ts := newTestServer(t, config.NewTestConfig())
	client := ts.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/preview", resp.Header.Get("Location"))
}
