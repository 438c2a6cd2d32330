package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidecraft/guidecraft/internal/builder"
	"github.com/guidecraft/guidecraft/internal/config"
	"github.com/guidecraft/guidecraft/internal/errors"
	"github.com/guidecraft/guidecraft/internal/logging"
	"github.com/guidecraft/guidecraft/internal/watcher"
)

// newStaticServer wires a DevServer around a pre-populated output dir.
// Only the static and health handlers are exercised; no socket is bound.
func newStaticServer(t *testing.T, liveReload bool) (*DevServer, string) {
	t.Helper()
	out := t.TempDir()

	cfg := &config.Config{}
	cfg.Site.OutputDir = out
	cfg.Server.LiveReload = liveReload

	return New(cfg, nil, nil, logging.Nop()), out
}

func TestStaticServesFiles(t *testing.T) {
	s, out := newStaticServer(t, false)
	require.NoError(t, os.MkdirAll(filepath.Join(out, "api"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "api", "guide.json"), []byte(`{"ok":true}`), 0o644))

	rec := httptest.NewRecorder()
	s.handleStatic(rec, httptest.NewRequest(http.MethodGet, "/api/guide.json", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"ok":true}`, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestStaticIndexResolution(t *testing.T) {
	s, out := newStaticServer(t, false)
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("<html><body>hi</body></html>"), 0o644))

	rec := httptest.NewRecorder()
	s.handleStatic(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hi")
}

func TestStaticNotFound(t *testing.T) {
	s, _ := newStaticServer(t, false)

	rec := httptest.NewRecorder()
	s.handleStatic(rec, httptest.NewRequest(http.MethodGet, "/missing.json", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticMethodNotAllowed(t *testing.T) {
	s, _ := newStaticServer(t, false)

	rec := httptest.NewRecorder()
	s.handleStatic(rec, httptest.NewRequest(http.MethodPost, "/index.html", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStaticTraversalStaysInRoot(t *testing.T) {
	s, out := newStaticServer(t, false)

	// A sibling of the output dir must never be reachable
	secret := filepath.Join(filepath.Dir(out), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))

	for _, target := range []string{
		"/../secret.txt",
		"/%2e%2e/secret.txt",
		"/foo/../../secret.txt",
	} {
		req := httptest.NewRequest(http.MethodGet, "http://localhost/", nil)
		req.URL.Path = target

		rec := httptest.NewRecorder()
		s.handleStatic(rec, req)

		assert.NotEqual(t, http.StatusOK, rec.Code, "target %s", target)
		assert.NotContains(t, rec.Body.String(), "secret", "target %s", target)
	}
}

func TestReloadScriptInjected(t *testing.T) {
	s, out := newStaticServer(t, true)
	page := "<html><body><h1>Guide</h1></body></html>"
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte(page), 0o644))

	rec := httptest.NewRecorder()
	s.handleStatic(rec, httptest.NewRequest(http.MethodGet, "/index.html", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "new WebSocket")
	assert.Less(t, strings.Index(body, "new WebSocket"), strings.Index(body, "</body>"))

	// The artifact on disk stays untouched
	onDisk, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, page, string(onDisk))
}

func TestReloadScriptNotInjectedWhenDisabled(t *testing.T) {
	s, out := newStaticServer(t, false)
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("<html><body></body></html>"), 0o644))

	rec := httptest.NewRecorder()
	s.handleStatic(rec, httptest.NewRequest(http.MethodGet, "/index.html", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "new WebSocket")
}

func TestHealthEndpoint(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(source, []byte("## Main\n\nBody.\n"), 0o644))

	b := builder.New(builder.Config{
		SourcePath: source,
		OutputDir:  filepath.Join(dir, "site"),
	}, logging.Nop())
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	cfg := &config.Config{}
	s := New(cfg, b, nil, logging.Nop())

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var health struct {
		Status    string       `json:"status"`
		LastBuild builder.Info `json:"last_build"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, health.LastBuild.ID)
}

func TestStartPortInUse(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(source, []byte("## Main\n\nBody.\n"), 0o644))

	// Occupy a port first
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	cfg := &config.Config{}
	cfg.Site.Source = source
	cfg.Site.GuidesDir = filepath.Join(dir, "guides")
	cfg.Site.OutputDir = filepath.Join(dir, "site")
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = port

	b := builder.New(builder.Config{
		SourcePath: cfg.Site.Source,
		GuidesDir:  cfg.Site.GuidesDir,
		OutputDir:  cfg.Site.OutputDir,
	}, logging.Nop())

	fw, err := watcher.New(50*time.Millisecond, logging.Nop())
	require.NoError(t, err)
	defer fw.Stop()

	s := New(cfg, b, fw, logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = s.Start(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindPortInUse))
}

func TestServeAndShutdown(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(source, []byte("## Main\n\nBody.\n"), 0o644))

	// Reserve a free port, release it just before the server binds
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := &config.Config{}
	cfg.Site.Source = source
	cfg.Site.GuidesDir = filepath.Join(dir, "guides")
	cfg.Site.OutputDir = filepath.Join(dir, "site")
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = port

	b := builder.New(builder.Config{
		SourcePath: cfg.Site.Source,
		GuidesDir:  cfg.Site.GuidesDir,
		OutputDir:  cfg.Site.OutputDir,
	}, logging.Nop())

	fw, err := watcher.New(50*time.Millisecond, logging.Nop())
	require.NoError(t, err)

	s := New(cfg, b, fw, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Start(ctx) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := http.Get(base + "/api/guide.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	require.NoError(t, s.Shutdown(shutdownCtx))

	select {
	case err := <-serveErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after shutdown")
	}

	// Shutdown is idempotent
	require.NoError(t, s.Shutdown(shutdownCtx))
}
