package server

import (
	"bytes"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// handleStatic serves files from the output directory. Contents are read
// from disk on every request; the server keeps no in-memory copy, so a
// just-published build is visible on the next request.
func (s *DevServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	upath := path.Clean("/" + r.URL.Path)
	if strings.Contains(upath, "..") {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	root, err := filepath.Abs(s.cfg.Site.OutputDir)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	full := filepath.Join(root, filepath.FromSlash(upath))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	info, err := os.Stat(full)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// Directory index resolution
	if info.IsDir() {
		full = filepath.Join(full, "index.html")
		if _, err := os.Stat(full); err != nil {
			http.NotFound(w, r)
			return
		}
	}

	w.Header().Set("Cache-Control", "no-store")

	if s.cfg.Server.LiveReload && strings.HasSuffix(full, ".html") {
		s.serveHTMLWithReload(w, r, full)
		return
	}

	http.ServeFile(w, r, full)
}

// serveHTMLWithReload injects the live-reload client script into HTML
// pages. The artifact on disk stays untouched; injection happens only on
// the wire.
func (s *DevServer) serveHTMLWithReload(w http.ResponseWriter, r *http.Request, full string) {
	data, err := os.ReadFile(full)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	marker := []byte("</body>")
	if idx := bytes.LastIndex(data, marker); idx >= 0 {
		injected := make([]byte, 0, len(data)+len(reloadScript))
		injected = append(injected, data[:idx]...)
		injected = append(injected, []byte(reloadScript)...)
		injected = append(injected, data[idx:]...)
		data = injected
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}
