package server

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dtnitsch/lilypads/pkg/dataset"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{"status": "ok", "datasets": s.catalog.Len()})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.url(r, "/index.html"), http.StatusFound)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", s.newPage(r))
}

func (s *Server) handlePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, name, s.newPage(r))
	}
}

// datasetError maps catalog lookups to API responses.
func (s *Server) datasetError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, dataset.ErrNotFound), errors.Is(err, dataset.ErrArticleNotFound):
		sendError(w, http.StatusNotFound, "not found")
	case errors.Is(err, dataset.ErrForbidden):
		s.logger.Info("dataset access denied", "request_id", info(r).id, "user", info(r).user.ID, "error", err)
		sendError(w, http.StatusForbidden, "forbidden")
	default:
		s.logger.Error("failed to serve dataset", "request_id", info(r).id, "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
	}
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "gzip") {
			return true
		}
	}
	return false
}

// handleDataset serves /data/{key}.json. Clients accepting gzip receive the
// stored artifact unchanged.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	key, ok := strings.CutSuffix(r.PathValue("file"), ".json")
	if !ok || key == "" {
		sendError(w, http.StatusNotFound, "not found")
		return
	}

	d, err := s.catalog.Get(key, info(r).user.Roles)
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/json; encoding=utf-8")
	h.Add("Vary", "Accept-Encoding")

	body, tag := d.Raw, d.RawETag
	if acceptsGzip(r) {
		body, tag = d.Compressed, d.CompressedETag
		h.Set("Content-Encoding", "gzip")
	}
	h.Set("ETag", tag)
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(body))
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		sendError(w, http.StatusNotFound, "not found")
		return
	}

	d, err := s.catalog.Get(r.PathValue("corpus"), info(r).user.Roles)
	if err != nil {
		s.datasetError(w, r, err)
		return
	}
	a, err := d.Article(index)
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	p := s.newPage(r)
	p.Data = a
	s.render(w, r, http.StatusOK, "article.html", p)
}

// datasetEntry is one row of the dataset picker.
type datasetEntry struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	Articles int    `json:"articles"`
	Active   bool   `json:"active"`
}

func (s *Server) handleChangeDataset(w http.ResponseWriter, r *http.Request) {
	current := r.URL.Query().Get("current")

	var entries []datasetEntry
	for _, d := range s.catalog.Allowed(info(r).user.Roles) {
		entries = append(entries, datasetEntry{
			Name:     d.Name,
			ID:       d.Key,
			Articles: d.Len(),
			Active:   d.Key == current,
		})
	}

	p := s.newPage(r)
	p.Data = entries
	s.render(w, r, http.StatusOK, "change_dataset.html", p)
}

// serveFile serves name from dir. Names that leave dir or name a directory
// are not found.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, dir, name string) {
	if dir == "" || !fs.ValidPath(name) {
		http.NotFound(w, r)
		return
	}
	fi, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil || !fi.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, os.DirFS(dir), name)
}

func (s *Server) handleStatic(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveFile(w, r, dir, r.PathValue("path"))
	}
}

func (s *Server) handleLoginStyles(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, s.opts.ContentDir, "login.css")
}
