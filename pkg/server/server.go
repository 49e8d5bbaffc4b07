// Package server is the LilyPads web application: login, role-gated
// dataset and article endpoints, and the static frontend.
package server

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dtnitsch/lilypads/pkg/auth"
	"github.com/dtnitsch/lilypads/pkg/dataset"
	"github.com/dtnitsch/lilypads/pkg/db"
)

// Options configures a Server.
type Options struct {
	Addr       string
	ContentDir string
	DistDir    string
	// BehindProxy trusts X-Forwarded-For, -Proto, -Host and -Prefix.
	BehindProxy   bool
	SecureCookies bool
	SessionTTL    time.Duration
	RememberTTL   time.Duration
	Version       string
}

// Store is the user and session storage the server reads and writes.
// *db.DB implements it.
type Store interface {
	GetUser(id string) (*db.User, error)
	CreateSession(userID string, remember bool, ttl time.Duration) (*db.Session, error)
	GetSession(token string) (*db.Session, error)
	DeleteSession(token string) error
}

// Server serves the web application.
type Server struct {
	opts      Options
	catalog   *dataset.Catalog
	auth      *auth.Service
	store     Store
	templates *template.Template
	logger    *slog.Logger

	accessMu sync.Mutex
	access   io.Writer

	server *http.Server
}

// New returns a Server. Access log lines go to access; a nil access writes
// them to stderr.
func New(catalog *dataset.Catalog, authSvc *auth.Service, store Store, opts Options, logger *slog.Logger, access io.Writer) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.RememberTTL <= 0 {
		opts.RememberTTL = 365 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if access == nil {
		access = os.Stderr
	}

	s := &Server{
		opts:      opts,
		catalog:   catalog,
		auth:      authSvc,
		store:     store,
		templates: tmpl,
		logger:    logger,
		access:    access,
	}
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the complete handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /login.css", s.handleLoginStyles)
	mux.HandleFunc("GET /impressum.html", s.handlePage("impressum.html"))
	mux.HandleFunc("GET /datenschutz.html", s.handlePage("datenschutz.html"))
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.Handle("GET /logout", s.requireLogin(s.handleLogout))
	mux.Handle("GET /change_password", s.requireLogin(s.handlePasswordPage))
	mux.Handle("POST /change_password", s.requireLogin(s.handleChangePassword))
	mux.Handle("GET /{$}", s.requireLogin(s.handleRoot))
	mux.Handle("GET /index.html", s.requireLogin(s.handleIndex))
	mux.Handle("GET /data/{file}", s.requireLogin(s.handleDataset))
	mux.Handle("GET /api/articles/{corpus}/{index}", s.requireLogin(s.handleArticle))
	mux.Handle("GET /change_dataset", s.requireLogin(s.handleChangeDataset))
	mux.Handle("GET /app/{path...}", s.requireLogin(s.handleStatic(s.opts.ContentDir)))
	mux.Handle("GET /dist/{path...}", s.requireLogin(s.handleStatic(s.opts.DistDir)))

	var h http.Handler = mux
	h = s.withUser(h)
	h = s.withETag(h)
	h = s.withAccessLog(h)
	h = s.withRequestInfo(h)
	return h
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.opts.Addr, "datasets", s.catalog.Len())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// title is the page title shown in the application shell.
func (s *Server) title() string {
	if s.opts.Version == "" {
		return "LilyPads"
	}
	return "LilyPads v" + s.opts.Version
}
