package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// HTTPError is the JSON body of an API error.
type HTTPError struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, HTTPError{Code: status, Message: message})
}

// message is a notice rendered above a form.
type message struct {
	Level string
	Text  string
}

// page is the data every template receives.
type page struct {
	Prefix   string
	Title    string
	Username string
	Messages []message
	Data     any
}

func (s *Server) newPage(r *http.Request) page {
	p := page{Prefix: info(r).prefix, Title: s.title()}
	if u := info(r).user; u != nil {
		p.Username = u.ID
	}
	return p
}

// render executes a template into a buffer so a failing template never
// leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, p); err != nil {
		s.logger.Error("failed to render template", "request_id", info(r).id, "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

const flashCookie = "lilypads_flash"

// setFlash stores a message shown on the next page load.
func (s *Server) setFlash(w http.ResponseWriter, r *http.Request, m message) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(m.Level + "|" + m.Text),
		Path:     s.url(r, "/"),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns and clears the pending flash message.
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) []message {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     s.url(r, "/"),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	level, text, ok := strings.Cut(v, "|")
	if !ok || text == "" {
		return nil
	}
	return []message{{Level: level, Text: text}}
}
