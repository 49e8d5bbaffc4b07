package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/dtnitsch/lilypads/pkg/auth"
)

const (
	msgWrongCredentials = "Wrong username or password."
	msgLoggedOut        = "Logged out."
	msgUnfilledForm     = "Unfilled form data"
)

type loginForm struct {
	Username string
	Remember bool
	Next     string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if info(r).user != nil {
		http.Redirect(w, r, s.url(r, "/"), http.StatusFound)
		return
	}

	p := s.newPage(r)
	if r.URL.Query().Get("logged_out") != "" {
		p.Messages = append(p.Messages, message{Level: "success", Text: msgLoggedOut})
	}
	p.Data = loginForm{Next: r.URL.Query().Get("next")}
	s.render(w, r, http.StatusOK, "login.html", p)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ri := info(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	next := r.URL.Query().Get("next")
	if !s.safeRedirect(r, next) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	name := r.PostForm.Get("uname")
	remember := r.PostForm.Get("remember") != ""

	u, err := s.auth.Authenticate(name, r.PostForm.Get("psw"))
	if err != nil {
		p := s.newPage(r)
		p.Data = loginForm{Username: name, Remember: remember, Next: next}
		if errors.Is(err, auth.ErrAccountExpired) {
			s.logger.Info("login refused, account expired", "request_id", ri.id, "user", name)
			p.Messages = append(p.Messages, message{Level: "danger", Text: auth.Message(err)})
		} else {
			if !errors.Is(err, auth.ErrWrongPassword) && !errors.Is(err, auth.ErrUserNotFound) {
				s.logger.Error("failed to authenticate", "request_id", ri.id, "user", name, "error", err)
			}
			p.Messages = append(p.Messages, message{Level: "danger", Text: msgWrongCredentials})
		}
		s.render(w, r, http.StatusOK, "login.html", p)
		return
	}

	ttl := s.opts.SessionTTL
	if remember {
		ttl = s.opts.RememberTTL
	}
	sess, err := s.store.CreateSession(u.ID, remember, ttl)
	if err != nil {
		s.logger.Error("failed to create session", "request_id", ri.id, "user", u.ID, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	cookie := &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     s.url(r, "/"),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.Expires = sess.ExpiresAt
	}
	http.SetCookie(w, cookie)
	ri.user = u
	s.logger.Info("user logged in", "request_id", ri.id, "user", u.ID, "remember", remember)

	if next == "" {
		next = s.url(r, "/")
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// safeRedirect reports whether target stays on this host over http(s).
func (s *Server) safeRedirect(r *http.Request, target string) bool {
	host := &url.URL{Scheme: info(r).scheme, Host: r.Host, Path: "/"}
	ref, err := url.Parse(target)
	if err != nil {
		return false
	}
	resolved := host.ResolveReference(ref)
	return (resolved.Scheme == "http" || resolved.Scheme == "https") && resolved.Host == host.Host
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ri := info(r)
	if ri.session != nil {
		if err := s.store.DeleteSession(ri.session.Token); err != nil {
			s.logger.Error("failed to delete session", "request_id", ri.id, "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Path:     s.url(r, "/"),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("user logged out", "request_id", ri.id, "user", ri.user.ID)
	http.Redirect(w, r, s.url(r, "/login?logged_out=1"), http.StatusFound)
}

func (s *Server) handlePasswordPage(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r)
	p.Messages = s.popFlash(w, r)
	s.render(w, r, http.StatusOK, "password_change.html", p)
}

// handleChangePassword answers with a redirect back to the form, carrying
// the outcome as a flash message.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ri := info(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var m message
	if !r.PostForm.Has("oldpwd") || !r.PostForm.Has("psw1") || !r.PostForm.Has("psw2") {
		m = message{Level: "danger", Text: msgUnfilledForm}
	} else {
		err := s.auth.ChangePassword(ri.user.ID, r.PostForm.Get("oldpwd"), r.PostForm.Get("psw1"), r.PostForm.Get("psw2"))
		m = message{Level: "danger", Text: auth.Message(err)}
		switch {
		case err == nil:
			m.Level = "success"
			s.logger.Info("password changed", "request_id", ri.id, "user", ri.user.ID)
		case errors.Is(err, auth.ErrPasswordTooShort):
			m.Level = "warning"
		case errors.Is(err, auth.ErrPasswordMismatch), errors.Is(err, auth.ErrWrongPassword), errors.Is(err, auth.ErrUserNotFound):
		default:
			s.logger.Error("failed to change password", "request_id", ri.id, "user", ri.user.ID, "error", err)
		}
	}

	s.setFlash(w, r, m)
	http.Redirect(w, r, s.url(r, "/change_password"), http.StatusSeeOther)
}
