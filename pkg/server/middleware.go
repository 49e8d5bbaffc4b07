package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/dtnitsch/lilypads/pkg/db"
	"github.com/google/uuid"
)

type ctxKey int

const infoKey ctxKey = 0

// requestInfo is shared by all middleware of one request. Inner layers fill
// in what outer layers log.
type requestInfo struct {
	id       string
	clientIP string
	scheme   string
	prefix   string
	user     *db.User
	session  *db.Session
}

func info(r *http.Request) *requestInfo {
	if ri, ok := r.Context().Value(infoKey).(*requestInfo); ok {
		return ri
	}
	return &requestInfo{scheme: "http"}
}

// withRequestInfo assigns a request id and resolves the client address,
// scheme, host and path prefix, trusting X-Forwarded-* only behind a proxy.
func (s *Server) withRequestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ri := &requestInfo{id: uuid.NewString(), scheme: "http"}
		if r.TLS != nil {
			ri.scheme = "https"
		}
		ri.clientIP, _, _ = net.SplitHostPort(r.RemoteAddr)
		if ri.clientIP == "" {
			ri.clientIP = r.RemoteAddr
		}

		if s.opts.BehindProxy {
			if v := lastHeaderValue(r, "X-Forwarded-For"); v != "" {
				ri.clientIP = v
			}
			if v := lastHeaderValue(r, "X-Forwarded-Proto"); v == "http" || v == "https" {
				ri.scheme = v
			}
			if v := lastHeaderValue(r, "X-Forwarded-Host"); v != "" {
				r.Host = v
			}
			if v := lastHeaderValue(r, "X-Forwarded-Prefix"); v != "" {
				ri.prefix = "/" + strings.Trim(v, "/")
			}
		}

		w.Header().Set("X-Request-ID", ri.id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), infoKey, ri)))
	})
}

// lastHeaderValue returns the value appended by the nearest proxy.
func lastHeaderValue(r *http.Request, name string) string {
	values := r.Header.Values(name)
	if len(values) == 0 {
		return ""
	}
	parts := strings.Split(values[len(values)-1], ",")
	return strings.TrimSpace(parts[len(parts)-1])
}

// anonymizeIP keeps the first two octets of an IPv4 address. Anything else
// is logged as "-".
func anonymizeIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "-"
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return "-"
	}
	b := addr.As4()
	return fmt.Sprintf("%d.%d.0.0", b[0], b[1])
}

// statusRecorder captures the status and size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// withAccessLog writes one combined log format line per request.
func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		ri := info(r)
		user := "-"
		if ri.user != nil {
			user = ri.user.ID
		}
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		size := "-"
		if rec.size > 0 {
			size = strconv.Itoa(rec.size)
		}

		line := fmt.Sprintf("%s - %s [%s] %q %d %s %q %q\n",
			anonymizeIP(ri.clientIP),
			user,
			time.Now().Format("02/Jan/2006:15:04:05 -0700"),
			r.Method+" "+r.URL.RequestURI()+" "+r.Proto,
			status,
			size,
			orDash(r.Referer()),
			orDash(r.UserAgent()),
		)

		s.accessMu.Lock()
		_, _ = s.access.Write([]byte(line))
		s.accessMu.Unlock()
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// etagWriter buffers a 200 response so it can be tagged. Responses with
// another status, or whose handler set its own ETag, are passed through.
type etagWriter struct {
	http.ResponseWriter
	req         *http.Request
	status      int
	buf         bytes.Buffer
	passthrough bool
}

func (w *etagWriter) WriteHeader(code int) {
	if w.status != 0 {
		return
	}
	w.status = code
	if code != http.StatusOK || w.Header().Get("ETag") != "" {
		w.passthrough = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *etagWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	if w.passthrough {
		return w.ResponseWriter.Write(b)
	}
	return w.buf.Write(b)
}

func (w *etagWriter) finish() {
	if w.passthrough {
		return
	}
	if w.status == 0 {
		w.status = http.StatusOK
	}

	sum := sha256.Sum256(w.buf.Bytes())
	tag := `"` + hex.EncodeToString(sum[:16]) + `"`
	h := w.Header()
	h.Set("ETag", tag)

	if etagMatches(w.req.Header.Get("If-None-Match"), tag) {
		h.Del("Content-Type")
		h.Del("Content-Length")
		w.ResponseWriter.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Length", strconv.Itoa(w.buf.Len()))
	w.ResponseWriter.WriteHeader(w.status)
	if w.req.Method != http.MethodHead {
		_, _ = w.ResponseWriter.Write(w.buf.Bytes())
	}
}

func etagMatches(header, tag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == tag {
			return true
		}
	}
	return false
}

// withETag tags every successful GET or HEAD response and answers a
// matching If-None-Match with 304.
func (s *Server) withETag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		ew := &etagWriter{ResponseWriter: w, req: r}
		next.ServeHTTP(ew, r)
		ew.finish()
	})
}

const sessionCookie = "lilypads_session"

// withUser resolves the session cookie to a user. Unknown or expired
// sessions and expired accounts leave the request anonymous.
func (s *Server) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err == nil && c.Value != "" {
			s.loadUser(r, c.Value)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loadUser(r *http.Request, token string) {
	ri := info(r)
	sess, err := s.store.GetSession(token)
	if err != nil {
		if !errors.Is(err, db.ErrSessionNotFound) {
			s.logger.Error("failed to load session", "request_id", ri.id, "error", err)
		}
		return
	}
	u, err := s.store.GetUser(sess.UserID)
	if err != nil {
		if !errors.Is(err, db.ErrUserNotFound) {
			s.logger.Error("failed to load user", "request_id", ri.id, "error", err)
		}
		return
	}
	if u.Expired(time.Now()) {
		return
	}
	ri.user = u
	ri.session = sess
}

// requireLogin redirects anonymous requests to the login page.
func (s *Server) requireLogin(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info(r).user == nil {
			http.Redirect(w, r, s.url(r, "/login"), http.StatusFound)
			return
		}
		h(w, r)
	})
}

// url prefixes an absolute path with the proxy prefix.
func (s *Server) url(r *http.Request, path string) string {
	return info(r).prefix + path
}
