package httptransport

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"betpro/internal/logging"
	"betpro/internal/session"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

type sessionContextKey struct{}

func SessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(session.Session)
	return s, ok
}

func APILogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				attrs := []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", routeOrPath(req)),
					slog.String("path", req.URL.Path),
				}
				if s, ok := SessionFromContext(req.Context()); ok {
					attrs = append(attrs, slog.String("account_id", s.AccountID))
				}
				return attrs
			},
		},
	)
}

func routeOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		return rc.RoutePattern()
	}
	return r.URL.Path
}

// BodyCaptureMiddleware attaches request and response bodies, cut at
// maxCaptureBytes, to the access log line.
func BodyCaptureMiddleware(maxCaptureBytes int) func(http.Handler) http.Handler {
	if maxCaptureBytes <= 0 {
		maxCaptureBytes = 4096
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSSERequest(r) {
				next.ServeHTTP(w, r)
				return
			}
			reqBody, err := io.ReadAll(r.Body)
			if err != nil {
				reqBody = nil
			}
			r.Body = io.NopCloser(bytes.NewReader(reqBody))

			cw := &captureWriter{ResponseWriter: w, maxBytes: maxCaptureBytes}
			next.ServeHTTP(cw, r)

			reqLog := reqBody
			if len(reqLog) > maxCaptureBytes {
				reqLog = reqLog[:maxCaptureBytes]
			}
			httplog.SetAttrs(r.Context(), slog.Any("request_body", parseMaybeJSON(reqLog)))
			httplog.SetAttrs(r.Context(), slog.Any("response_body", parseMaybeJSON(cw.body.Bytes())))
			httplog.SetAttrs(r.Context(), slog.Bool("request_body_truncated", len(reqBody) > maxCaptureBytes))
			httplog.SetAttrs(r.Context(), slog.Bool("response_body_truncated", cw.truncated))
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	body      bytes.Buffer
	maxBytes  int
	truncated bool
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if !c.truncated {
		remain := c.maxBytes - c.body.Len()
		switch {
		case remain <= 0:
			c.truncated = true
		case len(p) <= remain:
			_, _ = c.body.Write(p)
		default:
			_, _ = c.body.Write(p[:remain])
			c.truncated = true
		}
	}
	return c.ResponseWriter.Write(p)
}

func (c *captureWriter) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func parseMaybeJSON(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var out any
	if err := json.Unmarshal(b, &out); err == nil {
		return out
	}
	return string(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"error": code})
}

// SessionMiddleware rejects requests without a live session token.
func SessionMiddleware(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, r, session.ErrInvalidToken)
				return
			}
			s, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				writeError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), sessionContextKey{}, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSessionMiddleware attaches the session when a token is sent. A token
// that no longer resolves is still an error so clients learn to drop it.
func OptionalSessionMiddleware(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			s, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				writeError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), sessionContextKey{}, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter for EventSource clients that cannot set headers.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	prefix := "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// AdminAuthMiddleware guards operator routes. With no key configured every
// request is refused.
func AdminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" || !CheckAdminAuth(r, adminKey) {
				WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CheckAdminAuth(r *http.Request, adminKey string) bool {
	if v := r.Header.Get("X-Admin-Key"); v != "" {
		return subtle.ConstantTimeCompare([]byte(v), []byte(adminKey)) == 1
	}
	auth := r.Header.Get("Authorization")
	prefix := "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(adminKey)) == 1
	}
	return false
}

func ParsePagination(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func isSSERequest(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return true
	}
	return r.URL.Path == "/api/me/events"
}
