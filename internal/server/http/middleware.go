package http

import (
	"crypto/rand"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/kodasoftware/example-api/internal/common"
	"github.com/kodasoftware/example-api/internal/server/auth"
	"github.com/oklog/ulid/v2"
)

// authenticate resolves the caller from a Bearer header or, failing that,
// from the signed accessToken cookie. Requests without a valid token are
// rejected before reaching the handler.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "http.authenticate"

		token := bearerToken(r)
		if token == "" {
			token, _ = s.cookies.Get(r, common.AccessTokenCookie)
		}
		if token == "" {
			writeError(w, common.E(common.KindInvalidToken, op, "missing access token"))
			return
		}

		identity, err := s.auth.Verify(token)
		if err != nil {
			writeError(w, common.Wrap(common.KindInvalidToken, op, err))
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

// authorize requires READ for safe methods and WRITE for everything else.
func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, common.E(common.KindInvalidToken, "http.authorize", "missing identity"))
			return
		}

		need := auth.PermissionWrite
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			need = auth.PermissionRead
		}
		if !identity.Can(need) {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "missing permission " + string(need)})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

const requestIDHeader = "X-Request-ID"

// requestID echoes a caller supplied X-Request-ID or assigns a ULID.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			if u, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader); err == nil {
				id = u.String()
			}
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug(r.Context(), "request",
			"request_id", w.Header().Get(requestIDHeader),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error(r.Context(), "panic in handler", "panic", p, "stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
