package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/ternarybob/shiftlog/internal/handlers"
	"github.com/ternarybob/shiftlog/internal/models"
)

const headerRequestID = "X-Request-Id"

var corsAllowHeaders = strings.Join([]string{
	"Content-Type",
	"Authorization",
	handlers.HeaderUserID,
	handlers.HeaderUserRole,
	headerRequestID,
}, ", ")

type middleware func(http.Handler) http.Handler

// chain applies mws so the first one listed sees the request first
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// withConditionalMiddleware wraps API routes in the full chain. Feed upgrades
// only get CORS and identity, since request logging would report them as
// never finishing.
func (s *Server) withConditionalMiddleware(router http.Handler) http.Handler {
	api := chain(router, s.requestID, s.accessLog, s.cors, s.recoverPanics, s.identity)
	ws := chain(router, s.cors, s.identity)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ws/") {
			ws.ServeHTTP(w, r)
			return
		}
		api.ServeHTTP(w, r)
	})
}

// requestID echoes the caller's X-Request-Id or mints one
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = common.NewRequestID()
			r.Header.Set(headerRequestID, id)
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r)
	})
}

// identity attaches the gateway-forwarded caller. A request without
// X-User-Id carries no identity and protected handlers answer 401.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := strings.TrimSpace(r.Header.Get(handlers.HeaderUserID)); userID != "" {
			r = r.WithContext(handlers.WithIdentity(r.Context(), models.Identity{
				UserID: userID,
				Role:   models.Role(strings.TrimSpace(r.Header.Get(handlers.HeaderUserRole))),
			}))
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one line per request once the response is done
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		event := s.app.Logger.Debug()
		if rec.status >= http.StatusInternalServerError {
			event = s.app.Logger.Warn()
		}
		event.
			Str("request_id", r.Header.Get(headerRequestID)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("user_id", r.Header.Get(handlers.HeaderUserID)).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		header.Set("Access-Control-Allow-Headers", corsAllowHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanics turns a handler panic into a JSON 500
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.app.Logger.Error().
				Str("request_id", r.Header.Get(headerRequestID)).
				Str("path", r.URL.Path).
				Str("panic", fmt.Sprint(rec)).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from handler panic")
			handlers.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for the access log
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Hijack passes through so websocket upgrades work behind the recorder
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
