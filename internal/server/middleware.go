package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/setlog/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"tailscale.com/client/tailscale/apitype"
)

// UserInfo is the identity of the caller.
type UserInfo struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

type contextKey int

const userInfoKey contextKey = iota

// WhoIser resolves a tailnet peer address. *local.Client satisfies it.
type WhoIser interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// SetTailscale switches identity resolution to tailnet WhoIs lookups.
func (s *Server) SetTailscale(lc WhoIser) {
	s.identity = s.TailscaleIdentity(lc)
}

// DevIdentity assigns every request to the configured dev user, for local
// development without Tailscale.
func (s *Server) DevIdentity(next http.Handler) http.Handler {
	return s.identify(func(*http.Request) (UserInfo, error) {
		return UserInfo{Login: s.devUser, DisplayName: "Local Dev User"}, nil
	})(next)
}

// TailscaleIdentity identifies the caller by its tailnet login.
func (s *Server) TailscaleIdentity(lc WhoIser) func(http.Handler) http.Handler {
	return s.identify(func(r *http.Request) (UserInfo, error) {
		who, err := lc.WhoIs(r.Context(), r.RemoteAddr)
		if err != nil {
			return UserInfo{}, err
		}
		if who.UserProfile == nil {
			return UserInfo{}, errNoProfile
		}
		return UserInfo{Login: who.UserProfile.LoginName, DisplayName: who.UserProfile.DisplayName}, nil
	})
}

// identify resolves the caller, maps it to a user row and stores both in the
// request context.
func (s *Server) identify(resolve func(*http.Request) (UserInfo, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := resolve(r)
			if err != nil {
				s.log.Warn("identity lookup failed", "remote", r.RemoteAddr, "error", err)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unknown caller"})
				return
			}
			uid, err := s.db.GetOrCreateUser(r.Context(), info.Login, info.DisplayName)
			if err != nil {
				s.log.Error("resolving user", "login", info.Login, "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "resolving user failed"})
				return
			}
			ctx := storage.ContextWithUser(r.Context(), uid)
			ctx = context.WithValue(ctx, userInfoKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userIDFromContext returns the user resolved by the identity middleware,
// or 1 when none ran.
func userIDFromContext(r *http.Request) int {
	if id, ok := storage.UserFromContext(r.Context()); ok {
		return id
	}
	return 1
}

// userInfoFromContext returns the caller identity, or the local dev user.
func userInfoFromContext(r *http.Request) UserInfo {
	if info, ok := r.Context().Value(userInfoKey).(UserInfo); ok {
		return info
	}
	return UserInfo{Login: "local", DisplayName: "Local Dev User"}
}

// APIKeyAuth returns middleware that validates the X-API-Key header.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				http.Error(w, `{"error":"missing API key"}`, http.StatusUnauthorized)
				return
			}
			if key != apiKey {
				http.Error(w, `{"error":"invalid API key"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogging returns middleware that logs each request.
func RequestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// requestMetrics counts requests by method and status once metrics are set.
func (s *Server) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.metrics.HistRequestDuration.Observe(time.Since(start).Seconds())
		s.metrics.CounterRequests.With(prometheus.Labels{
			"method": r.Method,
			"status": strconv.Itoa(sw.status),
		}).Inc()
	})
}

// CORS adds permissive CORS headers for local development.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers flush through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
