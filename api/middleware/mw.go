package middleware

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/EO-DataHub/eodhp-agent-runner/internal/authn"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const ClaimsKey contextKey = "claims"
const InvocationIDKey contextKey = "invocation-id"

// InvocationIDHeader is set by the Functions host on forwarded requests.
const InvocationIDHeader = "X-Azure-Functions-InvocationId"

// WithLogger adds a logger to the context and logs request information.
func WithLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			logger := log.With().
				Str("host", r.Host).
				Str("method", r.Method).
				Str("url", r.URL.String()).
				Str("remote_addr", r.RemoteAddr).
				Time("timestamp", time.Now()).
				Logger()

			// Add the logger to the context
			ctx := logger.WithContext(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		},
	)
}

// WithInvocationID tags the request with the host's invocation id, or a new
// one when the request did not come through the host.
func WithInvocationID(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(InvocationIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(InvocationIDHeader, id)

			logger := zerolog.Ctx(r.Context()).With().Str("invocation_id", id).Logger()
			ctx := logger.WithContext(r.Context())
			ctx = context.WithValue(ctx, InvocationIDKey, id)

			next.ServeHTTP(w, r.WithContext(ctx))
		},
	)
}

// WithClaims parses an optional bearer token and adds its claims to the
// context and logger. The host has already authorized the call, so requests
// without a readable token pass through untouched.
func WithClaims(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if authHeader == "" || token == authHeader {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := authn.ParseClaims(token)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("ignoring unreadable bearer token")
				next.ServeHTTP(w, r)
				return
			}

			logger := zerolog.Ctx(r.Context()).With().Str("principal", claims.Principal()).Logger()
			ctx := logger.WithContext(r.Context())
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		},
	)
}

// CORS sets the cross-origin headers on every response. allowedOrigins is a
// single origin, "*", or a comma separated list.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allowOrigin(origins, r.Header.Get("Origin")))
				if len(origins) > 1 {
					h.Add("Vary", "Origin")
				}
				h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

				next.ServeHTTP(w, r)
			},
		)
	}
}

func allowOrigin(origins []string, origin string) string {
	switch {
	case len(origins) == 0:
		return "*"
	case len(origins) == 1:
		return origins[0]
	case slices.Contains(origins, "*"):
		return "*"
	case origin != "" && slices.Contains(origins, origin):
		return origin
	}
	return origins[0]
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// WithMetrics counts requests by route template and status and observes
// their latency.
func WithMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				route := "unmatched"
				if current := mux.CurrentRoute(r); current != nil {
					if tpl, err := current.GetPathTemplate(); err == nil {
						route = tpl
					}
				}

				start := time.Now()
				rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
				next.ServeHTTP(rec, r)

				m.RequestCount.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
				m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			},
		)
	}
}
