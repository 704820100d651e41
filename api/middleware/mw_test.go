package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EO-DataHub/eodhp-agent-runner/internal/authn"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORS_SingleOrigin(t *testing.T) {
	handler := CORS("https://app.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/RunAgent", nil)
	req.Header.Set("Origin", "https://other.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, w.Header().Get("Vary"))
}

func TestCORS_OriginList(t *testing.T) {
	handler := CORS("https://a.example.com, https://b.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		origin string
		want   string
	}{
		{"https://b.example.com", "https://b.example.com"},
		{"https://evil.example.com", "https://a.example.com"},
		{"", "https://a.example.com"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/RunAgent", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, tt.want, w.Header().Get("Access-Control-Allow-Origin"), "origin %q", tt.origin)
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	}
}

func TestCORS_DefaultsToWildcard(t *testing.T) {
	handler := CORS("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWithInvocationID_UsesHostHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := r.Context().Value(InvocationIDKey).(string)
		assert.True(t, ok)
		assert.Equal(t, "host-invocation", id)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/RunAgent", nil)
	req.Header.Set(InvocationIDHeader, "host-invocation")
	w := httptest.NewRecorder()
	WithLogger(WithInvocationID(next)).ServeHTTP(w, req)

	assert.Equal(t, "host-invocation", w.Header().Get(InvocationIDHeader))
}

func TestWithInvocationID_GeneratesID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(InvocationIDKey).(string)
	})

	w := httptest.NewRecorder()
	WithInvocationID(next).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(InvocationIDHeader))
}

func TestWithClaims_PopulatesClaims(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, authn.Claims{Username: "user@example.com"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(ClaimsKey).(authn.Claims)
		assert.True(t, ok)
		assert.Equal(t, "user@example.com", claims.Username)
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req = req.WithContext(zerolog.Nop().WithContext(req.Context()))
	WithClaims(next).ServeHTTP(httptest.NewRecorder(), req)
}

func TestWithClaims_InvalidTokenPassesThrough(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := r.Context().Value(ClaimsKey).(authn.Claims)
		assert.False(t, ok)
	})

	for _, header := range []string{"", "Basic abc", "Bearer invalid-token"} {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		WithClaims(next).ServeHTTP(httptest.NewRecorder(), req)
		assert.True(t, called, "header %q", header)
	}
}

func TestWithMetrics_CountsByRouteTemplate(t *testing.T) {
	m, err := metrics.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	r := mux.NewRouter()
	r.Use(WithMetrics(m))
	r.HandleFunc("/api/{function}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}).Methods(http.MethodPost)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/RunAgent", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCount.WithLabelValues(http.MethodPost, "/api/{function}", "400")))
}
