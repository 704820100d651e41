package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"

	services "github.com/EO-DataHub/eodhp-agent-runner/api/services"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/appconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNewRouter_CORSOnRouterErrors(t *testing.T) {
	cfg := appconfig.Default()
	cfg.CORS.AllowedOrigins = "https://app.example.com"
	svc := &services.Service{
		Config:    cfg,
		NewClient: func() (services.AgentsClient, error) { return new(services.MockAgentsClient), nil },
	}
	r := newRouter(cfg, svc, prometheus.NewRegistry())

	cases := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{name: "wrong method", method: http.MethodGet, path: "/api/RunAgent", status: http.StatusMethodNotAllowed},
		{name: "unknown function", method: http.MethodPost, path: "/api/Nope", status: http.StatusNotFound},
		{name: "preflight", method: http.MethodOptions, path: "/api/RunAgent", status: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		})
	}
}
