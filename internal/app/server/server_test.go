package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"experiment-bridge/internal/api"
	"experiment-bridge/internal/config"
	"experiment-bridge/internal/listener"
)

func TestSinks(t *testing.T) {
	got := sinks(nil)
	require.Len(t, got, 1)
	assert.Equal(t, "log", got[0].Name())
}

func TestNewHTTPServer(t *testing.T) {
	var cfg config.Config
	cfg.Server.Addr = ":9999"

	srv := newHTTPServer(cfg, http.NotFoundHandler())

	assert.Equal(t, ":9999", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
	assert.Equal(t, 3*time.Second, srv.WriteTimeout)
}

func TestServer_StartHTTPHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		url        string
		body       string
		wantStatus int
	}{
		{"create session", http.MethodPost, "/v1/sessions", `{"host":{}}`, http.StatusCreated},
		{"unknown session", http.MethodPost, "/v1/sessions/missing/page", `{"name":"Home"}`, http.StatusNotFound},
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions, err := api.NewSessions(4, listener.NewSettings(config.DefaultIntegration()), sinks(nil)...)
			require.NoError(t, err)
			defer sessions.Purge()

			ts := httptest.NewServer(newHTTPServer(config.Config{}, api.Router(api.NewSessionHandler(sessions))).Handler)
			defer ts.Close()

			req, err := http.NewRequest(tt.method, ts.URL+tt.url, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			assert.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
