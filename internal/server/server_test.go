package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/nettle/config"
	"github.com/Ramsey-B/nettle/internal/runner"
	"github.com/Ramsey-B/nettle/pkg/pipeline"
	"github.com/Ramsey-B/nettle/pkg/routes/health"
	"github.com/Ramsey-B/nettle/pkg/similarity"
)

func TestRoutes(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	cfg := &config.Config{AppName: "nettle", HttpServerMaxUploadBytes: 1 << 20}
	settings := pipeline.ResolveSettings(context.Background(), config.MatchSettings{}, similarity.DefaultRegistry(), logger)

	e, err := New(cfg, logger, Dependencies{
		Runner: runner.New(logger, settings),
		Health: health.NewChecker("test"),
	})
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		code   int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/health/live", http.StatusOK},
		{http.MethodGet, "/api/v1/health/ready", http.StatusServiceUnavailable},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/runs/latest", http.StatusNotFound},
		{http.MethodGet, "/api/v1/entities/1", http.StatusNotFound},
		{http.MethodPost, "/api/v1/runs", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
		})
	}
}
