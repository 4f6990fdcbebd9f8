package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brokerledger/brokerledger/internal/observability"
	"github.com/brokerledger/brokerledger/jobs"
	_ "github.com/brokerledger/brokerledger/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://u:p@db:5432/ledger?sslmode=disable")
	t.Setenv("TABULA_JAR", "/srv/tabula.jar")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, time.Hour, cfg.ReportCacheTTL)
	require.Equal(t, int64(20<<20), cfg.UploadMaxBytes)
	require.False(t, cfg.IsProduction())

	tools := cfg.ExtractionTools()
	require.Equal(t, "/srv/tabula.jar", tools.TabulaJar)
	require.Equal(t, "pdftotext", tools.PdftotextBin)
}

func TestLoadConfigRejectsBadUploadLimit(t *testing.T) {
	t.Setenv("UPLOAD_MAX_BYTES", "0")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestInTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())
	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
}

func TestRouterHealthAndMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{
		Config:     &Config{AppEnv: "development", AppRequestTimeout: time.Second},
		JobHandler: jobs.NewHandler(nil, nil),
		Metrics:    metrics,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `brokerledger_http_requests_total{code="200",route="/healthz"} 1`))
}

func TestRouterUnknownRoute(t *testing.T) {
	router := NewRouter(RouterParams{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/brokers", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf strings.Builder
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "xref", 100305936)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"msg":"shown"`)
	require.Contains(t, out, `"xref":100305936`)
}

func TestRedisSettingsAreShared(t *testing.T) {
	cfg := &Config{RedisAddr: "redis:6379", RedisPassword: "secret", RedisDB: 3}
	require.Equal(t, cfg.RedisAddr, cfg.RedisOptions().Addr)
	q := cfg.QueueRedis()
	require.Equal(t, "secret", q.Password)
	require.Equal(t, 3, q.DB)
}
