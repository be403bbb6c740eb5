package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/config"
	"github.com/David-Botos/cyberattack-ingress/pkg/phishing"
)

const cleanedFixture = `[
    {"attack_type": "Phishing", "country": "USA", "target_industry": "Finance", "impact": "Data Breach",
     "financial_loss_(in_million_$)": 10, "number_of_affected_users": 100},
    {"attack_type": "DDoS", "country": "Unknown", "target_industry": "Retail", "impact": "Downtime",
     "financial_loss_(in_million_$)": 2, "number_of_affected_users": 5000}
]`

type stubChecker struct {
	verdict *phishing.Verdict
	err     error
	calls   []string
}

func (s *stubChecker) Check(_ context.Context, url string) (*phishing.Verdict, error) {
	s.calls = append(s.calls, url)
	return s.verdict, s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Paths: config.PathsConfig{
			CleanedJSON: filepath.Join(dir, "cleaned.json"),
			StaticDir:   filepath.Join(dir, "static"),
		},
		Server: config.ServerConfig{
			BaseURL:         "http://api.test",
			CORSOrigins:     []string{"*"},
			ReportCacheSize: 2,
			ShutdownTimeout: time.Second,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, checker URLChecker) *Server {
	t.Helper()
	s, err := NewServer(cfg, nil, checker, zap.NewNop())
	require.NoError(t, err)
	return s
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestNewServerValidatesArguments(t *testing.T) {
	_, err := NewServer(nil, nil, nil, zap.NewNop())
	assert.Error(t, err)
	_, err = NewServer(testConfig(t), nil, nil, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	w := serve(newTestServer(t, testConfig(t), nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestDataAccuracyNotFound(t *testing.T) {
	w := serve(newTestServer(t, testConfig(t), nil), http.MethodGet, "/eda/data_accuracy", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail": "Cleaned dataset not found"}`, w.Body.String())
}

func TestDataAccuracy(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Paths.CleanedJSON, []byte(cleanedFixture), 0o644))
	s := newTestServer(t, cfg, nil)

	w := serve(s, http.MethodGet, "/eda/data_accuracy", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		DataQuality map[string]float64 `json:"data_quality"`
		Plots       map[string]string  `json:"plots"`
		Skipped     []string           `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, 100.0, body.DataQuality["completeness"])
	assert.Contains(t, body.DataQuality, "final_data_accuracy")
	assert.Empty(t, body.Skipped)
	assert.Equal(t, "http://api.test/static/eda/top_15_countries.json", body.Plots["top_15_countries"])

	// published charts are served from the static directory
	chart := serve(s, http.MethodGet, "/static/eda/top_15_countries.json", "")
	require.Equal(t, http.StatusOK, chart.Code)
	assert.Contains(t, chart.Body.String(), `"USA"`)
	assert.NotContains(t, chart.Body.String(), `"Unknown"`)

	// the second call is answered from the cache
	require.NoError(t, os.RemoveAll(cfg.ChartDir()))
	again := serve(s, http.MethodGet, "/eda/data_accuracy", "")
	assert.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, w.Body.String(), again.Body.String())
	assert.Equal(t, 1, s.reports.Len())
	_, err := os.Stat(cfg.ChartDir())
	assert.True(t, os.IsNotExist(err))
}

func TestDataAccuracyMalformedDataset(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Paths.CleanedJSON, []byte(`{"not": "records"`), 0o644))

	w := serve(newTestServer(t, cfg, nil), http.MethodGet, "/eda/data_accuracy", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "detail")
}

func TestPhishingPredict(t *testing.T) {
	checker := &stubChecker{verdict: &phishing.Verdict{Verdict: phishing.VerdictPhishing, IsPhishing: true}}
	s := newTestServer(t, testConfig(t), checker)

	w := serve(s, http.MethodPost, "/phishing/predict", `{"url": "http://bank.example.login.test"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url": "http://bank.example.login.test", "verdict": "Phishing", "is_phishing": true}`, w.Body.String())
	assert.Equal(t, []string{"http://bank.example.login.test"}, checker.calls)
}

func TestPhishingPredictValidation(t *testing.T) {
	checker := &stubChecker{}
	s := newTestServer(t, testConfig(t), checker)

	w := serve(s, http.MethodPost, "/phishing/predict", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "detail")
	assert.Empty(t, checker.calls)
}

func TestPhishingPredictUpstreamFailure(t *testing.T) {
	checker := &stubChecker{err: errors.New("virustotal returned status 401: unauthorized")}
	s := newTestServer(t, testConfig(t), checker)

	w := serve(s, http.MethodPost, "/phishing/predict", `{"url": "http://example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail": "virustotal returned status 401: unauthorized"}`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)
	serve(s, http.MethodGet, "/health", "")

	w := serve(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `ingress_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, w.Body.String(), "ingress_http_request_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.CORSOrigins = []string{"http://dashboard.test"}
	s := newTestServer(t, cfg, nil)

	req := httptest.NewRequest(http.MethodOptions, "/phishing/predict", nil)
	req.Header.Set("Origin", "http://dashboard.test")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://dashboard.test", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunShutsDownOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Addr = "127.0.0.1:0"
	s := newTestServer(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
