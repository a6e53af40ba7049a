package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/entangle/internal/config"
	"github.com/aristath/entangle/internal/modules/quantum"
	"github.com/aristath/entangle/internal/scheduler"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                 8001,
		LogLevel:             "info",
		StrictValidation:     true,
		CacheSize:            128,
		HeatmapMaxResolution: 32,
		ResidueTolerance:     1e-9,
		AllowedOrigins:       []string{"*"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	evaluator, err := quantum.NewEvaluator(quantum.Options{
		Strict:    cfg.StrictValidation,
		CacheSize: cfg.CacheSize,
		Tolerance: cfg.ResidueTolerance,
	}, log)
	require.NoError(t, err)
	t.Cleanup(evaluator.Close)

	sched := scheduler.New(log)
	require.NoError(t, sched.AddJob("@every 1h", scheduler.NewSelfCheckJob(evaluator, log)))

	s := New(Config{
		Log:       log,
		Config:    cfg,
		Evaluator: evaluator,
		Scheduler: sched,
		Version:   "test",
	})

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "entangle", body["service"])
	assert.Equal(t, "test", body["version"])
}

func TestServer_SystemStatus(t *testing.T) {
	ts := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/api/system/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status SystemStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.True(t, status.Cache.Enabled)
	require.Len(t, status.Jobs, 1)
	assert.Equal(t, "self_check", status.Jobs[0].Name)
}

func TestServer_QuantumRoutes(t *testing.T) {
	ts := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/api/quantum/states")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := `{"state":"phi_plus","a":{"theta":0},"a_prime":{"theta":1.5707963267948966},"b":{"theta":0.7853981633974483},"b_prime":{"theta":2.356194490192345}}`
	resp, err = http.Post(ts.URL+"/api/quantum/chsh", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			S                 float64 `json:"s"`
			ViolatesClassical bool    `json:"violates_classical"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.InDelta(t, quantum.TsirelsonBound, envelope.Data.S, 1e-6)
	assert.True(t, envelope.Data.ViolatesClassical)
}

func TestServer_GridResolutionLimitFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.HeatmapMaxResolution = 4
	ts := newTestServer(t, cfg)

	resp, err := http.Post(ts.URL+"/api/quantum/correlation-grid", "application/json",
		bytes.NewReader([]byte(`{"state":"phi_plus","resolution":5}`)))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t, testConfig())

	resp, err := http.Post(ts.URL+"/api/quantum/expectation", "application/json",
		strings.NewReader(`{"state":"psi_minus","a":{"theta":0.3},"b":{"theta":0.9}}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "entangle_evaluations_total")
	assert.Contains(t, string(data), "entangle_evaluation_duration_seconds")
}

func TestServer_CORSPreflight(t *testing.T) {
	ts := newTestServer(t, testConfig())

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/quantum/chsh", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_LiveSessionBypassesTimeout(t *testing.T) {
	ts := newTestServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/quantum/live"
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{"json"}})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"state":"phi_plus","a":{"theta":0},"b":{"theta":0}}`)))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var frame map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Contains(t, frame, "simulation")
	assert.Equal(t, float64(1), frame["sequence"])
}

func TestServer_UnknownRoute(t *testing.T) {
	ts := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/api/nope")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
