package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/adintelli/internal/config"
	"github.com/radiusdt/adintelli/internal/integrations"
	"github.com/radiusdt/adintelli/internal/metrics"
	"github.com/radiusdt/adintelli/internal/models"
	"github.com/radiusdt/adintelli/internal/refresh"
	"github.com/radiusdt/adintelli/internal/storage"
)

type testEnv struct {
	server    *Server
	source    storage.RecordSource
	refresher *refresh.Refresher
}

func scenarioRecords() []models.AdRecord {
	return []models.AdRecord{
		{CampaignName: "A", Impressions: 1000, Clicks: 200, Cost: 100, SaleAmount: 100, Conversions: 4,
			AdDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Device: "Mobile", Platform: "Google Ads"},
		{CampaignName: "B", Impressions: 1000, Clicks: 50, Cost: 50, SaleAmount: 300, Conversions: 6,
			AdDate: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), Device: "Desktop", Platform: "Facebook"},
	}
}

func newTestEnv(t *testing.T, src storage.RecordSource) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	cfg.Integrations.Clients = map[string]config.OAuthClientConfig{
		"google-ads": {ClientID: "google-client", ClientSecret: "secret"},
	}

	logger := zap.NewNop()
	m := metrics.New("adintelli", nil)
	r := refresh.New(src, logger, m, time.Minute, time.Second)
	svc := integrations.NewService(cfg.Integrations, integrations.NewMemoryStore(), logger, m)

	s := NewServer(&Dependencies{
		Config:       cfg,
		Logger:       logger,
		Metrics:      m,
		Source:       src,
		Refresher:    r,
		Integrations: svc,
	})
	return &testEnv{server: s, source: src, refresher: r}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, storage.NewMemorySource(scenarioRecords()))

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	require.NoError(t, env.refresher.Refresh(context.Background()))
	body := decode[map[string]interface{}](t, env.do(t, http.MethodGet, "/health", nil))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["last_refresh"])
}

func TestGetAllCampaigns(t *testing.T) {
	records := append(scenarioRecords(), models.AdRecord{CampaignName: "C", Cost: 0, SaleAmount: 0})
	env := newTestEnv(t, storage.NewMemorySource(records))

	rec := env.do(t, http.MethodGet, "/getAllCampaigns", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rows := decode[[]map[string]interface{}](t, rec)
	require.Len(t, rows, 3)
	assert.Equal(t, "A", rows[0]["campaign_name"])
	assert.Equal(t, 20.0, rows[0]["ctr"])
	assert.Equal(t, 1.0, rows[0]["roas"])
	assert.Equal(t, 0.5, rows[0]["cpc"])
	assert.Equal(t, 6.0, rows[1]["roas"])

	// zero denominators serialize as null
	assert.Nil(t, rows[2]["ctr"])
	assert.Nil(t, rows[2]["roas"])
	assert.Nil(t, rows[2]["cpc"])
}

func TestDashboardEndpoints(t *testing.T) {
	env := newTestEnv(t, storage.NewMemorySource(scenarioRecords()))

	tests := []struct {
		path string
		want string
	}{
		{"/getROI", `{"roi":166.67}`},
		{"/getCTR", `{"ctr":12.5}`},
		{"/getConversions", `{"conversions":10}`},
		{"/getWeeklyTrends", `[
			{"date":"2024-03-04","impressions":1000,"clicks":200,"conversions":4},
			{"date":"2024-03-11","impressions":1000,"clicks":50,"conversions":6}
		]`},
		{"/getDeviceDemographics", `[
			{"device":"Mobile","impressions":1000,"conversions":4},
			{"device":"Desktop","impressions":1000,"conversions":6}
		]`},
		{"/getKpiData", `[{"name":"A","roi":0,"ctr":20},{"name":"B","roi":500,"ctr":5}]`},
		{"/getCampaignPerformance", `[
			{"name":"A","value":25,"color":"var(--chart-1)"},
			{"name":"B","value":75,"color":"var(--chart-2)"}
		]`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}

	for _, path := range []string{"/getCampaignScore", "/getPlatformData", "/getPredictiveInsights", "/realTime"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rt := decode[map[string]interface{}](t, env.do(t, http.MethodGet, "/realTime", nil))
	assert.Equal(t, 2.0, rt["total_campaigns"])
	assert.Equal(t, 2000.0, rt["total_impressions"])

	platforms := decode[[]map[string]interface{}](t, env.do(t, http.MethodGet, "/getPlatformData", nil))
	require.Len(t, platforms, 2)
	assert.Equal(t, "Google Ads", platforms[0]["platform"])
	assert.Equal(t, "excellent", platforms[1]["performance"])
}

type failingSource struct{ err error }

func (f failingSource) ListRecords(context.Context) ([]models.AdRecord, error) {
	return nil, f.err
}

func TestDashboard_SourceFailure(t *testing.T) {
	env := newTestEnv(t, failingSource{err: &storage.StatusError{Code: 500, Body: "boom"}})

	for _, path := range []string{"/getAllCampaigns", "/getWeeklyTrends", "/getROI", "/realTime"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code, path)
		assert.Contains(t, decode[map[string]string](t, rec)["error"], "status 500")
	}

	// insights keep answering, flagged with the failure
	require.Error(t, env.refresher.Refresh(context.Background()))
	rec := env.do(t, http.MethodGet, "/insights", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Nil(t, body["refreshed_at"])
	assert.Contains(t, body["error"], "status 500")
	assert.Equal(t, []interface{}{}, body["insights"])

	health := decode[map[string]interface{}](t, env.do(t, http.MethodGet, "/health", nil))
	assert.Equal(t, "degraded", health["status"])
}

func TestInsights(t *testing.T) {
	env := newTestEnv(t, storage.NewMemorySource(scenarioRecords()))

	body := decode[map[string]interface{}](t, env.do(t, http.MethodGet, "/insights", nil))
	assert.Equal(t, 0.0, body["seq"])
	assert.Equal(t, []interface{}{}, body["insights"])

	require.NoError(t, env.refresher.Refresh(context.Background()))

	rec := env.do(t, http.MethodGet, "/insights", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Seq      uint64 `json:"seq"`
		Insights []struct {
			Kind           string   `json:"kind"`
			Priority       string   `json:"priority"`
			Title          string   `json:"title"`
			Description    string   `json:"description"`
			ImpactEstimate string   `json:"impact_estimate"`
			Confidence     int      `json:"confidence"`
			Campaigns      []string `json:"campaigns"`
		} `json:"insights"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Seq)
	require.Len(t, resp.Insights, 4)

	kinds := make([]string, 0, 4)
	for _, in := range resp.Insights {
		kinds = append(kinds, in.Kind)
	}
	assert.Equal(t, []string{"budget-reallocation", "creative-refresh", "audience-expansion", "bid-optimization"}, kinds)
	assert.Equal(t, "Move $100 from underperforming A to high-ROAS B campaign", resp.Insights[0].Description)
	assert.Equal(t, "+500% conversions", resp.Insights[0].ImpactEstimate)
	assert.Equal(t, 92, resp.Insights[0].Confidence)
	assert.Equal(t, []string{"A", "B"}, resp.Insights[0].Campaigns)
}

func TestProjection(t *testing.T) {
	env := newTestEnv(t, storage.NewMemorySource(nil))

	rec := env.do(t, http.MethodGet, "/projection?budget=75000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_budget":75000,"projected_conversions":900,"projected_roas":4.2,"projected_revenue":315000}`, rec.Body.String())

	for _, q := range []string{"abc", "5000", "12345", "NaN"} {
		rec := env.do(t, http.MethodGet, "/projection?budget="+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	all := decode[[]map[string]float64](t, env.do(t, http.MethodGet, "/projection", nil))
	require.Len(t, all, 19)
	assert.Equal(t, 10000.0, all[0]["total_budget"])
	assert.Equal(t, 100000.0, all[18]["total_budget"])
}

func TestPredict(t *testing.T) {
	env := newTestEnv(t, storage.NewMemorySource(scenarioRecords()))

	rec := env.do(t, http.MethodPost, "/predict", map[string]string{"campaign_name": "b"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "B", body["Campaign"])
	assert.Equal(t, 5.0, body["CTR"])
	assert.Equal(t, 6.0, body["ROAS"])
	assert.Equal(t, "Increase budget", body["Budget Recommendation"])
	assert.Equal(t, "Low CTR", body["Performance Alerts"])

	rec = env.do(t, http.MethodPost, "/predict", map[string]string{"campaign_name": "Z"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/predict", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/predict", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/predict", map[string]interface{}{"platform": "Meta", "impressions": 1000, "clicks": 10, "spend": 100, "revenue": 50})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Unprofitable", decode[map[string]interface{}](t, rec)["Performance Alerts"])
}

func TestPredict_AdHocIgnoresSourceFailure(t *testing.T) {
	env := newTestEnv(t, failingSource{err: storage.ErrTransport})

	rec := env.do(t, http.MethodPost, "/predict", map[string]interface{}{"spend": 100, "revenue": 500})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/predict", map[string]interface{}{"campaign_name": "A"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, storage.NewMemorySource(scenarioRecords()))
	require.NoError(t, env.refresher.Refresh(context.Background()))

	for _, path := range []string{"/chat", "/api/conversation"} {
		rec := env.do(t, http.MethodPost, path, map[string]string{"message": "Which campaign has the best ROAS?"})
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "B has the best ROAS at 6.00x on $50 spend.", decode[map[string]interface{}](t, rec)["reply"])
	}

	rec := env.do(t, http.MethodPost, "/chat", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsertRecord(t *testing.T) {
	env := newTestEnv(t, storage.NewMemorySource(scenarioRecords()))
	require.NoError(t, env.refresher.Refresh(context.Background()))

	rec := env.do(t, http.MethodPost, "/records", map[string]interface{}{
		"campaign_name": "C", "impressions": 100, "clicks": 1, "cost": 10, "sale_amount": 50,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]interface{}](t, rec)
	assert.NotEmpty(t, created["ad_id"])

	// the insert refreshed the snapshot
	snap := env.refresher.Snapshot()
	assert.Equal(t, uint64(2), snap.Seq)
	assert.Len(t, snap.Campaigns, 3)

	rec = env.do(t, http.MethodPost, "/records", map[string]interface{}{"campaign_name": "D", "cost": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/records", map[string]interface{}{"ad_id": created["ad_id"], "campaign_name": "C"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestInsertRecord_ReadOnlySource(t *testing.T) {
	env := newTestEnv(t, storage.NewHTTPSource("http://upstream.invalid", time.Second))

	rec := env.do(t, http.MethodPost, "/records", map[string]interface{}{"campaign_name": "C"})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

// heldSource is a writable memory source whose reads wait until released.
type heldSource struct {
	*storage.MemorySource
	entered chan struct{}
	release chan struct{}
}

func (s *heldSource) ListRecords(ctx context.Context) ([]models.AdRecord, error) {
	s.entered <- struct{}{}
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.MemorySource.ListRecords(ctx)
}

func TestInsertRecord_ClientHangupDuringRefresh(t *testing.T) {
	src := &heldSource{
		MemorySource: storage.NewMemorySource(scenarioRecords()),
		entered:      make(chan struct{}, 4),
		release:      make(chan struct{}),
	}
	env := newTestEnv(t, src)

	// a periodic refresh is already in flight
	tickErr := make(chan error, 1)
	go func() { tickErr <- env.refresher.Refresh(context.Background()) }()
	<-src.entered

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/records",
		strings.NewReader(`{"campaign_name":"C","impressions":100,"clicks":1,"cost":10,"sale_amount":50}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		env.server.ServeHTTP(rec, req)
		close(done)
	}()

	// the insert landed and its refresh is reading; now the client goes away
	<-src.entered
	cancel()
	close(src.release)
	<-done

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.ErrorIs(t, <-tickErr, refresh.ErrStale)

	snap := env.refresher.Snapshot()
	assert.True(t, snap.Loaded())
	assert.Empty(t, snap.Err)
	assert.Equal(t, uint64(2), snap.Seq)
	assert.Len(t, snap.Campaigns, 3)
}

func TestIntegrationsFlow(t *testing.T) {
	env := newTestEnv(t, storage.NewMemorySource(nil))

	list := decode[[]map[string]interface{}](t, env.do(t, http.MethodGet, "/integrations", nil))
	require.Len(t, list, 5)
	assert.Equal(t, "google-ads", list[0]["id"])
	assert.Equal(t, "disconnected", list[0]["status"])

	rec := env.do(t, http.MethodPost, "/integrations/google-ads/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	consent, err := url.Parse(decode[map[string]string](t, rec)["url"])
	require.NoError(t, err)
	state := consent.Query().Get("state")
	require.NotEmpty(t, state)

	status := decode[map[string]interface{}](t, env.do(t, http.MethodGet, "/integrations/google-ads/status", nil))
	assert.Equal(t, "pending", status["status"])

	rec = env.do(t, http.MethodGet, "/integrations/google-ads/callback?state=wrong&code=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/integrations/google-ads/callback?state="+url.QueryEscape(state)+"&code=x", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connected", decode[map[string]interface{}](t, rec)["status"])

	rec = env.do(t, http.MethodPost, "/integrations/google-ads/disconnect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	status = decode[map[string]interface{}](t, env.do(t, http.MethodGet, "/integrations/google-ads/status", nil))
	assert.Equal(t, "disconnected", status["status"])
}

func TestIntegrationErrors(t *testing.T) {
	env := newTestEnv(t, storage.NewMemorySource(nil))

	tests := []struct {
		method, path string
		code         int
	}{
		{http.MethodPost, "/integrations/friendster/start", http.StatusNotFound},
		{http.MethodPost, "/integrations/custom-api/start", http.StatusBadRequest},
		{http.MethodPost, "/integrations/tiktok-ads/start", http.StatusServiceUnavailable},
		{http.MethodGet, "/integrations/meta-ads/callback?error=access_denied", http.StatusBadRequest},
		{http.MethodGet, "/integrations/friendster/status", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := env.do(t, tt.method, tt.path, nil)
		assert.Equal(t, tt.code, rec.Code, tt.path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, storage.NewMemorySource(scenarioRecords()))
	env.do(t, http.MethodGet, "/getAllCampaigns", nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `adintelli_http_requests_total{method="GET",route="/getAllCampaigns",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, storage.NewMemorySource(nil))

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveredPanicIsJSON(t *testing.T) {
	env := newTestEnv(t, panickingSource{})

	rec := env.do(t, http.MethodGet, "/getAllCampaigns", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "internal server error"))
}

type panickingSource struct{}

func (panickingSource) ListRecords(context.Context) ([]models.AdRecord, error) {
	panic(errors.New("driver bug"))
}
