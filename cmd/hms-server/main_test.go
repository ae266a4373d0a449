package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/platform/events"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/telemetry"
	"github.com/hms/hms/internal/platform/webhook"
	"github.com/hms/hms/internal/platform/workset"
)

var fixedNow = time.Date(2024, 3, 4, 10, 0, 0, 0, time.Local)

func testConfig() *config.Config {
	return &config.Config{
		Env:               "test",
		StoreBackend:      config.BackendMemory,
		CORSOrigins:       []string{"*"},
		RateLimitRPS:      1000,
		RateLimitBurst:    1000,
		BillOverduePolicy: config.OverdueView,
	}
}

type harness struct {
	e        *echo.Echo
	metrics  *telemetry.Metrics
	recorder *events.Recorder
	services *services
}

func newHarness(t *testing.T, withSeeder bool) *harness {
	t.Helper()
	cfg := testConfig()
	metrics := telemetry.NewMetrics("hms")
	rec := &events.Recorder{}
	pub := events.Observe(rec, func(ev events.Event) {
		metrics.ObserveMutation(ev.Entity, string(ev.Action))
	})
	store := recordstore.Instrument(recordstore.NewMemory(), metrics)
	opts := workset.Options{Publisher: pub, Logger: zerolog.Nop(), Clock: func() time.Time { return fixedNow }}
	svcs := newServices(store, opts, billing.PolicyView)

	deps := routerDeps{cfg: cfg, logger: zerolog.Nop(), metrics: metrics, services: svcs}
	if withSeeder {
		deps.seeder = svcs.seeder(zerolog.Nop(), opts.Clock)
	}
	return &harness{e: newRouter(deps), metrics: metrics, recorder: rec, services: svcs}
}

func (h *harness) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["seed"])

	migrate, _, err := root.Find([]string{"migrate", "up"})
	require.NoError(t, err)
	assert.Equal(t, "up", migrate.Name())
	assert.NotNil(t, migrate.Flags().Lookup("to"))
	assert.NotNil(t, migrate.InheritedFlags().Lookup("dir"))

	seed, _, err := root.Find([]string{"seed"})
	require.NoError(t, err)
	for _, flag := range []string{"file", "synthetic", "seed"} {
		assert.NotNil(t, seed.Flags().Lookup(flag), flag)
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig()
	cfg.LogLevel = "DEBUG"
	assert.Equal(t, zerolog.DebugLevel, newLogger(cfg).GetLevel())

	cfg.LogLevel = "loud"
	assert.Equal(t, zerolog.InfoLevel, newLogger(cfg).GetLevel())
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	b, err := openBackend(ctx, cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.IsType(t, &recordstore.Memory{}, b.store)
	assert.Nil(t, b.pool)
	b.Close()

	b, err = openBackend(ctx, cfg, zerolog.Nop(), telemetry.NewMetrics("hms"))
	require.NoError(t, err)
	assert.IsType(t, &recordstore.Instrumented{}, b.store)

	cfg.StoreBackend = config.BackendRemote
	cfg.RecordStoreURL = "http://records.internal:8080"
	cfg.RecordStoreTimeout = time.Second
	b, err = openBackend(ctx, cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.IsType(t, &recordstore.HTTPClient{}, b.store)

	cfg.StoreBackend = "sqlite"
	_, err = openBackend(ctx, cfg, zerolog.Nop(), nil)
	assert.Error(t, err)
}

func TestNewPublisher_LogFallbackCountsMutations(t *testing.T) {
	metrics := telemetry.NewMetrics("hms")
	pub, err := newPublisher(testConfig(), zerolog.Nop(), metrics)
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.Publish(context.Background(), events.New("bill", events.Overdue, 3, nil)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordEvents.WithLabelValues("bill", "overdue")))
}

func TestNewPublisher_FansOutToExtras(t *testing.T) {
	extra := &events.Recorder{}
	pub, err := newPublisher(testConfig(), zerolog.Nop(), nil, extra)
	require.NoError(t, err)

	require.NoError(t, pub.Publish(context.Background(), events.New("staff", events.Deleted, 9, nil)))
	assert.Equal(t, []string{"staff.deleted"}, extra.Actions())
	require.NoError(t, pub.Close())
}

func TestRouter_WebhookRoutes(t *testing.T) {
	hooks := webhook.NewManager(webhook.NewMemoryStore(0), zerolog.Nop())
	t.Cleanup(func() { _ = hooks.Close() })
	svcs := newServices(recordstore.NewMemory(), workset.Options{Logger: zerolog.Nop()}, billing.PolicyView)
	e := newRouter(routerDeps{cfg: testConfig(), logger: zerolog.Nop(), services: svcs, webhooks: hooks})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoadFixtures(t *testing.T) {
	fx, err := loadFixtures("")
	require.NoError(t, err)
	assert.NotZero(t, fx.Count())

	demo, err := loadFixtures("demo")
	require.NoError(t, err)
	assert.Equal(t, fx.Count(), demo.Count())

	_, err = loadFixtures("/nonexistent/fixtures.yaml")
	assert.Error(t, err)
}

func TestRouter_Operational(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"memory"`)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/health/db").Code)

	rec = h.do(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hms_http_requests_total")

	rec = h.do(http.MethodGet, "/api/v1/patients")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRouter_SeedRoutesNeedSeeder(t *testing.T) {
	h := newHarness(t, false)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/v1/sandbox/seed/demo").Code)
}

func TestRouter_SeedDemoThenDashboard(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(http.MethodPost, "/api/v1/sandbox/seed/demo")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/v1/dashboard")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum struct {
		TotalPatients     int               `json:"totalPatients"`
		TodayAppointments []json.RawMessage `json:"todayAppointments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 5, sum.TotalPatients)
	assert.Len(t, sum.TodayAppointments, 3)

	rec = h.do(http.MethodGet, "/api/v1/bills?status=Overdue")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Overdue"`)

	assert.Contains(t, h.recorder.Actions(), "patient.created")
	assert.Equal(t, 5.0, testutil.ToFloat64(h.metrics.RecordEvents.WithLabelValues("patient", "created")))
}
