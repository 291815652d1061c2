package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"FinCast/internal/repository"
	"FinCast/pkg/config"
	"FinCast/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Parse([]byte(`
environment: test
logger: {level: error}
source: {type: csv, csv_dir: ` + dir + `}
models:
  - { name: naive, kind: naive, weight: 1, enabled: true }
  - { name: drift, kind: drift, weight: 1, enabled: true }
  - { name: lstm, kind: remote, weight: 1, enabled: false }
`))
	require.NoError(t, err)
	return cfg
}

func TestInitializeAppWithoutInfrastructure(t *testing.T) {
	cfg := csvConfig(t)
	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, app)

	rec := httptest.NewRecorder()
	app.Server().Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.Server().Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/latest/NOPE", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, app.Shutdown(ctx))
}

func TestOrchestratorFactorySkipsDisabledModels(t *testing.T) {
	cfg := csvConfig(t)
	factory := ProvideOrchestratorFactory(ProvideModelSpecs(cfg), ProvideRemoteOptions(cfg), metrics.New(prometheus.NewRegistry()), nil)

	a, err := factory()
	require.NoError(t, err)
	b, err := factory()
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, []string{"naive", "drift"}, a.Models())
	assert.Equal(t, map[string]float64{"naive": 1, "drift": 1}, a.Weights())
}

func TestProvideRunStoreWithoutClickHouse(t *testing.T) {
	assert.Nil(t, ProvideRunStore(csvConfig(t), nil))
	_, ok := ProvideResultPublisher(nil).(repository.NopResultPublisher)
	assert.True(t, ok)
}
