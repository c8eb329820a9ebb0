package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dan9191/loan-eligibility/internal/cache"
	"github.com/Dan9191/loan-eligibility/internal/config"
	"github.com/Dan9191/loan-eligibility/internal/integrations/cbr"
	"github.com/Dan9191/loan-eligibility/internal/models"
	"github.com/Dan9191/loan-eligibility/internal/repository"
	"github.com/Dan9191/loan-eligibility/internal/service"
	"github.com/Dan9191/loan-eligibility/internal/utils/email"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRefresher struct {
	rate  cbr.KeyRate
	err   error
	calls int
}

func (s *stubRefresher) RefreshNow(ctx context.Context) (cbr.KeyRate, error) {
	s.calls++
	return s.rate, s.err
}

type testEnv struct {
	router    *mux.Router
	db        *sql.DB
	cache     *cache.MemoryCache
	refresher *stubRefresher
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.Open(config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{HMACSecret: "test-secret", Policy: config.DefaultPolicy()}
	svc := service.NewService(repository.NewRepository(db, config.DriverSQLite, log), email.Nop{}, log, cfg)
	require.NoError(t, svc.Setup(context.Background()))

	env := &testEnv{
		db:        db,
		cache:     cache.NewMemoryCache(),
		refresher: &stubRefresher{rate: cbr.KeyRate{Rate: decimal.RequireFromString("21")}},
	}
	env.router = NewHandler(svc, env.cache, env.refresher, log).Routes()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestEligibilityEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("computes result", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/eligibility", `{"monthly_income": 100000, "tenure_years": 10}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp eligibilityResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.IsEligible)
		assert.Equal(t, "11.00", resp.Result.InterestRate.StringFixed(2))
		assert.InDelta(t, 50000, resp.Result.MonthlyEMI, 1e-6)
		assert.Empty(t, resp.Schedule)
	})

	t.Run("with schedule", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/eligibility", `{"monthly_income": 20000, "tenure_years": 2, "include_schedule": true}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp eligibilityResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Len(t, resp.Schedule, 24)
	})

	t.Run("rejects non-positive input", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/eligibility", `{"monthly_income": 0, "tenure_years": 10}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid input")
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/eligibility", `{"monthly_income": "lots"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid request body")
	})

	t.Run("schedule tenure above cap", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/eligibility", `{"monthly_income": 100000, "tenure_years": 51, "include_schedule": true}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "must not exceed 50 years")

		w = env.do(t, http.MethodPost, "/eligibility", `{"monthly_income": 100000, "tenure_years": 50000000, "include_schedule": true}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("schedule at cap", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/eligibility", `{"monthly_income": 100000, "tenure_years": 50, "include_schedule": true}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp eligibilityResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Len(t, resp.Schedule, 600)
	})

	t.Run("tenure too large to compute", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/eligibility", `{"monthly_income": 100000, "tenure_years": 100000}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "out of range")

		w = env.do(t, http.MethodPost, "/applications", `{"name": "Asha", "monthly_income": 100000, "tenure_years": 100000}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "out of range")
	})

	t.Run("wrong method", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/eligibility", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestApplicationEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/applications", `{"name": "Asha", "monthly_income": 100000, "tenure_years": 10}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Application
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsEligible)

	w = env.do(t, http.MethodPost, "/applications", `{"name": "Ravi", "monthly_income": 3000, "tenure_years": 1}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/applications", `{"name": "", "monthly_income": 3000, "tenure_years": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	t.Run("list", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/applications", "")
		require.Equal(t, http.StatusOK, w.Code)
		var apps []models.Application
		require.NoError(t, json.NewDecoder(w.Body).Decode(&apps))
		require.Len(t, apps, 2)
		assert.Equal(t, "Ravi", apps[0].Name)
	})

	t.Run("filter and limit", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/applications?eligible=true&limit=5", "")
		require.Equal(t, http.StatusOK, w.Code)
		var apps []models.Application
		require.NoError(t, json.NewDecoder(w.Body).Decode(&apps))
		require.Len(t, apps, 1)
		assert.Equal(t, "Asha", apps[0].Name)
	})

	t.Run("bad query", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/applications?eligible=maybe", "").Code)
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/applications?limit=-1", "").Code)
	})

	t.Run("summary", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/applications/summary", "")
		require.Equal(t, http.StatusOK, w.Code)
		var s models.ApplicationSummary
		require.NoError(t, json.NewDecoder(w.Body).Decode(&s))
		assert.Equal(t, 2, s.Total)
		assert.Equal(t, 1, s.Eligible)
	})
}

func TestRatesEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/rates", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Rates       []models.RateEntry `json:"rates"`
		DefaultRate decimal.Decimal    `json:"default_rate"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Rates, 8)
	assert.Equal(t, "12.00", resp.DefaultRate.StringFixed(2))
}

func TestKeyRateEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/key-rate", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.refresher.calls, "cache miss fetches")

	require.NoError(t, env.cache.Set(context.Background(), "cbr:key_rate", `{"rate":"18","date":"2025-01-01T00:00:00Z"}`, 0))
	w = env.do(t, http.MethodGet, "/key-rate", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rate":"18"`)
	assert.Equal(t, 1, env.refresher.calls, "cache hit does not fetch")
}

func TestKeyRateUnavailable(t *testing.T) {
	env := setupTestEnv(t)
	env.refresher.err = errors.New("cbr down")

	w := env.do(t, http.MethodGet, "/key-rate", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestStorageFailureMapsTo500(t *testing.T) {
	env := setupTestEnv(t)
	env.db.Close()

	assert.Equal(t, http.StatusInternalServerError, env.do(t, http.MethodGet, "/applications", "").Code)
	assert.Equal(t, http.StatusInternalServerError, env.do(t, http.MethodGet, "/rates", "").Code)
	assert.Equal(t, http.StatusInternalServerError, env.do(t, http.MethodGet, "/applications/summary", "").Code)
	assert.Equal(t, http.StatusInternalServerError,
		env.do(t, http.MethodPost, "/applications", `{"name": "Asha", "monthly_income": 100000, "tenure_years": 10}`).Code)

	w := env.do(t, http.MethodPost, "/eligibility", `{"monthly_income": 100000, "tenure_years": 10}`)
	assert.Equal(t, http.StatusOK, w.Code, "rate lookup degrades to the default rate")
}

func TestWriteJSONEncodingFailure(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	h := &Handler{log: log}

	w := httptest.NewRecorder()
	h.writeJSON(w, http.StatusOK, map[string]float64{"amount": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}
