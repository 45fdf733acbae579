package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fiscal-reconciliation/internal/config"
	"fiscal-reconciliation/internal/domain"
	"fiscal-reconciliation/internal/gateway"
	"fiscal-reconciliation/internal/metrics"
	"fiscal-reconciliation/internal/usecase"
)

type stubAnalyzer struct {
	err         error
	gotPrice    float64
	gotPrices   []float64
	gotMonths   int
	analyzeCall int
}

func (s *stubAnalyzer) Analyze(_ context.Context, price float64) (*domain.AnalysisReport, error) {
	s.analyzeCall++
	s.gotPrice = price
	if s.err != nil {
		return nil, s.err
	}
	return &domain.AnalysisReport{RunID: "run", Summary: domain.SummaryKPI{PricePerUnit: price}}, nil
}

func (s *stubAnalyzer) Sweep(_ context.Context, prices []float64) ([]domain.SensitivityPoint, error) {
	s.gotPrices = prices
	if s.err != nil {
		return nil, s.err
	}
	points := make([]domain.SensitivityPoint, len(prices))
	for i, p := range prices {
		points[i] = domain.SensitivityPoint{Price: p, TotalRevenueExposure: -p}
	}
	return points, nil
}

func (s *stubAnalyzer) Forecast(_ context.Context, months int) ([]domain.ForecastPoint, error) {
	s.gotMonths = months
	if s.err != nil {
		return nil, s.err
	}
	return make([]domain.ForecastPoint, months), nil
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Parameters(t *testing.T) {
	defaults := Defaults{Price: 72.5, Prices: []float64{55, 95}}

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		check      func(t *testing.T, s *stubAnalyzer)
	}{
		{
			name:       "analysis uses default price",
			method:     http.MethodGet,
			target:     "/api/v1/analysis",
			wantStatus: http.StatusOK,
			check:      func(t *testing.T, s *stubAnalyzer) { assert.Equal(t, 72.5, s.gotPrice) },
		},
		{
			name:       "analysis with price",
			method:     http.MethodGet,
			target:     "/api/v1/analysis?price=80",
			wantStatus: http.StatusOK,
			check:      func(t *testing.T, s *stubAnalyzer) { assert.Equal(t, 80.0, s.gotPrice) },
		},
		{
			name:       "analysis rejects bad price",
			method:     http.MethodGet,
			target:     "/api/v1/analysis?price=NaN",
			wantStatus: http.StatusBadRequest,
			check:      func(t *testing.T, s *stubAnalyzer) { assert.Zero(t, s.analyzeCall) },
		},
		{
			name:       "analysis rejects POST",
			method:     http.MethodPost,
			target:     "/api/v1/analysis",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "sensitivity keeps input order",
			method:     http.MethodGet,
			target:     "/api/v1/sensitivity?prices=100,%2050,,80",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, s *stubAnalyzer) {
				assert.Equal(t, []float64{100, 50, 80}, s.gotPrices)
			},
		},
		{
			name:       "sensitivity uses default prices",
			method:     http.MethodGet,
			target:     "/api/v1/sensitivity",
			wantStatus: http.StatusOK,
			check:      func(t *testing.T, s *stubAnalyzer) { assert.Equal(t, []float64{55, 95}, s.gotPrices) },
		},
		{
			name:       "sensitivity rejects bad list",
			method:     http.MethodGet,
			target:     "/api/v1/sensitivity?prices=50,abc",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "forecast default months",
			method:     http.MethodGet,
			target:     "/api/v1/forecast",
			wantStatus: http.StatusOK,
			check:      func(t *testing.T, s *stubAnalyzer) { assert.Equal(t, 12, s.gotMonths) },
		},
		{
			name:       "forecast rejects zero months",
			method:     http.MethodGet,
			target:     "/api/v1/forecast?months=0",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAnalyzer{}
			router := NewRouter(stub, defaults, nil, zap.NewNop())
			rec := serve(t, router, tt.method, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, stub)
			}
		})
	}
}

func TestRouter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"field not found", fmt.Errorf("load: %w", domain.ErrFieldNotFound), http.StatusUnprocessableEntity},
		{"malformed", fmt.Errorf("line 3: %w", domain.ErrMalformedRecord), http.StatusUnprocessableEntity},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(&stubAnalyzer{err: tt.err}, Defaults{Price: 72.5}, nil, nil)
			for _, target := range []string{"/api/v1/analysis", "/api/v1/sensitivity?prices=60", "/api/v1/forecast"} {
				rec := serve(t, router, http.MethodGet, target)
				assert.Equal(t, tt.wantStatus, rec.Code, target)
			}
		})
	}
}

func TestHandlers_NotReady(t *testing.T) {
	var h *AnalysisHandler
	rec := serve(t, h, http.MethodGet, "/api/v1/analysis")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(t, NewForecastHandler(nil, zap.NewNop()), http.MethodGet, "/api/v1/forecast")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_EndToEnd(t *testing.T) {
	cfg := config.Default()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	uc := usecase.NewAnalysisUseCase(gateway.NewSyntheticSource(cfg.Synthetic), cfg, zap.NewNop(), m)
	router := NewRouter(uc, Defaults{Price: cfg.PricePerUnit, Prices: cfg.SensitivityPrices}, reg, zap.NewNop())

	rec := serve(t, router, http.MethodGet, "/api/v1/analysis?price=500")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report domain.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, cfg.PriceMax, report.Summary.PricePerUnit)
	assert.Len(t, report.Records, cfg.Synthetic.Months)
	assert.Len(t, report.Sensitivity, len(cfg.SensitivityPrices))
	assert.NotEmpty(t, report.RunID)

	rec = serve(t, router, http.MethodGet, "/api/v1/forecast?months=6")
	require.Equal(t, http.StatusOK, rec.Code)
	var forecast []domain.ForecastPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forecast))
	require.Len(t, forecast, 6)
	assert.Equal(t, cfg.Synthetic.Months, forecast[0].T)

	rec = serve(t, router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "reconciler_pipeline_runs_total"), "metrics exposed")
}
