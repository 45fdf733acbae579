package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fiscal-reconciliation/internal/domain"
)

const (
	defaultForecastMonths = 12
	maxForecastMonths     = 600
)

// Analyzer is the read side of the reconciliation use case.
type Analyzer interface {
	Analyze(ctx context.Context, price float64) (*domain.AnalysisReport, error)
	Sweep(ctx context.Context, prices []float64) ([]domain.SensitivityPoint, error)
	Forecast(ctx context.Context, months int) ([]domain.ForecastPoint, error)
}

// Defaults applied when a query parameter is omitted.
type Defaults struct {
	Price  float64
	Prices []float64
}

// NewRouter wires the API routes. gatherer may be nil, in which case
// /metrics is not served.
func NewRouter(a Analyzer, defaults Defaults, gatherer prometheus.Gatherer, logger *zap.Logger) *http.ServeMux {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/api/v1/analysis", NewAnalysisHandler(a, defaults.Price, logger))
	mux.Handle("/api/v1/sensitivity", NewSensitivityHandler(a, defaults.Prices, logger))
	mux.Handle("/api/v1/forecast", NewForecastHandler(a, logger))
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// AnalysisHandler serves full reconciliation reports.
type AnalysisHandler struct {
	analyzer     Analyzer
	defaultPrice float64
	logger       *zap.Logger
}

// NewAnalysisHandler constructs an AnalysisHandler.
func NewAnalysisHandler(a Analyzer, defaultPrice float64, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{analyzer: a, defaultPrice: defaultPrice, logger: logger}
}

// ServeHTTP handles GET /api/v1/analysis.
func (h *AnalysisHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.analyzer == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	price := h.defaultPrice
	if raw := r.URL.Query().Get("price"); raw != "" {
		v, err := parsePrice(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		price = v
	}

	report, err := h.analyzer.Analyze(r.Context(), price)
	if err != nil {
		writeError(w, h.logger, "analysis", err)
		return
	}
	writeJSON(w, report)
}

// SensitivityHandler serves price sweeps.
type SensitivityHandler struct {
	analyzer      Analyzer
	defaultPrices []float64
	logger        *zap.Logger
}

// NewSensitivityHandler constructs a SensitivityHandler.
func NewSensitivityHandler(a Analyzer, defaultPrices []float64, logger *zap.Logger) *SensitivityHandler {
	return &SensitivityHandler{analyzer: a, defaultPrices: defaultPrices, logger: logger}
}

// ServeHTTP handles GET /api/v1/sensitivity.
func (h *SensitivityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.analyzer == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	prices := h.defaultPrices
	if raw := r.URL.Query().Get("prices"); raw != "" {
		parsed, err := ParsePrices(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		prices = parsed
	}

	points, err := h.analyzer.Sweep(r.Context(), prices)
	if err != nil {
		writeError(w, h.logger, "sensitivity", err)
		return
	}
	writeJSON(w, points)
}

// ForecastHandler serves forward projections of the fitted model.
type ForecastHandler struct {
	analyzer Analyzer
	logger   *zap.Logger
}

// NewForecastHandler constructs a ForecastHandler.
func NewForecastHandler(a Analyzer, logger *zap.Logger) *ForecastHandler {
	return &ForecastHandler{analyzer: a, logger: logger}
}

// ServeHTTP handles GET /api/v1/forecast.
func (h *ForecastHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.analyzer == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	months := defaultForecastMonths
	if raw := r.URL.Query().Get("months"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > maxForecastMonths {
			http.Error(w, fmt.Sprintf("months must be an integer in 1..%d", maxForecastMonths), http.StatusBadRequest)
			return
		}
		months = v
	}

	points, err := h.analyzer.Forecast(r.Context(), months)
	if err != nil {
		writeError(w, h.logger, "forecast", err)
		return
	}
	writeJSON(w, points)
}

// ParsePrices parses a comma-separated price list, keeping its order.
func ParsePrices(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	prices := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := parsePrice(part)
		if err != nil {
			return nil, err
		}
		prices = append(prices, v)
	}
	if len(prices) == 0 {
		return nil, errors.New("prices must list at least one price")
	}
	return prices, nil
}

func parsePrice(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid price %q", raw)
	}
	return v, nil
}

func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrFieldNotFound),
		errors.Is(err, domain.ErrMalformedRecord),
		errors.Is(err, domain.ErrEmptySeries):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
	default:
		logger.Error("request failed", zap.String("op", op), zap.Error(err))
		http.Error(w, op+" error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
