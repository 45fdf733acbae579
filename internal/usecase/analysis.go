package usecase

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fiscal-reconciliation/internal/config"
	"fiscal-reconciliation/internal/domain"
	"fiscal-reconciliation/internal/metrics"
)

// AnalysisUseCase orchestrates the reconciliation pipeline for one series
// source.
//
// The normalized series and fitted model depend only on the series, so they
// are cached under the source identity and reused across price changes.
// Price-dependent results are cached per (identity, price). A change of
// identity drops both caches.
type AnalysisUseCase struct {
	source  SeriesSource
	cfg     config.Config
	factors Factors
	policy  GovernancePolicy
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	// sweepPrices is the configured sensitivity grid, clamped once.
	sweepPrices []float64

	mu       sync.Mutex
	baseline *baseline
	priced   map[float64]*pricedResult
}

type baseline struct {
	identity    string
	series      []domain.NormalizedRecord
	model       domain.FittedModel
	sensitivity []domain.SensitivityPoint
}

type pricedResult struct {
	records []domain.ReconciliationRecord
	summary domain.SummaryKPI
	flags   []domain.GovernanceFlag
}

// NewAnalysisUseCase creates a new instance of the usecase. logger and m
// may be nil.
func NewAnalysisUseCase(source SeriesSource, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) *AnalysisUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	sweepPrices := make([]float64, 0, len(cfg.SensitivityPrices))
	for _, p := range cfg.SensitivityPrices {
		sweepPrices = append(sweepPrices, cfg.ClampPrice(p))
	}
	return &AnalysisUseCase{
		source:  source,
		cfg:     cfg,
		factors: FactorsFromConfig(cfg),
		policy:  PolicyFromConfig(cfg),
		logger:  logger,
		metrics: m,
		now:     time.Now,
		priced:  make(map[float64]*pricedResult),

		sweepPrices: sweepPrices,
	}
}

// Analyze runs the full pipeline at price, clamped to the configured
// bounds, and returns a report the caller owns.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, price float64) (*domain.AnalysisReport, error) {
	start := uc.now()
	price = uc.cfg.ClampPrice(price)

	uc.mu.Lock()
	defer uc.mu.Unlock()

	b, err := uc.loadBaseline(ctx)
	if err != nil {
		return nil, err
	}

	res, ok := uc.priced[price]
	uc.metrics.ObserveCache(metrics.StageReconciliation, ok)
	if !ok {
		res = uc.price(b, price)
		uc.priced[price] = res
	} else {
		uc.logger.Debug("reconciliation cache hit", zap.String("source", b.identity), zap.Float64("price", price))
	}

	summary := res.summary
	summary.PricePerUnit = price
	summary.AnalysisDate = uc.now().UTC().Format(time.DateOnly)

	report := &domain.AnalysisReport{
		RunID:       uuid.NewString(),
		Source:      b.identity,
		Model:       b.model,
		Summary:     summary,
		Records:     cloneRecords(res.records),
		Flags:       slices.Clone(res.flags),
		Sensitivity: slices.Clone(b.sensitivity),
	}

	uc.metrics.ObserveAnalysis(uc.now().Sub(start), summary.FlaggedMonths, summary.TotalRevenueExposure)
	uc.logger.Info("analysis complete",
		zap.String("run_id", report.RunID),
		zap.String("source", b.identity),
		zap.Float64("price", price),
		zap.Int("months", summary.TotalMonths),
		zap.Int("flagged", summary.FlaggedMonths),
		zap.Float64("revenue_exposure", summary.TotalRevenueExposure),
	)
	return report, nil
}

// Sweep returns the total exposure at each price, in input order. Prices
// are clamped to the configured bounds.
func (uc *AnalysisUseCase) Sweep(ctx context.Context, prices []float64) ([]domain.SensitivityPoint, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	b, err := uc.loadBaseline(ctx)
	if err != nil {
		return nil, err
	}

	clamped := make([]float64, 0, len(prices))
	for _, p := range prices {
		clamped = append(clamped, uc.cfg.ClampPrice(p))
	}
	uc.metrics.ObserveStage(metrics.StageSensitivity)
	return SweepSensitivity(b.series, b.model, clamped, uc.policy), nil
}

// Forecast projects the fitted model over the months following the series.
func (uc *AnalysisUseCase) Forecast(ctx context.Context, months int) ([]domain.ForecastPoint, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	b, err := uc.loadBaseline(ctx)
	if err != nil {
		return nil, err
	}
	return ProjectForecast(b.model, len(b.series), months), nil
}

// Model returns the fitted decline model of the current series.
func (uc *AnalysisUseCase) Model(ctx context.Context) (domain.FittedModel, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	b, err := uc.loadBaseline(ctx)
	if err != nil {
		return domain.FittedModel{}, err
	}
	return b.model, nil
}

// Invalidate drops every cached result; the next call reloads the series.
func (uc *AnalysisUseCase) Invalidate() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.reset(nil)
}

// loadBaseline returns the cached price-independent stages, rebuilding them
// when the source identity has changed. Callers hold uc.mu.
func (uc *AnalysisUseCase) loadBaseline(ctx context.Context) (*baseline, error) {
	identity := uc.source.Identity()
	if uc.baseline != nil && uc.baseline.identity == identity {
		uc.metrics.ObserveCache(metrics.StageBaseline, true)
		return uc.baseline, nil
	}
	uc.metrics.ObserveCache(metrics.StageBaseline, false)

	records, err := uc.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load production series %s: %w", identity, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("could not load production series %s: %w", identity, domain.ErrEmptySeries)
	}

	series := NormalizeSeries(records, uc.factors)
	fallback := domain.FittedModel{Qi: uc.cfg.FallbackModel.Qi, Di: uc.cfg.FallbackModel.Di}
	model := FitDecline(series, fallback)
	uc.metrics.ObserveStage(metrics.StageBaseline)

	if model.Fallback {
		uc.metrics.IncFitFallback()
		uc.logger.Warn("insufficient producing months for decline fit, using fallback model",
			zap.String("source", identity),
			zap.Int("producing_points", model.Points),
			zap.Float64("qi", model.Qi),
			zap.Float64("di", model.Di),
		)
	} else {
		uc.logger.Info("decline curve fitted",
			zap.String("source", identity),
			zap.Int("producing_points", model.Points),
			zap.Float64("qi", model.Qi),
			zap.Float64("di", model.Di),
		)
	}

	b := &baseline{
		identity:    identity,
		series:      series,
		model:       model,
		sensitivity: SweepSensitivity(series, model, uc.sweepPrices, uc.policy),
	}
	uc.metrics.ObserveStage(metrics.StageSensitivity)
	uc.reset(b)
	return b, nil
}

func (uc *AnalysisUseCase) price(b *baseline, price float64) *pricedResult {
	records := BuildReconciliation(b.series, b.model, price, uc.policy)
	uc.metrics.ObserveStage(metrics.StageReconciliation)
	return &pricedResult{
		records: records,
		summary: Summarize(records),
		flags:   GovernanceAudit(records, uc.policy),
	}
}

// cloneRecords copies records including the gas readings they point to, so
// a caller writing through a report cannot reach the cache.
func cloneRecords(records []domain.ReconciliationRecord) []domain.ReconciliationRecord {
	out := slices.Clone(records)
	for i := range out {
		if gas := out[i].GasProduction; gas != nil {
			out[i].GasProduction = domain.Float64(*gas)
		}
	}
	return out
}

func (uc *AnalysisUseCase) reset(b *baseline) {
	uc.baseline = b
	uc.priced = make(map[float64]*pricedResult)
}
