package gateway

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"fiscal-reconciliation/internal/config"
	"fiscal-reconciliation/internal/domain"
)

const (
	syntheticInitialOil = 12000.0 // tonnes/month at t=0
	syntheticDecline    = 0.04
	syntheticOilSigma   = 200.0
	syntheticGasRatio   = 1200.0 // tonnes/month per MMscf/day
	syntheticSeasonal   = 0.15
	syntheticGasSigma   = 0.05
	noiseBound          = 3.0 // in standard deviations
)

// SyntheticSource generates a deterministic demonstration series for a
// single field. The same settings always yield the same series.
type SyntheticSource struct {
	cfg config.Synthetic
}

// NewSyntheticSource creates a synthetic source from generator settings.
func NewSyntheticSource(cfg config.Synthetic) *SyntheticSource {
	return &SyntheticSource{cfg: cfg}
}

func (s *SyntheticSource) Identity() string {
	c := s.cfg
	return fmt.Sprintf("synthetic:%s:%s:%d:seed=%d:warmup=%d:shutin=%g:missinggas=%g",
		c.FieldName, c.Start, c.Months, c.Seed, c.WarmupMonths, c.ShutInProbability, c.MissingGasProbability)
}

func (s *SyntheticSource) Load(ctx context.Context) ([]domain.ProductionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return GenerateSeries(s.cfg, rand.New(rand.NewSource(s.cfg.Seed)))
}

// GenerateSeries draws a monthly series following an exponential oil decline
// with a seasonal gas-to-oil ratio. Months before WarmupMonths are never
// shut in. Shut-in months report zero oil and a confirmed zero gas reading.
func GenerateSeries(cfg config.Synthetic, rng *rand.Rand) ([]domain.ProductionRecord, error) {
	if cfg.Months <= 0 {
		return nil, domain.ErrEmptySeries
	}
	start, err := time.Parse(domain.MonthLayout, cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid synthetic start %q: %w", cfg.Start, err)
	}

	records := make([]domain.ProductionRecord, 0, cfg.Months)
	for t := 0; t < cfg.Months; t++ {
		month := start.AddDate(0, t, 0)
		rec := domain.ProductionRecord{
			Month:       month.Format(domain.MonthLayout),
			T:           t,
			DaysInMonth: domain.DaysIn(month),
		}

		// Draws happen in a fixed order every month so that the series
		// depends on the seed alone.
		oilNoise := boundedNormal(rng, syntheticOilSigma)
		gasNoise := boundedNormal(rng, syntheticGasSigma)
		shutDraw := rng.Float64()
		gasDraw := rng.Float64()

		if t >= cfg.WarmupMonths && shutDraw < cfg.ShutInProbability {
			rec.GasProduction = domain.Float64(0)
			rec.IsShutIn = true
			records = append(records, rec)
			continue
		}

		oil := math.Max(syntheticInitialOil*math.Exp(-syntheticDecline*float64(t))+oilNoise, 0)
		seasonal := 1 + syntheticSeasonal*math.Sin(2*math.Pi*float64(t)/12)
		gas := math.Max(oil/syntheticGasRatio*seasonal+gasNoise, 0)

		rec.OilProduction = oil
		if gasDraw >= cfg.MissingGasProbability {
			rec.GasProduction = domain.Float64(gas)
		}
		// Shut-in is judged on the recorded readings, as in CSV ingestion.
		rec.IsShutIn = oil <= 0 && rec.GasOrZero() <= 0
		records = append(records, rec)
	}
	return records, nil
}

func boundedNormal(rng *rand.Rand, sigma float64) float64 {
	v := rng.NormFloat64() * sigma
	limit := noiseBound * sigma
	return math.Max(-limit, math.Min(limit, v))
}
