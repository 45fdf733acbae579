package usecase

import (
	"math"

	"fiscal-reconciliation/internal/config"
	"fiscal-reconciliation/internal/domain"
)

// GovernancePolicy decides which months are flagged and how severely.
// Every comparison is a strict greater-than: a variance exactly on a
// boundary belongs to the tier below it.
type GovernancePolicy struct {
	ThresholdPct float64
	MediumPct    float64
	HighPct      float64
}

// DefaultPolicy flags above 15% and grades at 20% and 25%.
func DefaultPolicy() GovernancePolicy {
	return GovernancePolicy{ThresholdPct: 15.0, MediumPct: 20.0, HighPct: 25.0}
}

// PolicyFromConfig picks the governance settings out of cfg.
func PolicyFromConfig(cfg config.Config) GovernancePolicy {
	return GovernancePolicy{
		ThresholdPct: cfg.GovernanceThresholdPct,
		MediumPct:    cfg.SeverityCutpoints.Medium,
		HighPct:      cfg.SeverityCutpoints.High,
	}
}

// Classify grades a producing month's variance percentage.
func (p GovernancePolicy) Classify(variancePct float64) (bool, domain.Severity) {
	abs := math.Abs(variancePct)
	if !(abs > p.ThresholdPct) {
		return false, domain.SeverityNone
	}
	switch {
	case abs > p.HighPct:
		return true, domain.SeverityHigh
	case abs > p.MediumPct:
		return true, domain.SeverityMedium
	default:
		return true, domain.SeverityLow
	}
}

// BuildReconciliation compares every month of series with the fitted model
// and prices the variance at price.
//
// The forecast is evaluated for shut-in months too, as the counterfactual
// baseline, but those months are never monetized or flagged.
func BuildReconciliation(series []domain.NormalizedRecord, model domain.FittedModel, price float64, policy GovernancePolicy) []domain.ReconciliationRecord {
	out := make([]domain.ReconciliationRecord, 0, len(series))
	for _, rec := range series {
		forecast := Forecast(model, rec.T)
		variance := rec.TotalBOE - forecast

		var pct float64
		if forecast > 0 && isFinite(forecast) {
			pct = 100 * variance / forecast
		}

		r := domain.ReconciliationRecord{
			NormalizedRecord: rec,
			ForecastBOE:      forecast,
			VarianceBOE:      variance,
			VariancePct:      pct,
		}
		if !rec.IsShutIn {
			r.RevenueExposure = variance * price
			r.IsFlagged, r.Severity = policy.Classify(pct)
		}
		out = append(out, r)
	}
	return out
}
