package usecase

import (
	"fiscal-reconciliation/internal/config"
	"fiscal-reconciliation/internal/domain"
)

// Factors are the BOE conversion factors.
type Factors struct {
	OilTonnesToBarrels float64
	GasMmscfToBoe      float64
}

// DefaultFactors returns the North Sea benchmark factors.
func DefaultFactors() Factors {
	return Factors{OilTonnesToBarrels: 7.33, GasMmscfToBoe: 175.8}
}

// FactorsFromConfig picks the conversion factors out of cfg.
func FactorsFromConfig(cfg config.Config) Factors {
	return Factors{OilTonnesToBarrels: cfg.OilTonnesToBarrels, GasMmscfToBoe: cfg.GasMmscfToBoe}
}

// Normalize converts one record into barrels of oil equivalent. Gas is a
// daily rate, so it is expanded by the calendar days of the month first.
// A missing gas reading contributes nothing.
func Normalize(rec domain.ProductionRecord, f Factors) domain.NormalizedRecord {
	oilBOE := rec.OilProduction * f.OilTonnesToBarrels
	gasBOE := rec.GasOrZero() * float64(rec.DaysInMonth) * f.GasMmscfToBoe
	return domain.NormalizedRecord{
		ProductionRecord: rec,
		OilBOE:           oilBOE,
		GasBOE:           gasBOE,
		TotalBOE:         oilBOE + gasBOE,
	}
}

// NormalizeSeries applies Normalize to every record.
func NormalizeSeries(records []domain.ProductionRecord, f Factors) []domain.NormalizedRecord {
	out := make([]domain.NormalizedRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, Normalize(rec, f))
	}
	return out
}
