package usecase

import (
	"math"

	"fiscal-reconciliation/internal/domain"
)

// Summarize reduces a reconciliation sequence to its KPIs. Exposure and
// variance totals only count producing (non shut-in) months. With no
// producing months the average variance is reported as 0 and marked
// undefined.
func Summarize(records []domain.ReconciliationRecord) domain.SummaryKPI {
	var kpi domain.SummaryKPI
	var sumAbsPct float64

	kpi.TotalMonths = len(records)
	for _, r := range records {
		if r.IsShutIn {
			kpi.ShutInMonths++
			continue
		}
		kpi.ProducingMonths++
		kpi.TotalRevenueExposure += r.RevenueExposure
		kpi.TotalVarianceBOE += r.VarianceBOE
		sumAbsPct += math.Abs(r.VariancePct)
		if r.IsFlagged {
			kpi.FlaggedMonths++
			if r.Severity == domain.SeverityHigh {
				kpi.HighSeverityMonths++
			}
		}
	}

	if kpi.ProducingMonths > 0 {
		kpi.AvgAbsVariancePct = sumAbsPct / float64(kpi.ProducingMonths)
		kpi.AvgAbsVariancePctDefined = true
	}
	return kpi
}

// TotalExposure sums revenue exposure over producing months.
func TotalExposure(records []domain.ReconciliationRecord) float64 {
	var total float64
	for _, r := range records {
		if !r.IsShutIn {
			total += r.RevenueExposure
		}
	}
	return total
}
