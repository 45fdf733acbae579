package usecase

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"fiscal-reconciliation/internal/domain"
)

// systematicRun is the number of consecutive flagged months reported as a
// systematic breach.
const systematicRun = 3

// GovernanceAudit builds the chronological audit log of flagged months.
// Consecutive runs are counted over producing months only, so a shut-in
// between two flagged months does not break a run.
func GovernanceAudit(records []domain.ReconciliationRecord, policy GovernancePolicy) []domain.GovernanceFlag {
	flags := make([]domain.GovernanceFlag, 0)
	run := 0
	for _, r := range records {
		if r.IsShutIn {
			continue
		}
		if !r.IsFlagged {
			run = 0
			continue
		}
		run++

		flags = append(flags, domain.GovernanceFlag{
			FlagID:            len(flags) + 1,
			Month:             r.Month,
			ActualBOE:         round(r.TotalBOE, 1),
			ForecastBOE:       round(r.ForecastBOE, 1),
			VarianceBOE:       round(r.VarianceBOE, 1),
			VariancePct:       round(r.VariancePct, 2),
			RevenueExposure:   money(r.RevenueExposure),
			ConsecutiveMonths: run,
			Severity:          r.Severity,
			Reason:            flagReason(r, run, policy),
		})
	}
	return flags
}

func flagReason(r domain.ReconciliationRecord, run int, policy GovernancePolicy) string {
	abs := math.Abs(r.VariancePct)
	if run >= systematicRun {
		return fmt.Sprintf("SYSTEMATIC: %d consecutive months exceeding %.0f%% variance threshold. "+
			"Indicates possible metering drift or unrecorded diversion.", run, policy.ThresholdPct)
	}
	direction := "over"
	if r.VarianceBOE < 0 {
		direction = "under"
	}
	return fmt.Sprintf("BREACH: Field %s-produced by %.1f%% vs. technical decline forecast.", direction, abs)
}

// round and money leave non-finite values alone; decimal cannot hold them.
func round(v float64, places int32) float64 {
	if !isFinite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func money(v float64) decimal.Decimal {
	if !isFinite(v) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(2)
}
