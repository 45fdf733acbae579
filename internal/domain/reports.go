package domain

import "github.com/shopspring/decimal"

// Severity grades a governance flag.
type Severity string

const (
	SeverityNone   Severity = ""
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// ReconciliationRecord compares one month of actual production with the
// decline forecast and prices the difference.
type ReconciliationRecord struct {
	NormalizedRecord
	ForecastBOE     float64  `json:"forecast_boe"`
	VarianceBOE     float64  `json:"variance_boe"` // actual - forecast
	VariancePct     float64  `json:"variance_pct"`
	RevenueExposure float64  `json:"revenue_exposure"`
	IsFlagged       bool     `json:"is_flagged"`
	Severity        Severity `json:"severity,omitempty"`
}

// SummaryKPI aggregates a reconciliation sequence.
type SummaryKPI struct {
	TotalRevenueExposure float64 `json:"total_revenue_exposure"`
	TotalVarianceBOE     float64 `json:"total_variance_boe"`
	ProducingMonths      int     `json:"producing_months"`
	ShutInMonths         int     `json:"shut_in_months"`
	TotalMonths          int     `json:"total_months"`
	FlaggedMonths        int     `json:"flagged_months"`
	HighSeverityMonths   int     `json:"high_severity_months"`
	// AvgAbsVariancePct is 0 with AvgAbsVariancePctDefined false when there
	// are no producing months to average over.
	AvgAbsVariancePct        float64 `json:"avg_abs_variance_pct"`
	AvgAbsVariancePctDefined bool    `json:"avg_abs_variance_pct_defined"`
	PricePerUnit             float64 `json:"price_per_unit"`
	AnalysisDate             string  `json:"analysis_date"`
}

// SensitivityPoint is the total exposure at one candidate price.
type SensitivityPoint struct {
	Price                float64 `json:"price"`
	TotalRevenueExposure float64 `json:"total_revenue_exposure"`
}

// GovernanceFlag is an audit log entry for a flagged month.
type GovernanceFlag struct {
	FlagID            int             `json:"flag_id"`
	Month             string          `json:"month"`
	ActualBOE         float64         `json:"actual_boe"`
	ForecastBOE       float64         `json:"forecast_boe"`
	VarianceBOE       float64         `json:"variance_boe"`
	VariancePct       float64         `json:"variance_pct"`
	RevenueExposure   decimal.Decimal `json:"revenue_exposure"`
	ConsecutiveMonths int             `json:"consecutive_months"`
	Severity          Severity        `json:"severity"`
	Reason            string          `json:"reason"`
}

// AnalysisReport is the top-level structure for the final JSON output.
type AnalysisReport struct {
	RunID       string                 `json:"run_id"`
	Source      string                 `json:"source"`
	Model       FittedModel            `json:"model"`
	Summary     SummaryKPI             `json:"summary"`
	Records     []ReconciliationRecord `json:"records"`
	Flags       []GovernanceFlag       `json:"governance_flags"`
	Sensitivity []SensitivityPoint     `json:"sensitivity"`
}
