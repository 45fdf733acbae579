package gateway

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fiscal-reconciliation/internal/domain"
)

func sampleReport() *domain.AnalysisReport {
	return &domain.AnalysisReport{
		RunID:  "run-1",
		Source: "synthetic:BRAE ALPHA",
		Model:  domain.FittedModel{Qi: 140000, Di: 0.04, Points: 3},
		Summary: domain.SummaryKPI{
			TotalRevenueExposure: -1250,
			TotalMonths:          3,
			ProducingMonths:      2,
			ShutInMonths:         1,
			FlaggedMonths:        1,
			PricePerUnit:         72.5,
			AnalysisDate:         "2026-10-15",
		},
		Records: []domain.ReconciliationRecord{
			{
				NormalizedRecord: domain.NormalizedRecord{ProductionRecord: domain.ProductionRecord{
					Month: "2024-01", T: 0, OilProduction: 10000, GasProduction: domain.Float64(8), DaysInMonth: 31,
				}},
				IsFlagged: true,
				Severity:  domain.SeverityHigh,
			},
			{
				NormalizedRecord: domain.NormalizedRecord{ProductionRecord: domain.ProductionRecord{
					Month: "2024-02", T: 1, GasProduction: domain.Float64(0), DaysInMonth: 29, IsShutIn: true,
				}},
			},
			{
				NormalizedRecord: domain.NormalizedRecord{ProductionRecord: domain.ProductionRecord{
					Month: "2024-03", T: 2, OilProduction: 9000, DaysInMonth: 31,
				}},
			},
		},
		Flags: []domain.GovernanceFlag{
			{FlagID: 1, Month: "2024-01", RevenueExposure: decimal.NewFromFloat(-1250), ConsecutiveMonths: 1,
				Severity: domain.SeverityHigh, Reason: "BREACH: Field under-produced by 30.0% vs. technical decline forecast."},
		},
		Sensitivity: []domain.SensitivityPoint{{Price: 55, TotalRevenueExposure: -948}, {Price: 95, TotalRevenueExposure: -1638}},
	}
}

func TestBuildReportXLSX(t *testing.T) {
	report := sampleReport()
	data, err := BuildReportXLSX(report)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetReconciliation, SheetFlags, SheetSensitivity}, f.GetSheetList())

	runID, err := f.GetCellValue(SheetSummary, "B3")
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	avg, err := f.GetCellValue(SheetSummary, "B17")
	require.NoError(t, err)
	assert.Equal(t, "n/a", avg)

	rows, err := f.GetRows(SheetReconciliation)
	require.NoError(t, err)
	require.Len(t, rows, 1+len(report.Records))
	assert.Equal(t, "Month", rows[0][0])
	assert.Equal(t, "2024-01", rows[1][0])
	assert.Equal(t, "HIGH", rows[1][14])
	gas, err := f.GetCellValue(SheetReconciliation, "D4")
	require.NoError(t, err)
	assert.Empty(t, gas, "missing gas reading exported as blank")

	flags, err := f.GetRows(SheetFlags)
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, report.Flags[0].Reason, flags[1][9])

	sens, err := f.GetRows(SheetSensitivity)
	require.NoError(t, err)
	assert.Len(t, sens, 3)
}

func TestWriteReportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteReportXLSX(path, sampleReport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 4)

	assert.Error(t, WriteReportXLSX(path, nil))
	assert.Error(t, WriteReportXLSX(filepath.Join(t.TempDir(), "missing", "report.xlsx"), sampleReport()))
}
