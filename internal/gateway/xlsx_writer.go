package gateway

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"fiscal-reconciliation/internal/domain"
)

// Sheet names of the exported workbook.
const (
	SheetSummary        = "summary"
	SheetReconciliation = "reconciliation"
	SheetFlags          = "flags"
	SheetSensitivity    = "sensitivity"
)

// BuildReportXLSX renders an analysis report as a workbook.
func BuildReportXLSX(report *domain.AnalysisReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("nil analysis report")
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SheetSummary)
	for _, name := range []string{SheetReconciliation, SheetFlags, SheetSensitivity} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	s := report.Summary
	summaryRows := [][]interface{}{
		{"Fiscal Reconciliation Report"},
		{},
		{"Run ID", report.RunID},
		{"Source", report.Source},
		{"Analysis Date", s.AnalysisDate},
		{"Price per BOE", s.PricePerUnit},
		{"Qi (BOE/month)", report.Model.Qi},
		{"Di (per month)", report.Model.Di},
		{"Fallback Model", report.Model.Fallback},
		{"Total Revenue Exposure", s.TotalRevenueExposure},
		{"Total Variance (BOE)", s.TotalVarianceBOE},
		{"Total Months", s.TotalMonths},
		{"Producing Months", s.ProducingMonths},
		{"Shut-in Months", s.ShutInMonths},
		{"Flagged Months", s.FlaggedMonths},
		{"High Severity Months", s.HighSeverityMonths},
	}
	if s.AvgAbsVariancePctDefined {
		summaryRows = append(summaryRows, []interface{}{"Avg |Variance| %", s.AvgAbsVariancePct})
	} else {
		summaryRows = append(summaryRows, []interface{}{"Avg |Variance| %", "n/a"})
	}
	if err := writeRows(f, SheetSummary, summaryRows); err != nil {
		return nil, err
	}

	recRows := [][]interface{}{{
		"Month", "T", "Oil (t)", "Gas (MMscf/d)", "Days", "Shut-in",
		"Oil BOE", "Gas BOE", "Actual BOE", "Forecast BOE", "Variance BOE",
		"Variance %", "Revenue Exposure", "Flagged", "Severity",
	}}
	for _, r := range report.Records {
		var gas interface{} = ""
		if r.HasGasReading() {
			gas = *r.GasProduction
		}
		recRows = append(recRows, []interface{}{
			r.Month, r.T, r.OilProduction, gas, r.DaysInMonth, r.IsShutIn,
			r.OilBOE, r.GasBOE, r.TotalBOE, r.ForecastBOE, r.VarianceBOE,
			r.VariancePct, r.RevenueExposure, r.IsFlagged, string(r.Severity),
		})
	}
	if err := writeRows(f, SheetReconciliation, recRows); err != nil {
		return nil, err
	}

	flagRows := [][]interface{}{{
		"Flag ID", "Month", "Actual BOE", "Forecast BOE", "Variance BOE",
		"Variance %", "Revenue Exposure", "Consecutive Months", "Severity", "Reason",
	}}
	for _, fl := range report.Flags {
		flagRows = append(flagRows, []interface{}{
			fl.FlagID, fl.Month, fl.ActualBOE, fl.ForecastBOE, fl.VarianceBOE,
			fl.VariancePct, fl.RevenueExposure.InexactFloat64(), fl.ConsecutiveMonths,
			string(fl.Severity), fl.Reason,
		})
	}
	if err := writeRows(f, SheetFlags, flagRows); err != nil {
		return nil, err
	}

	sensRows := [][]interface{}{{"Price", "Total Revenue Exposure"}}
	for _, p := range report.Sensitivity {
		sensRows = append(sensRows, []interface{}{p.Price, p.TotalRevenueExposure})
	}
	if err := writeRows(f, SheetSensitivity, sensRows); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteReportXLSX renders report and writes it to path.
func WriteReportXLSX(path string, report *domain.AnalysisReport) error {
	data, err := BuildReportXLSX(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write workbook %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
