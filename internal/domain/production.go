package domain

import (
	"errors"
	"time"
)

// MonthLayout is the calendar key format used for production months.
const MonthLayout = "2006-01"

var (
	// ErrMalformedRecord marks an input record that breaks the series contract.
	ErrMalformedRecord = errors.New("malformed production record")
	// ErrFieldNotFound is returned when a field filter matches no rows.
	ErrFieldNotFound = errors.New("no data found for field")
	// ErrEmptySeries is returned when a source yields no records at all.
	ErrEmptySeries = errors.New("empty production series")
)

// ProductionRecord is one reported month of a single field. Month is the
// YYYY-MM key and T its zero-based position in the series. Oil is reported
// in tonnes per month.
type ProductionRecord struct {
	Month         string  `json:"month"`
	T             int     `json:"t"`
	OilProduction float64 `json:"oil_production"`
	// GasProduction is the daily rate in MMscf/day. Nil means no reading was
	// reported, which is not the same as a confirmed zero.
	GasProduction *float64 `json:"gas_production"`
	DaysInMonth   int      `json:"days_in_month"`
	IsShutIn      bool     `json:"is_shut_in"`
}

// HasGasReading reports whether a gas reading was reported for the month.
func (r ProductionRecord) HasGasReading() bool {
	return r.GasProduction != nil
}

// GasOrZero returns the gas reading, treating a missing reading as zero.
func (r ProductionRecord) GasOrZero() float64 {
	if r.GasProduction == nil {
		return 0
	}
	return *r.GasProduction
}

// NormalizedRecord carries the BOE-normalized volumes of a record.
type NormalizedRecord struct {
	ProductionRecord
	OilBOE   float64 `json:"oil_boe"`
	GasBOE   float64 `json:"gas_boe"`
	TotalBOE float64 `json:"total_boe"`
}

// FittedModel holds Arps exponential decline parameters.
type FittedModel struct {
	Qi float64 `json:"qi"` // BOE/month at t=0
	Di float64 `json:"di"` // fraction per month
	// Points is the size of the producing set the model was fitted on.
	Points int `json:"points"`
	// Fallback is set when the producing set was too small to fit and the
	// configured fallback parameters were substituted.
	Fallback bool `json:"fallback"`
}

// ForecastPoint is a single projected month of the decline model.
type ForecastPoint struct {
	T           int     `json:"t"`
	ForecastBOE float64 `json:"forecast_boe"`
}

// Float64 returns a pointer to v, for building optional gas readings.
func Float64(v float64) *float64 {
	return &v
}

// DaysIn returns the number of calendar days of the month containing t.
func DaysIn(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}
