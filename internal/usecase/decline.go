package usecase

import (
	"math"

	"fiscal-reconciliation/internal/domain"
)

const (
	// MinFitPoints is the smallest producing set a decline curve is fitted on.
	MinFitPoints = 3
	// MinDeclineRate floors the fitted decline; zero or negative decline is
	// not physical for a depleting reservoir.
	MinDeclineRate = 0.001
)

// DefaultFallbackModel is returned by FitDecline when fewer than
// MinFitPoints producing months are available.
var DefaultFallbackModel = domain.FittedModel{Qi: 100000, Di: 0.03}

// FitDecline fits q(t) = qi·exp(-di·t) to the producing months of series
// (TotalBOE > 0 and not shut in) by ordinary least squares on
// ln(TotalBOE+1) = ln(qi) - di·t.
//
// With fewer than MinFitPoints producing months, or when the regression is
// degenerate, fallback is returned with Fallback set. The result depends on
// each record's T only, never on slice order or price.
func FitDecline(series []domain.NormalizedRecord, fallback domain.FittedModel) domain.FittedModel {
	var n, sumT, sumY, sumTY, sumTT float64
	for _, rec := range series {
		if rec.IsShutIn || rec.TotalBOE <= 0 {
			continue
		}
		t := float64(rec.T)
		y := math.Log(rec.TotalBOE + 1)
		n++
		sumT += t
		sumY += y
		sumTY += t * y
		sumTT += t * t
	}

	points := int(n)
	if !(fallback.Qi > 0) || !isFinite(fallback.Qi) {
		fallback.Qi = DefaultFallbackModel.Qi
	}
	if !isFinite(fallback.Di) {
		fallback.Di = DefaultFallbackModel.Di
	}
	fallback.Di = math.Max(fallback.Di, MinDeclineRate)
	fallback.Points = points
	fallback.Fallback = true
	if points < MinFitPoints {
		return fallback
	}

	denom := n*sumTT - sumT*sumT
	if denom == 0 {
		return fallback
	}
	slope := (n*sumTY - sumT*sumY) / denom
	intercept := (sumY - slope*sumT) / n

	qi := math.Exp(intercept)
	if !isFinite(qi) || qi <= 0 || !isFinite(slope) {
		return fallback
	}

	return domain.FittedModel{
		Qi:     qi,
		Di:     math.Max(-slope, MinDeclineRate),
		Points: points,
	}
}

// Forecast evaluates the Arps exponential decline at month t.
func Forecast(m domain.FittedModel, t int) float64 {
	return m.Qi * math.Exp(-m.Di*float64(t))
}

// ProjectForecast projects the model over months [fromT, fromT+months).
func ProjectForecast(m domain.FittedModel, fromT, months int) []domain.ForecastPoint {
	if months <= 0 {
		return []domain.ForecastPoint{}
	}
	points := make([]domain.ForecastPoint, 0, months)
	for t := fromT; t < fromT+months; t++ {
		points = append(points, domain.ForecastPoint{T: t, ForecastBOE: Forecast(m, t)})
	}
	return points
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
