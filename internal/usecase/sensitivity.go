package usecase

import "fiscal-reconciliation/internal/domain"

// SweepSensitivity re-prices the reconciliation at each of prices, holding
// series, model and policy fixed. The result has one point per price in
// input order.
func SweepSensitivity(series []domain.NormalizedRecord, model domain.FittedModel, prices []float64, policy GovernancePolicy) []domain.SensitivityPoint {
	points := make([]domain.SensitivityPoint, 0, len(prices))
	for _, price := range prices {
		records := BuildReconciliation(series, model, price, policy)
		points = append(points, domain.SensitivityPoint{
			Price:                price,
			TotalRevenueExposure: TotalExposure(records),
		})
	}
	return points
}
