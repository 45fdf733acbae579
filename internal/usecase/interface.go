package usecase

import (
	"context"
	"fiscal-reconciliation/internal/domain"
)

// SeriesSource supplies the monthly production series of one field.
// Implementations must hand over a chronologically ordered, gap-free series
// with unique months, calendar-correct DaysInMonth and T equal to position.
// Identity must change whenever the underlying series does; the use case
// keys its price-independent cache on it.
//
//go:generate mockgen -destination=mocks/mock_interface.go -source=interface.go SeriesSource
type SeriesSource interface {
	Identity() string
	Load(ctx context.Context) ([]domain.ProductionRecord, error)
}
