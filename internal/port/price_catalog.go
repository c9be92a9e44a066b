package port

import (
	"context"
	"time"

	"github.com/rl1809/price-query/internal/core/domain"
)

type PriceCatalog interface {
	// FindApplicable returns all windows for the product/brand whose
	// validity range contains the given date. Zero rows is a valid result.
	FindApplicable(ctx context.Context, productID, brandID int64, date time.Time) ([]domain.PriceWindow, error)

	// GetAll returns every window in the catalog
	GetAll(ctx context.Context) ([]domain.PriceWindow, error)
}
