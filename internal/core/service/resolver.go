package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/price-query/internal/core/domain"
	"github.com/rl1809/price-query/internal/port"
)

// ErrPriceNotFound means no price window matched the query. A normal
// outcome, distinct from storage failures and from a zero amount.
var ErrPriceNotFound = errors.New("price not found")

// PriceResolver selects the single applicable price window for an
// instant. Pure selection logic over the catalog, no side effects.
type PriceResolver struct {
	catalog port.PriceCatalog
}

func NewPriceResolver(catalog port.PriceCatalog) *PriceResolver {
	return &PriceResolver{catalog: catalog}
}

// Resolve returns the applicable price for the product/brand at the
// given date. Among matching windows the highest priority wins; ties
// are broken by the latest start date, then the lowest price list id,
// so repeated resolution of the same input is always deterministic.
func (r *PriceResolver) Resolve(ctx context.Context, productID, brandID int64, date time.Time) (domain.ResolvedPrice, error) {
	windows, err := r.catalog.FindApplicable(ctx, productID, brandID, date)
	if err != nil {
		return domain.ResolvedPrice{}, fmt.Errorf("query price catalog: %w", err)
	}

	best := -1
	for i, w := range windows {
		if !w.Contains(date) {
			continue
		}
		if best == -1 || preferred(w, windows[best]) {
			best = i
		}
	}
	if best == -1 {
		return domain.ResolvedPrice{}, ErrPriceNotFound
	}

	return domain.ResolvedPrice{Window: windows[best], QueryDate: date}, nil
}

// preferred reports whether a wins over b.
func preferred(a, b domain.PriceWindow) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.After(b.StartDate)
	}
	return a.PriceList < b.PriceList
}
