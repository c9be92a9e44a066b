package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceWindow is a time-bounded, prioritized pricing rule for a
// product/brand pair. Windows are maintained by an external pricing
// process and are read-only here.
type PriceWindow struct {
	ProductID int64
	BrandID   int64
	PriceList int64
	StartDate time.Time
	EndDate   *time.Time // nil means open-ended
	Priority  int
	Price     decimal.Decimal
	Currency  string
}

// Contains reports whether the window is valid at the given instant.
func (w PriceWindow) Contains(t time.Time) bool {
	if t.Before(w.StartDate) {
		return false
	}
	return w.EndDate == nil || !w.EndDate.Before(t)
}

// ResolvedPrice is the outcome of resolving a price query: the single
// applicable window plus the instant that was asked about.
type ResolvedPrice struct {
	Window    PriceWindow
	QueryDate time.Time
}
