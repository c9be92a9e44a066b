package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	// EventTypePriceQuery marks a resolved price with a positive amount.
	EventTypePriceQuery EventType = "PRICE_QUERY"

	// EventTypeZeroAmountQuery marks a resolved price whose amount is
	// exactly zero. Business-significant, not an error.
	EventTypeZeroAmountQuery EventType = "ZERO_AMOUNT_QUERY"
)

// PriceEvent is a write-once audit record of a successful price query.
type PriceEvent struct {
	ID        string
	ProductID int64
	BrandID   int64
	PriceList int64
	QueryDate time.Time
	Price     decimal.Decimal
	EventType EventType
	CreatedAt time.Time
}

// NewPriceEvent builds the audit record for a resolved price. The event
// type is classified by whether the amount is exactly zero.
func NewPriceEvent(resolved ResolvedPrice) PriceEvent {
	eventType := EventTypePriceQuery
	if resolved.Window.Price.IsZero() {
		eventType = EventTypeZeroAmountQuery
	}

	return PriceEvent{
		ID:        uuid.NewString(),
		ProductID: resolved.Window.ProductID,
		BrandID:   resolved.Window.BrandID,
		PriceList: resolved.Window.PriceList,
		QueryDate: resolved.QueryDate,
		Price:     resolved.Window.Price,
		EventType: eventType,
		CreatedAt: time.Now(),
	}
}
