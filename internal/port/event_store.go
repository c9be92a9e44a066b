package port

import (
	"context"

	"github.com/rl1809/price-query/internal/core/domain"
)

type EventStore interface {
	// SaveEvent persists an audit event. Failures are handled by the
	// audit pipeline and never reach the query path.
	SaveEvent(ctx context.Context, event domain.PriceEvent) error
}
