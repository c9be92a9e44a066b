package port

import (
	"context"

	"github.com/rl1809/price-query/internal/core/domain"
)

type EventPublisher interface {
	// PublishEvent sends an audit event to the message bus. Publishing
	// may be disabled by configuration, in which case the implementation
	// is a no-op success.
	PublishEvent(ctx context.Context, event domain.PriceEvent) error
}
