package service

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/price-query/internal/core/domain"
	"github.com/rl1809/price-query/internal/guard"
	"github.com/rl1809/price-query/internal/obs"
	"github.com/rl1809/price-query/internal/port"
)

const defaultAuditTimeout = 5 * time.Second

// AuditPipeline records successful price queries to the event store and
// the publisher. Recording is fire-and-forget: events are handed to a
// bounded queue served by a fixed worker pool, and no failure in here
// is ever visible to the query path.
type AuditPipeline struct {
	store          port.EventStore
	publisher      port.EventPublisher
	publishBreaker *guard.Breaker
	queue          chan domain.PriceEvent
	timeout        time.Duration
	wg             sync.WaitGroup
	closeOnce      sync.Once
}

func NewAuditPipeline(store port.EventStore, publisher port.EventPublisher, breakers *guard.Registry, workers, queueSize int) *AuditPipeline {
	p := &AuditPipeline{
		store:     store,
		publisher: publisher,
		publishBreaker: breakers.Get(PublishOperation, guard.Settings{
			OnStateChange: breakerStateChange,
		}),
		queue:   make(chan domain.PriceEvent, queueSize),
		timeout: defaultAuditTimeout,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Record builds the audit event for a resolved price and enqueues it.
// Never blocks: when the queue is saturated the event is dropped with a
// logged warning (the channel is at-most-once by design).
func (p *AuditPipeline) Record(resolved domain.ResolvedPrice) {
	// Product ids are positive; a zero window means nothing was resolved.
	if resolved.Window.ProductID == 0 {
		return
	}

	event := domain.NewPriceEvent(resolved)

	select {
	case p.queue <- event:
	default:
		obs.AuditEventsDropped.Inc()
		obs.Logger.Warn("audit queue full, event dropped",
			"product_id", event.ProductID,
			"brand_id", event.BrandID,
			"query_date", event.QueryDate)
	}
}

func (p *AuditPipeline) worker() {
	defer p.wg.Done()
	for event := range p.queue {
		// Detached from the request context: audit must not be lost
		// merely because the client disconnected.
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		p.process(ctx, event)
		cancel()
	}
}

// process persists then publishes one event. The two side effects are
// independent projections: a store failure does not skip the publish.
func (p *AuditPipeline) process(ctx context.Context, event domain.PriceEvent) {
	if err := p.store.SaveEvent(ctx, event); err != nil {
		obs.AuditFailures.WithLabelValues("store").Inc()
		obs.Logger.Error("failed to store price event",
			"error", err,
			"event_id", event.ID,
			"product_id", event.ProductID,
			"brand_id", event.BrandID,
			"query_date", event.QueryDate)
	}

	_, err := guard.Execute(ctx, p.publishBreaker, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.publisher.PublishEvent(ctx, event)
	})
	if err != nil {
		obs.AuditFailures.WithLabelValues("publish").Inc()
		obs.Logger.Warn("event publisher unavailable, event not published",
			"error", err,
			"event_id", event.ID,
			"product_id", event.ProductID,
			"brand_id", event.BrandID,
			"query_date", event.QueryDate)
	}
}

// Close stops accepting events and waits for queued ones to drain.
func (p *AuditPipeline) Close() {
	p.closeOnce.Do(func() { close(p.queue) })
	p.wg.Wait()
}
