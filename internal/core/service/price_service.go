package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/price-query/internal/core/domain"
	"github.com/rl1809/price-query/internal/guard"
	"github.com/rl1809/price-query/internal/obs"
	"github.com/rl1809/price-query/internal/port"
)

// Breaker names. Everything calling the same downstream dependency
// shares the breaker registered under its name.
const (
	ResolutionOperation = "priceResolution"
	PublishOperation    = "eventPublish"
)

// ErrServiceUnavailable is re-exported so callers can map guarded
// failures without importing the guard package.
var ErrServiceUnavailable = guard.ErrServiceUnavailable

// PriceService orchestrates guarded price resolution and the
// fire-and-forget audit trail.
type PriceService struct {
	catalog           port.PriceCatalog
	resolver          *PriceResolver
	audit             *AuditPipeline
	resolutionBreaker *guard.Breaker
	tracer            trace.Tracer
}

func NewPriceService(catalog port.PriceCatalog, resolver *PriceResolver, audit *AuditPipeline, breakers *guard.Registry) *PriceService {
	return &PriceService{
		catalog:  catalog,
		resolver: resolver,
		audit:    audit,
		resolutionBreaker: breakers.Get(ResolutionOperation, guard.Settings{
			IgnoredErrors: []error{ErrPriceNotFound},
			OnStateChange: breakerStateChange,
		}),
		tracer: otel.Tracer("price-query"),
	}
}

// FindPrice resolves the applicable price and, on success, records an
// audit event without awaiting it. Not-found comes back as
// ErrPriceNotFound; every other failure as ErrServiceUnavailable with
// the cause hidden behind a generic message.
func (s *PriceService) FindPrice(ctx context.Context, productID, brandID int64, date time.Time) (domain.ResolvedPrice, error) {
	ctx, span := s.tracer.Start(ctx, "PriceService.FindPrice", trace.WithAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int64("brand_id", brandID),
		attribute.String("query_date", date.Format(time.RFC3339)),
	))
	defer span.End()

	resolved, err := guard.Execute(ctx, s.resolutionBreaker, func(ctx context.Context) (domain.ResolvedPrice, error) {
		return s.resolver.Resolve(ctx, productID, brandID, date)
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrPriceNotFound) {
			obs.PriceQueries.WithLabelValues("not_found").Inc()
			return domain.ResolvedPrice{}, err
		}
		obs.PriceQueries.WithLabelValues("unavailable").Inc()
		obs.Logger.Error("price resolution failed",
			"error", err,
			"product_id", productID,
			"brand_id", brandID,
			"query_date", date)
		return domain.ResolvedPrice{}, err
	}

	obs.PriceQueries.WithLabelValues("found").Inc()
	s.audit.Record(resolved)
	return resolved, nil
}

// GetAllPrices returns every window in the catalog through the same
// breaker. An empty catalog is a valid, non-error result.
func (s *PriceService) GetAllPrices(ctx context.Context) ([]domain.PriceWindow, error) {
	ctx, span := s.tracer.Start(ctx, "PriceService.GetAllPrices")
	defer span.End()

	windows, err := guard.Execute(ctx, s.resolutionBreaker, func(ctx context.Context) ([]domain.PriceWindow, error) {
		return s.catalog.GetAll(ctx)
	})
	if err != nil {
		span.RecordError(err)
		obs.Logger.Error("bulk price read failed", "error", err)
		return nil, err
	}
	return windows, nil
}

func breakerStateChange(name string, from, to guard.State) {
	obs.BreakerTransitions.WithLabelValues(name, to.String()).Inc()
	obs.Logger.Warn("circuit breaker state change",
		"operation", name,
		"from", from.String(),
		"to", to.String())
}
