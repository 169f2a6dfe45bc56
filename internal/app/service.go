/**
 * @description
 * This file contains the core business logic of the marketplace. The `Service`
 * struct hosts the Catalog Manager (services and their payment channels) and the
 * Request Lifecycle Manager (customer submissions and their status), coordinating
 * the repository, the catalog read cache and the event publisher.
 *
 * Key features:
 * - Admin checks against the injected allow-list identity.
 * - Canonical UUID v4 checks before any identifier reaches the store.
 * - Validation of submitted form data against the service's form schema.
 * - Publishes lifecycle events to RabbitMQ; publish failures are logged only.
 *
 * @dependencies
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/elllyers/ineza/internal/domain"
	"github.com/elllyers/ineza/internal/store"
	"github.com/google/uuid"
)

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// CatalogCache caches catalog reads in generations. Get reports the generation
// current before the lookup and Set writes into a given generation, so a fill
// racing with Invalidate lands in a generation nobody reads.
type CatalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) (hit bool, generation int64, err error)
	Set(ctx context.Context, generation int64, key string, value interface{}) error
	Invalidate(ctx context.Context) error
}

// Service provides the business logic for the catalog and the request lifecycle.
type Service struct {
	repo      store.Repository
	cache     CatalogCache
	publisher EventPublisher
	logger    *slog.Logger
}

// NewService creates a new marketplace service. cache and publisher may be nil.
func NewService(repo store.Repository, cache CatalogCache, publisher EventPublisher, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{repo: repo, cache: cache, publisher: publisher, logger: logger}
}

func (s Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, body); err != nil {
		s.logger.Warn("event publish failed", "routing_key", routingKey, "error", err)
	}
}

func (s Service) publishServiceEvent(ctx context.Context, eventType string, svc *domain.Service, caller *domain.Identity) {
	s.publish(ctx, eventType, domain.ServiceEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		ServiceID:  svc.ID,
		Title:      svc.Title,
		Type:       svc.Type,
		ActorID:    caller.UserID,
		OccurredAt: time.Now().UTC(),
	})
}

func (s Service) publishRequestEvent(ctx context.Context, eventType string, req *domain.ServiceRequest, caller *domain.Identity, previous *domain.ServiceRequest) {
	event := domain.ServiceRequestEvent{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		RequestID:     req.ID,
		ServiceID:     req.ServiceID,
		UserID:        req.UserID,
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		PaymentMethod: req.PaymentMethod,
		Amount:        req.Amount.StringFixed(2),
		ActorID:       caller.UserID,
		OccurredAt:    time.Now().UTC(),
	}
	if previous != nil {
		if previous.Status != req.Status {
			event.PreviousStatus = previous.Status
		}
		if previous.PaymentStatus != req.PaymentStatus {
			event.PreviousPaymentStatus = previous.PaymentStatus
		}
	}
	s.publish(ctx, eventType, event)
}

// cacheFill writes a repository read back into the generation it was looked
// up in. The zero value skips the write.
type cacheFill struct {
	key        string
	generation int64
	ok         bool
}

func (s Service) cacheGet(ctx context.Context, key string, dest interface{}) (bool, cacheFill) {
	if s.cache == nil {
		return false, cacheFill{}
	}
	hit, generation, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("catalog cache read failed", "key", key, "error", err)
		return false, cacheFill{}
	}
	return hit, cacheFill{key: key, generation: generation, ok: !hit}
}

func (s Service) cacheSet(ctx context.Context, fill cacheFill, value interface{}) {
	if s.cache == nil || !fill.ok {
		return
	}
	if err := s.cache.Set(ctx, fill.generation, fill.key, value); err != nil {
		s.logger.Warn("catalog cache write failed", "key", fill.key, "error", err)
	}
}

func (s Service) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("catalog cache invalidation failed", "error", err)
	}
}
