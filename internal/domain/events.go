/**
 * @description
 * Event contracts published to the message broker when the catalog or a
 * service request changes. Consumers (notifications, reporting) bind to the
 * routing keys below on the events exchange.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys for catalog and request lifecycle events.
const (
	EventServiceCreated                    = "service.created"
	EventServiceUpdated                    = "service.updated"
	EventServiceDeleted                    = "service.deleted"
	EventServiceRequestCreated             = "service_request.created"
	EventServiceRequestStatusChanged       = "service_request.status_changed"
	EventServiceRequestPaymentStatusChange = "service_request.payment_status_changed"
	EventServiceRequestDeleted             = "service_request.deleted"
)

// ServiceEvent is published for catalog mutations.
type ServiceEvent struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	ServiceID  uuid.UUID   `json:"service_id"`
	Title      string      `json:"title,omitempty"`
	Type       ServiceType `json:"type,omitempty"`
	ActorID    string      `json:"actor_id"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// ServiceRequestEvent is published for request lifecycle changes. Previous*
// fields are set only on change events.
type ServiceRequestEvent struct {
	EventID               string            `json:"event_id"`
	EventType             string            `json:"event_type"`
	RequestID             uuid.UUID         `json:"request_id"`
	ServiceID             uuid.UUID         `json:"service_id"`
	UserID                string            `json:"user_id"`
	Status                RequestStatus     `json:"status"`
	PreviousStatus        RequestStatus     `json:"previous_status,omitempty"`
	PaymentStatus         PaymentStatus     `json:"payment_status"`
	PreviousPaymentStatus PaymentStatus     `json:"previous_payment_status,omitempty"`
	PaymentMethod         PaymentMethodType `json:"payment_method"`
	Amount                string            `json:"amount"`
	ActorID               string            `json:"actor_id"`
	OccurredAt            time.Time         `json:"occurred_at"`
}
