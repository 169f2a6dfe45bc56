/**
 * @description
 * This file defines the `Repository` interface, the contract for every data access
 * operation the catalog and request lifecycle need. The application layer depends
 * only on this interface; PostgreSQL (production) and SQLite (local development,
 * tests) provide concrete implementations.
 *
 * @dependencies
 * - github.com/google/uuid: identifiers for services, payment methods and requests.
 * - internal/domain: the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"strings"

	"github.com/elllyers/ineza/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrServiceNotFound        = errors.New("service not found")
	ErrPaymentMethodNotFound  = errors.New("payment method not found")
	ErrServiceRequestNotFound = errors.New("service request not found")
	ErrUniqueViolation        = errors.New("unique constraint violation")
	ErrForeignKeyViolation    = errors.New("foreign key constraint violation")
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Catalog methods
	ListServices(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error)
	GetService(ctx context.Context, serviceID uuid.UUID, includeDisabled bool) (*domain.Service, error)
	// CreateService writes the service and one row per entry of methods in a single transaction.
	CreateService(ctx context.Context, svc *domain.Service, methods []domain.PaymentMethod) (*domain.Service, error)
	UpdateService(ctx context.Context, serviceID uuid.UUID, update domain.ServiceUpdate) (*domain.Service, error)
	DeleteService(ctx context.Context, serviceID uuid.UUID) error
	SetPaymentMethodEnabled(ctx context.Context, serviceID uuid.UUID, methodType domain.PaymentMethodType, enabled bool) (*domain.PaymentMethod, error)
	FindEnabledPaymentMethod(ctx context.Context, serviceID uuid.UUID, methodType domain.PaymentMethodType) (*domain.PaymentMethod, error)

	// Service request methods
	CreateServiceRequest(ctx context.Context, req *domain.ServiceRequest) (*domain.ServiceRequest, error)
	ListServiceRequests(ctx context.Context, opts domain.ServiceRequestListOptions) ([]domain.ServiceRequest, int, error)
	GetServiceRequest(ctx context.Context, requestID uuid.UUID) (*domain.ServiceRequest, error)
	UpdateServiceRequest(ctx context.Context, requestID uuid.UUID, update domain.ServiceRequestUpdate) (*domain.ServiceRequest, error)
	DeleteServiceRequest(ctx context.Context, requestID uuid.UUID) error
	// CountServiceRequests computes every status count in one statement. A nil
	// userID counts all requests.
	CountServiceRequests(ctx context.Context, userID *string) (*domain.ServiceRequestStats, error)
}

// likePattern turns free text into a LIKE/ILIKE substring pattern with the
// wildcard characters escaped (ESCAPE '\').
func likePattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
	return "%" + escaped + "%"
}

// orderByClause builds the ORDER BY for request listings. Column names come
// from a fixed map, never from caller input.
func orderByClause(sortBy domain.SortField, order domain.SortOrder) string {
	columns := map[domain.SortField]string{
		domain.SortByCreatedAt: "r.created_at",
		domain.SortByStatus:    "r.status",
		domain.SortByTitle:     "s.title",
	}
	column, ok := columns[sortBy]
	if !ok {
		return "ORDER BY r.created_at DESC, r.id"
	}
	direction := "ASC"
	if order == domain.SortDesc {
		direction = "DESC"
	}
	return "ORDER BY " + column + " " + direction + ", r.created_at DESC, r.id"
}

// ServiceRequest columns joined with the service summary, shared by both dialects.
const serviceRequestColumns = `
	r.id, r.service_id, r.user_id, r.form_data, r.status, r.payment_method,
	r.payment_status, r.amount, r.created_at, r.updated_at,
	s.title, s.description, s.price, s.type`
