/**
 * @description
 * Domain models for customer service requests and their lifecycle.
 */
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestStatus is the processing state of a ServiceRequest.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "PENDING"
	RequestStatusProcessing RequestStatus = "PROCESSING"
	RequestStatusCompleted  RequestStatus = "COMPLETED"
	RequestStatusCancelled  RequestStatus = "CANCELLED"
)

// Valid reports whether s is one of the four lifecycle states.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusProcessing, RequestStatusCompleted, RequestStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus is the settlement state of a ServiceRequest. It moves
// independently of RequestStatus.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Valid reports whether s is a known payment state.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// ServiceRequest is one customer's submission against a Service.
type ServiceRequest struct {
	ID            uuid.UUID         `json:"id"`
	ServiceID     uuid.UUID         `json:"serviceId"`
	UserID        string            `json:"userId"`
	FormData      FormData          `json:"formData"`
	Status        RequestStatus     `json:"status"`
	PaymentMethod PaymentMethodType `json:"paymentMethod"`
	PaymentStatus PaymentStatus     `json:"paymentStatus"`
	Amount        decimal.Decimal   `json:"amount"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	Service       *ServiceSummary   `json:"service,omitempty"`
}

// MarshalJSON writes amount as a JSON number.
func (r ServiceRequest) MarshalJSON() ([]byte, error) {
	type serviceRequest ServiceRequest
	return json.Marshal(struct {
		serviceRequest
		Amount json.Number `json:"amount"`
	}{serviceRequest: serviceRequest(r), Amount: jsonNumber(r.Amount)})
}

// CreateServiceRequestPayload is the body of a request submission.
type CreateServiceRequestPayload struct {
	ServiceID     string            `json:"serviceId"`
	FormData      FormData          `json:"formData"`
	PaymentMethod PaymentMethodType `json:"paymentMethod"`
	Amount        *decimal.Decimal  `json:"amount"`
}

// UpdateServiceRequestPayload is the body of an admin update. Nil fields are
// left unchanged.
type UpdateServiceRequestPayload struct {
	Status        *RequestStatus `json:"status"`
	PaymentStatus *PaymentStatus `json:"paymentStatus"`
}

// ServiceRequestUpdate is the store-level change set for a request.
type ServiceRequestUpdate struct {
	Status        *RequestStatus
	PaymentStatus *PaymentStatus
}

// SortField names a sortable request column.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByStatus    SortField = "status"
	SortByTitle     SortField = "title"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ServiceRequestListOptions controls filtering, search, pagination and
// ordering of request listings. A nil UserID lists every user's requests.
type ServiceRequestListOptions struct {
	UserID    *string
	Status    *RequestStatus
	Query     string
	Page      int
	Limit     int
	SortBy    SortField
	SortOrder SortOrder
}

// Offset is the number of rows skipped for the current page.
func (o ServiceRequestListOptions) Offset() int {
	if o.Page <= 1 {
		return 0
	}
	return (o.Page - 1) * o.Limit
}

// PageMetadata describes one page of a listing.
type PageMetadata struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
	Total   int `json:"total"`
}

// ServiceRequestPage is one page of requests plus its metadata.
type ServiceRequestPage struct {
	Data     []ServiceRequest `json:"data"`
	Metadata PageMetadata     `json:"metadata"`
}

// ServiceRequestStats counts requests by status.
type ServiceRequestStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

// ServiceRequestQuery holds raw listing parameters as received from a query string.
type ServiceRequestQuery struct {
	Status    string
	Query     string
	Page      string
	Limit     string
	SortBy    string
	SortOrder string
}

// DeletedServiceRequest confirms an irreversible request deletion.
type DeletedServiceRequest struct {
	Message string    `json:"message"`
	ID      uuid.UUID `json:"id"`
}
