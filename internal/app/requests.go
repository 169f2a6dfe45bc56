package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/elllyers/ineza/internal/domain"
	"github.com/elllyers/ineza/internal/store"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// SubmitRequest records a customer's request against a catalog service. The
// service must exist and offer the chosen payment method as enabled.
func (s Service) SubmitRequest(ctx context.Context, caller *domain.Identity, payload domain.CreateServiceRequestPayload) (*domain.ServiceRequest, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}

	errs := fieldErrors{}
	serviceID, ok := parseUUIDv4(strings.TrimSpace(payload.ServiceID))
	if !ok {
		errs.add("serviceId", "Must be a valid UUID")
	}
	if payload.Amount == nil {
		errs.add("amount", "Amount is required")
	} else {
		validateAmount(errs, "amount", *payload.Amount)
	}
	if !payload.PaymentMethod.Valid() {
		errs.add("paymentMethod", "Must be one of MTN_MONEY, AIRTEL_MONEY, BANK_TRANSFER, CARD")
	}
	if payload.FormData == nil {
		errs.add("formData", "Form data is required")
	}
	if err := errs.err("Validation failed"); err != nil {
		return nil, err
	}

	svc, err := s.repo.GetService(ctx, serviceID, false)
	if err != nil {
		if errors.Is(err, store.ErrServiceNotFound) {
			return nil, newValidationError("Service not found", "serviceId", "Service does not exist")
		}
		return nil, fmt.Errorf("load service: %w", err)
	}

	if _, err := s.repo.FindEnabledPaymentMethod(ctx, serviceID, payload.PaymentMethod); err != nil {
		if errors.Is(err, store.ErrPaymentMethodNotFound) {
			return nil, newValidationError("Invalid payment method", "paymentMethod", "This payment method is not available for this service")
		}
		return nil, fmt.Errorf("load payment method: %w", err)
	}

	if err := validateFormData(svc.FormFields, payload.FormData).err("Invalid form data"); err != nil {
		return nil, err
	}

	req := &domain.ServiceRequest{
		ID:            uuid.New(),
		ServiceID:     serviceID,
		UserID:        caller.UserID,
		FormData:      payload.FormData,
		Status:        domain.RequestStatusPending,
		PaymentMethod: payload.PaymentMethod,
		PaymentStatus: domain.PaymentStatusPending,
		Amount:        payload.Amount.Round(2),
	}
	created, err := s.repo.CreateServiceRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create service request: %w", err)
	}

	s.publishRequestEvent(ctx, domain.EventServiceRequestCreated, created, caller, nil)
	s.logger.Info("service request submitted",
		"request_id", created.ID,
		"service_id", created.ServiceID,
		"user_id", created.UserID,
		"payment_method", created.PaymentMethod,
	)
	return created, nil
}

// ListRequests returns one page of requests. Non-admins only ever see their own.
func (s Service) ListRequests(ctx context.Context, caller *domain.Identity, query domain.ServiceRequestQuery) (*domain.ServiceRequestPage, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	opts, err := parseListQuery(query)
	if err != nil {
		return nil, err
	}
	if !caller.Admin() {
		userID := caller.UserID
		opts.UserID = &userID
	}

	requests, total, err := s.repo.ListServiceRequests(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list service requests: %w", err)
	}
	if requests == nil {
		requests = []domain.ServiceRequest{}
	}
	return &domain.ServiceRequestPage{
		Data: requests,
		Metadata: domain.PageMetadata{
			Page:    opts.Page,
			PerPage: opts.Limit,
			Total:   total,
		},
	}, nil
}

func parseListQuery(query domain.ServiceRequestQuery) (domain.ServiceRequestListOptions, error) {
	errs := fieldErrors{}
	opts := domain.ServiceRequestListOptions{
		Query: strings.TrimSpace(query.Query),
		Page:  1,
		Limit: defaultPageLimit,
	}

	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := domain.RequestStatus(strings.ToUpper(raw))
		if status.Valid() {
			opts.Status = &status
		} else {
			errs.add("status", "Must be one of PENDING, PROCESSING, COMPLETED, CANCELLED")
		}
	}
	if raw := strings.TrimSpace(query.Page); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			errs.add("page", "Must be a positive integer")
		} else {
			opts.Page = page
		}
	}
	if raw := strings.TrimSpace(query.Limit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxPageLimit {
			errs.add("limit", "Must be an integer between 1 and 100")
		} else {
			opts.Limit = limit
		}
	}
	if raw := strings.TrimSpace(query.SortBy); raw != "" {
		switch sortBy := domain.SortField(raw); sortBy {
		case domain.SortByCreatedAt, domain.SortByStatus, domain.SortByTitle:
			opts.SortBy = sortBy
			opts.SortOrder = domain.SortAsc
		default:
			errs.add("sortBy", "Must be one of createdAt, status, title")
		}
	}
	if raw := strings.TrimSpace(query.SortOrder); raw != "" {
		switch order := domain.SortOrder(strings.ToLower(raw)); order {
		case domain.SortAsc, domain.SortDesc:
			if opts.SortBy == "" {
				// sortOrder alone applies to the default column.
				opts.SortBy = domain.SortByCreatedAt
			}
			opts.SortOrder = order
		default:
			errs.add("sortOrder", "Must be asc or desc")
		}
	}

	if err := errs.err("Invalid search parameters"); err != nil {
		return opts, err
	}
	return opts, nil
}

// GetRequest returns a request to its owner or to an admin.
func (s Service) GetRequest(ctx context.Context, caller *domain.Identity, rawID string) (*domain.ServiceRequest, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	req, err := s.loadRequest(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if req.UserID != caller.UserID && !caller.Admin() {
		return nil, ErrAccessDenied
	}
	return req, nil
}

// UpdateRequest changes status and/or payment status. The two move
// independently, and writing the current value again changes nothing.
func (s Service) UpdateRequest(ctx context.Context, caller *domain.Identity, rawID string, payload domain.UpdateServiceRequestPayload) (*domain.ServiceRequest, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	requestID, ok := parseUUIDv4(rawID)
	if !ok {
		return nil, invalidRequestID()
	}

	errs := fieldErrors{}
	if payload.Status == nil && payload.PaymentStatus == nil {
		errs.add("status", "Status or payment status is required")
	}
	if payload.Status != nil && !payload.Status.Valid() {
		errs.add("status", "Must be one of PENDING, PROCESSING, COMPLETED, CANCELLED")
	}
	if payload.PaymentStatus != nil && !payload.PaymentStatus.Valid() {
		errs.add("paymentStatus", "Must be one of PENDING, PAID, FAILED, REFUNDED")
	}
	if err := errs.err("Validation failed"); err != nil {
		return nil, err
	}

	current, err := s.repo.GetServiceRequest(ctx, requestID)
	if err != nil {
		return nil, translateRequestLookup(err)
	}

	update := domain.ServiceRequestUpdate{}
	if payload.Status != nil && *payload.Status != current.Status {
		update.Status = payload.Status
	}
	if payload.PaymentStatus != nil && *payload.PaymentStatus != current.PaymentStatus {
		update.PaymentStatus = payload.PaymentStatus
	}
	if update.Status == nil && update.PaymentStatus == nil {
		return current, nil
	}

	updated, err := s.repo.UpdateServiceRequest(ctx, requestID, update)
	if err != nil {
		return nil, translateRequestLookup(err)
	}

	if update.Status != nil {
		s.publishRequestEvent(ctx, domain.EventServiceRequestStatusChanged, updated, caller, current)
	}
	if update.PaymentStatus != nil {
		s.publishRequestEvent(ctx, domain.EventServiceRequestPaymentStatusChange, updated, caller, current)
	}
	s.logger.Info("service request updated",
		"request_id", updated.ID,
		"status", updated.Status,
		"payment_status", updated.PaymentStatus,
		"actor_id", caller.UserID,
	)
	return updated, nil
}

// DeleteRequest permanently removes a request.
func (s Service) DeleteRequest(ctx context.Context, caller *domain.Identity, rawID string) (*domain.DeletedServiceRequest, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	current, err := s.loadRequest(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteServiceRequest(ctx, current.ID); err != nil {
		return nil, translateRequestLookup(err)
	}

	s.publishRequestEvent(ctx, domain.EventServiceRequestDeleted, current, caller, nil)
	s.logger.Info("service request deleted", "request_id", current.ID, "actor_id", caller.UserID)
	return &domain.DeletedServiceRequest{
		Message: "Service request deleted successfully",
		ID:      current.ID,
	}, nil
}

// Stats counts requests by status, for the caller or, for admins, globally.
func (s Service) Stats(ctx context.Context, caller *domain.Identity) (*domain.ServiceRequestStats, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	var userID *string
	if !caller.Admin() {
		id := caller.UserID
		userID = &id
	}
	stats, err := s.repo.CountServiceRequests(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count service requests: %w", err)
	}
	return stats, nil
}

// WhoAmI returns the caller's identity with the admin flag resolved.
func (s Service) WhoAmI(caller *domain.Identity) (*domain.Identity, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	return &domain.Identity{UserID: caller.UserID, IsAdmin: caller.Admin()}, nil
}

func (s Service) loadRequest(ctx context.Context, rawID string) (*domain.ServiceRequest, error) {
	requestID, ok := parseUUIDv4(rawID)
	if !ok {
		return nil, invalidRequestID()
	}
	req, err := s.repo.GetServiceRequest(ctx, requestID)
	if err != nil {
		return nil, translateRequestLookup(err)
	}
	return req, nil
}

func invalidRequestID() error {
	return newValidationError("Invalid request ID format", "requestId", "Must be a valid UUID")
}

func translateRequestLookup(err error) error {
	if errors.Is(err, store.ErrServiceRequestNotFound) {
		return newValidationError("Service request not found", "requestId", "Request not found")
	}
	return fmt.Errorf("service request store: %w", err)
}
