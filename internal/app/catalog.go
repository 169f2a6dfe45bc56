package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elllyers/ineza/internal/domain"
	"github.com/elllyers/ineza/internal/store"
	"github.com/google/uuid"
)

func catalogVisibility(caller *domain.Identity) string {
	if caller.Admin() {
		return "admin"
	}
	return "public"
}

// ListServices returns the catalog newest first. Admins also see disabled
// payment methods.
func (s Service) ListServices(ctx context.Context, caller *domain.Identity, rawType string) ([]domain.Service, error) {
	filter := domain.ServiceFilter{IncludeDisabledMethods: caller.Admin()}
	typeKey := "all"
	if trimmed := strings.ToUpper(strings.TrimSpace(rawType)); trimmed != "" {
		serviceType := domain.ServiceType(trimmed)
		if !serviceType.Valid() {
			return nil, newValidationError("Invalid service type", "type", "Must be one of BANKING, IREMBO, WRITING")
		}
		filter.Type = &serviceType
		typeKey = trimmed
	}

	cacheKey := fmt.Sprintf("services:%s:%s", typeKey, catalogVisibility(caller))
	var cached []domain.Service
	hit, fill := s.cacheGet(ctx, cacheKey, &cached)
	if hit {
		return cached, nil
	}

	services, err := s.repo.ListServices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	s.cacheSet(ctx, fill, services)
	return services, nil
}

// GetService returns one service. An unknown id yields store.ErrServiceNotFound.
func (s Service) GetService(ctx context.Context, caller *domain.Identity, rawID string) (*domain.Service, error) {
	serviceID, ok := parseUUIDv4(rawID)
	if !ok {
		return nil, newValidationError("Invalid service ID format", "serviceId", "Must be a valid UUID")
	}

	cacheKey := fmt.Sprintf("service:%s:%s", serviceID, catalogVisibility(caller))
	var cached domain.Service
	hit, fill := s.cacheGet(ctx, cacheKey, &cached)
	if hit {
		return &cached, nil
	}

	svc, err := s.repo.GetService(ctx, serviceID, caller.Admin())
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, fill, svc)
	return svc, nil
}

// CreateService adds a service with one payment method row per channel.
func (s Service) CreateService(ctx context.Context, caller *domain.Identity, payload domain.CreateServicePayload) (*domain.Service, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	errs := fieldErrors{}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		errs.add("title", "Title is required")
	}
	description := strings.TrimSpace(payload.Description)
	if description == "" {
		errs.add("description", "Description is required")
	}
	validateServiceType(errs, "type", payload.Type)
	if payload.Price == nil {
		errs.add("price", "Price is required")
	} else {
		validatePrice(errs, "price", *payload.Price)
	}
	if payload.FormFields == nil {
		errs.add("formFields", "Form fields are required")
	} else {
		validateFormSchema(errs, *payload.FormFields)
	}
	validatePaymentMethodTypes(errs, "paymentMethods", payload.PaymentMethods)
	if err := errs.err("Validation failed"); err != nil {
		return nil, err
	}

	svc := &domain.Service{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Price:       payload.Price.Round(2),
		Type:        payload.Type,
		FormFields:  *payload.FormFields,
	}
	methods := make([]domain.PaymentMethod, 0, len(domain.PaymentMethodTypes))
	for _, methodType := range domain.PaymentMethodTypes {
		methods = append(methods, domain.PaymentMethod{
			ID:      uuid.New(),
			Type:    methodType,
			Name:    methodType.DisplayName(),
			Enabled: payload.PaymentMethods == nil || containsMethodType(payload.PaymentMethods, methodType),
		})
	}

	created, err := s.repo.CreateService(ctx, svc, methods)
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	s.invalidateCatalog(ctx)
	s.publishServiceEvent(ctx, domain.EventServiceCreated, created, caller)
	s.logger.Info("service created", "service_id", created.ID, "type", created.Type, "actor_id", caller.UserID)
	return created, nil
}

// UpdateService applies a partial update. Only supplied fields change.
func (s Service) UpdateService(ctx context.Context, caller *domain.Identity, rawID string, payload domain.UpdateServicePayload) (*domain.Service, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	serviceID, ok := parseUUIDv4(rawID)
	if !ok {
		return nil, newValidationError("Invalid service ID format", "serviceId", "Must be a valid UUID")
	}

	errs := fieldErrors{}
	update := domain.ServiceUpdate{
		Type:           payload.Type,
		FormFields:     payload.FormFields,
		EnabledMethods: payload.PaymentMethods,
	}
	if payload.Title != nil {
		title := strings.TrimSpace(*payload.Title)
		if title == "" {
			errs.add("title", "Title must not be blank")
		}
		update.Title = &title
	}
	if payload.Description != nil {
		description := strings.TrimSpace(*payload.Description)
		if description == "" {
			errs.add("description", "Description must not be blank")
		}
		update.Description = &description
	}
	if payload.Type != nil {
		validateServiceType(errs, "type", *payload.Type)
	}
	if payload.Price != nil {
		validatePrice(errs, "price", *payload.Price)
		price := payload.Price.Round(2)
		update.Price = &price
	}
	if payload.FormFields != nil {
		validateFormSchema(errs, *payload.FormFields)
	}
	validatePaymentMethodTypes(errs, "paymentMethods", payload.PaymentMethods)
	if err := errs.err("Validation failed"); err != nil {
		return nil, err
	}
	if update.Empty() {
		return nil, &ValidationError{Message: "No fields to update", Fields: map[string][]string{}}
	}

	updated, err := s.repo.UpdateService(ctx, serviceID, update)
	if err != nil {
		if errors.Is(err, store.ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update service: %w", err)
	}
	s.invalidateCatalog(ctx)
	s.publishServiceEvent(ctx, domain.EventServiceUpdated, updated, caller)
	return updated, nil
}

// SetPaymentMethodEnabled toggles one payment channel of a service.
func (s Service) SetPaymentMethodEnabled(ctx context.Context, caller *domain.Identity, rawID, rawType string, payload domain.SetPaymentMethodPayload) (*domain.PaymentMethod, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	errs := fieldErrors{}
	serviceID, ok := parseUUIDv4(rawID)
	if !ok {
		errs.add("serviceId", "Must be a valid UUID")
	}
	methodType := domain.PaymentMethodType(strings.ToUpper(strings.TrimSpace(rawType)))
	if !methodType.Valid() {
		errs.add("type", "Must be one of MTN_MONEY, AIRTEL_MONEY, BANK_TRANSFER, CARD")
	}
	if payload.Enabled == nil {
		errs.add("enabled", "Enabled is required")
	}
	if err := errs.err("Validation failed"); err != nil {
		return nil, err
	}

	method, err := s.repo.SetPaymentMethodEnabled(ctx, serviceID, methodType, *payload.Enabled)
	if err != nil {
		if errors.Is(err, store.ErrServiceNotFound) || errors.Is(err, store.ErrPaymentMethodNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set payment method: %w", err)
	}
	s.invalidateCatalog(ctx)
	s.publish(ctx, domain.EventServiceUpdated, domain.ServiceEvent{
		EventID:    uuid.NewString(),
		EventType:  domain.EventServiceUpdated,
		ServiceID:  serviceID,
		ActorID:    caller.UserID,
		OccurredAt: time.Now().UTC(),
	})
	return method, nil
}

// DeleteService removes a service together with its payment methods and requests.
func (s Service) DeleteService(ctx context.Context, caller *domain.Identity, rawID string) (uuid.UUID, error) {
	if err := requireAdmin(caller); err != nil {
		return uuid.Nil, err
	}
	serviceID, ok := parseUUIDv4(rawID)
	if !ok {
		return uuid.Nil, newValidationError("Invalid service ID format", "serviceId", "Must be a valid UUID")
	}

	if err := s.repo.DeleteService(ctx, serviceID); err != nil {
		if errors.Is(err, store.ErrServiceNotFound) {
			return uuid.Nil, err
		}
		return uuid.Nil, fmt.Errorf("delete service: %w", err)
	}
	s.invalidateCatalog(ctx)
	s.publishServiceEvent(ctx, domain.EventServiceDeleted, &domain.Service{ID: serviceID}, caller)
	s.logger.Info("service deleted", "service_id", serviceID, "actor_id", caller.UserID)
	return serviceID, nil
}

func containsMethodType(methods []domain.PaymentMethodType, target domain.PaymentMethodType) bool {
	for _, method := range methods {
		if method == target {
			return true
		}
	}
	return false
}
