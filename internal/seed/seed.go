// Package seed loads a catalog of services from YAML and creates the missing
// ones through the application service, so seeded data passes the same
// validation as data entered by an admin.
package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/elllyers/ineza/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SystemAdmin is the identity seeded services are created as.
var SystemAdmin = &domain.Identity{UserID: "system_seed", IsAdmin: true}

// Catalog is the root of a seed file.
type Catalog struct {
	Services []ServiceEntry `yaml:"services"`
}

// ServiceEntry describes one service. Price is kept as text so that amounts
// such as 1500.50 are not rounded through a float.
type ServiceEntry struct {
	Title          string       `yaml:"title"`
	Description    string       `yaml:"description"`
	Type           string       `yaml:"type"`
	Price          string       `yaml:"price"`
	FormFields     []FieldEntry `yaml:"formFields"`
	PaymentMethods []string     `yaml:"paymentMethods"`
}

// FieldEntry is one form field; list order becomes the form's field order.
type FieldEntry struct {
	Key      string `yaml:"key"`
	Type     string `yaml:"type"`
	Label    string `yaml:"label"`
	Required bool   `yaml:"required"`
}

// CatalogWriter is the slice of app.Service the seeder needs.
type CatalogWriter interface {
	ListServices(ctx context.Context, caller *domain.Identity, rawType string) ([]domain.Service, error)
	CreateService(ctx context.Context, caller *domain.Identity, payload domain.CreateServicePayload) (*domain.Service, error)
}

// Parse decodes a seed file. Unknown keys are rejected.
func Parse(r io.Reader) (Catalog, error) {
	var catalog Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		return Catalog{}, fmt.Errorf("decode seed file: %w", err)
	}
	return catalog, nil
}

// Payload converts the entry into a creation payload.
func (e ServiceEntry) Payload() (domain.CreateServicePayload, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(e.Price))
	if err != nil {
		return domain.CreateServicePayload{}, fmt.Errorf("price %q: %w", e.Price, err)
	}

	schema := domain.NewFormSchema()
	for _, field := range e.FormFields {
		if _, exists := schema.Get(field.Key); exists {
			return domain.CreateServicePayload{}, fmt.Errorf("form field %q declared twice", field.Key)
		}
		schema.Set(field.Key, domain.FormField{
			Type:     domain.FieldKind(strings.ToLower(strings.TrimSpace(field.Type))),
			Label:    field.Label,
			Required: field.Required,
		})
	}

	var methods []domain.PaymentMethodType
	if e.PaymentMethods != nil {
		methods = make([]domain.PaymentMethodType, 0, len(e.PaymentMethods))
		for _, method := range e.PaymentMethods {
			methods = append(methods, domain.PaymentMethodType(strings.ToUpper(strings.TrimSpace(method))))
		}
	}

	return domain.CreateServicePayload{
		Title:          e.Title,
		Description:    e.Description,
		Type:           domain.ServiceType(strings.ToUpper(strings.TrimSpace(e.Type))),
		Price:          &price,
		FormFields:     &schema,
		PaymentMethods: methods,
	}, nil
}

// Result summarizes a seeding run.
type Result struct {
	Created int
	Skipped int
}

// Run creates every entry whose title and type are not already in the
// catalog. It stops at the first failure.
func Run(ctx context.Context, writer CatalogWriter, catalog Catalog, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	existing, err := writer.ListServices(ctx, SystemAdmin, "")
	if err != nil {
		return Result{}, fmt.Errorf("list existing services: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, svc := range existing {
		seen[seedKey(string(svc.Type), svc.Title)] = true
	}

	var result Result
	for i, entry := range catalog.Services {
		key := seedKey(entry.Type, entry.Title)
		if seen[key] {
			logger.Info("service already exists, skipping", "title", entry.Title, "type", entry.Type)
			result.Skipped++
			continue
		}
		payload, err := entry.Payload()
		if err != nil {
			return result, fmt.Errorf("service %d (%s): %w", i+1, entry.Title, err)
		}
		created, err := writer.CreateService(ctx, SystemAdmin, payload)
		if err != nil {
			return result, fmt.Errorf("service %d (%s): %w", i+1, entry.Title, err)
		}
		seen[key] = true
		result.Created++
		logger.Info("service seeded", "service_id", created.ID, "title", created.Title, "display_price", created.DisplayPrice())
	}
	return result, nil
}

func seedKey(serviceType, title string) string {
	return strings.ToUpper(strings.TrimSpace(serviceType)) + "|" + strings.ToLower(strings.TrimSpace(title))
}
