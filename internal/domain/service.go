/**
 * @description
 * Domain models for the service catalog: purchasable Services and the
 * payment channels that can be toggled per Service.
 */
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceType is the catalog category of a Service.
type ServiceType string

const (
	ServiceTypeBanking ServiceType = "BANKING"
	ServiceTypeIrembo  ServiceType = "IREMBO"
	ServiceTypeWriting ServiceType = "WRITING"
)

// ServiceTypes lists every catalog category.
var ServiceTypes = []ServiceType{ServiceTypeBanking, ServiceTypeIrembo, ServiceTypeWriting}

// Valid reports whether t is a known catalog category.
func (t ServiceType) Valid() bool {
	switch t {
	case ServiceTypeBanking, ServiceTypeIrembo, ServiceTypeWriting:
		return true
	}
	return false
}

// PaymentMethodType is a payment channel a customer can pay through.
type PaymentMethodType string

const (
	PaymentMethodMTNMoney     PaymentMethodType = "MTN_MONEY"
	PaymentMethodAirtelMoney  PaymentMethodType = "AIRTEL_MONEY"
	PaymentMethodBankTransfer PaymentMethodType = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethodType = "CARD"
)

// PaymentMethodTypes lists every channel in the order rows are created for a new Service.
var PaymentMethodTypes = []PaymentMethodType{
	PaymentMethodMTNMoney,
	PaymentMethodAirtelMoney,
	PaymentMethodBankTransfer,
	PaymentMethodCard,
}

var paymentMethodNames = map[PaymentMethodType]string{
	PaymentMethodMTNMoney:     "MTN Mobile Money",
	PaymentMethodAirtelMoney:  "Airtel Money",
	PaymentMethodBankTransfer: "Bank Transfer",
	PaymentMethodCard:         "Credit/Debit Card",
}

// Valid reports whether t is a known payment channel.
func (t PaymentMethodType) Valid() bool {
	_, ok := paymentMethodNames[t]
	return ok
}

// DisplayName is the human-readable label stored on PaymentMethod rows.
func (t PaymentMethodType) DisplayName() string {
	return paymentMethodNames[t]
}

// PaymentMethod is a payment channel row belonging to exactly one Service.
type PaymentMethod struct {
	ID        uuid.UUID         `json:"id"`
	ServiceID uuid.UUID         `json:"serviceId"`
	Type      PaymentMethodType `json:"type"`
	Name      string            `json:"name"`
	Enabled   bool              `json:"enabled"`
}

// Service is a purchasable offering with a declared intake form.
type Service struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Type           ServiceType     `json:"type"`
	FormFields     FormSchema      `json:"formFields"`
	PaymentMethods []PaymentMethod `json:"paymentMethods"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// DisplayPrice renders the price for customers, e.g. "Free" or "5,000 RWF".
func (s Service) DisplayPrice() string {
	return FormatPrice(s.Price)
}

// MarshalJSON writes price as a JSON number and adds the derived displayPrice.
func (s Service) MarshalJSON() ([]byte, error) {
	type service Service
	return json.Marshal(struct {
		service
		Price        json.Number `json:"price"`
		DisplayPrice string      `json:"displayPrice"`
	}{service: service(s), Price: jsonNumber(s.Price), DisplayPrice: s.DisplayPrice()})
}

// jsonNumber renders a money value as an unquoted JSON number.
func jsonNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// FormatPrice renders a price in Rwandan francs, or "Free" for zero.
func FormatPrice(price decimal.Decimal) string {
	if price.IsZero() {
		return "Free"
	}
	f, _ := price.Round(2).Float64()
	return strings.TrimSpace(humanize.CommafWithDigits(f, 2)) + " RWF"
}

// ServiceSummary is the slice of a Service embedded in request responses.
type ServiceSummary struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Type        ServiceType     `json:"type"`
}

// MarshalJSON writes price as a JSON number.
func (s ServiceSummary) MarshalJSON() ([]byte, error) {
	type summary ServiceSummary
	return json.Marshal(struct {
		summary
		Price json.Number `json:"price"`
	}{summary: summary(s), Price: jsonNumber(s.Price)})
}

// ServiceFilter narrows catalog listings.
type ServiceFilter struct {
	Type                   *ServiceType
	IncludeDisabledMethods bool
}

// ServiceUpdate carries a partial update; nil fields are left unchanged.
type ServiceUpdate struct {
	Title          *string
	Description    *string
	Price          *decimal.Decimal
	Type           *ServiceType
	FormFields     *FormSchema
	EnabledMethods []PaymentMethodType
}

// Empty reports whether the update changes nothing.
func (u ServiceUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Price == nil &&
		u.Type == nil && u.FormFields == nil && u.EnabledMethods == nil
}

// CreateServicePayload is the body of a catalog creation. PaymentMethods lists
// the enabled channels; when omitted every channel is enabled.
type CreateServicePayload struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Type           ServiceType         `json:"type"`
	Price          *decimal.Decimal    `json:"price"`
	FormFields     *FormSchema         `json:"formFields"`
	PaymentMethods []PaymentMethodType `json:"paymentMethods"`
}

// UpdateServicePayload is a partial catalog update. A non-nil PaymentMethods
// replaces the enabled set.
type UpdateServicePayload struct {
	Title          *string             `json:"title"`
	Description    *string             `json:"description"`
	Type           *ServiceType        `json:"type"`
	Price          *decimal.Decimal    `json:"price"`
	FormFields     *FormSchema         `json:"formFields"`
	PaymentMethods []PaymentMethodType `json:"paymentMethods"`
}

// SetPaymentMethodPayload toggles a single payment channel.
type SetPaymentMethodPayload struct {
	Enabled *bool `json:"enabled"`
}
