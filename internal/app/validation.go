package app

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/elllyers/ineza/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	telPattern = regexp.MustCompile(`^\+?[0-9][0-9 -]*$`)
	// NUMERIC(12,2) holds at most ten integer digits.
	maxMoney = decimal.New(1, 10)
)

// parseUUIDv4 accepts only the canonical 36-character textual form of a version 4 UUID.
func parseUUIDv4(raw string) (uuid.UUID, bool) {
	if len(raw) != 36 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id.Version() != 4 || id.Variant() != uuid.RFC4122 {
		return uuid.Nil, false
	}
	return id, true
}

func validatePrice(errs fieldErrors, field string, price decimal.Decimal) {
	if price.IsNegative() {
		errs.add(field, "Price must not be negative")
		return
	}
	validateMoneyScale(errs, field, price)
}

func validateAmount(errs fieldErrors, field string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		errs.add(field, "Amount must be greater than 0")
		return
	}
	validateMoneyScale(errs, field, amount)
}

func validateMoneyScale(errs fieldErrors, field string, value decimal.Decimal) {
	if !value.Equal(value.Round(2)) {
		errs.add(field, "Must have at most 2 decimal places")
	}
	if value.GreaterThanOrEqual(maxMoney) {
		errs.add(field, "Must be less than 10,000,000,000")
	}
}

func validateServiceType(errs fieldErrors, field string, t domain.ServiceType) {
	if !t.Valid() {
		errs.add(field, "Must be one of BANKING, IREMBO, WRITING")
	}
}

func validatePaymentMethodTypes(errs fieldErrors, field string, methods []domain.PaymentMethodType) {
	for _, method := range methods {
		if !method.Valid() {
			errs.add(field, fmt.Sprintf("Unknown payment method %q", method))
		}
	}
}

// validateFormSchema checks every declared field of a service intake form.
func validateFormSchema(errs fieldErrors, schema domain.FormSchema) {
	for _, key := range schema.Keys() {
		field, _ := schema.Get(key)
		path := "formFields." + key
		if strings.TrimSpace(key) == "" {
			errs.add("formFields", "Field keys must not be blank")
			continue
		}
		if !field.Type.Valid() {
			errs.add(path, fmt.Sprintf("Unknown field type %q", field.Type))
		}
		if strings.TrimSpace(field.Label) == "" {
			errs.add(path, "Label is required")
		}
	}
}

// validateFormData checks submitted values against the service's form schema.
// Required fields must be present and non-blank and declared values must match
// their field kind. Undeclared keys are kept as submitted.
func validateFormData(schema domain.FormSchema, data domain.FormData) fieldErrors {
	errs := fieldErrors{}
	for _, key := range schema.Keys() {
		field, _ := schema.Get(key)
		path := "formData." + key
		value, present := data[key]
		if !present || isBlank(value) {
			if field.Required {
				errs.add(path, field.Label+" is required")
			}
			continue
		}
		if msg := checkFieldValue(field.Type, value); msg != "" {
			errs.add(path, msg)
		}
	}
	return errs
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}

// checkFieldValue returns a message describing why value does not fit kind, or "".
func checkFieldValue(kind domain.FieldKind, value any) string {
	switch kind {
	case domain.FieldEmail:
		s, ok := value.(string)
		if !ok {
			return "Must be a valid email address"
		}
		addr, err := mail.ParseAddress(strings.TrimSpace(s))
		if err != nil || addr.Address != strings.TrimSpace(s) {
			return "Must be a valid email address"
		}
	case domain.FieldTel:
		s, ok := value.(string)
		if !ok || !telPattern.MatchString(strings.TrimSpace(s)) {
			return "Must be a valid phone number"
		}
		digits := 0
		for _, r := range s {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits < 7 || digits > 15 {
			return "Must be a valid phone number"
		}
	case domain.FieldNumber:
		switch v := value.(type) {
		case float64, int, int64:
		case string:
			if _, err := decimal.NewFromString(strings.TrimSpace(v)); err != nil {
				return "Must be a number"
			}
		default:
			return "Must be a number"
		}
	case domain.FieldDate:
		s, ok := value.(string)
		if !ok {
			return "Must be a date in YYYY-MM-DD format"
		}
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err != nil {
			return "Must be a date in YYYY-MM-DD format"
		}
	default:
		if _, ok := value.(string); !ok {
			return "Must be text"
		}
	}
	return ""
}
