package app

import (
	"testing"

	"github.com/elllyers/ineza/internal/domain"
	"github.com/shopspring/decimal"
)

func TestParseUUIDv4(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{name: "canonical v4", input: "9b2f7c1e-4d3a-4f6b-8a1c-2e5d7f9b0c3a", ok: true},
		{name: "uppercase v4", input: "9B2F7C1E-4D3A-4F6B-8A1C-2E5D7F9B0C3A", ok: true},
		{name: "version 1", input: "9b2f7c1e-4d3a-1f6b-8a1c-2e5d7f9b0c3a"},
		{name: "wrong variant", input: "9b2f7c1e-4d3a-4f6b-ca1c-2e5d7f9b0c3a"},
		{name: "braced", input: "{9b2f7c1e-4d3a-4f6b-8a1c-2e5d7f9b0c3a}"},
		{name: "urn form", input: "urn:uuid:9b2f7c1e-4d3a-4f6b-8a1c-2e5d7f9b0c3a"},
		{name: "no hyphens", input: "9b2f7c1e4d3a4f6b8a1c2e5d7f9b0c3a"},
		{name: "empty", input: ""},
		{name: "sql fragment", input: "1 OR 1=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseUUIDv4(tt.input)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v for %q", tt.ok, tt.input)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "0", wantErr: true},
		{input: "-5", wantErr: true},
		{input: "0.01"},
		{input: "500"},
		{input: "0.001", wantErr: true},
		{input: "9999999999.99"},
		{input: "10000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			errs := fieldErrors{}
			validateAmount(errs, "amount", decimal.RequireFromString(tt.input))
			if got := len(errs) > 0; got != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, errs)
			}
		})
	}
}

func TestValidatePriceAcceptsZero(t *testing.T) {
	errs := fieldErrors{}
	validatePrice(errs, "price", decimal.Zero)
	if len(errs) != 0 {
		t.Fatalf("expected zero price to be accepted, got %v", errs)
	}
	validatePrice(errs, "price", decimal.RequireFromString("-0.01"))
	if len(errs["price"]) != 1 {
		t.Fatalf("expected negative price to be rejected, got %v", errs)
	}
}

func TestValidateFormSchema(t *testing.T) {
	schema := domain.NewFormSchema()
	schema.Set("name", domain.FormField{Type: domain.FieldText, Label: "Full Name", Required: true})
	schema.Set("avatar", domain.FormField{Type: "image", Label: "Avatar"})
	schema.Set("phone", domain.FormField{Type: domain.FieldTel, Label: " "})

	errs := fieldErrors{}
	validateFormSchema(errs, schema)
	if _, ok := errs["formFields.name"]; ok {
		t.Fatalf("expected valid field to pass, got %v", errs)
	}
	if len(errs["formFields.avatar"]) != 1 {
		t.Fatalf("expected unknown type to be rejected, got %v", errs)
	}
	if len(errs["formFields.phone"]) != 1 {
		t.Fatalf("expected blank label to be rejected, got %v", errs)
	}
}

func TestValidateFormData(t *testing.T) {
	schema := domain.NewFormSchema()
	schema.Set("name", domain.FormField{Type: domain.FieldText, Label: "Full Name", Required: true})
	schema.Set("email", domain.FormField{Type: domain.FieldEmail, Label: "Email"})
	schema.Set("phone", domain.FormField{Type: domain.FieldTel, Label: "Phone"})
	schema.Set("copies", domain.FormField{Type: domain.FieldNumber, Label: "Copies"})
	schema.Set("date", domain.FormField{Type: domain.FieldDate, Label: "Event date"})

	tests := []struct {
		name      string
		data      domain.FormData
		wantField string
		wantMsg   string
	}{
		{
			name: "all valid",
			data: domain.FormData{
				"name":   "Jane",
				"email":  "jane@example.com",
				"phone":  "+250 788 123 456",
				"copies": float64(2),
				"date":   "2026-03-01",
			},
		},
		{
			name: "optional fields omitted",
			data: domain.FormData{"name": "Jane"},
		},
		{
			name:      "missing required",
			data:      domain.FormData{},
			wantField: "formData.name",
			wantMsg:   "Full Name is required",
		},
		{
			name:      "blank required",
			data:      domain.FormData{"name": "   "},
			wantField: "formData.name",
			wantMsg:   "Full Name is required",
		},
		{
			name:      "bad email",
			data:      domain.FormData{"name": "Jane", "email": "Jane <jane@example.com>"},
			wantField: "formData.email",
			wantMsg:   "Must be a valid email address",
		},
		{
			name:      "short phone",
			data:      domain.FormData{"name": "Jane", "phone": "12345"},
			wantField: "formData.phone",
			wantMsg:   "Must be a valid phone number",
		},
		{
			name:      "number as text",
			data:      domain.FormData{"name": "Jane", "copies": "two"},
			wantField: "formData.copies",
			wantMsg:   "Must be a number",
		},
		{
			name:      "bad date",
			data:      domain.FormData{"name": "Jane", "date": "01/03/2026"},
			wantField: "formData.date",
			wantMsg:   "Must be a date in YYYY-MM-DD format",
		},
		{
			name:      "text given a number",
			data:      domain.FormData{"name": float64(7)},
			wantField: "formData.name",
			wantMsg:   "Must be text",
		},
		{
			name: "undeclared key kept",
			data: domain.FormData{"name": "Jane", "paymentMethod": "MTN_MONEY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateFormData(schema, tt.data)
			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}
			messages := errs[tt.wantField]
			if len(messages) != 1 || messages[0] != tt.wantMsg {
				t.Fatalf("expected %s=%q, got %v", tt.wantField, tt.wantMsg, errs)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{
		Message: "Validation failed",
		Fields: map[string][]string{
			"title":  {"Title is required"},
			"amount": {"Amount must be greater than 0"},
		},
	}
	want := "Validation failed (amount: Amount must be greater than 0; title: Title is required)"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestAdminListIdentify(t *testing.T) {
	admins := NewAdminList([]string{" user_admin ", ""})

	if got := admins.Identify(""); got != nil {
		t.Fatalf("expected nil identity for empty id, got %+v", got)
	}
	admin := admins.Identify("user_admin")
	if admin == nil || !admin.Admin() {
		t.Fatalf("expected admin identity, got %+v", admin)
	}
	customer := admins.Identify("user_customer")
	if customer == nil || customer.Admin() || !customer.Authenticated() {
		t.Fatalf("expected authenticated non-admin, got %+v", customer)
	}
}
