package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price string
		want  string
	}{
		{price: "0", want: "Free"},
		{price: "500", want: "500 RWF"},
		{price: "1500.50", want: "1,500.5 RWF"},
		{price: "2000000", want: "2,000,000 RWF"},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(decimal.RequireFromString(tt.price)))
		})
	}
}

func TestServiceJSONWritesNumericPrice(t *testing.T) {
	svc := Service{
		ID:             uuid.New(),
		Title:          "Wedding speech",
		Price:          decimal.RequireFromString("1500.50"),
		Type:           ServiceTypeWriting,
		FormFields:     NewFormSchema(),
		PaymentMethods: []PaymentMethod{},
	}
	raw, err := json.Marshal(svc)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, 1500.5, wire["price"])
	assert.Equal(t, "1,500.5 RWF", wire["displayPrice"])
	assert.Equal(t, "Wedding speech", wire["title"])

	var decoded Service
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Price.Equal(svc.Price))
}

func TestServiceRequestJSONWritesNumericAmounts(t *testing.T) {
	req := ServiceRequest{
		ID:        uuid.New(),
		ServiceID: uuid.New(),
		UserID:    "user_jane",
		FormData:  FormData{"name": "Jane"},
		Status:    RequestStatusPending,
		Amount:    decimal.RequireFromString("500"),
		Service: &ServiceSummary{
			Title: "Birth Certificate",
			Price: decimal.Zero,
			Type:  ServiceTypeIrembo,
		},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, float64(500), wire["amount"])
	assert.Equal(t, "PENDING", wire["status"])
	summary, ok := wire["service"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(0), summary["price"])
	assert.Equal(t, "Birth Certificate", summary["title"])
}

func TestDecimalDefaultsAreUntouched(t *testing.T) {
	raw, err := json.Marshal(decimal.RequireFromString("12.5"))
	require.NoError(t, err)
	assert.Equal(t, `"12.5"`, string(raw))
}
