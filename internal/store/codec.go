package store

import (
	"encoding/json"
	"fmt"

	"github.com/elllyers/ineza/internal/domain"
)

// paymentMethodOrder sorts payment method rows in catalog display order.
const paymentMethodOrder = `CASE pm.type
		WHEN 'MTN_MONEY' THEN 1
		WHEN 'AIRTEL_MONEY' THEN 2
		WHEN 'BANK_TRANSFER' THEN 3
		ELSE 4
	END`

func encodeFormFields(schema domain.FormSchema) (string, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("encode form fields: %w", err)
	}
	return string(raw), nil
}

func decodeFormFields(raw []byte) (domain.FormSchema, error) {
	schema := domain.NewFormSchema()
	if len(raw) == 0 {
		return schema, nil
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		return schema, err
	}
	return schema, nil
}

func encodeFormData(data domain.FormData) (string, error) {
	if data == nil {
		data = domain.FormData{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode form data: %w", err)
	}
	return string(raw), nil
}

func decodeFormData(raw []byte) (domain.FormData, error) {
	data := domain.FormData{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode form data: %w", err)
	}
	return data, nil
}

// groupPaymentMethods attaches methods to their services, keeping service order.
func groupPaymentMethods(services []domain.Service, methods []domain.PaymentMethod) {
	index := make(map[string]int, len(services))
	for i := range services {
		index[services[i].ID.String()] = i
		services[i].PaymentMethods = []domain.PaymentMethod{}
	}
	for _, method := range methods {
		if i, ok := index[method.ServiceID.String()]; ok {
			services[i].PaymentMethods = append(services[i].PaymentMethods, method)
		}
	}
}
