package domain

import (
	"bytes"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// FieldKind is the input kind of a form field.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldEmail    FieldKind = "email"
	FieldTel      FieldKind = "tel"
	FieldNumber   FieldKind = "number"
	FieldTextarea FieldKind = "textarea"
	FieldDate     FieldKind = "date"
	FieldFile     FieldKind = "file"
)

// Valid reports whether k is a supported field kind.
func (k FieldKind) Valid() bool {
	switch k {
	case FieldText, FieldEmail, FieldTel, FieldNumber, FieldTextarea, FieldDate, FieldFile:
		return true
	}
	return false
}

// FormField declares one input of a Service's intake form.
type FormField struct {
	Type     FieldKind `json:"type"`
	Label    string    `json:"label"`
	Required bool      `json:"required"`
}

// FormSchema is an ordered mapping from field key to FormField. Key order is
// the order fields were declared and is kept across JSON encode/decode.
type FormSchema struct {
	fields *orderedmap.OrderedMap[string, FormField]
}

// NewFormSchema returns an empty schema.
func NewFormSchema() FormSchema {
	return FormSchema{fields: orderedmap.New[string, FormField]()}
}

// Set appends key, or replaces its field in place when already declared.
func (s *FormSchema) Set(key string, field FormField) {
	if s.fields == nil {
		s.fields = orderedmap.New[string, FormField]()
	}
	s.fields.Set(key, field)
}

// Get returns the field declared under key.
func (s FormSchema) Get(key string) (FormField, bool) {
	if s.fields == nil {
		return FormField{}, false
	}
	return s.fields.Get(key)
}

// Len returns the number of declared fields.
func (s FormSchema) Len() int {
	if s.fields == nil {
		return 0
	}
	return s.fields.Len()
}

// Keys returns field keys in declaration order.
func (s FormSchema) Keys() []string {
	keys := make([]string, 0, s.Len())
	if s.fields == nil {
		return keys
	}
	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// MarshalJSON encodes the schema as a JSON object in declaration order.
func (s FormSchema) MarshalJSON() ([]byte, error) {
	if s.fields == nil {
		return []byte("{}"), nil
	}
	return s.fields.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping its key order.
func (s *FormSchema) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		s.fields = nil
		return nil
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("form fields must be a JSON object")
	}
	fields := orderedmap.New[string, FormField]()
	if err := fields.UnmarshalJSON(trimmed); err != nil {
		return fmt.Errorf("decode form fields: %w", err)
	}
	s.fields = fields
	return nil
}

// FormData holds submitted form values keyed by field key.
type FormData map[string]any
