// Package formschema describes the dynamic forms an agent can ask the user
// to fill in, and parses them from the encodings the chat stream carries.
package formschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FieldType is the kind of input a Field renders as.
type FieldType string

const (
	TypeInput       FieldType = "input"
	TypeSelect      FieldType = "select"
	TypeFile        FieldType = "file"
	TypeRadio       FieldType = "radio"
	TypeCheckbox    FieldType = "checkbox"
	TypeSwitch      FieldType = "switch"
	TypeTextarea    FieldType = "textarea"
	TypeToggleGroup FieldType = "toggle-group"
)

// Field is a single field descriptor.
type Field struct {
	Name         string    `json:"name" validate:"required"`
	Label        string    `json:"label" validate:"required"`
	Type         FieldType `json:"type" validate:"required,oneof=input select file radio checkbox switch textarea toggle-group"`
	Values       []string  `json:"values,omitempty"`
	Accept       string    `json:"accept,omitempty"`
	Multiple     *bool     `json:"multiple,omitempty"`
	DefaultValue any       `json:"defaultValue,omitempty"`
	Placeholder  string    `json:"placeholder,omitempty"`
	Description  string    `json:"description,omitempty"`
	Required     *bool     `json:"required,omitempty"`
}

// IsRequired reports whether the field was explicitly marked required.
func (f Field) IsRequired() bool {
	return f.Required != nil && *f.Required
}

// Schema is the ordered list of fields of one form.
type Schema []Field

// ErrEmpty is returned by Parse for blank input.
var ErrEmpty = errors.New("empty form schema")

// Parse decodes a form schema from text. The text is either a JSON array of
// field descriptors or a JSON string holding such an array (the double
// encoding used by the sentinel protocol).
func Parse(text string) (Schema, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmpty
	}
	return ParseJSON(json.RawMessage(trimmed))
}

// ParseJSON decodes a raw JSON value, unwrapping one level of string
// encoding if present.
func ParseJSON(raw json.RawMessage) (Schema, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrEmpty
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("decoding string-encoded schema: %w", err)
		}
		return Parse(inner)
	}

	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}

	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Encode returns the wire form of s for the given encoding: the plain JSON
// array, or the array serialized into a JSON string when quoted is true.
func Encode(s Schema, quoted bool) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding schema: %w", err)
	}
	if !quoted {
		return string(data), nil
	}

	data, err = json.Marshal(string(data))
	if err != nil {
		return "", fmt.Errorf("quoting schema: %w", err)
	}
	return string(data), nil
}

// Clone returns a deep copy of s so that snapshots handed to callers never
// share backing arrays.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}

	out := make(Schema, len(s))
	for i, f := range s {
		out[i] = f
		if f.Values != nil {
			out[i].Values = append([]string(nil), f.Values...)
		}
		if f.Multiple != nil {
			v := *f.Multiple
			out[i].Multiple = &v
		}
		if f.Required != nil {
			v := *f.Required
			out[i].Required = &v
		}
	}
	return out
}
