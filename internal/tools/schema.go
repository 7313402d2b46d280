package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema describes tool parameters. It marshals to standard JSON
// Schema and is handed to the agent verbatim.
type JSONSchema struct {
	Type                 string                 `json:"type"`
	Description          string                 `json:"description,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	Enum                 []any                  `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	MinLength            *int                   `json:"minLength,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`
}

// ToJSON converts the schema to JSON bytes.
func (s *JSONSchema) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// NewObjectSchema creates a closed object schema: properties not listed
// are rejected.
func NewObjectSchema(description string, properties map[string]*JSONSchema, required []string) *JSONSchema {
	closed := false
	if properties == nil {
		properties = map[string]*JSONSchema{}
	}
	return &JSONSchema{
		Type:                 "object",
		Description:          description,
		Properties:           properties,
		Required:             required,
		AdditionalProperties: &closed,
	}
}

// NewMapSchema creates an open object schema with arbitrary keys.
func NewMapSchema(description string) *JSONSchema {
	return &JSONSchema{Type: "object", Description: description}
}

// NewStringSchema creates a new string schema.
func NewStringSchema(description string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: description}
}

// NewIntegerSchema creates a new integer schema.
func NewIntegerSchema(description string) *JSONSchema {
	return &JSONSchema{Type: "integer", Description: description}
}

// NewBooleanSchema creates a new boolean schema.
func NewBooleanSchema(description string) *JSONSchema {
	return &JSONSchema{Type: "boolean", Description: description}
}

// NewArraySchema creates a new array schema.
func NewArraySchema(description string, items *JSONSchema) *JSONSchema {
	return &JSONSchema{Type: "array", Description: description, Items: items}
}

// WithEnum adds enum values to the schema.
func (s *JSONSchema) WithEnum(values ...any) *JSONSchema {
	s.Enum = values
	return s
}

// WithDefault adds a default value to the schema.
func (s *JSONSchema) WithDefault(value any) *JSONSchema {
	s.Default = value
	return s
}

// WithMinimum sets an inclusive lower bound.
func (s *JSONSchema) WithMinimum(v float64) *JSONSchema {
	s.Minimum = &v
	return s
}

// NonEmpty requires at least one character.
func (s *JSONSchema) NonEmpty() *JSONSchema {
	one := 1
	s.MinLength = &one
	return s
}

// ValidateArgs checks args against schema. A nil schema accepts anything.
func ValidateArgs(schema *JSONSchema, args map[string]any) error {
	if schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, len(result.Errors()))
	for i, e := range result.Errors() {
		msgs[i] = e.String()
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
}
