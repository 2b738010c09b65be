// README: Provider-neutral response schema; drives both schema-constrained generation and local validation.
package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	Enum        []string
	Pattern     string
	Minimum     *float64
}

// JSONSchema renders s as a JSON Schema document.
func (s *Schema) JSONSchema() map[string]interface{} {
	if s == nil {
		return map[string]interface{}{}
	}
	doc := map[string]interface{}{"type": string(s.Type)}
	if s.Description != "" {
		doc["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]interface{}, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.JSONSchema()
		}
		doc["properties"] = props
	}
	if len(s.Required) > 0 {
		doc["required"] = s.Required
	}
	if s.Items != nil {
		doc["items"] = s.Items.JSONSchema()
	}
	if len(s.Enum) > 0 {
		doc["enum"] = s.Enum
	}
	if s.Pattern != "" {
		doc["pattern"] = s.Pattern
	}
	if s.Minimum != nil {
		doc["minimum"] = *s.Minimum
	}
	return doc
}

// ValidateJSON checks raw against s.
func ValidateJSON(s *Schema, raw []byte) error {
	if !json.Valid(raw) {
		return fmt.Errorf("invalid json")
	}
	res, err := gojsonschema.Validate(gojsonschema.NewGoLoader(s.JSONSchema()), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema violations: %s", strings.Join(msgs, "; "))
}
