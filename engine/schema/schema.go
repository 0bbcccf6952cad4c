package schema

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// -----------------------------------------------------------------------------
// Schema
// -----------------------------------------------------------------------------

// Schema is a JSON-Schema-like document describing an agent's output shape.
type Schema map[string]any

func (s Schema) String() string {
	bytes, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(bytes)
}

// RequiredFields returns the schema's required property names.
func (s Schema) RequiredFields() []string {
	raw, ok := s["required"].([]any)
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(raw))
	for _, r := range raw {
		if name, ok := r.(string); ok {
			fields = append(fields, name)
		}
	}
	return fields
}

// Requires reports whether the schema lists field among its required
// properties.
func (s Schema) Requires(field string) bool {
	for _, name := range s.RequiredFields() {
		if name == field {
			return true
		}
	}
	return false
}

// PropertyType returns the declared type of a property, or "" when the
// property or its type is absent.
func (s Schema) PropertyType(field string) string {
	props, ok := s["properties"].(map[string]any)
	if !ok {
		return ""
	}
	prop, ok := props[field].(map[string]any)
	if !ok {
		return ""
	}
	typ, _ := prop["type"].(string)
	return typ
}

// -----------------------------------------------------------------------------
// Compiled
// -----------------------------------------------------------------------------

// Compiled is a schema translated into a runtime validator. Translation is
// infallible: shapes the compiler cannot make sense of degrade to an
// accept-anything validator. The compiled form is built once and reused for
// every validation.
type Compiled struct {
	source   Schema
	compiled *jsonschema.Schema
}

// Translate builds the cached validator for a schema. A nil or empty schema,
// or one that fails to compile, yields a validator that accepts any value.
func Translate(s Schema) *Compiled {
	c := &Compiled{source: s}
	if len(s) == 0 {
		return c
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return c
	}
	compiler := jsonschema.NewCompiler()
	compiled, err := compiler.Compile(bytes)
	if err != nil {
		return c
	}
	c.compiled = compiled
	return c
}

// Source returns the schema this validator was translated from.
func (c *Compiled) Source() Schema {
	if c == nil {
		return nil
	}
	return c.source
}

// Validate checks value against the compiled schema. Accept-anything
// validators never fail.
func (c *Compiled) Validate(value any) error {
	if c == nil || c.compiled == nil {
		return nil
	}
	result := c.compiled.Validate(value)
	if result.Valid {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}
