package registry

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/invopop/jsonschema"

	mcperrors "github.com/jamiat-it/tracker-mcp/pkg/errors"
)

// InputSchema is the structural type describing the parameters an operation
// accepts. It is always an object schema; MCP clients receive it verbatim in
// listings.
type InputSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties"`
}

// Property describes one accepted parameter.
type Property struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// MarshalRaw serializes the schema for use in wire listings.
func (s *InputSchema) MarshalRaw() json.RawMessage {
	if s == nil {
		return json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`)
	}
	data, err := json.Marshal(s)
	if err != nil {
		// The schema is built from plain maps and strings; marshaling it
		// cannot fail at runtime.
		panic(err)
	}
	return data
}

// ReflectSchema derives an InputSchema from a Go argument struct using its
// json tags. Non-struct types produce an empty object schema.
func ReflectSchema[A any]() *InputSchema {
	r := &jsonschema.Reflector{
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put struct at root
	}
	s := r.Reflect(new(A))

	out := &InputSchema{
		Type:       "object",
		Properties: map[string]Property{},
	}
	if s == nil || s.Type != "object" {
		return out
	}

	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			prop := Property{}
			if el.Value != nil {
				prop.Type = el.Value.Type
				prop.Description = el.Value.Description
				if len(el.Value.Enum) > 0 {
					prop.Enum = append(prop.Enum, el.Value.Enum...)
				}
			}
			out.Properties[el.Key] = prop
		}
	}
	if len(s.Required) > 0 {
		out.Required = append(out.Required, s.Required...)
	}
	return out
}

// Validate checks decoded parameters against the schema, returning an
// InvalidParams error naming the offending field on the first mismatch.
func (s *InputSchema) Validate(params map[string]any) error {
	if s == nil {
		if len(params) > 0 {
			for field := range params {
				return mcperrors.UnknownParameter(field)
			}
		}
		return nil
	}

	for _, field := range s.Required {
		v, present := params[field]
		if !present || v == nil {
			return mcperrors.MissingParameter(field)
		}
	}

	for field, value := range params {
		prop, declared := s.Properties[field]
		if !declared {
			if s.AdditionalProperties {
				continue
			}
			return mcperrors.UnknownParameter(field)
		}
		// Explicit null on an optional field is accepted as absence.
		if value == nil {
			continue
		}
		if err := checkType(field, prop.Type, value); err != nil {
			return err
		}
		if len(prop.Enum) > 0 && !enumContains(prop.Enum, value) {
			return mcperrors.InvalidParameter(field, fmt.Sprintf("must be one of %v", prop.Enum))
		}
	}
	return nil
}

// checkType matches a decoded JSON value against a schema type token.
func checkType(field, schemaType string, value any) error {
	switch schemaType {
	case "", "object":
		if schemaType == "object" {
			if _, ok := value.(map[string]any); !ok {
				return mcperrors.InvalidParameter(field, "expected object")
			}
		}
	case "string":
		if _, ok := value.(string); !ok {
			return mcperrors.InvalidParameter(field, "expected string")
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return mcperrors.InvalidParameter(field, "expected number")
		}
	case "integer":
		f, ok := value.(float64)
		if !ok || f != math.Trunc(f) {
			return mcperrors.InvalidParameter(field, "expected integer")
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return mcperrors.InvalidParameter(field, "expected boolean")
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return mcperrors.InvalidParameter(field, "expected array")
		}
	default:
		return mcperrors.InvalidParameter(field, fmt.Sprintf("unsupported schema type %q", schemaType))
	}
	return nil
}

func enumContains(enum []any, value any) bool {
	for _, e := range enum {
		if e == value {
			return true
		}
	}
	return false
}
