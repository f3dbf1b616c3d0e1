package registry

import (
	"bytes"
	"context"
	"encoding/json"
)

// NewTool builds a tool descriptor from a typed argument struct. The input
// schema is reflected from A's json tags; the handler decodes the validated
// parameters strictly before invoking fn.
func NewTool[A any](name, description string, fn func(ctx context.Context, args A) (any, error)) Descriptor {
	return Descriptor{
		Category:    CategoryTool,
		Name:        name,
		Description: description,
		Schema:      ReflectSchema[A](),
		Handler:     typedHandler(fn),
	}
}

// NewResource builds a resource descriptor keyed by its URI. Resources take
// no parameters beyond the identifying key.
func NewResource(uri, name, description, mimeType string, fn func(ctx context.Context) (any, error)) Descriptor {
	return Descriptor{
		Category:    CategoryResource,
		Name:        uri,
		Title:       name,
		Description: description,
		MimeType:    mimeType,
		Schema:      &InputSchema{Type: "object", Properties: map[string]Property{}},
		Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return fn(ctx)
		},
	}
}

// NewPrompt builds a prompt descriptor from a typed argument struct.
func NewPrompt[A any](name, description string, fn func(ctx context.Context, args A) (any, error)) Descriptor {
	return Descriptor{
		Category:    CategoryPrompt,
		Name:        name,
		Description: description,
		Schema:      ReflectSchema[A](),
		Handler:     typedHandler(fn),
	}
}

// typedHandler adapts a typed function to the raw Handler signature. The
// decode is strict: fields the struct does not declare were already rejected
// by schema validation, so a failure here indicates a type mismatch the
// schema could not express.
func typedHandler[A any](fn func(ctx context.Context, args A) (any, error)) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var a A
		if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&a); err != nil {
				return nil, err
			}
		}
		return fn(ctx, a)
	}
}
