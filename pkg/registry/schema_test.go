package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/jamiat-it/tracker-mcp/pkg/errors"
)

type reflectArgs struct {
	ProjectID string `json:"project_id" jsonschema:"description=Project identifier"`
	Limit     int    `json:"limit,omitempty"`
}

func TestReflectSchema(t *testing.T) {
	s := ReflectSchema[reflectArgs]()
	require.NotNil(t, s)
	assert.Equal(t, "object", s.Type)

	require.Contains(t, s.Properties, "project_id")
	assert.Equal(t, "string", s.Properties["project_id"].Type)
	assert.Equal(t, "Project identifier", s.Properties["project_id"].Description)

	require.Contains(t, s.Properties, "limit")
	assert.Equal(t, "integer", s.Properties["limit"].Type)

	assert.Equal(t, []string{"project_id"}, s.Required)
}

func TestReflectSchemaEmptyStruct(t *testing.T) {
	s := ReflectSchema[struct{}]()
	require.NotNil(t, s)
	assert.Empty(t, s.Properties)
	assert.Empty(t, s.Required)
}

func TestValidate(t *testing.T) {
	schema := &InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"name":  {Type: "string"},
			"count": {Type: "integer"},
			"mode":  {Type: "string", Enum: []any{"fast", "slow"}},
		},
		Required: []string{"name"},
	}

	t.Run("valid", func(t *testing.T) {
		err := schema.Validate(map[string]any{"name": "x", "count": float64(3)})
		assert.NoError(t, err)
	})

	t.Run("missing required names the field", func(t *testing.T) {
		err := schema.Validate(map[string]any{"count": float64(3)})
		require.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidParams))
		assert.Contains(t, err.Error(), "name")
	})

	t.Run("null required is treated as absent", func(t *testing.T) {
		err := schema.Validate(map[string]any{"name": nil})
		require.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidParams))
		assert.Contains(t, err.Error(), "name")
	})

	t.Run("type mismatch names the field", func(t *testing.T) {
		err := schema.Validate(map[string]any{"name": "x", "count": "three"})
		require.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidParams))
		assert.Contains(t, err.Error(), "count")
	})

	t.Run("fractional value fails integer check", func(t *testing.T) {
		err := schema.Validate(map[string]any{"name": "x", "count": 2.5})
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidParams))
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		err := schema.Validate(map[string]any{"name": "x", "bogus": 1})
		require.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidParams))
		assert.Contains(t, err.Error(), "bogus")
	})

	t.Run("null optional accepted", func(t *testing.T) {
		err := schema.Validate(map[string]any{"name": "x", "count": nil})
		assert.NoError(t, err)
	})

	t.Run("enum enforced", func(t *testing.T) {
		assert.NoError(t, schema.Validate(map[string]any{"name": "x", "mode": "fast"}))
		err := schema.Validate(map[string]any{"name": "x", "mode": "sideways"})
		require.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidParams))
		assert.Contains(t, err.Error(), "mode")
	})
}

func TestMarshalRawNilSchema(t *testing.T) {
	var s *InputSchema
	assert.JSONEq(t, `{"type":"object","properties":{},"additionalProperties":false}`, string(s.MarshalRaw()))
}

func TestNewToolTypedDecode(t *testing.T) {
	tool := NewTool("grab", "grabs a project", func(_ context.Context, args reflectArgs) (any, error) {
		return args.ProjectID, nil
	})
	assert.Equal(t, CategoryTool, tool.Category)
	require.NotNil(t, tool.Schema)
	assert.Equal(t, []string{"project_id"}, tool.Schema.Required)

	out, err := tool.Handler(context.Background(), json.RawMessage(`{"project_id":"sama"}`))
	require.NoError(t, err)
	assert.Equal(t, "sama", out)

	// Empty params decode to the zero value.
	out, err = tool.Handler(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestNewResourceKeyedByURI(t *testing.T) {
	res := NewResource("tracker://projects/all", "All Projects", "everything", "application/json",
		func(_ context.Context) (any, error) { return "data", nil })

	assert.Equal(t, CategoryResource, res.Category)
	assert.Equal(t, "tracker://projects/all", res.Name)
	assert.Equal(t, "All Projects", res.Title)
	assert.Equal(t, "application/json", res.MimeType)

	out, err := res.Handler(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "data", out)
}
