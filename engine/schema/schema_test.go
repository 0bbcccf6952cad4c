package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Requires(t *testing.T) {
	t.Run("Should report required result field", func(t *testing.T) {
		s := Schema{
			"type":       "object",
			"properties": map[string]any{"result": map[string]any{"type": "string"}},
			"required":   []any{"result"},
		}
		assert.True(t, s.Requires("result"))
		assert.False(t, s.Requires("score"))
	})

	t.Run("Should handle schemas without required list", func(t *testing.T) {
		s := Schema{"type": "object"}
		assert.False(t, s.Requires("result"))
	})
}

func TestSchema_PropertyType(t *testing.T) {
	t.Run("Should return declared property type", func(t *testing.T) {
		s := Schema{
			"properties": map[string]any{
				"result": map[string]any{"type": "object"},
				"score":  map[string]any{"type": "string"},
			},
		}
		assert.Equal(t, "object", s.PropertyType("result"))
		assert.Equal(t, "string", s.PropertyType("score"))
		assert.Empty(t, s.PropertyType("missing"))
	})
}

func TestTranslate(t *testing.T) {
	t.Run("Should validate values against declared shape", func(t *testing.T) {
		c := Translate(Schema{
			"type": "object",
			"properties": map[string]any{
				"result": map[string]any{"type": "string"},
				"score":  map[string]any{"type": "string", "enum": []any{"pass", "fail"}},
			},
			"required": []any{"result"},
		})
		require.NoError(t, c.Validate(map[string]any{"result": "ok", "score": "pass"}))
		assert.Error(t, c.Validate(map[string]any{"score": "pass"}))
		assert.Error(t, c.Validate(map[string]any{"result": "ok", "score": "maybe"}))
	})

	t.Run("Should reject unknown keys when additionalProperties is false", func(t *testing.T) {
		c := Translate(Schema{
			"type":                 "object",
			"properties":           map[string]any{"result": map[string]any{"type": "string"}},
			"required":             []any{"result"},
			"additionalProperties": false,
		})
		require.NoError(t, c.Validate(map[string]any{"result": "ok"}))
		assert.Error(t, c.Validate(map[string]any{"result": "ok", "extra": 1}))
	})

	t.Run("Should accept anything for empty schemas", func(t *testing.T) {
		c := Translate(Schema{})
		assert.NoError(t, c.Validate("a bare string"))
		assert.NoError(t, c.Validate(map[string]any{"anything": true}))
		assert.NoError(t, c.Validate(nil))
	})

	t.Run("Should accept anything for nil compiled schema", func(t *testing.T) {
		var c *Compiled
		assert.NoError(t, c.Validate(42))
	})

	t.Run("Should translate array item schemas", func(t *testing.T) {
		c := Translate(Schema{
			"type":  "array",
			"items": map[string]any{"type": "integer"},
		})
		require.NoError(t, c.Validate([]any{float64(1), float64(2)}))
		assert.Error(t, c.Validate([]any{"not-a-number"}))
	})

	t.Run("Should accept any items when item schema absent", func(t *testing.T) {
		c := Translate(Schema{"type": "array"})
		assert.NoError(t, c.Validate([]any{"mixed", float64(1), true}))
	})
}
