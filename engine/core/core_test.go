package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAPIKey(t *testing.T) {
	t.Run("Should prefer the explicit value over the environment", func(t *testing.T) {
		t.Setenv(APIKeyEnv, "from-env")
		key, err := ResolveAPIKey("explicit")
		require.NoError(t, err)
		assert.Equal(t, "explicit", key)
	})

	t.Run("Should fall back to the environment", func(t *testing.T) {
		t.Setenv(APIKeyEnv, "from-env")
		key, err := ResolveAPIKey("")
		require.NoError(t, err)
		assert.Equal(t, "from-env", key)
	})

	t.Run("Should fail when neither source is set", func(t *testing.T) {
		t.Setenv(APIKeyEnv, "")
		_, err := ResolveAPIKey("")
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})
}

func TestIsTruthy(t *testing.T) {
	t.Run("Should treat empty values as falsy", func(t *testing.T) {
		for _, v := range []any{nil, "", false, float64(0), 0} {
			assert.False(t, IsTruthy(v), "%v should be falsy", v)
		}
	})

	t.Run("Should treat populated values as truthy", func(t *testing.T) {
		for _, v := range []any{"x", true, float64(1), map[string]any{}, []any{}} {
			assert.True(t, IsTruthy(v), "%v should be truthy", v)
		}
	})
}

func TestAsOutput(t *testing.T) {
	t.Run("Should convert plain maps", func(t *testing.T) {
		out, ok := AsOutput(map[string]any{"result": "x"})
		require.True(t, ok)
		assert.Equal(t, "x", out["result"])
	})

	t.Run("Should reject non-objects", func(t *testing.T) {
		_, ok := AsOutput("nope")
		assert.False(t, ok)
		_, ok = AsOutput(nil)
		assert.False(t, ok)
	})
}

func TestDiagnostics(t *testing.T) {
	t.Run("Should record warnings in order", func(t *testing.T) {
		d := NewDiagnostics()
		d.Warnf("mcp", "server %q skipped", "weird")
		d.Infof("agent", "built %d agents", 2)
		d.Warnf("agent", "tool dropped")

		entries := d.Entries()
		require.Len(t, entries, 3)
		assert.Equal(t, SeverityWarning, entries[0].Severity)
		assert.Contains(t, entries[0].Message, "weird")

		warnings := d.Warnings()
		require.Len(t, warnings, 2)
		assert.Equal(t, "agent", warnings[1].Component)
	})

	t.Run("Should tolerate a nil collector", func(t *testing.T) {
		var d *Diagnostics
		d.Warnf("mcp", "ignored")
		assert.Empty(t, d.Entries())
	})
}
