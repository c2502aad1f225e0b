package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONShape(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter("kds", &buf)

	lg.Info("item_bumped", map[string]any{"kds_item_id": "k1"})
	lg.Error("bump_failed", errors.New("boom"), map[string]any{"kds_item_id": "k2"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "kds", first["service"])
	assert.Equal(t, "item_bumped", first["action"])
	assert.Equal(t, "item_bumped", first["message"])
	assert.Equal(t, "k1", first["kds_item_id"])
	assert.Contains(t, first, "timestamp")

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "ERROR", second["level"])
	errField, ok := second["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boom", errField["msg"])
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter("board", &buf)

	require.NoError(t, SetLevel("warn"))
	t.Cleanup(func() { _ = SetLevel("info") })

	lg.Debug("hidden", nil)
	lg.Info("hidden", nil)
	lg.Warn("shown", nil)
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))

	assert.Error(t, SetLevel("loud"))
}
