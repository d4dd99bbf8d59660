package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "history.json")

	h, err := NewHistory(file)
	require.NoError(t, err)

	url := "https://item.taobao.com/item.htm?id=687654321098"

	t.Run("add and lookup", func(t *testing.T) {
		require.NoError(t, h.Add(&ScrapeRecord{URL: url, Platform: "taobao"}))

		record, ok := h.Get(url)
		require.True(t, ok)
		assert.Equal(t, StatusPending, record.Status)
		assert.False(t, h.IsCompleted(url))
	})

	t.Run("URL is required", func(t *testing.T) {
		assert.Error(t, h.Add(&ScrapeRecord{Platform: "taobao"}))
	})

	t.Run("status updates", func(t *testing.T) {
		require.NoError(t, h.UpdateStatus(url, StatusCompleted, ""))
		assert.True(t, h.IsCompleted(url))

		assert.Error(t, h.UpdateStatus("https://unknown.example.com", StatusFailed, "boom"))
	})

	t.Run("persists across reload", func(t *testing.T) {
		reloaded, err := NewHistory(file)
		require.NoError(t, err)
		assert.True(t, reloaded.IsCompleted(url))

		stats := reloaded.Stats()
		assert.Equal(t, 1, stats["total"])
		assert.Equal(t, 1, stats[StatusCompleted])
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		fresh, err := NewHistory(filepath.Join(t.TempDir(), "absent.json"))
		require.NoError(t, err)
		assert.Equal(t, 0, fresh.Stats()["total"])
	})
}
