package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "JSON/ESP32CAM", "abc"))

	var got string
	require.NoError(t, s.Get(ctx, "JSON/ESP32CAM", &got))
	require.Equal(t, "abc", got)
}

func TestMemoryStore_GetMissingLeavesDest(t *testing.T) {
	s := NewMemoryStore()
	got := "untouched"
	require.NoError(t, s.Get(context.Background(), "nope/here", &got))
	require.Equal(t, "untouched", got)
}

func TestMemoryStore_UpdateMergesAndDeletes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "plants/p1", map[string]any{"sensorNode": "JSON", "disease": "x"}))
	require.NoError(t, s.Update(ctx, "plants/p1", map[string]any{"status": "healthy", "disease": nil}))

	require.Equal(t, map[string]any{"sensorNode": "JSON", "status": "healthy"}, s.Snapshot("plants/p1"))
}

func TestMemoryStore_SetEmptyDeletesAndPrunes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "ai_monitoring/trigger", map[string]any{"requestType": "manual"}))
	require.NoError(t, s.Set(ctx, "ai_monitoring/trigger", map[string]any{}))

	require.Nil(t, s.Snapshot("ai_monitoring/trigger"))
	require.Nil(t, s.Snapshot("ai_monitoring"))
}

func TestMemoryStore_FromJSON(t *testing.T) {
	s, err := NewMemoryStoreFromJSON(strings.NewReader(`{"plants":{"a":{"sensorNode":"JSON"}}}`))
	require.NoError(t, err)

	var node string
	require.NoError(t, s.Get(context.Background(), "plants/a/sensorNode", &node))
	require.Equal(t, "JSON", node)

	_, err = NewMemoryStoreFromJSON(strings.NewReader(`[`))
	require.Error(t, err)
}
