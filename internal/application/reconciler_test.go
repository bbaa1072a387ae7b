package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/infrastructure/storage"
)

func newTestReconciler(plants *countingPlants, retries uint64) *Reconciler {
	r := NewReconciler(plants, ReconcilerConfig{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}, zap.NewNop())
	r.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	return r
}

func TestReconciler_RetriesTransientFailures(t *testing.T) {
	store := storage.NewMemoryStore()
	plants := &countingPlants{
		PlantRepository: storage.NewPlantRepository(store, "plants", zap.NewNop()),
		failures:        2,
	}
	r := newTestReconciler(plants, 3)

	err := r.Reconcile(context.Background(), "p1", entity.Diseased("Apple___Black_rot"))
	require.NoError(t, err)
	require.Equal(t, 3, plants.writesFor("p1"))

	require.Equal(t, map[string]any{
		"status":      "Apple___Black_rot",
		"disease":     "Apple___Black_rot",
		"lastUpdated": "2024-05-01T09:30:00Z",
	}, store.Snapshot("plants/p1"))
}

func TestReconciler_GivesUp(t *testing.T) {
	plants := &countingPlants{
		PlantRepository: storage.NewPlantRepository(storage.NewMemoryStore(), "plants", zap.NewNop()),
		failures:        10,
	}
	r := newTestReconciler(plants, 2)

	err := r.Reconcile(context.Background(), "p1", entity.Healthy())
	require.ErrorIs(t, err, entity.ErrRemoteWriteFailed)
	require.Equal(t, 3, plants.writesFor("p1"))
}

func TestReconciler_Idempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	plants := &countingPlants{PlantRepository: storage.NewPlantRepository(store, "plants", zap.NewNop())}
	r := newTestReconciler(plants, 0)
	ctx := context.Background()

	require.NoError(t, r.Reconcile(ctx, "p1", entity.Failed(entity.OutcomeDetectionFailed)))
	first := store.Snapshot("plants/p1")
	require.NoError(t, r.Reconcile(ctx, "p1", entity.Failed(entity.OutcomeDetectionFailed)))

	require.Equal(t, first, store.Snapshot("plants/p1"))
	require.Equal(t, entity.StatusUnknown, first.(map[string]any)["status"])
}
