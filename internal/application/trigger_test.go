package app

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/infrastructure/storage"
)

type countingTriggers struct {
	kinds []string
}

func (c *countingTriggers) TriggerReceived(kind string) {
	c.kinds = append(c.kinds, kind)
}

func newTriggerFixture(t *testing.T) (*fixture, *TriggerService, *countingTriggers) {
	t.Helper()
	f := newFixture()
	obs := &countingTriggers{}
	return f, NewTriggerService(f.store, "", f.scans, obs, zap.NewNop()), obs
}

func setTrigger(t *testing.T, f *fixture, payload map[string]any) map[string]any {
	t.Helper()
	require.NoError(t, f.store.Set(context.Background(), DefaultTriggerPath, payload))
	return payload
}

func TestTriggerService_ManualScan(t *testing.T) {
	f, svc, obs := newTriggerFixture(t)
	f.addPlant("p1", "JSON")
	f.addPlant("p2", "JSON")
	raw := setTrigger(t, f, map[string]any{"requestType": "manual", "plantId": "p2", "sensorNode": "JSON"})

	tr, err := svc.Handle(context.Background(), raw)
	require.NoError(t, err)

	require.Equal(t, entity.TriggerSingle, tr.Kind)
	require.Equal(t, 1, f.plants.writesFor("p2"))
	require.Zero(t, f.plants.writesFor("p1"))
	require.Nil(t, f.store.Snapshot(DefaultTriggerPath))
	require.Equal(t, []string{"single"}, obs.kinds)
}

func TestTriggerService_OtherRequestSweeps(t *testing.T) {
	f, svc, _ := newTriggerFixture(t)
	f.addPlant("p1", "JSON")
	f.addPlant("p2", "JSON3")
	f.addPlant("p3", "OTHER")
	raw := setTrigger(t, f, map[string]any{"requestType": "scheduled", "timestamp": 1714555800})

	tr, err := svc.Handle(context.Background(), raw)
	require.NoError(t, err)

	require.Equal(t, entity.TriggerSweep, tr.Kind)
	require.Equal(t, 1, f.plants.writesFor("p1"))
	require.Equal(t, 1, f.plants.writesFor("p2"))
	require.Zero(t, f.plants.writesFor("p3"))
	require.Nil(t, f.store.Snapshot(DefaultTriggerPath))
}

func TestTriggerService_MalformedManualIsResetWithoutScan(t *testing.T) {
	f, svc, _ := newTriggerFixture(t)
	f.addPlant("p1", "JSON")
	raw := setTrigger(t, f, map[string]any{"requestType": "manual", "plantId": "p1"})

	require.NotPanics(t, func() {
		tr, err := svc.Handle(context.Background(), raw)
		require.NoError(t, err)
		require.Equal(t, entity.TriggerIgnore, tr.Kind)
	})
	require.Zero(t, f.plants.writesFor("p1"))
	require.Nil(t, f.store.Snapshot(DefaultTriggerPath))
}

func TestTriggerService_EmptyPayloadIsIgnored(t *testing.T) {
	f, svc, obs := newTriggerFixture(t)
	f.addPlant("p1", "JSON")

	require.NotPanics(t, func() {
		_, err := svc.Handle(context.Background(), nil)
		require.NoError(t, err)
		_, err = svc.Handle(context.Background(), map[string]any{})
		require.NoError(t, err)
	})
	require.Zero(t, f.plants.writesFor("p1"))
	require.Empty(t, obs.kinds)
}

func TestTriggerService_ResetAfterFailure(t *testing.T) {
	f, svc, _ := newTriggerFixture(t)
	f.addPlant("p1", "JSON")
	f.images.panics = true
	raw := setTrigger(t, f, map[string]any{"requestType": "manual", "plantId": "p1", "sensorNode": "JSON"})

	_, err := svc.Handle(context.Background(), raw)
	require.NoError(t, err)

	require.Equal(t, entity.StatusUnknown, f.status("p1"))
	require.Nil(t, f.store.Snapshot(DefaultTriggerPath))
}

// resetFailingStore отказывает в записи в точку сигнала
type resetFailingStore struct {
	*storage.MemoryStore
}

func (s resetFailingStore) Set(ctx context.Context, path string, value any) error {
	if path == DefaultTriggerPath {
		return errors.New("permission denied")
	}
	return s.MemoryStore.Set(ctx, path, value)
}

func TestTriggerService_ReportsFailedReset(t *testing.T) {
	f := newFixture()
	f.addPlant("p1", "JSON")
	raw := setTrigger(t, f, map[string]any{"requestType": "manual", "plantId": "p1", "sensorNode": "JSON"})
	svc := NewTriggerService(resetFailingStore{f.store}, "", f.scans, nil, zap.NewNop())

	tr, err := svc.Handle(context.Background(), raw)
	require.Error(t, err)
	require.Equal(t, entity.TriggerSingle, tr.Kind)
	require.Equal(t, 1, f.plants.writesFor("p1"))
	require.NotNil(t, f.store.Snapshot(DefaultTriggerPath))
}

func TestTriggerService_Read(t *testing.T) {
	f, svc, _ := newTriggerFixture(t)
	ctx := context.Background()

	raw, err := svc.Read(ctx)
	require.NoError(t, err)
	require.Empty(t, raw)

	setTrigger(t, f, map[string]any{"requestType": "manual", "plantId": "p1", "sensorNode": "JSON"})
	raw, err = svc.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "p1", raw["plantId"])

	require.NoError(t, f.store.Set(ctx, DefaultTriggerPath, "go"))
	_, err = svc.Read(ctx)
	require.ErrorIs(t, err, ErrMalformedTrigger)
}
