package storage

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/domain/port"
)

// PlantRepository растения поверх иерархического хранилища
type PlantRepository struct {
	store  port.Store
	root   string
	logger *zap.Logger
}

// NewPlantRepository создаёт репозиторий с корнем root (обычно "plants")
func NewPlantRepository(store port.Store, root string, logger *zap.Logger) *PlantRepository {
	return &PlantRepository{store: store, root: root, logger: logger.Named("plants")}
}

// List возвращает растения, отсортированные по ID, как их перечисляет база.
// Записи без sensorNode и не-объекты пропускаются.
func (r *PlantRepository) List(ctx context.Context) ([]entity.Plant, error) {
	var raw map[string]json.RawMessage
	if err := r.store.Get(ctx, r.root, &raw); err != nil {
		return nil, errors.Wrap(err, "read plants")
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	plants := make([]entity.Plant, 0, len(ids))
	for _, id := range ids {
		var fields map[string]any
		if err := json.Unmarshal(raw[id], &fields); err != nil {
			r.logger.Warn("skipping malformed plant record", zap.String("plant_id", id), zap.Error(err))
			continue
		}
		p, err := entity.ParsePlant(id, fields)
		if err != nil {
			r.logger.Warn("skipping plant record", zap.String("plant_id", id), zap.Error(err))
			continue
		}
		plants = append(plants, p)
	}
	return plants, nil
}

// Get возвращает одно растение
func (r *PlantRepository) Get(ctx context.Context, plantID string) (entity.Plant, error) {
	var fields map[string]any
	if err := r.store.Get(ctx, r.path(plantID), &fields); err != nil {
		return entity.Plant{}, errors.Wrapf(err, "read plant %s", plantID)
	}
	if fields == nil {
		return entity.Plant{}, errors.Wrap(entity.ErrPlantNotFound, plantID)
	}
	return entity.ParsePlant(plantID, fields)
}

// UpdateStatus записывает status, lastUpdated и disease (пустая метка удаляет поле)
func (r *PlantRepository) UpdateStatus(ctx context.Context, plantID, status, disease string, at time.Time) error {
	fields := map[string]any{
		"status":      status,
		"lastUpdated": at.Format(time.RFC3339),
		"disease":     nil,
	}
	if disease != "" {
		fields["disease"] = disease
	}
	if err := r.store.Update(ctx, r.path(plantID), fields); err != nil {
		return errors.Wrapf(err, "update plant %s", plantID)
	}
	return nil
}

func (r *PlantRepository) path(plantID string) string {
	return r.root + "/" + plantID
}

var _ port.PlantRepository = (*PlantRepository)(nil)
