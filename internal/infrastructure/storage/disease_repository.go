package storage

import (
	"context"

	"github.com/pkg/errors"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/domain/port"
)

// DiseaseRepository справочник болезней в хранилище
type DiseaseRepository struct {
	store port.Store
	root  string
}

// NewDiseaseRepository создаёт репозиторий с корнем root (обычно "plant_diseases")
func NewDiseaseRepository(store port.Store, root string) *DiseaseRepository {
	return &DiseaseRepository{store: store, root: root}
}

// ReplaceAll записывает весь справочник одной операцией
func (r *DiseaseRepository) ReplaceAll(ctx context.Context, diseases map[string]entity.DiseaseInfo) error {
	return errors.Wrap(r.store.Set(ctx, r.root, diseases), "write disease table")
}

// Lookup читает одну запись справочника по метке классификатора
func (r *DiseaseRepository) Lookup(ctx context.Context, label string) (entity.DiseaseInfo, bool, error) {
	var info *entity.DiseaseInfo
	if err := r.store.Get(ctx, r.root+"/"+entity.DiseaseKey(label), &info); err != nil {
		return entity.DiseaseInfo{}, false, errors.Wrapf(err, "read disease %s", label)
	}
	if info == nil {
		return entity.DiseaseInfo{}, false, nil
	}
	return *info, true, nil
}

var _ port.DiseaseRepository = (*DiseaseRepository)(nil)
