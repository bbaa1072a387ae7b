package port

import (
	"context"

	"plant-monitor/internal/domain/entity"
)

// DiseaseRepository справочник болезней
type DiseaseRepository interface {
	// ReplaceAll заменяет весь справочник одной записью
	ReplaceAll(ctx context.Context, diseases map[string]entity.DiseaseInfo) error

	// Lookup возвращает запись по метке классификатора; ok=false, если записи нет
	Lookup(ctx context.Context, label string) (info entity.DiseaseInfo, ok bool, err error)
}
