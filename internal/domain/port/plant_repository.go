package port

import (
	"context"
	"time"

	"plant-monitor/internal/domain/entity"
)

// PlantRepository доступ к записям растений
type PlantRepository interface {
	// List возвращает все растения в порядке перечисления базы
	List(ctx context.Context) ([]entity.Plant, error)

	// Get возвращает одно растение
	Get(ctx context.Context, plantID string) (entity.Plant, error)

	// UpdateStatus записывает статус, метку болезни и время обновления
	UpdateStatus(ctx context.Context, plantID, status, disease string, at time.Time) error
}
