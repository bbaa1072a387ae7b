package port

import (
	"context"
	"image"

	"plant-monitor/internal/domain/entity"
)

// RegionDetector предобученный детектор областей листьев
type RegionDetector interface {
	// Detect возвращает области в порядке, в котором их отдала модель
	Detect(ctx context.Context, img image.Image) ([]entity.Region, error)
}
