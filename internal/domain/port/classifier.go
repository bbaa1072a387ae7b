package port

import (
	"context"
	"image"
)

// DiseaseClassifier предобученный классификатор болезней
type DiseaseClassifier interface {
	// Classify возвращает оценки по всем классам словаря в порядке индексов
	Classify(ctx context.Context, img image.Image) ([]float32, error)
}
