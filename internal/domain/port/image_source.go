package port

import (
	"context"
	"image"
)

// ImageSource отдаёт последний снимок камеры узла датчика
type ImageSource interface {
	// Fetch возвращает декодированный RGB-снимок или ошибку entity.ErrImageUnavailable
	Fetch(ctx context.Context, sensorNode string) (image.Image, error)
}
