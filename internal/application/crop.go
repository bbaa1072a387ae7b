package app

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"plant-monitor/internal/domain/entity"
)

// CropRegion вырезает область из снимка.
// Вырожденная рамка или рамка вне снимка дают ErrInvalidRegion;
// рамка, частично выходящая за край, обрезается по границам снимка.
// Часть листа в кадре всё ещё годится для классификатора, а детектор
// нередко выдаёт рамки на пиксель шире кадра, поэтому такая рамка не отбрасывается.
func CropRegion(img image.Image, region entity.Region) (image.Image, error) {
	if region.Degenerate() {
		return nil, errors.Wrapf(entity.ErrInvalidRegion, "degenerate box %v", region.Rect())
	}

	bounds := img.Bounds()
	rect := region.Rect().Add(bounds.Min).Intersect(bounds)
	if rect.Empty() {
		return nil, errors.Wrapf(entity.ErrInvalidRegion, "box %v outside image %v", region.Rect(), bounds.Size())
	}

	return imaging.Crop(img, rect), nil
}
