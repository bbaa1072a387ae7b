//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"
	"image"

	"plant-monitor/internal/domain/entity"
)

// ErrGoCVDisabled сборка без тега gocv
var ErrGoCVDisabled = errors.New("gocv build tag is not enabled")

// GoCVDetector детектор-заглушка (без OpenCV)
type GoCVDetector struct{}

// NewGoCVDetector возвращает ошибку, если сборка без тега gocv.
func NewGoCVDetector(modelPath string, labels []string, inputSize int, conf, iou float64) (*GoCVDetector, error) {
	_ = modelPath
	_ = labels
	_ = inputSize
	_ = conf
	_ = iou
	return nil, ErrGoCVDisabled
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *GoCVDetector) Detect(ctx context.Context, img image.Image) ([]entity.Region, error) {
	_ = ctx
	_ = img
	return nil, errors.Join(entity.ErrDetectionFailed, ErrGoCVDisabled)
}

// Close ничего не делает
func (d *GoCVDetector) Close() error {
	return nil
}
