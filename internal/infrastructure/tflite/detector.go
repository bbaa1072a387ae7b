package tflite

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/domain/port"
	"plant-monitor/internal/infrastructure/tensor"
)

// Detector YOLOv5, экспортированный в TFLite (выход [1, N, 5+классы], координаты в долях входа)
type Detector struct {
	mu     sync.Mutex
	model  *model
	side   int
	layout tensor.Layout
	opts   tensor.YOLOOptions
}

// DetectorConfig настройки детектора
type DetectorConfig struct {
	ModelPath     string
	Labels        []string
	Threads       int
	ConfThreshold float64
	IoUThreshold  float64
}

// NewDetector загружает модель детектора
func NewDetector(cfg DetectorConfig, logger *zap.Logger) (*Detector, error) {
	m, err := loadModel(cfg.ModelPath, cfg.Threads, logger)
	if err != nil {
		return nil, err
	}

	shape := m.inputShape()
	side, err := tensor.SideFromShape(shape)
	if err != nil {
		m.close()
		return nil, errors.Wrap(err, "detector input")
	}

	opts := tensor.DefaultYOLOOptions(cfg.Labels, side)
	opts.Normalized = true
	if cfg.ConfThreshold > 0 {
		opts.ConfThreshold = cfg.ConfThreshold
	}
	if cfg.IoUThreshold > 0 {
		opts.IoUThreshold = cfg.IoUThreshold
	}

	logger.Info("detector model loaded",
		zap.String("model", cfg.ModelPath),
		zap.Ints("input_shape", shape),
		zap.Strings("labels", cfg.Labels))

	return &Detector{model: m, side: side, layout: tensor.LayoutFromShape(shape), opts: opts}, nil
}

// Detect запускает детектор на изображении
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]entity.Region, error) {
	input := tensor.FromImage(img, d.side, tensor.Identity, d.layout)

	d.mu.Lock()
	out, shape, err := d.model.run(input)
	d.mu.Unlock()
	if err != nil {
		return nil, errors.Wrapf(entity.ErrDetectionFailed, "%v", err)
	}
	if len(shape) != 3 {
		return nil, errors.Wrapf(entity.ErrDetectionFailed, "unexpected output shape %v", shape)
	}

	b := img.Bounds()
	regions, err := tensor.DecodeYOLO(out, shape[1], shape[2], d.opts, b.Dx(), b.Dy())
	if err != nil {
		return nil, errors.Wrapf(entity.ErrDetectionFailed, "%v", err)
	}
	return regions, nil
}

// Close освобождает интерпретатор
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.model.close()
	d.model = nil
	return nil
}

var _ port.RegionDetector = (*Detector)(nil)
