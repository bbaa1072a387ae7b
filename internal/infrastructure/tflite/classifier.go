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

// Classifier классификатор болезней (EfficientNet), экспортированный в TFLite
type Classifier struct {
	mu     sync.Mutex
	model  *model
	side   int
	layout tensor.Layout
	norm   tensor.Normalization
}

// ClassifierConfig настройки классификатора
type ClassifierConfig struct {
	ModelPath     string
	Threads       int
	Normalization tensor.Normalization
}

// NewClassifier загружает модель классификатора
func NewClassifier(cfg ClassifierConfig, logger *zap.Logger) (*Classifier, error) {
	if err := cfg.Normalization.Validate(); err != nil {
		return nil, errors.Wrap(err, "classifier normalization")
	}

	m, err := loadModel(cfg.ModelPath, cfg.Threads, logger)
	if err != nil {
		return nil, err
	}

	shape := m.inputShape()
	side, err := tensor.SideFromShape(shape)
	if err != nil {
		m.close()
		return nil, errors.Wrap(err, "classifier input")
	}

	logger.Info("classifier model loaded",
		zap.String("model", cfg.ModelPath),
		zap.Ints("input_shape", shape))

	return &Classifier{model: m, side: side, layout: tensor.LayoutFromShape(shape), norm: cfg.Normalization}, nil
}

// Classify возвращает оценки классов для вырезанной области
func (c *Classifier) Classify(ctx context.Context, img image.Image) ([]float32, error) {
	input := tensor.FromImage(img, c.side, c.norm, c.layout)

	c.mu.Lock()
	scores, _, err := c.model.run(input)
	c.mu.Unlock()
	if err != nil {
		return nil, errors.Wrapf(entity.ErrClassificationFailed, "%v", err)
	}
	return scores, nil
}

// Close освобождает интерпретатор
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model.close()
	c.model = nil
	return nil
}

var _ port.DiseaseClassifier = (*Classifier)(nil)
