//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/infrastructure/tensor"
)

// GoCVDetector запускает YOLOv5 в формате ONNX через OpenCV DNN
type GoCVDetector struct {
	mu   sync.Mutex
	net  gocv.Net
	opts tensor.YOLOOptions
}

// NewGoCVDetector загружает ONNX-модель; inputSize обычно 640.
func NewGoCVDetector(modelPath string, labels []string, inputSize int, conf, iou float64) (*GoCVDetector, error) {
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("cannot read onnx model %s", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, err
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, err
	}

	opts := tensor.DefaultYOLOOptions(labels, inputSize)
	if conf > 0 {
		opts.ConfThreshold = conf
	}
	if iou > 0 {
		opts.IoUThreshold = iou
	}
	return &GoCVDetector{net: net, opts: opts}, nil
}

// Detect запускает детектор на изображении
func (d *GoCVDetector) Detect(ctx context.Context, img image.Image) ([]entity.Region, error) {
	_ = ctx
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDetectionFailed, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: empty image", entity.ErrDetectionFailed)
	}

	// Масштабируем к входу сети, BGR -> RGB, значения 0..1.
	size := image.Pt(d.opts.InputSize, d.opts.InputSize)
	blob := gocv.BlobFromImage(mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	shape := out.Size()
	if len(shape) != 3 {
		return nil, fmt.Errorf("%w: unexpected output shape %v", entity.ErrDetectionFailed, shape)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDetectionFailed, err)
	}

	regions, err := tensor.DecodeYOLO(data, shape[1], shape[2], d.opts, mat.Cols(), mat.Rows())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDetectionFailed, err)
	}
	return regions, nil
}

// Close освобождает сеть
func (d *GoCVDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
