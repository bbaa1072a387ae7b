// Package external запускает детектор отдельным процессом (например, hub-модель YOLOv5 в обёртке).
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"math"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/domain/port"
)

// ImagePlaceholder заменяется в аргументах путём к временному снимку
const ImagePlaceholder = "{image}"

// Detector пишет снимок во временный JPEG, запускает команду и читает из stdout
// JSON-массив строк вида {name, xmin, ymin, xmax, ymax, confidence}.
type Detector struct {
	command    string
	args       []string
	scratchDir string
	logger     *zap.Logger
}

// NewDetector создаёт детектор; без плейсхолдера путь добавляется последним аргументом
func NewDetector(command string, args []string, scratchDir string, logger *zap.Logger) (*Detector, error) {
	if command == "" {
		return nil, errors.New("detector command is required")
	}
	return &Detector{command: command, args: args, scratchDir: scratchDir, logger: logger.Named("external_detector")}, nil
}

// row строка таблицы результатов (results.pandas().xyxy[0].to_json(orient="records"))
type row struct {
	Name       string  `json:"name"`
	XMin       float64 `json:"xmin"`
	YMin       float64 `json:"ymin"`
	XMax       float64 `json:"xmax"`
	YMax       float64 `json:"ymax"`
	Confidence float64 `json:"confidence"`
}

// Detect запускает внешний детектор; временный файл удаляется на любом пути выхода
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]entity.Region, error) {
	tmp, err := os.CreateTemp(d.scratchDir, "snapshot-*.jpg")
	if err != nil {
		return nil, errors.Wrapf(entity.ErrDetectionFailed, "create scratch image: %v", err)
	}
	path := tmp.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			d.logger.Warn("scratch image not removed", zap.String("path", path), zap.Error(err))
		}
	}()

	err = jpeg.Encode(tmp, img, &jpeg.Options{Quality: 95})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, errors.Wrapf(entity.ErrDetectionFailed, "write scratch image: %v", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.command, d.argsFor(path)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(entity.ErrDetectionFailed, "run %s: %v: %s", d.command, err, strings.TrimSpace(stderr.String()))
	}

	regions, err := ParseRows(stdout.Bytes())
	if err != nil {
		return nil, errors.Wrapf(entity.ErrDetectionFailed, "%v", err)
	}
	return regions, nil
}

func (d *Detector) argsFor(path string) []string {
	args := make([]string, 0, len(d.args)+1)
	replaced := false
	for _, a := range d.args {
		if strings.Contains(a, ImagePlaceholder) {
			a = strings.ReplaceAll(a, ImagePlaceholder, path)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, path)
	}
	return args
}

// ParseRows разбирает вывод детектора, сохраняя порядок строк.
// Координаты отбрасывают дробную часть, как int() при обрезке.
func ParseRows(data []byte) ([]entity.Region, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty detector output")
	}

	var rows []row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.Wrap(err, "decode detector output")
	}

	regions := make([]entity.Region, 0, len(rows))
	for _, r := range rows {
		regions = append(regions, entity.Region{
			Label:      r.Name,
			Confidence: r.Confidence,
			XMin:       int(math.Trunc(r.XMin)),
			YMin:       int(math.Trunc(r.YMin)),
			XMax:       int(math.Trunc(r.XMax)),
			YMax:       int(math.Trunc(r.YMax)),
		})
	}
	return regions, nil
}

var _ port.RegionDetector = (*Detector)(nil)
