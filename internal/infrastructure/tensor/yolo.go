package tensor

import (
	"math"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"plant-monitor/internal/domain/entity"
)

// YOLOOptions параметры постобработки выхода YOLOv5 вида [1, N, 5+классы].
// Значения по умолчанию совпадают с теми, что применяет hub-модель.
type YOLOOptions struct {
	Labels        []string
	InputSize     int     // сторона входа модели
	ConfThreshold float64 // 0.25
	IoUThreshold  float64 // 0.45
	MaxDetections int     // 1000
	Normalized    bool    // координаты в долях входа (экспорт TFLite), иначе в пикселях входа
}

// DefaultYOLOOptions настройки YOLOv5 AutoShape
func DefaultYOLOOptions(labels []string, inputSize int) YOLOOptions {
	return YOLOOptions{
		Labels:        labels,
		InputSize:     inputSize,
		ConfThreshold: 0.25,
		IoUThreshold:  0.45,
		MaxDetections: 1000,
	}
}

type candidate struct {
	box   [4]float64 // xmin, ymin, xmax, ymax в пикселях исходника
	conf  float64
	class int
}

// DecodeYOLO переводит сырой выход в области исходного изображения
// с порогом уверенности и NMS по классам. Результат отсортирован по уверенности.
func DecodeYOLO(out []float32, rows, cols int, opts YOLOOptions, origW, origH int) ([]entity.Region, error) {
	if cols < 6 {
		return nil, errors.Errorf("yolo row width %d, want at least 6", cols)
	}
	if len(out) < rows*cols {
		return nil, errors.Errorf("yolo output has %d values, want %d", len(out), rows*cols)
	}
	if opts.InputSize <= 0 {
		return nil, errors.New("yolo input size is not set")
	}

	scaleX := float64(origW) / float64(opts.InputSize)
	scaleY := float64(origH) / float64(opts.InputSize)
	if opts.Normalized {
		scaleX, scaleY = float64(origW), float64(origH)
	}

	var cands []candidate
	for i := 0; i < rows; i++ {
		row := out[i*cols : (i+1)*cols]
		obj := float64(row[4])
		if obj < opts.ConfThreshold {
			continue
		}

		class, best := 0, float64(row[5])
		for c := 6; c < cols; c++ {
			if float64(row[c]) > best {
				class, best = c-5, float64(row[c])
			}
		}
		conf := obj * best
		if conf < opts.ConfThreshold {
			continue
		}

		cx, cy, w, h := float64(row[0]), float64(row[1]), float64(row[2]), float64(row[3])
		cands = append(cands, candidate{
			box: [4]float64{
				clamp((cx-w/2)*scaleX, 0, float64(origW)),
				clamp((cy-h/2)*scaleY, 0, float64(origH)),
				clamp((cx+w/2)*scaleX, 0, float64(origW)),
				clamp((cy+h/2)*scaleY, 0, float64(origH)),
			},
			conf:  conf,
			class: class,
		})
	}

	kept := nms(cands, opts.IoUThreshold, opts.MaxDetections)

	regions := make([]entity.Region, 0, len(kept))
	for _, c := range kept {
		regions = append(regions, entity.Region{
			Label:      labelFor(opts.Labels, c.class),
			Confidence: c.conf,
			XMin:       int(c.box[0]),
			YMin:       int(c.box[1]),
			XMax:       int(c.box[2]),
			YMax:       int(c.box[3]),
		})
	}
	return regions, nil
}

// nms жадное подавление внутри каждого класса
func nms(cands []candidate, iouThreshold float64, maxDet int) []candidate {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].conf > cands[j].conf })

	var kept []candidate
	for _, c := range cands {
		suppressed := false
		for _, k := range kept {
			if k.class == c.class && iou(k.box, c.box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if suppressed {
			continue
		}
		kept = append(kept, c)
		if maxDet > 0 && len(kept) >= maxDet {
			break
		}
	}
	return kept
}

func iou(a, b [4]float64) float64 {
	ix := math.Max(0, math.Min(a[2], b[2])-math.Max(a[0], b[0]))
	iy := math.Max(0, math.Min(a[3], b[3])-math.Max(a[1], b[1]))
	inter := ix * iy
	union := (a[2]-a[0])*(a[3]-a[1]) + (b[2]-b[0])*(b[3]-b[1]) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func labelFor(labels []string, class int) string {
	if class >= 0 && class < len(labels) {
		return labels[class]
	}
	return "class_" + strconv.Itoa(class)
}
