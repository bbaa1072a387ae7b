// Package tensor готовит входы и разбирает выходы моделей без привязки к рантайму.
package tensor

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Layout порядок осей входного тензора
type Layout int

const (
	NHWC Layout = iota
	NCHW
)

// LayoutFromShape определяет порядок осей по форме входа модели.
// Форма [1,3,H,W] считается NCHW, всё остальное NHWC.
func LayoutFromShape(shape []int) Layout {
	if len(shape) == 4 && shape[1] == 3 && shape[3] != 3 {
		return NCHW
	}
	return NHWC
}

// SideFromShape возвращает сторону квадратного входа
func SideFromShape(shape []int) (int, error) {
	if len(shape) != 4 {
		return 0, errors.Errorf("unexpected input rank %d", len(shape))
	}
	h, w := shape[1], shape[2]
	if LayoutFromShape(shape) == NCHW {
		h, w = shape[2], shape[3]
	}
	if h != w || h <= 0 {
		return 0, errors.Errorf("input %dx%d is not square", w, h)
	}
	return h, nil
}

// Normalization поканальные среднее и отклонение, с которыми обучался классификатор
type Normalization struct {
	Mean [3]float32
	Std  [3]float32
}

// DefaultNormalization константы обучающей выборки классификатора болезней
var DefaultNormalization = Normalization{
	Mean: [3]float32{0.45596054, 0.4746459, 0.39278948},
	Std:  [3]float32{0.04770943, 0.05074333, 0.0420883},
}

// Identity оставляет значения в диапазоне 0..1
var Identity = Normalization{
	Mean: [3]float32{0, 0, 0},
	Std:  [3]float32{1, 1, 1},
}

// Validate проверяет, что делители не нулевые
func (n Normalization) Validate() error {
	for i, s := range n.Std {
		if s == 0 {
			return errors.Errorf("std[%d] is zero", i)
		}
	}
	return nil
}

// FromImage растягивает изображение до side×side и возвращает нормализованный
// тензор формы (1, side, side, 3) или (1, 3, side, side).
func FromImage(img image.Image, side int, norm Normalization, layout Layout) []float32 {
	resized := resize.Resize(uint(side), uint(side), img, resize.Bilinear)
	b := resized.Bounds()
	plane := side * side
	out := make([]float32, 3*plane)

	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			px := [3]float32{
				float32(r>>8) / 255.0,
				float32(g>>8) / 255.0,
				float32(bl>>8) / 255.0,
			}
			for c := 0; c < 3; c++ {
				v := (px[c] - norm.Mean[c]) / norm.Std[c]
				if layout == NCHW {
					out[c*plane+y*side+x] = v
				} else {
					out[(y*side+x)*3+c] = v
				}
			}
		}
	}
	return out
}
