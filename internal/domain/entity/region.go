package entity

import (
	"image"
	"strings"
)

// UnhealthyLabel метка детектора для области, которую нужно классифицировать
const UnhealthyLabel = "unhealthy"

// Region представляет область, найденную детектором
type Region struct {
	Label      string  // метка класса детектора
	Confidence float64 // уверенность модели
	XMin       int     // левая граница в пикселях исходного изображения
	YMin       int     // верхняя граница
	XMax       int     // правая граница
	YMax       int     // нижняя граница
}

// Rect возвращает область как image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.XMin, r.YMin, r.XMax, r.YMax)
}

// Degenerate сообщает, что у области нулевая или отрицательная площадь
func (r Region) Degenerate() bool {
	return r.XMax <= r.XMin || r.YMax <= r.YMin
}

// HasLabel сравнивает метку без учёта регистра
func (r Region) HasLabel(label string) bool {
	return strings.EqualFold(strings.TrimSpace(r.Label), label)
}

// FirstWithLabel возвращает первую область с меткой в порядке детектора.
func FirstWithLabel(regions []Region, label string) (Region, bool) {
	for _, r := range regions {
		if r.HasLabel(label) {
			return r, true
		}
	}
	return Region{}, false
}
