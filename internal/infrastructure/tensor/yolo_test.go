package tensor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var leafLabels = []string{"healthy", "unhealthy"}

func row(cx, cy, w, h, obj, healthy, unhealthy float32) []float32 {
	return []float32{cx, cy, w, h, obj, healthy, unhealthy}
}

func TestDecodeYOLO_PixelCoordinates(t *testing.T) {
	var out []float32
	out = append(out, row(30, 30, 40, 40, 0.9, 0.1, 1.0)...)
	out = append(out, row(100, 100, 20, 20, 0.1, 1.0, 0.0)...) // ниже порога

	opts := DefaultYOLOOptions(leafLabels, 640)
	regions, err := DecodeYOLO(out, 2, 7, opts, 640, 640)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	require.Equal(t, "unhealthy", regions[0].Label)
	require.Equal(t, 10, regions[0].XMin)
	require.Equal(t, 10, regions[0].YMin)
	require.Equal(t, 50, regions[0].XMax)
	require.Equal(t, 50, regions[0].YMax)
	require.InDelta(t, 0.9, regions[0].Confidence, 1e-6)
}

func TestDecodeYOLO_NormalizedScalesToSource(t *testing.T) {
	out := row(0.5, 0.5, 0.5, 0.5, 1, 0, 1)
	opts := DefaultYOLOOptions(leafLabels, 640)
	opts.Normalized = true

	regions, err := DecodeYOLO(out, 1, 7, opts, 200, 100)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	require.Equal(t, 50, regions[0].XMin)
	require.Equal(t, 25, regions[0].YMin)
	require.Equal(t, 150, regions[0].XMax)
	require.Equal(t, 75, regions[0].YMax)
}

func TestDecodeYOLO_NMSPerClassSortedByConfidence(t *testing.T) {
	var out []float32
	out = append(out, row(50, 50, 40, 40, 0.6, 0, 1)...)  // unhealthy 0.6
	out = append(out, row(52, 52, 40, 40, 0.8, 0, 1)...)  // unhealthy 0.8, перекрывает первую
	out = append(out, row(50, 50, 40, 40, 0.7, 1, 0)...)  // healthy, другой класс
	out = append(out, row(300, 300, 40, 40, 0.5, 0, 1)...) // unhealthy, не пересекается

	regions, err := DecodeYOLO(out, 4, 7, DefaultYOLOOptions(leafLabels, 640), 640, 640)
	require.NoError(t, err)
	require.Len(t, regions, 3)
	require.InDelta(t, 0.8, regions[0].Confidence, 1e-6)
	require.Equal(t, "healthy", regions[1].Label)
	require.InDelta(t, 0.5, regions[2].Confidence, 1e-6)
}

func TestDecodeYOLO_ClampsAndUnknownLabel(t *testing.T) {
	out := []float32{5, 5, 20, 20, 1, 0, 0, 1}
	regions, err := DecodeYOLO(out, 1, 8, DefaultYOLOOptions(leafLabels, 100), 100, 100)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	require.Equal(t, 0, regions[0].XMin)
	require.Equal(t, 0, regions[0].YMin)
	require.Equal(t, "class_2", regions[0].Label)
}

func TestDecodeYOLO_BadShape(t *testing.T) {
	_, err := DecodeYOLO([]float32{1, 2, 3}, 1, 3, DefaultYOLOOptions(nil, 640), 10, 10)
	require.Error(t, err)

	_, err = DecodeYOLO([]float32{1, 2, 3, 4, 5, 6}, 2, 6, DefaultYOLOOptions(nil, 640), 10, 10)
	require.Error(t, err)

	_, err = DecodeYOLO(make([]float32, 6), 1, 6, YOLOOptions{}, 10, 10)
	require.Error(t, err)
}
