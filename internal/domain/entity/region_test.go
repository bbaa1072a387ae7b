package entity

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegionRect(t *testing.T) {
	r := Region{XMin: 10, YMin: 20, XMax: 50, YMax: 60}
	require.Equal(t, image.Rect(10, 20, 50, 60), r.Rect())
	require.False(t, r.Degenerate())
}

func TestRegionDegenerate(t *testing.T) {
	require.True(t, Region{XMin: 10, YMin: 10, XMax: 10, YMax: 40}.Degenerate())
	require.True(t, Region{XMin: 10, YMin: 40, XMax: 30, YMax: 20}.Degenerate())
}

func TestFirstWithLabel_KeepsDetectorOrder(t *testing.T) {
	regions := []Region{
		{Label: "healthy", Confidence: 0.99},
		{Label: "Unhealthy", Confidence: 0.40, XMax: 1},
		{Label: "UNHEALTHY", Confidence: 0.95, XMax: 2},
	}

	r, ok := FirstWithLabel(regions, UnhealthyLabel)
	require.True(t, ok)
	require.Equal(t, 1, r.XMax)
}

func TestFirstWithLabel_None(t *testing.T) {
	_, ok := FirstWithLabel([]Region{{Label: "healthy"}}, UnhealthyLabel)
	require.False(t, ok)

	_, ok = FirstWithLabel(nil, UnhealthyLabel)
	require.False(t, ok)
}
