package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"lpr-gate/internal/domain/entity"
)

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

var white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

func TestCornerLocator_FindsPlateRectangle(t *testing.T) {
	crop := solidFrame(60, 40, color.NRGBA{A: 255})
	fill(crop, image.Rect(10, 8, 50, 32), white)

	q, ok := NewCornerLocator().Locate(crop)
	require.True(t, ok)

	want := entity.Quad{{X: 10, Y: 8}, {X: 49, Y: 8}, {X: 49, Y: 31}, {X: 10, Y: 31}}
	for i := range want {
		require.InDelta(t, want[i].X, q[i].X, 2, "corner %d", i)
		require.InDelta(t, want[i].Y, q[i].Y, 2, "corner %d", i)
	}
}

func TestCornerLocator_BlankCrop(t *testing.T) {
	_, ok := NewCornerLocator().Locate(solidFrame(60, 40, color.NRGBA{R: 90, G: 90, B: 90, A: 255}))
	require.False(t, ok)
}

func TestCornerLocator_RejectsRoundShape(t *testing.T) {
	crop := solidFrame(60, 40, color.NRGBA{A: 255})
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			dx, dy := x-30, y-20
			if dx*dx+dy*dy <= 15*15 {
				crop.SetNRGBA(x, y, white)
			}
		}
	}

	_, ok := NewCornerLocator().Locate(crop)
	require.False(t, ok)
}

func TestCornerLocator_RejectsSmallComponent(t *testing.T) {
	crop := solidFrame(60, 40, color.NRGBA{A: 255})
	fill(crop, image.Rect(20, 20, 24, 24), white)

	_, ok := NewCornerLocator().Locate(crop)
	require.False(t, ok)
}

func TestOtsuThreshold_SplitsTwoLevels(t *testing.T) {
	lum := []uint8{10, 10, 10, 200, 200}
	th, ok := otsuThreshold(lum)
	require.True(t, ok)
	require.GreaterOrEqual(t, th, uint8(10))
	require.Less(t, th, uint8(200))

	_, ok = otsuThreshold([]uint8{5, 5, 5})
	require.False(t, ok)
}
