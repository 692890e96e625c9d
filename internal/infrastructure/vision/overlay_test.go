package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"lpr-gate/internal/domain/entity"
)

func TestOverlay_DrawsOnCopy(t *testing.T) {
	frame := solidFrame(200, 120, color.NRGBA{A: 255})
	o := NewOverlay()

	out := o.Render(frame, []entity.Annotation{{
		Box:  entity.BoundingBox{X1: 50, Y1: 40, X2: 150, Y2: 90},
		Text: "ABC4E67",
	}})

	require.Equal(t, frame.Bounds(), out.Bounds())
	require.Equal(t, color.NRGBA{A: 255}, frame.NRGBAAt(50, 40))

	r, g, b, _ := out.At(50, 40).RGBA()
	require.Zero(t, r)
	require.Equal(t, uint32(0xffff), g)
	require.Zero(t, b)

	r, g, _, _ = out.At(100, 65).RGBA()
	require.Zero(t, r)
	require.Zero(t, g)
}

func TestOverlay_SkipsBoxOutsideFrame(t *testing.T) {
	frame := solidFrame(20, 20, color.NRGBA{A: 255})
	out := NewOverlay().Render(frame, []entity.Annotation{{
		Box:  entity.BoundingBox{X1: 50, Y1: 50, X2: 60, Y2: 60},
		Text: "ABC1234",
	}})
	require.Equal(t, frame.Pix, out.(*image.NRGBA).Pix)
}
