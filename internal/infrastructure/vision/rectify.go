package vision

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"lpr-gate/internal/domain/entity"
)

// Rectify выпрямляет четырёхугольник quad (координаты src) в прямоугольник W x H.
// W и H берутся как максимумы противоположных сторон, углы переходят в
// (0,0), (W-1,0), (W-1,H-1), (0,H-1). Пиксели за пределами src чёрные.
func Rectify(src image.Image, quad entity.Quad) (*image.NRGBA, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("rectify: %w", entity.ErrEmptyRegion)
	}

	w, h := quad.Size()
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("rectify: target %dx%d: %w", w, h, entity.ErrEmptyRegion)
	}

	target := [4]entity.Point{
		{X: 0, Y: 0},
		{X: float64(w - 1), Y: 0},
		{X: float64(w - 1), Y: float64(h - 1)},
		{X: 0, Y: float64(h - 1)},
	}
	// обратное отображение: для каждого пикселя результата ищем точку в src
	m, err := newHomography(target, quad)
	if err != nil {
		return nil, fmt.Errorf("rectify: %v: %w", err, entity.ErrInvalidInput)
	}

	origin := src.Bounds().Min
	pix := imaging.Clone(src)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy, ok := m.apply(float64(x), float64(y))
			if !ok {
				out.SetNRGBA(x, y, opaqueBlack)
				continue
			}
			out.SetNRGBA(x, y, bilinear(pix, sx-float64(origin.X), sy-float64(origin.Y)))
		}
	}
	return out, nil
}

var opaqueBlack = color.NRGBA{A: 0xff}

func bilinear(img *image.NRGBA, x, y float64) color.NRGBA {
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	c00 := at(img, ix, iy)
	c10 := at(img, ix+1, iy)
	c01 := at(img, ix, iy+1)
	c11 := at(img, ix+1, iy+1)

	mix := func(a, b, c, d uint8) uint8 {
		top := float64(a)*(1-fx) + float64(b)*fx
		bottom := float64(c)*(1-fx) + float64(d)*fx
		v := top*(1-fy) + bottom*fy
		return uint8(math.Min(255, math.Max(0, math.Round(v))))
	}
	return color.NRGBA{
		R: mix(c00.R, c10.R, c01.R, c11.R),
		G: mix(c00.G, c10.G, c01.G, c11.G),
		B: mix(c00.B, c10.B, c01.B, c11.B),
		A: mix(c00.A, c10.A, c01.A, c11.A),
	}
}

func at(img *image.NRGBA, x, y int) color.NRGBA {
	if x < 0 || y < 0 || x >= img.Rect.Dx() || y >= img.Rect.Dy() {
		return opaqueBlack
	}
	i := y*img.Stride + x*4
	return color.NRGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: img.Pix[i+3]}
}
