package vision

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

// Overlay рисует рамку и номер над ней на копии кадра
type Overlay struct {
	BoxColor  color.NRGBA
	TextColor color.NRGBA
	Thickness int
}

var _ port.FrameRenderer = (*Overlay)(nil)

// NewOverlay создаёт рендерер с зелёной рамкой толщиной 2px
func NewOverlay() *Overlay {
	return &Overlay{
		BoxColor:  color.NRGBA{G: 0xff, A: 0xff},
		TextColor: color.NRGBA{G: 0xff, A: 0xff},
		Thickness: 2,
	}
}

// Render возвращает новый кадр; исходный не изменяется
func (o *Overlay) Render(frame image.Image, annotations []entity.Annotation) image.Image {
	out := imaging.Clone(frame)
	origin := frame.Bounds().Min

	for _, a := range annotations {
		r := a.Box.Rect().Sub(origin).Intersect(out.Rect)
		if r.Empty() {
			continue
		}
		o.drawRect(out, r)

		d := &font.Drawer{
			Dst:  out,
			Src:  image.NewUniform(o.TextColor),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(r.Min.X, max(r.Min.Y-4, basicfont.Face7x13.Ascent)),
		}
		d.DrawString(a.Text)
	}
	return out
}

func (o *Overlay) drawRect(dst *image.NRGBA, r image.Rectangle) {
	src := image.NewUniform(o.BoxColor)
	t := max(o.Thickness, 1)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}
