//go:build !gocv
// +build !gocv

package vision

import (
	"errors"
	"image"

	"lpr-gate/internal/domain/entity"
)

var errNoGoCV = errors.New("gocv build tag is not enabled")

type GoCV struct {
	MinAreaRatio float64
	Candidates   int
	Epsilon      float64
}

// NewGoCV возвращает ошибку, если сборка без тега gocv.
func NewGoCV() (*GoCV, error) {
	return nil, errNoGoCV
}

func (g *GoCV) Extract(frame image.Image, box entity.BoundingBox, margin int) (image.Image, image.Point, error) {
	_, _, _ = frame, box, margin
	return nil, image.Point{}, errNoGoCV
}

func (g *GoCV) Locate(crop image.Image) (entity.Quad, bool) {
	_ = crop
	return entity.Quad{}, false
}

func (g *GoCV) Rectify(src image.Image, quad entity.Quad) (image.Image, error) {
	_, _ = src, quad
	return nil, errNoGoCV
}

func (g *GoCV) Filter(img image.Image) (*image.Gray, error) {
	_ = img
	return nil, errNoGoCV
}

func (g *GoCV) Render(frame image.Image, annotations []entity.Annotation) image.Image {
	_ = annotations
	return frame
}
