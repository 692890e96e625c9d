// Package vision содержит геометрическую и фотометрическую подготовку номера к OCR.
// Native работает на чистом Go (imaging), GoCV на OpenCV и собирается с тегом gocv.
package vision

import (
	"image"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

// Native реализация port.PlateVision без cgo
type Native struct {
	locator *CornerLocator
}

var _ port.PlateVision = (*Native)(nil)

// NewNative создаёт back-end с локатором по умолчанию
func NewNative() *Native {
	return &Native{locator: NewCornerLocator()}
}

func (n *Native) Extract(frame image.Image, box entity.BoundingBox, margin int) (image.Image, image.Point, error) {
	return ExtractRegion(frame, box, margin)
}

func (n *Native) Locate(crop image.Image) (entity.Quad, bool) {
	return n.locator.Locate(crop)
}

func (n *Native) Rectify(src image.Image, quad entity.Quad) (image.Image, error) {
	out, err := Rectify(src, quad)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (n *Native) Filter(img image.Image) (*image.Gray, error) {
	return Equalize(img)
}
