package vision

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"lpr-gate/internal/domain/entity"
)

// DefaultMarginPx отступ вокруг рамки детектора
const DefaultMarginPx = 5

// ExtractRegion вырезает рамку с отступом margin, обрезанную по границам кадра.
// Возвращает вырезку (с началом в 0,0) и смещение её левого верхнего угла в координатах кадра.
func ExtractRegion(frame image.Image, box entity.BoundingBox, margin int) (image.Image, image.Point, error) {
	if err := box.Validate(); err != nil {
		return nil, image.Point{}, err
	}
	if frame == nil {
		return nil, image.Point{}, fmt.Errorf("nil frame: %w", entity.ErrInvalidInput)
	}
	if margin < 0 {
		return nil, image.Point{}, fmt.Errorf("negative margin %d: %w", margin, entity.ErrInvalidInput)
	}

	r := box.Expand(margin, frame.Bounds())
	if r.Empty() {
		return nil, image.Point{}, fmt.Errorf("box (%d,%d)-(%d,%d) outside frame %v: %w",
			box.X1, box.Y1, box.X2, box.Y2, frame.Bounds(), entity.ErrEmptyRegion)
	}

	return imaging.Crop(frame, r), r.Min, nil
}
