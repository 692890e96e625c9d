package port

import (
	"context"
	"image"

	"lpr-gate/internal/domain/entity"
)

// PlateDetector внешний детектор объектов
type PlateDetector interface {
	// Detect возвращает все найденные рамки с классом и уверенностью
	Detect(ctx context.Context, frame image.Image) ([]entity.Detection, error)
}
