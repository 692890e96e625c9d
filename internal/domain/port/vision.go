package port

import (
	"image"

	"lpr-gate/internal/domain/entity"
)

// PlateVision геометрическая и фотометрическая подготовка номера к OCR
type PlateVision interface {
	// Extract вырезает рамку с отступом margin; возвращает вырезку и её смещение в кадре
	Extract(frame image.Image, box entity.BoundingBox, margin int) (image.Image, image.Point, error)

	// Locate ищет контур номера в вырезке; false, если не найден
	Locate(crop image.Image) (entity.Quad, bool)

	// Rectify выпрямляет четырёхугольник в прямоугольник
	Rectify(src image.Image, quad entity.Quad) (image.Image, error)

	// Filter переводит изображение в яркость и выравнивает гистограмму
	Filter(img image.Image) (*image.Gray, error)
}

// FrameRenderer рисует аннотации поверх копии кадра
type FrameRenderer interface {
	Render(frame image.Image, annotations []entity.Annotation) image.Image
}
