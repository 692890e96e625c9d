package entity

import (
	"image"
	"time"
)

// Frame кадр видеопотока. Принадлежит вызывающему на время одного вызова конвейера.
type Frame struct {
	Image      image.Image
	CapturedAt time.Time
	Source     string // имя файла или камеры, только для логов
}

// Annotation подпись распознанного номера для слоя отображения
type Annotation struct {
	Box  BoundingBox
	Text string
}
