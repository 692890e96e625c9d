package port

import (
	"context"
	"image"
)

// TextRecognizer внешний OCR-движок
type TextRecognizer interface {
	// Recognize возвращает сырой текст или entity.ErrNoText, если текста нет
	Recognize(ctx context.Context, img image.Image) (string, error)
}
