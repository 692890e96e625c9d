//go:build !tesseract
// +build !tesseract

package recognizer

import (
	"context"
	"errors"
	"image"
)

var errNoTesseract = errors.New("tesseract build tag is not enabled")

type Tesseract struct{}

// NewTesseract возвращает ошибку, если сборка без тега tesseract.
func NewTesseract(lang string) (*Tesseract, error) {
	_ = lang
	return nil, errNoTesseract
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	_, _ = ctx, img
	return "", errNoTesseract
}

func (t *Tesseract) Close() error {
	return nil
}
