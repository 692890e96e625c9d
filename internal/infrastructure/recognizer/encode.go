// Package recognizer адаптеры OCR: локальный Tesseract и AWS Rekognition.
package recognizer

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// plateAlphabet символы, которые может вернуть распознаватель
const plateAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func encodePNG(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("encode: empty image")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}
