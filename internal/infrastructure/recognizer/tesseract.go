//go:build tesseract
// +build tesseract

package recognizer

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

// Tesseract распознаёт одну строку номера через libtesseract.
// Клиент gosseract не потокобезопасен, вызовы сериализуются.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

var _ port.TextRecognizer = (*Tesseract)(nil)

// NewTesseract создаёт клиента с языком lang (обычно eng)
func NewTesseract(lang string) (*Tesseract, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract language %q: %w", lang, err)
	}
	if err := client.SetWhitelist(plateAlphabet); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract whitelist: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract page segmentation: %w", err)
	}
	return &Tesseract{client: client}, nil
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("tesseract set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", entity.ErrNoText
	}
	return text, nil
}

func (t *Tesseract) Close() error {
	return t.client.Close()
}
