package recognizer

import (
	"context"
	"fmt"
	"image"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

// TextDetectAPI часть клиента Rekognition, которая нужна адаптеру
type TextDetectAPI interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Rekognition облачный OCR: берёт строку текста с наибольшей уверенностью
type Rekognition struct {
	client        TextDetectAPI
	minConfidence float32
}

var _ port.TextRecognizer = (*Rekognition)(nil)

// NewRekognition minConfidence в процентах (0..100), как отдаёт Rekognition
func NewRekognition(client TextDetectAPI, minConfidence float32) *Rekognition {
	return &Rekognition{client: client, minConfidence: minConfidence}
}

func (r *Rekognition) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	out, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: data},
	})
	if err != nil {
		return "", fmt.Errorf("rekognition: %w", err)
	}

	var (
		best       string
		confidence float32
	)
	for _, d := range out.TextDetections {
		if d.Type != types.TextTypesLine || d.DetectedText == nil {
			continue
		}
		c := aws.ToFloat32(d.Confidence)
		if c < r.minConfidence || c <= confidence {
			continue
		}
		best, confidence = *d.DetectedText, c
	}

	if best == "" {
		return "", entity.ErrNoText
	}
	return best, nil
}
