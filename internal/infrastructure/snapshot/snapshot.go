// Package snapshot хранилища снимков принятых номеров.
package snapshot

import (
	"bytes"
	"fmt"
	"image"
	"path"

	"github.com/disintegration/imaging"

	"lpr-gate/internal/domain/entity"
)

// objectName относительное имя снимка: дата/номер_id.jpg
func objectName(record entity.DetectionRecord) string {
	day := record.Timestamp.UTC().Format("2006-01-02")
	return path.Join(day, fmt.Sprintf("%s_%s.jpg", record.Plate, record.ID))
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
