package port

import (
	"context"
	"image"

	"lpr-gate/internal/domain/entity"
)

// AdmissionNotifier получает принятые номера (слой отображения/уведомлений)
type AdmissionNotifier interface {
	NotifyAdmitted(ctx context.Context, record entity.DetectionRecord, annotated image.Image) error
}

// SnapshotStore сохраняет снимок номера и возвращает ссылку на него
type SnapshotStore interface {
	Save(ctx context.Context, record entity.DetectionRecord, img image.Image) (string, error)

	// Delete удаляет снимок по ссылке, которую вернул Save
	Delete(ctx context.Context, ref string) error
}
