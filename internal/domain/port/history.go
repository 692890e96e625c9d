package port

import (
	"context"
	"time"

	"lpr-gate/internal/domain/entity"
)

// DetectionHistory хранилище истории детекций
type DetectionHistory interface {
	// Exists проверяет, есть ли запись с таким номером и временем в [from, to] включительно
	Exists(ctx context.Context, plate string, from, to time.Time) (bool, error)

	// Insert добавляет запись (только дозапись)
	Insert(ctx context.Context, record entity.DetectionRecord) error

	// Recent возвращает последние записи, новые первыми
	Recent(ctx context.Context, limit int) ([]entity.DetectionRecord, error)
}
