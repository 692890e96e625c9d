package storage

import (
	"context"
	"sync"
	"time"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

// MemoryDetectionRepository in-memory история детекций.
// Записи по номеру хранятся в порядке вставки, Recent сортирует по времени.
type MemoryDetectionRepository struct {
	mu      sync.RWMutex
	byPlate map[string][]entity.DetectionRecord
	all     []entity.DetectionRecord
}

// NewMemoryDetectionRepository создаёт новое in-memory хранилище
func NewMemoryDetectionRepository() *MemoryDetectionRepository {
	return &MemoryDetectionRepository{
		byPlate: make(map[string][]entity.DetectionRecord),
	}
}

// Exists ищет запись номера в [from, to]
func (r *MemoryDetectionRepository) Exists(ctx context.Context, plate string, from, to time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.byPlate[plate] {
		if !rec.Timestamp.Before(from) && !rec.Timestamp.After(to) {
			return true, nil
		}
	}
	return false, nil
}

// Insert добавляет запись
func (r *MemoryDetectionRepository) Insert(ctx context.Context, record entity.DetectionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.byPlate[record.Plate] = append(r.byPlate[record.Plate], record)
	r.all = append(r.all, record)
	r.mu.Unlock()

	return nil
}

// Recent возвращает до limit последних записей, новые первыми
func (r *MemoryDetectionRepository) Recent(ctx context.Context, limit int) ([]entity.DetectionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.DetectionRecord, len(r.all))
	copy(out, r.all)
	sortNewestFirst(out)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count количество записей
func (r *MemoryDetectionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

// Проверка реализации интерфейса
var _ port.DetectionHistory = (*MemoryDetectionRepository)(nil)
