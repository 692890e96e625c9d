package entity

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Detection результат внешнего детектора объектов
type Detection struct {
	Box        BoundingBox
	Class      string
	Confidence float64
}

// DetectionRecord сохранённое распознавание номера.
// Создаётся только после свежего решения Admit, после создания не меняется.
type DetectionRecord struct {
	ID        string    `json:"id"`                  // ULID, упорядочен по времени
	Plate     string    `json:"plate"`               // канонический номер
	Timestamp time.Time `json:"timestamp"`           // момент захвата кадра
	ImageRef  string    `json:"image_ref,omitempty"` // ссылка на снимок, может быть пустой
}

// NewDetectionRecord создаёт запись с ULID, построенным из времени детекции.
// Время вне диапазона ULID прижимается к границе, Timestamp остаётся настоящим.
func NewDetectionRecord(plate string, ts time.Time) DetectionRecord {
	id, err := ulid.New(idTime(ts), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		id = ulid.Make()
	}
	return DetectionRecord{
		ID:        id.String(),
		Plate:     plate,
		Timestamp: ts.UTC(),
	}
}

// idTime миллисекунды для ULID: от 0 до ulid.MaxTime()
func idTime(ts time.Time) uint64 {
	if ts.Before(time.UnixMilli(0)) {
		return 0
	}
	if ms := ulid.Timestamp(ts); ms <= ulid.MaxTime() {
		return ms
	}
	return ulid.MaxTime()
}

// WithImageRef возвращает копию записи со ссылкой на снимок
func (r DetectionRecord) WithImageRef(ref string) DetectionRecord {
	r.ImageRef = ref
	return r
}
