package entity

import (
	"errors"
	"fmt"
)

// OutcomeStatus итог обработки одной рамки
type OutcomeStatus string

const (
	StatusAdmitted OutcomeStatus = "admitted" // номер принят и сохранён
	StatusRejected OutcomeStatus = "rejected" // номер прочитан, но отклонён
	StatusSkipped  OutcomeStatus = "skipped"  // рамка пропущена до распознавания
)

// Reason причина отказа или пропуска
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonEmptyRegion      Reason = "empty_region"
	ReasonNoText           Reason = "no_text"
	ReasonInvalidFormat    Reason = "invalid_format"
	ReasonDuplicate        Reason = "duplicate"
	ReasonStoreUnavailable Reason = "store_unavailable"
	ReasonInvalidInput     Reason = "invalid_input"
)

// Outcome результат ProcessRegion
type Outcome struct {
	Status OutcomeStatus
	Plate  string // канонический текст, если удалось прочитать
	Reason Reason
	Record *DetectionRecord // заполнен только при StatusAdmitted
}

// Admitted принятый номер
func Admitted(record DetectionRecord) Outcome {
	return Outcome{Status: StatusAdmitted, Plate: record.Plate, Record: &record}
}

// Rejected отклонённый номер
func Rejected(plate string, reason Reason) Outcome {
	return Outcome{Status: StatusRejected, Plate: plate, Reason: reason}
}

// Skipped пропущенная рамка
func Skipped(reason Reason) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

// IsAdmitted сокращение для проверки статуса
func (o Outcome) IsAdmitted() bool {
	return o.Status == StatusAdmitted
}

func (o Outcome) String() string {
	if o.Reason == ReasonNone {
		return fmt.Sprintf("%s(%s)", o.Status, o.Plate)
	}
	return fmt.Sprintf("%s(%s)", o.Status, o.Reason)
}

// ReasonFor сопоставляет ошибку конвейера с причиной пропуска
func ReasonFor(err error) Reason {
	switch {
	case errors.Is(err, ErrEmptyRegion):
		return ReasonEmptyRegion
	case errors.Is(err, ErrInvalidInput):
		return ReasonInvalidInput
	case errors.Is(err, ErrNoText):
		return ReasonNoText
	case errors.Is(err, ErrStoreUnavailable):
		return ReasonStoreUnavailable
	default:
		return ReasonInvalidInput
	}
}
