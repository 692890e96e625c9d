package entity

import "errors"

var (
	// ErrEmptyRegion область после обрезки по кадру имеет нулевую площадь
	ErrEmptyRegion = errors.New("empty region")
	// ErrInvalidInput нарушено предусловие на границе (рамка, четырёхугольник)
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoText распознаватель не вернул текст
	ErrNoText = errors.New("no text recognized")
	// ErrStoreUnavailable история детекций недоступна
	ErrStoreUnavailable = errors.New("detection history unavailable")
)
