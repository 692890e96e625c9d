package port

import (
	"context"

	"lpr-gate/internal/domain/entity"
)

// FrameSource источник кадров; io.EOF означает конец потока
type FrameSource interface {
	Next(ctx context.Context) (entity.Frame, error)
	Close() error
}
