package port

import (
	"context"

	"lpr-gate/internal/domain/entity"
)

// SubscriberRepository интерфейс хранилища подписчиков
type SubscriberRepository interface {
	// Get возвращает подписчика по ID чата, создаёт нового если не найден
	Get(ctx context.Context, chatID int64) (*entity.Subscriber, error)

	// Save сохраняет состояние подписчика
	Save(ctx context.Context, subscriber *entity.Subscriber) error

	// Active возвращает чаты с включённой подпиской
	Active(ctx context.Context) ([]int64, error)
}
