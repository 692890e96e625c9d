package storage

import (
	"context"
	"sort"
	"sync"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

// MemorySubscriberRepository in-memory хранилище подписчиков
type MemorySubscriberRepository struct {
	mu          sync.RWMutex
	subscribers map[int64]*entity.Subscriber
}

// NewMemorySubscriberRepository создаёт хранилище; chatIDs сразу подписаны
func NewMemorySubscriberRepository(chatIDs ...int64) *MemorySubscriberRepository {
	r := &MemorySubscriberRepository{
		subscribers: make(map[int64]*entity.Subscriber),
	}
	for _, id := range chatIDs {
		s := entity.NewSubscriber(id)
		s.SetState(entity.StateSubscribed)
		r.subscribers[id] = s
	}
	return r
}

// Get возвращает подписчика по ID чата, создаёт нового если не найден
func (r *MemorySubscriberRepository) Get(ctx context.Context, chatID int64) (*entity.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, exists := r.subscribers[chatID]; exists {
		copied := *s
		return &copied, nil
	}

	s := entity.NewSubscriber(chatID)
	r.subscribers[chatID] = s
	copied := *s
	return &copied, nil
}

// Save сохраняет состояние подписчика
func (r *MemorySubscriberRepository) Save(ctx context.Context, subscriber *entity.Subscriber) error {
	copied := *subscriber

	r.mu.Lock()
	r.subscribers[subscriber.ChatID] = &copied
	r.mu.Unlock()

	return nil
}

// Active возвращает подписанные чаты по возрастанию ID
func (r *MemorySubscriberRepository) Active(ctx context.Context) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.subscribers))
	for id, s := range r.subscribers {
		if s.Active() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Проверка реализации интерфейса
var _ port.SubscriberRepository = (*MemorySubscriberRepository)(nil)
