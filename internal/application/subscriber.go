package app

import (
	"context"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

type SubscriberService struct {
	repo port.SubscriberRepository
}

func NewSubscriberService(repo port.SubscriberRepository) *SubscriberService {
	return &SubscriberService{repo: repo}
}

func (s *SubscriberService) Get(ctx context.Context, chatID int64) (*entity.Subscriber, error) {
	return s.repo.Get(ctx, chatID)
}

func (s *SubscriberService) SetState(ctx context.Context, chatID int64, state entity.SubscriberState) (*entity.Subscriber, error) {
	subscriber, err := s.repo.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}

	subscriber.SetState(state)
	if err := s.repo.Save(ctx, subscriber); err != nil {
		return nil, err
	}

	return subscriber, nil
}

func (s *SubscriberService) Subscribe(ctx context.Context, chatID int64) (*entity.Subscriber, error) {
	return s.SetState(ctx, chatID, entity.StateSubscribed)
}

func (s *SubscriberService) Unsubscribe(ctx context.Context, chatID int64) (*entity.Subscriber, error) {
	return s.SetState(ctx, chatID, entity.StateUnsubscribed)
}

func (s *SubscriberService) Active(ctx context.Context) ([]int64, error) {
	return s.repo.Active(ctx)
}
