package entity

// SubscriberState состояние подписки чата на уведомления
type SubscriberState string

const (
	StateSubscribed   SubscriberState = "subscribed"   // получает уведомления о новых номерах
	StateUnsubscribed SubscriberState = "unsubscribed" // уведомления отключены
)

// Subscriber чат, получающий уведомления о принятых номерах
type Subscriber struct {
	ChatID int64           // Telegram Chat ID
	State  SubscriberState // Текущее состояние подписки
}

// NewSubscriber создаёт подписчика с начальным состоянием
func NewSubscriber(chatID int64) *Subscriber {
	return &Subscriber{
		ChatID: chatID,
		State:  StateUnsubscribed,
	}
}

// SetState обновляет состояние подписки
func (s *Subscriber) SetState(state SubscriberState) {
	s.State = state
}

// Active возвращает true, если чат должен получать уведомления
func (s *Subscriber) Active() bool {
	return s.State == StateSubscribed
}
