package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	app "lpr-gate/internal/application"
	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

const (
	msgStart = `👋 Привет! Я присылаю номера машин, которые проехали через камеру.

📋 Команды:
/start — подписаться на уведомления
/stop — отписаться
/recent — последние номера
/help — справка`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ /start включает уведомления о новых номерах
2️⃣ Повтор одного номера в течение окна не присылается
3️⃣ Можно отправить фото машины, бот попробует прочитать номер

📋 Команды:
/recent — последние номера
/stop — отписаться`

	msgStopped         = "🔕 Уведомления отключены. /start чтобы включить снова."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgSendPhoto       = "📸 Отправьте фото машины или команду из /help."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgNoPlates        = "🔍 Номер на фото не найден."
	msgNoRecent        = "📭 Пока ни одного номера."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте другое фото."
	msgUnavailable     = "⚠️ История сейчас недоступна."

	recentLimit = 10
)

// botAPI часть tgbotapi.BotAPI, которой пользуется бот
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// FrameProcessor прогоняет кадр через детектор и конвейер (app.Runner)
type FrameProcessor interface {
	Step(ctx context.Context, frame entity.Frame) app.FrameResult
}

// Bot представляет Telegram-бота: подписки, /recent и рассылка принятых номеров
type Bot struct {
	api         botAPI
	token       string
	subscribers *app.SubscriberService
	history     port.DetectionHistory
	processor   FrameProcessor
	log         logrus.FieldLogger
}

var _ port.AdmissionNotifier = (*Bot)(nil)

// NewBot создаёт нового бота
func NewBot(token string, subscribers *app.SubscriberService, history port.DetectionHistory, log logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.WithField("account", api.Self.UserName).Info("telegram authorized")

	return newBot(api, token, subscribers, history, log), nil
}

func newBot(api botAPI, token string, subscribers *app.SubscriberService, history port.DetectionHistory, log logrus.FieldLogger) *Bot {
	return &Bot{
		api:         api,
		token:       token,
		subscribers: subscribers,
		history:     history,
		log:         log,
	}
}

// SetProcessor включает обработку присланных фото
func (b *Bot) SetProcessor(p FrameProcessor) {
	b.processor = p
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		if _, err := b.subscribers.Subscribe(ctx, chatID); err != nil {
			b.log.WithError(err).WithField("chat_id", chatID).Error("failed to subscribe")
		}
		b.sendMessage(chatID, msgStart)

	case "stop":
		if _, err := b.subscribers.Unsubscribe(ctx, chatID); err != nil {
			b.log.WithError(err).WithField("chat_id", chatID).Error("failed to unsubscribe")
		}
		b.sendMessage(chatID, msgStopped)

	case "recent":
		records, err := b.history.Recent(ctx, recentLimit)
		if err != nil {
			b.log.WithError(err).Warn("failed to load recent detections")
			b.sendMessage(chatID, msgUnavailable)
			return
		}
		b.sendMessage(chatID, formatRecent(records))

	case "help":
		b.sendMessage(chatID, msgHelp)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// handlePhoto прогоняет фото через конвейер как обычный кадр
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	if b.processor == nil {
		b.sendMessage(msg.Chat.ID, msgSendPhoto)
		return
	}

	b.sendMessage(msg.Chat.ID, msgProcessing)

	// Берём файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	data, err := b.downloadFile(ctx, photo.FileID)
	if err != nil {
		b.log.WithError(err).Warn("failed to download photo")
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		b.log.WithError(err).Warn("failed to decode photo")
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	result := b.processor.Step(ctx, entity.Frame{
		Image:      img,
		CapturedAt: msg.Time(),
		Source:     fmt.Sprintf("telegram:%d", msg.Chat.ID),
	})
	b.sendMessage(msg.Chat.ID, formatResult(result))
}

// NotifyAdmitted рассылает принятый номер всем подписанным чатам
func (b *Bot) NotifyAdmitted(ctx context.Context, record entity.DetectionRecord, annotated image.Image) error {
	chats, err := b.subscribers.Active(ctx)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		return nil
	}

	caption := fmt.Sprintf("🚗 %s\n🕒 %s", record.Plate, record.Timestamp.Format(time.DateTime))

	var photo []byte
	if annotated != nil {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, annotated, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
			b.log.WithError(err).Warn("failed to encode annotated frame")
		} else {
			photo = buf.Bytes()
		}
	}

	var firstErr error
	for _, chatID := range chats {
		var c tgbotapi.Chattable
		if photo != nil {
			p := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: record.Plate + ".jpg", Bytes: photo})
			p.Caption = caption
			c = p
		} else {
			c = tgbotapi.NewMessage(chatID, caption)
		}

		if _, err := b.api.Send(c); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("notify chat %d: %w", chatID, err)
		}
	}
	return firstErr
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.token), nil)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("failed to send message")
	}
}

func formatRecent(records []entity.DetectionRecord) string {
	if len(records) == 0 {
		return msgNoRecent
	}

	var sb strings.Builder
	sb.WriteString("📋 Последние номера:\n")
	for _, r := range records {
		fmt.Fprintf(&sb, "\n%s  %s", r.Timestamp.Format(time.DateTime), r.Plate)
	}
	return sb.String()
}

var outcomeText = map[entity.Reason]string{
	entity.ReasonDuplicate:        "🔁 %s: уже был недавно",
	entity.ReasonInvalidFormat:    "❔ %s: не похоже на номер",
	entity.ReasonStoreUnavailable: "⚠️ %s: история недоступна, не сохранён",
}

func formatResult(result app.FrameResult) string {
	var lines []string
	for _, o := range result.Outcomes {
		switch {
		case o.IsAdmitted():
			lines = append(lines, fmt.Sprintf("✅ %s: принят", o.Plate))
		case o.Status == entity.StatusRejected:
			if f, ok := outcomeText[o.Reason]; ok {
				lines = append(lines, fmt.Sprintf(f, o.Plate))
			}
		}
	}
	if len(lines) == 0 {
		return msgNoPlates
	}
	return strings.Join(lines, "\n")
}
