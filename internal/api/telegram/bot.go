package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	app "plant-monitor/internal/application"
	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/worker"
)

const (
	msgStart = `👋 Привет! Я слежу за здоровьем растений.

🔔 Вы подписаны на уведомления: я напишу, когда камера заметит болезнь.

📋 Команды:
/scan <растение> <узел> — проверить одно растение
/sweep — проверить все растения
/status <растение> — последний статус
/stop — отписаться от уведомлений
/help — справка`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Камеры на узлах присылают снимки в базу
2️⃣ Каждые полчаса я проверяю все растения
3️⃣ Если найдена болезнь, подписчики получают уведомление с рекомендациями

📋 Команды:
/scan <растение> <узел> — проверить одно растение, например /scan plant1 JSON
/sweep — проверить все растения
/status <растение> — последний статус
/start — подписаться на уведомления
/stop — отписаться`

	msgStopped        = "🔕 Уведомления выключены. Отправьте /start, чтобы включить снова."
	msgScanUsage      = "✍️ Укажите растение и узел: /scan plant1 JSON"
	msgStatusUsage    = "✍️ Укажите растение: /status plant1"
	msgScanQueued     = "⏳ Проверяю растение %s..."
	msgSweepQueued    = "⏳ Запускаю проверку всех растений..."
	msgBusy           = "⚠️ Очередь проверок заполнена, попробуйте позже."
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
	msgPlantNotFound  = "🔍 Растение %s не найдено."
	msgStatusError    = "⚠️ Не удалось прочитать статус растения."
)

// sender часть tgbotapi.BotAPI, которой пользуется бот
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Tasks ставит сканирования в очередь воркера
type Tasks interface {
	EnqueueScan(source, plantID, sensorNode string) error
	EnqueueSweep(source string) error
}

// Plants читает записи растений
type Plants interface {
	Plant(ctx context.Context, plantID string) (entity.Plant, error)
}

// Diseases справочник болезней для уведомлений
type Diseases interface {
	Describe(ctx context.Context, label string) (entity.DiseaseInfo, bool)
}

// Bot представляет Telegram-бота
type Bot struct {
	api      *tgbotapi.BotAPI
	sender   sender
	users    *app.UserService
	tasks    Tasks
	plants   Plants
	diseases Diseases
	logger   *zap.Logger

	mu      sync.Mutex
	waiting map[string][]int64 // plantID → чаты, запросившие /scan
}

// NewBot создаёт нового бота
func NewBot(token string, users *app.UserService, tasks Tasks, plants Plants, diseases Diseases, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram auth")
	}

	b := newBot(api, users, tasks, plants, diseases, logger)
	b.api = api
	b.logger.Info("authorized on account", zap.String("account", api.Self.UserName))
	return b, nil
}

func newBot(s sender, users *app.UserService, tasks Tasks, plants Plants, diseases Diseases, logger *zap.Logger) *Bot {
	return &Bot{
		sender:   s,
		users:    users,
		tasks:    tasks,
		plants:   plants,
		diseases: diseases,
		logger:   logger.Named("telegram"),
		waiting:  make(map[string][]int64),
	}
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
	if msg.From == nil || msg.Chat == nil {
		return
	}

	if !msg.IsCommand() {
		b.sendMessage(msg.Chat.ID, msgHelp)
		return
	}

	b.handleCommand(ctx, msg)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		if _, err := b.users.Subscribe(ctx, msg.From.ID, chatID); err != nil {
			b.logger.Error("subscribe failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		}
		b.sendMessage(chatID, msgStart)

	case "stop":
		if _, err := b.users.Unsubscribe(ctx, msg.From.ID, chatID); err != nil {
			b.logger.Error("unsubscribe failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		}
		b.sendMessage(chatID, msgStopped)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "scan":
		if len(args) != 2 {
			b.sendMessage(chatID, msgScanUsage)
			return
		}
		plantID, node := args[0], args[1]
		b.await(plantID, chatID)
		if err := b.tasks.EnqueueScan(app.SourceTelegram, plantID, node); err != nil {
			b.forget(plantID, chatID)
			b.replyQueueError(chatID, err)
			return
		}
		b.sendMessage(chatID, fmt.Sprintf(msgScanQueued, plantID))

	case "sweep":
		if err := b.tasks.EnqueueSweep(app.SourceTelegram); err != nil {
			b.replyQueueError(chatID, err)
			return
		}
		b.sendMessage(chatID, msgSweepQueued)

	case "status":
		if len(args) != 1 {
			b.sendMessage(chatID, msgStatusUsage)
			return
		}
		b.handleStatus(ctx, chatID, args[0])

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64, plantID string) {
	plant, err := b.plants.Plant(ctx, plantID)
	if err != nil {
		if errors.Is(err, entity.ErrPlantNotFound) {
			b.sendMessage(chatID, fmt.Sprintf(msgPlantNotFound, plantID))
			return
		}
		b.logger.Warn("status lookup failed", zap.String("plant_id", plantID), zap.Error(err))
		b.sendMessage(chatID, msgStatusError)
		return
	}
	b.sendMessage(chatID, b.formatPlant(ctx, plant))
}

func (b *Bot) replyQueueError(chatID int64, err error) {
	if !errors.Is(err, worker.ErrQueueFull) {
		b.logger.Error("enqueue failed", zap.Error(err))
	}
	b.sendMessage(chatID, msgBusy)
}

// Notify отправляет результат тем, кто запросил /scan, и уведомляет подписчиков о болезни
func (b *Bot) Notify(ctx context.Context, result entity.ScanResult) error {
	recipients := make(map[int64]struct{})
	for _, chatID := range b.takeWaiting(result.PlantID) {
		recipients[chatID] = struct{}{}
	}

	if result.Alarming() {
		subscribers, err := b.users.Subscribers(ctx)
		if err != nil {
			return errors.Wrap(err, "list subscribers")
		}
		for _, chatID := range subscribers {
			recipients[chatID] = struct{}{}
		}
	}
	if len(recipients) == 0 {
		return nil
	}

	text := b.formatResult(ctx, result)
	var failed int
	for chatID := range recipients {
		if err := b.send(chatID, text); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d notifications failed", failed, len(recipients))
	}
	return nil
}

func (b *Bot) formatResult(ctx context.Context, r entity.ScanResult) string {
	var sb strings.Builder
	switch {
	case r.Alarming():
		fmt.Fprintf(&sb, "🚨 Растение %s (%s): %s", r.PlantID, r.SensorNode, r.Status)
		b.writeDiseaseInfo(ctx, &sb, r.Status)
	case r.Status == entity.StatusUnknown:
		fmt.Fprintf(&sb, "❔ Растение %s (%s): статус не определён (%s)", r.PlantID, r.SensorNode, r.Outcome.Kind)
	default:
		fmt.Fprintf(&sb, "✅ Растение %s (%s): %s", r.PlantID, r.SensorNode, r.Status)
	}
	return sb.String()
}

func (b *Bot) formatPlant(ctx context.Context, p entity.Plant) string {
	status := p.Status
	if status == "" {
		status = entity.StatusUnknown
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🌱 %s (%s): %s", p.ID, p.SensorNode, status)
	if !p.LastUpdated.IsZero() {
		sb.WriteString("\n🕒 " + p.LastUpdated.Format("2006-01-02 15:04:05"))
	}
	if diseased(status) {
		b.writeDiseaseInfo(ctx, &sb, status)
	}
	return sb.String()
}

// writeDiseaseInfo дописывает справку из plant_diseases, если она есть
func (b *Bot) writeDiseaseInfo(ctx context.Context, sb *strings.Builder, label string) {
	info, ok := b.diseases.Describe(ctx, label)
	if !ok {
		return
	}
	fmt.Fprintf(sb, "\n\n🦠 %s", info.KoreanName)
	if info.Symptoms != "" {
		fmt.Fprintf(sb, "\n\n📋 %s", info.Symptoms)
	}
	if info.Prescriptions != "" {
		fmt.Fprintf(sb, "\n\n💊 %s", info.Prescriptions)
	}
}

func diseased(status string) bool {
	switch status {
	case "", entity.StatusHealthy, entity.StatusUnknown, entity.DiseaseHealthy:
		return false
	}
	return true
}

func (b *Bot) await(plantID string, chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.waiting[plantID] = append(b.waiting[plantID], chatID)
}

func (b *Bot) forget(plantID string, chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	chats := b.waiting[plantID]
	for i, id := range chats {
		if id == chatID {
			b.waiting[plantID] = append(chats[:i], chats[i+1:]...)
			break
		}
	}
	if len(b.waiting[plantID]) == 0 {
		delete(b.waiting, plantID)
	}
}

func (b *Bot) takeWaiting(plantID string) []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	chats := b.waiting[plantID]
	delete(b.waiting, plantID)
	return chats
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	_ = b.send(chatID, text)
}

func (b *Bot) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Warn("error sending message", zap.Int64("chat_id", chatID), zap.Error(err))
		return err
	}
	return nil
}
