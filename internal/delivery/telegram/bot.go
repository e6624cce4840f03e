package telegram

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

const queueSize = 64

// Bot posts tournament announcements to a fixed set of Telegram chats.
// Messages are queued by the engine callbacks and sent from Run.
type Bot struct {
	api     sender
	chatIDs []int64
	logger  Logger

	queue    chan string
	done     chan struct{}
	stopOnce sync.Once
}

func NewBot(token string, chatIDs []int64, logger Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logger.Info("Telegram bot authorized on account %s", api.Self.UserName)
	return newBot(api, chatIDs, logger), nil
}

func newBot(api sender, chatIDs []int64, logger Logger) *Bot {
	return &Bot{
		api:     api,
		chatIDs: chatIDs,
		logger:  logger,
		queue:   make(chan string, queueSize),
		done:    make(chan struct{}),
	}
}

func (b *Bot) Init() error {
	if len(b.chatIDs) == 0 {
		b.logger.Warn("telegram: no chats configured, announcements are dropped")
	}
	return nil
}

func (b *Bot) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.done:
			return nil
		case text := <-b.queue:
			b.broadcast(text)
		}
	}
}

func (b *Bot) Stop() {
	b.stopOnce.Do(func() { close(b.done) })
}

// enqueue never blocks the caller; a full queue drops the announcement.
func (b *Bot) enqueue(text string) {
	if len(b.chatIDs) == 0 || text == "" {
		return
	}
	select {
	case b.queue <- text:
	default:
		b.logger.Warn("telegram: queue full, dropping announcement")
	}
}

func (b *Bot) broadcast(text string) {
	for _, chatID := range b.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("telegram: failed to send to %d: %v", chatID, err)
		}
	}
}
