package notify

import (
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ct_bot/pkg/logger"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Telegram — пассивный нотифайер: только исходящие сообщения о сделках
// и смене режима торговли.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Error("telegram send: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Log пишет уведомления в лог, когда Telegram не сконфигурирован.
type Log struct{}

func (Log) Send(msg string)                  { logger.Info("notify: %s", msg) }
func (Log) Sendf(format string, args ...any) { logger.Info("notify: "+format, args...) }

// New выбирает реализацию по наличию токена.
func New(token string, chatID int64) Notifier {
	if token == "" || chatID == 0 {
		return Log{}
	}
	t, err := NewTelegram(token, chatID)
	if err != nil {
		logger.Error("telegram init failed, falling back to log notifier: %v", err)
		return Log{}
	}
	return t
}
