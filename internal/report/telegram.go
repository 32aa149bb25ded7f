package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const alertQueueSize = 64

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts failures to an operator chat. Capture never blocks: alerts are queued and
// sent by Run, and dropped when the queue is full.
type Telegram struct {
	bot    messageSender
	chatID int64
	log    *slog.Logger
	queue  chan string
}

func NewTelegram(bot *tgbotapi.BotAPI, chatID int64, log *slog.Logger) *Telegram {
	return newTelegram(bot, chatID, log)
}

func newTelegram(bot messageSender, chatID int64, log *slog.Logger) *Telegram {
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		log:    log,
		queue:  make(chan string, alertQueueSize),
	}
}

func (t *Telegram) Capture(ctx context.Context, err error, attrs ...any) {
	if err == nil {
		return
	}
	select {
	case t.queue <- formatAlert(err, attrs):
	default:
		t.log.Warn("telegram alert dropped, queue full", "err", err)
	}
}

// Run sends queued alerts until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-t.queue:
			msg := tgbotapi.NewMessage(t.chatID, text)
			msg.DisableWebPagePreview = true
			if _, err := t.bot.Send(msg); err != nil {
				t.log.Error("failed to send telegram alert", "err", err)
			}
		}
	}
}

func formatAlert(err error, attrs []any) string {
	var b strings.Builder
	b.WriteString("⚠️ promoshot: ")
	b.WriteString(err.Error())
	for i := 0; i+1 < len(attrs); i += 2 {
		fmt.Fprintf(&b, "\n%v: %v", attrs[i], attrs[i+1])
	}
	return b.String()
}
