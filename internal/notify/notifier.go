package notify

import (
	"context"
	"fmt"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CloseReason — чем закрылся сигнал.
type CloseReason string

const (
	CloseTP CloseReason = "TP"
	CloseSL CloseReason = "SL"
	CloseBE CloseReason = "BE"
)

type Notifier interface {
	SendSignal(ctx context.Context, sig models.Signal) error
	SendClose(ctx context.Context, sig models.Signal, reason CloseReason, price float64) error
	SendService(ctx context.Context, format string, args ...any)
}

// FormatSignal собирает текст сигнала. Цены кликабельно-копируемые,
// поэтому шлём plain text без разметки.
func FormatSignal(sig models.Signal) string {
	return fmt.Sprintf(
		"🚀 %s SIGNAL - %s\n"+
			"========================\n\n"+
			"📍 Entry: %s\n"+
			"🛑 Stop Loss: %s\n"+
			"🎯 Take Profit: %s\n"+
			"📊 Risk/Reward: 1:%s\n"+
			"🔧 Strategy: %s\n\n"+
			"💡 Tap prices to copy",
		sig.Side, sig.InstID,
		helper.FormatPrice(sig.Entry),
		helper.FormatPrice(sig.Stop),
		helper.FormatPrice(sig.Take),
		helper.FormatRR(sig.RR),
		sig.Label(),
	)
}

func FormatClose(sig models.Signal, reason CloseReason, price float64) string {
	emoji := "⚖️"
	switch reason {
	case CloseTP:
		emoji = "✅"
	case CloseSL:
		emoji = "🛑"
	}
	return fmt.Sprintf(
		"%s %s %s HIT - %s\n"+
			"========================\n\n"+
			"💰 Exit Price: %s",
		emoji, sig.Side, reason, sig.InstID,
		helper.FormatPrice(price),
	)
}

// Telegram — основной нотификатор.
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

func (t *Telegram) SendSignal(_ context.Context, sig models.Signal) error {
	_, err := t.bot.Send(tgbot.NewMessage(t.chatID, FormatSignal(sig)))
	return err
}

func (t *Telegram) SendClose(_ context.Context, sig models.Signal, reason CloseReason, price float64) error {
	_, err := t.bot.Send(tgbot.NewMessage(t.chatID, FormatClose(sig, reason, price)))
	return err
}

func (t *Telegram) SendService(_ context.Context, format string, args ...any) {
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, fmt.Sprintf(format, args...))); err != nil {
		logger.Error("[NOTIFY] service message: %v", err)
	}
}

// Stdout — фолбэк без токена: всё уходит в лог.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) SendSignal(_ context.Context, sig models.Signal) error {
	logger.Info("[NOTIFY]\n%s", FormatSignal(sig))
	return nil
}

func (s *Stdout) SendClose(_ context.Context, sig models.Signal, reason CloseReason, price float64) error {
	logger.Info("[NOTIFY]\n%s", FormatClose(sig, reason, price))
	return nil
}

func (s *Stdout) SendService(_ context.Context, format string, args ...any) {
	logger.Info("[NOTIFY] "+format, args...)
}
