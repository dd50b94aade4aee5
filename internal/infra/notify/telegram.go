package notify

import (
	"context"
	"fmt"

	"elbp_record_service/internal/domain/notify"

	"gopkg.in/telebot.v3"
)

// TelegramNotifier posts notifications to a fixed ops chat using
// gopkg.in/telebot.v3. Useful as a lightweight alerts channel for staff.
type TelegramNotifier struct {
	bot    *telebot.Bot
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := telebot.NewBot(telebot.Settings{Token: token, Offline: false})
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) Trigger(_ context.Context, ev notify.Event) error {
	text := ev.Subject + "\n\n" + ev.PlainBody
	recipient := &telebot.Chat{ID: n.chatID}
	if _, err := n.bot.Send(recipient, text, &telebot.SendOptions{}); err != nil {
		return fmt.Errorf("failed to send Telegram notification: %w", err)
	}
	return nil
}
