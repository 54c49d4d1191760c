// Package notify pushes best-effort alerts to the firm's Telegram channel
// when a voicemail classifies as urgent.
package notify

import (
	"context"
	"fmt"
	"strings"

	"voxnow-backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier sends urgent-voicemail messages to one chat.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegramNotifier creates the notifier. Returns (nil, nil) when the bot
// token is empty so callers can treat notifications as optional.
func NewTelegramNotifier(botToken string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	if botToken == "" {
		logger.Info("Telegram notifier disabled (no bot token)")
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram notifier authorized", zap.String("username", api.Self.UserName))
	return &TelegramNotifier{api: api, chatID: chatID, logger: logger}, nil
}

// NotifyUrgent sends one message describing the urgent voicemail.
func (n *TelegramNotifier) NotifyUrgent(ctx context.Context, vm *models.Voicemail, labels map[models.Category]string) error {
	caller := "unknown caller"
	if vm.CallerNumber != nil && *vm.CallerNumber != "" {
		caller = *vm.CallerNumber
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 Urgent voicemail from %s\n", caller)
	fmt.Fprintf(&b, "Received: %s\n", vm.ReceivedAt.Format("02 Jan 2006 15:04"))
	fmt.Fprintf(&b, "Request: %s | Field: %s | Intent: %s\n",
		labels[models.CategoryRequest],
		labels[models.CategoryFieldOfLaw],
		labels[models.CategoryIntent])
	if s := vm.SummaryText(); s != "" {
		fmt.Fprintf(&b, "\n%s", s)
	}

	msg := tgbotapi.NewMessage(n.chatID, b.String())
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram notification: %w", err)
	}

	n.logger.Info("Urgent voicemail notification sent",
		zap.String("voicemail_id", vm.ID),
		zap.Int64("chat_id", n.chatID))
	return nil
}
