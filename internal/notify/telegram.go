package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// ChatResolver находит Telegram чат пользователя
type ChatResolver interface {
	TelegramChatID(ctx context.Context, userID string) (int64, bool)
}

// TelegramNotifier отправляет уведомления в Telegram
type TelegramNotifier struct {
	bot    *bot.Bot
	chats  ChatResolver
	logger *zap.Logger
}

// NewTelegramBot создаёт клиента Bot API
func NewTelegramBot(token string, opts ...bot.Option) (*bot.Bot, error) {
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return b, nil
}

func NewTelegramNotifier(b *bot.Bot, chats ChatResolver, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: b, chats: chats, logger: logger}
}

// Notify отправляет сообщение каждому получателю с привязанным чатом.
// Получатели без чата пропускаются.
func (n *TelegramNotifier) Notify(ctx context.Context, event Event) error {
	text := event.Text()

	var errs []error
	for _, userID := range event.RecipientIDs {
		chatID, ok := n.chats.TelegramChatID(ctx, userID)
		if !ok {
			n.logger.Debug("Recipient has no telegram chat", zap.String("user_id", userID))
			continue
		}

		_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   text,
		})
		if err != nil {
			n.logger.Error("Failed to send notification",
				zap.String("user_id", userID),
				zap.Int64("chat_id", chatID),
				zap.String("kind", string(event.Kind)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("send to %s: %w", userID, err))
		}
	}

	return errors.Join(errs...)
}
