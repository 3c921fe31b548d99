// internal/notify/telegram.go
package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxTelegramMessage = 4096

// TelegramNotifier mirrors session alerts to an operator chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) Notify(_ context.Context, ev *Event) error {
	return t.send(formatAlert(ev))
}

func formatAlert(ev *Event) string {
	s := ev.Session
	switch ev.Kind {
	case KindScamDetected:
		return fmt.Sprintf("*Scam detected*\nsession `%s` (%s, %s)\nconfidence %.2f, exposure %.2f, phase %s",
			s.Key, s.Persona, s.Channel, s.Confidence, s.ExposureRisk, s.Phase)
	case KindSessionBurned:
		return fmt.Sprintf("*Session burned*\nsession `%s` exposed at turn %d (risk %.2f)\n%d artifacts banked",
			s.Key, s.LastTurn, s.ExposureRisk, s.IntelligenceCount)
	case KindSessionEnded:
		return fmt.Sprintf("*Session ended*\nsession `%s` %s after %d turns\n%d artifacts, %d tactic events",
			s.Key, s.Status, s.LastTurn, s.IntelligenceCount, s.TacticCount)
	}
	return fmt.Sprintf("session %s: %s", s.Key, ev.Kind)
}

func (t *TelegramNotifier) send(text string) error {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := t.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := t.bot.Send(msg); err != nil {
				return fmt.Errorf("send alert: %w", err)
			}
		}
	}
	return nil
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
