package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const MaxMessageLen = 4096

// Sender is the part of *bot.Bot used for alerts.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// sendMarkdown sends params as Markdown and falls back to plain text if
// Telegram rejects the formatting.
func sendMarkdown(ctx context.Context, s Sender, params *bot.SendMessageParams) error {
	params.Text = truncate(params.Text)
	params.ParseMode = models.ParseModeMarkdownV1

	if _, err := s.SendMessage(ctx, params); err != nil {
		slog.Warn("markdown send failed, falling back to plain text", "error", err)
		params.ParseMode = ""
		if _, err := s.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxMessageLen {
		return text
	}
	return string(runes[:MaxMessageLen-20]) + "\n\n... (truncated)"
}
