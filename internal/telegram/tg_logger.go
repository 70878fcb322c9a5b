package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/invoicing/internal/config"
	"github.com/set-night/invoicing/internal/domain"
)

// AlertTopics maps alert types onto forum threads of the alert chat. A zero
// topic turns that alert type off.
type AlertTopics struct {
	Error         int
	Settled       int
	Annulled      int
	MirrorFailure int
}

// AlertLogger posts settlement events to a Telegram ops chat.
type AlertLogger struct {
	sender Sender
	chatID int64
	topics AlertTopics
}

func NewAlertLogger(sender Sender, chatID int64, topics AlertTopics) *AlertLogger {
	return &AlertLogger{sender: sender, chatID: chatID, topics: topics}
}

func NewAlertLoggerFromConfig(sender Sender, cfg *config.Config) *AlertLogger {
	return NewAlertLogger(sender, cfg.AlertChatID, AlertTopics{
		Error:         cfg.AlertTopicError,
		Settled:       cfg.AlertTopicSettled,
		Annulled:      cfg.AlertTopicAnnulled,
		MirrorFailure: cfg.AlertTopicMirror,
	})
}

type LogType string

const (
	LogTypeError         LogType = "error"
	LogTypeSettled       LogType = "settled"
	LogTypeAnnulled      LogType = "annulled"
	LogTypeMirrorFailure LogType = "mirrorFailure"
)

func (l *AlertLogger) Log(logType LogType, message string) {
	if l.chatID == 0 {
		return
	}

	topicID := l.topicID(logType)
	if topicID == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.AlertTimeout)
	defer cancel()

	err := sendMarkdown(ctx, l.sender, &bot.SendMessageParams{
		ChatID:          l.chatID,
		Text:            message,
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram alert", "type", logType, "error", err)
	}
}

func (l *AlertLogger) LogError(err error, context string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		context, err.Error(), time.Now().Format(time.DateTime))
	l.Log(LogTypeError, msg)
}

func (l *AlertLogger) MirrorFailed(orderID int64, verb domain.OrderStatusVerb, err error) {
	msg := fmt.Sprintf("⚠️ *Order Status Not Mirrored*\n\n*Order:* `%d`\n*Status:* %s\n*Error:* `%s`",
		orderID, verb, err.Error())
	l.Log(LogTypeMirrorFailure, msg)
}

func (l *AlertLogger) InvoiceSettled(inv *domain.Invoice) {
	msg := fmt.Sprintf("🧾 *Invoice Issued*\n\n*Invoice:* `%d`\n*Order:* `%d`\n*Total:* %s\n*Deposit:* %s\n*Method:* %s",
		inv.ID, inv.OrderID, inv.Total.StringFixed(2), inv.DepositApplied.StringFixed(2), inv.PaymentMethod)
	l.Log(LogTypeSettled, msg)
}

func (l *AlertLogger) InvoiceAnnulled(inv *domain.Invoice) {
	msg := fmt.Sprintf("🚫 *Invoice Annulled*\n\n*Invoice:* `%d`\n*Order:* `%d`\n*Total:* %s",
		inv.ID, inv.OrderID, inv.Total.StringFixed(2))
	l.Log(LogTypeAnnulled, msg)
}

func (l *AlertLogger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.topics.Error
	case LogTypeSettled:
		return l.topics.Settled
	case LogTypeAnnulled:
		return l.topics.Annulled
	case LogTypeMirrorFailure:
		return l.topics.MirrorFailure
	default:
		return 0
	}
}
