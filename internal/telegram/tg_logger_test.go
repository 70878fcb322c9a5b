package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/invoicing/internal/config"
	"github.com/set-night/invoicing/internal/domain"
)

type fakeSender struct {
	mu           sync.Mutex
	sent         []bot.SendMessageParams
	rejectFormat bool
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, *params)
	if f.rejectFormat && params.ParseMode != "" {
		return nil, errors.New("Bad Request: can't parse entities")
	}
	return &models.Message{ID: len(f.sent)}, nil
}

func testTopics() AlertTopics {
	return AlertTopics{Error: 1, Settled: 2, Annulled: 3, MirrorFailure: 4}
}

func TestAlertLogger_InvoiceSettled(t *testing.T) {
	sender := &fakeSender{}
	logger := NewAlertLogger(sender, -100, testTopics())

	logger.InvoiceSettled(&domain.Invoice{
		ID:             7,
		OrderID:        3,
		Total:          decimal.RequireFromString("551.75"),
		DepositApplied: decimal.Zero,
		PaymentMethod:  domain.PaymentMethodCash,
	})

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, int64(-100), msg.ChatID)
	assert.Equal(t, 2, msg.MessageThreadID)
	assert.Equal(t, models.ParseModeMarkdownV1, msg.ParseMode)
	assert.Contains(t, msg.Text, "551.75")
	assert.Contains(t, msg.Text, "`3`")
}

func TestAlertLogger_TopicRouting(t *testing.T) {
	sender := &fakeSender{}
	logger := NewAlertLogger(sender, -100, testTopics())

	logger.MirrorFailed(3, domain.OrderStatusPaid, errors.New("timeout"))
	logger.InvoiceAnnulled(&domain.Invoice{ID: 1, OrderID: 3})
	logger.LogError(errors.New("boom"), "list invoices")

	require.Len(t, sender.sent, 3)
	assert.Equal(t, 4, sender.sent[0].MessageThreadID)
	assert.Contains(t, sender.sent[0].Text, "paid")
	assert.Equal(t, 3, sender.sent[1].MessageThreadID)
	assert.Equal(t, 1, sender.sent[2].MessageThreadID)
	assert.Contains(t, sender.sent[2].Text, "list invoices")
}

func TestAlertLogger_Disabled(t *testing.T) {
	sender := &fakeSender{}

	NewAlertLogger(sender, 0, testTopics()).LogError(errors.New("boom"), "x")
	NewAlertLogger(sender, -100, AlertTopics{}).LogError(errors.New("boom"), "x")

	assert.Empty(t, sender.sent)
}

func TestAlertLogger_PlainTextFallback(t *testing.T) {
	sender := &fakeSender{rejectFormat: true}
	logger := NewAlertLogger(sender, -100, testTopics())

	logger.LogError(errors.New("unbalanced `quote"), "settle")

	require.Len(t, sender.sent, 2)
	assert.Equal(t, models.ParseModeMarkdownV1, sender.sent[0].ParseMode)
	assert.Empty(t, sender.sent[1].ParseMode)
}

func TestAlertLogger_FromConfig(t *testing.T) {
	sender := &fakeSender{}
	logger := NewAlertLoggerFromConfig(sender, &config.Config{
		AlertChatID:      -5,
		AlertTopicMirror: 9,
	})

	logger.MirrorFailed(1, domain.OrderStatusInvoiced, errors.New("down"))
	logger.InvoiceSettled(&domain.Invoice{ID: 1})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, 9, sender.sent[0].MessageThreadID)
}

func TestTruncate(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, truncate(short))

	long := strings.Repeat("я", MaxMessageLen+10)
	out := truncate(long)
	assert.LessOrEqual(t, len([]rune(out)), MaxMessageLen)
	assert.True(t, strings.HasSuffix(out, "(truncated)"))
}
