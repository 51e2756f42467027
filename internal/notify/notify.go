package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/ecowriter/internal/models"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts payment events to an operator chat.
type Telegram struct {
	api    sender
	chatID int64
	log    *slog.Logger
}

func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

func (t *Telegram) PaymentSubmitted(ctx context.Context, p models.Payment) error {
	var b strings.Builder
	fmt.Fprintf(&b, "New payment proof #%d\n", p.ID)
	fmt.Fprintf(&b, "Plan: %s\n", p.Plan)
	fmt.Fprintf(&b, "Amount: %s %s\n", formatMinor(p.Amount), p.Currency)
	fmt.Fprintf(&b, "Name: %s <%s>\n", p.Name, p.Email)
	fmt.Fprintf(&b, "UPI: %s\n", p.UPIID)
	if p.TransactionID != "" {
		fmt.Fprintf(&b, "Txn: %s\n", p.TransactionID)
	}
	fmt.Fprintf(&b, "Screenshot: %s", p.ScreenshotURL)
	return t.send(ctx, b.String())
}

func (t *Telegram) PaymentReviewed(ctx context.Context, p models.Payment) error {
	text := fmt.Sprintf("Payment #%d %s (%s, %s)", p.ID, p.Status, p.Plan, p.Email)
	if p.AdminNote != "" {
		text += "\nNote: " + p.AdminNote
	}
	return t.send(ctx, text)
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func formatMinor(minor int) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

// Nop drops every event.
type Nop struct{}

func (Nop) PaymentSubmitted(context.Context, models.Payment) error { return nil }
func (Nop) PaymentReviewed(context.Context, models.Payment) error  { return nil }
