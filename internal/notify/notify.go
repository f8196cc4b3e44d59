// Package notify tells moderators about new listings.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bryan-buckman/hearth/internal/model"
)

// Notifier is informed of listing lifecycle events.
type Notifier interface {
	ListingSubmitted(ctx context.Context, l model.Listing) error
}

// Nop discards every notification.
type Nop struct{}

// ListingSubmitted implements Notifier.
func (Nop) ListingSubmitted(context.Context, model.Listing) error { return nil }

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts notifications to a fixed set of admin chats.
type Telegram struct {
	api     telegramAPI
	chatIDs []int64
	baseURL string
	log     *zap.Logger
}

// NewTelegram creates a notifier for the bot with the given token.
func NewTelegram(token string, chatIDs []int64, baseURL string, log *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newTelegram(api, chatIDs, baseURL, log), nil
}

func newTelegram(api telegramAPI, chatIDs []int64, baseURL string, log *zap.Logger) *Telegram {
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{
		api:     api,
		chatIDs: chatIDs,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// ListingSubmitted sends a moderation message to every admin chat. All chats
// are attempted even when some fail.
func (t *Telegram) ListingSubmitted(ctx context.Context, l model.Listing) error {
	text := FormatSubmission(l, t.baseURL)
	var errs []error
	for _, chatID := range t.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, text)
		msg.DisableWebPagePreview = true
		if _, err := t.api.Send(msg); err != nil {
			t.log.Error("send message", zap.Int64("chat_id", chatID), zap.Error(err))
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// FormatSubmission renders the moderation message for l. Contact details are
// left out.
func FormatSubmission(l model.Listing, baseURL string) string {
	var b strings.Builder
	b.WriteString("New listing awaiting verification\n\n")
	b.WriteString(l.Title)
	fmt.Fprintf(&b, "\n%s", l.Location.Address)
	if l.Location.PostalCode != "" {
		fmt.Fprintf(&b, " (%s)", l.Location.PostalCode)
	}
	for _, p := range l.Prices {
		fmt.Fprintf(&b, "\n%s: %.0f", p.Type, p.Amount)
	}
	if l.OwnerEmail != "" {
		fmt.Fprintf(&b, "\n\nPosted by %s", l.OwnerEmail)
	}
	fmt.Fprintf(&b, "\nID: %s", l.ID)
	if baseURL != "" {
		fmt.Fprintf(&b, "\n%s/admin", baseURL)
	}
	return b.String()
}
