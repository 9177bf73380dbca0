package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"monitoring-service/internal/models"
)

// permanentMarkers are telegram API failures that no retry can fix.
var permanentMarkers = []string{
	"chat not found",
	"bot was blocked",
	"user is deactivated",
	"message is too long",
	"forbidden",
	"unauthorized",
}

// Telegram is the chat transport behind the dispatcher, built on the
// go-telegram/bot library with a global send rate limiter.
type Telegram struct {
	bot     *bot.Bot
	limiter *rate.Limiter
}

func NewTelegram(token string, ratePerSecond int) (*Telegram, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 20
	}
	return &Telegram{
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
	}, nil
}

// Send delivers one message. Failures come back as models.DeliveryError so
// the dispatcher can distinguish retryable network trouble from permanent
// chat problems.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return &models.DeliveryError{Err: fmt.Errorf("rate limiter: %w", err)}
	}

	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return &models.DeliveryError{
			Permanent: isPermanent(err),
			Err:       fmt.Errorf("failed to send to chat_id %d: %w", chatID, err),
		}
	}
	return nil
}

func isPermanent(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
