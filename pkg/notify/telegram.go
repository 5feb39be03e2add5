// Package notify sends strong predictions to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/predictor"
)

// sender is the part of the bot API used here
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers prediction messages with retry
type Telegram struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewTelegram connects to the bot API and returns a notifier for one chat
func NewTelegram(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newTelegram(bot, chatID, maxRetries, retryDelayBase)
}

func newTelegram(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Telegram, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Telegram{bot: bot, chatID: id, maxRetries: maxRetries, retryDelayBase: retryDelayBase}, nil
}

// Notify sends a summary of the prediction, retrying with a linear back off
func (t *Telegram) Notify(ctx context.Context, r *predictor.Result) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatMessage(r))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		_, err := t.bot.Send(msg)
		if err == nil {
			logger.Debug("Telegram notification sent", r.Metadata.PredictionID)
			return nil
		}
		lastErr = err
		if i == t.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("notification cancelled: %w", ctx.Err())
		case <-time.After(t.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed to send message after %d retries: %w", t.maxRetries, lastErr)
}

// FormatMessage renders a prediction as Telegram MarkdownV2
func FormatMessage(r *predictor.Result) string {
	var b strings.Builder
	md := r.Metadata
	mr := r.MatchResult

	fmt.Fprintf(&b, "⚽ *%s vs %s*\n", escapeMarkdownV2(md.HomeTeam), escapeMarkdownV2(md.AwayTeam))
	fmt.Fprintf(&b, "🏆 %s\n\n", escapeMarkdownV2(md.League))

	fmt.Fprintf(&b, "Prediction: *%s* \\(%s\\)\n", escapeMarkdownV2(mr.PredictedOutcome), pct(mr.Confidence))
	fmt.Fprintf(&b, "Home %s · Draw %s · Away %s\n", pct(mr.HomeWinProbability), pct(mr.DrawProbability), pct(mr.AwayWinProbability))
	fmt.Fprintf(&b, "Expected goals: %s\n", escapeMarkdownV2(fmt.Sprintf("%.2f - %.2f", r.ExpectedGoals.Home, r.ExpectedGoals.Away)))

	if r.BettingInsights != nil {
		bi := r.BettingInsights
		fmt.Fprintf(&b, "\n💡 %s\n", escapeMarkdownV2(bi.MatchResult.Recommendation))
		fmt.Fprintf(&b, "🥅 %s\n", escapeMarkdownV2(bi.Goals))
		fmt.Fprintf(&b, "🔁 %s\n", escapeMarkdownV2(bi.BTTS))
	}
	return b.String()
}

func pct(p float64) string {
	return escapeMarkdownV2(fmt.Sprintf("%.1f%%", p*100))
}

// escapeMarkdownV2 escapes the characters Telegram reserves in MarkdownV2:
// _ * [ ] ( ) ~ ` > # + - = | { } . !
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
