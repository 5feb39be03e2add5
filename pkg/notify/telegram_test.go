package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/richard-senior/footy/pkg/model"
	"github.com/richard-senior/footy/pkg/predictor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	failures int
	calls    int
	last     tgbotapi.MessageConfig
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.calls++
	f.last = c.(tgbotapi.MessageConfig)
	if f.calls <= f.failures {
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	return tgbotapi.Message{MessageID: f.calls}, nil
}

func sampleResult() *predictor.Result {
	return &predictor.Result{
		Prediction: model.Prediction{
			MatchResult:    model.ResultFromDistribution(0.75, 0.15, 0.1),
			ExpectedGoals:  model.ExpectedGoals{Home: 2.25, Away: 0.5, Total: 2.75},
			BettingMarkets: model.Markets(0.7, 0.4),
		},
		BettingInsights: &predictor.BettingInsights{
			MatchResult: predictor.ResultInsight{Recommendation: "Strong Home Win", Confidence: predictor.ConfidenceHigh},
			Goals:       "Over 2.5 goals likely",
			BTTS:        "Clean sheet likely",
		},
		Metadata: predictor.Metadata{HomeTeam: "Paris Saint-Germain FC", AwayTeam: "Lille", League: "Ligue 1"},
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `Saint\-Germain \(PSG\) 2\.5\!`, escapeMarkdownV2("Saint-Germain (PSG) 2.5!"))
	assert.Equal(t, "plain", escapeMarkdownV2("plain"))
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(sampleResult())
	assert.Contains(t, msg, `*Paris Saint\-Germain FC vs Lille*`)
	assert.Contains(t, msg, `Prediction: *Home Win* \(75\.0%\)`)
	assert.Contains(t, msg, `Expected goals: 2\.25 \- 0\.50`)
	assert.Contains(t, msg, "Over 2\\.5 goals likely")

	r := sampleResult()
	r.BettingInsights = nil
	assert.NotContains(t, FormatMessage(r), "Strong")
}

func TestNotifyRetries(t *testing.T) {
	bot := &fakeBot{failures: 2}
	tg, err := newTelegram(bot, "12345", 3, time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, tg.Notify(context.Background(), sampleResult()))
	assert.Equal(t, 3, bot.calls)
	assert.Equal(t, int64(12345), bot.last.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, bot.last.ParseMode)
	assert.True(t, strings.HasPrefix(bot.last.Text, "⚽"))
}

func TestNotifyGivesUp(t *testing.T) {
	bot := &fakeBot{failures: 10}
	tg, err := newTelegram(bot, "1", 2, time.Millisecond)
	require.NoError(t, err)

	err = tg.Notify(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, 2, bot.calls)
}

func TestNotifyStopsWhenCancelled(t *testing.T) {
	bot := &fakeBot{failures: 10}
	tg, err := newTelegram(bot, "1", 5, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = tg.Notify(ctx, sampleResult())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, bot.calls)
}

func TestInvalidChatID(t *testing.T) {
	_, err := newTelegram(&fakeBot{}, "not-a-number", 3, 0)
	assert.Error(t, err)
}
