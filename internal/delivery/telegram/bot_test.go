package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clubbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	fail int64
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if msg.ChatID == f.fail {
		return tgbotapi.Message{}, errors.New("chat not found")
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func TestBot_BroadcastsToEveryChat(t *testing.T) {
	api := &fakeSender{fail: 2}
	b := newBot(api, []int64{1, 2, 3}, nopLogger{})
	require.NoError(t, b.Init())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	tr := &models.Tournament{ID: 7, Type: models.TournamentDuel, BankType: models.BankMixed}
	b.TournamentFinished(ctx, tr, 42)

	assert.Eventually(t, func() bool { return len(api.messages()) == 3 }, time.Second, 5*time.Millisecond)
	for i, msg := range api.messages() {
		assert.Equal(t, int64(i+1), msg.ChatID)
		assert.Contains(t, msg.Text, "<code>42</code>")
		assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	}

	b.Stop()
	b.Stop()
	require.NoError(t, <-done)
}

func TestBot_NoChatsDropsSilently(t *testing.T) {
	api := &fakeSender{}
	b := newBot(api, nil, nopLogger{})
	b.RoundStarted(context.Background(), &models.Tournament{ID: 1}, nil)
	assert.Empty(t, b.queue)
}

func TestBot_FullQueueDoesNotBlock(t *testing.T) {
	b := newBot(&fakeSender{}, []int64{1}, nopLogger{})
	tr := &models.Tournament{ID: 1}
	for i := 0; i < queueSize+10; i++ {
		b.TournamentFinished(context.Background(), tr, int64(i))
	}
	assert.Len(t, b.queue, queueSize)
}

func TestFormatRoundStarted(t *testing.T) {
	tr := &models.Tournament{ID: 3, Type: models.TournamentTeam, CurrentRound: 1, TotalRounds: 2}
	pairs := []models.Pair{{
		Index: 0, Player1ID: 10, Player2ID: 20,
		Matches: []models.Match{{Mode: "Gem Grab", MapID: "Undermine"}, {Mode: "Knockout"}},
	}}

	text := formatRoundStarted(tr, pairs)
	assert.Contains(t, text, "Командный турнир #3")
	assert.Contains(t, text, "Раунд 1 из 2")
	assert.Contains(t, text, "Пара 1: <code>10</code> vs <code>20</code>")
	assert.Contains(t, text, "Gem Grab: Undermine")
	assert.Contains(t, text, "Knockout: любая карта")
}

func TestFormatSettled(t *testing.T) {
	third := int64(3)
	text := formatSettled(&models.Tournament{ID: 9, BankType: models.BankTest}, 1, 2, &third)
	assert.Contains(t, text, "🥉 <code>3</code>")
	assert.Contains(t, text, "награды не начисляются")

	text = formatSettled(&models.Tournament{ID: 9, BankType: models.BankClubFunded}, 1, 2, nil)
	assert.NotContains(t, text, "🥉")
	assert.Contains(t, text, "Награды начислены.")
}
