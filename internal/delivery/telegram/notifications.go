package telegram

import (
	"context"

	"clubbot/internal/models"
)

func (b *Bot) RoundStarted(_ context.Context, t *models.Tournament, pairs []models.Pair) {
	b.enqueue(formatRoundStarted(t, pairs))
}

func (b *Bot) TournamentFinished(_ context.Context, t *models.Tournament, winnerID int64) {
	b.enqueue(formatFinished(t, winnerID))
}

func (b *Bot) TournamentSettled(_ context.Context, t *models.Tournament, firstID, secondID int64, thirdID *int64) {
	b.enqueue(formatSettled(t, firstID, secondID, thirdID))
}
