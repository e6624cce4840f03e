package telegram

import (
	"fmt"
	"strings"

	"clubbot/internal/models"
)

func tournamentKind(t *models.Tournament) string {
	if t.IsTeam() {
		return "Командный турнир"
	}
	return "Турнир 1x1"
}

func formatRoundStarted(t *models.Tournament, pairs []models.Pair) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s #%d</b>\nРаунд %d из %d начался!\n\n", tournamentKind(t), t.ID, t.CurrentRound, t.TotalRounds)
	for _, p := range pairs {
		fmt.Fprintf(&sb, "Пара %d: <code>%d</code> vs <code>%d</code>\n", p.Index+1, p.Player1ID, p.Player2ID)
		for _, m := range p.Matches {
			fmt.Fprintf(&sb, "  • %s: %s\n", m.Mode, valueOrDefault(m.MapID, "любая карта"))
		}
	}
	return sb.String()
}

func formatFinished(t *models.Tournament, winnerID int64) string {
	return fmt.Sprintf("<b>%s #%d</b> завершён!\nПобедитель: <code>%d</code>", tournamentKind(t), t.ID, winnerID)
}

func formatSettled(t *models.Tournament, firstID, secondID int64, thirdID *int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Итоги турнира #%d</b>\n", t.ID)
	fmt.Fprintf(&sb, "🥇 <code>%d</code>\n🥈 <code>%d</code>\n", firstID, secondID)
	if thirdID != nil {
		fmt.Fprintf(&sb, "🥉 <code>%d</code>\n", *thirdID)
	}
	if t.BankType.IsTest() {
		sb.WriteString("Тестовый турнир, награды не начисляются.")
	} else {
		sb.WriteString("Награды начислены.")
	}
	return sb.String()
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
