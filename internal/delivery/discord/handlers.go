package discord

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// targetUser is the user option when given, the caller otherwise.
func targetUser(i *discordgo.Interaction) int64 {
	if id, ok := commandOptions(i.ApplicationCommandData()).user("user"); ok {
		return id
	}
	return caller(i)
}

func (b *Bot) handleBalance(s *discordgo.Session, i *discordgo.Interaction) {
	userID := targetUser(i)

	ctx, cancel := requestContext()
	defer cancel()

	balance, err := b.services.Ledger.Balance(ctx, userID)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("Баланс <@%d>: **%d**", userID, balance), false)
}

func (b *Bot) handleHistory(s *discordgo.Session, i *discordgo.Interaction) {
	userID := targetUser(i)
	limit := commandOptions(i.ApplicationCommandData()).integerOr("limit", historyLimit)

	ctx, cancel := requestContext()
	defer cancel()

	actions, err := b.services.Ledger.History(ctx, userID, int(limit))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	if len(actions) == 0 {
		b.respondMessage(s, i, fmt.Sprintf("У <@%d> нет операций.", userID), true)
		return
	}

	var sb strings.Builder
	for _, a := range actions {
		undo := ""
		if a.IsUndo {
			undo = " (отмена)"
		}
		fmt.Fprintf(&sb, "`#%d` %+d %s%s | %s\n", a.ID, a.Delta, valueOrDefault(a.Reason, "—"), undo, a.CreatedAt.Format("02.01 15:04"))
	}

	b.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "История операций",
		Description: fmt.Sprintf("<@%d>\n\n%s", userID, truncate(sb.String())),
		Color:       colorBlue,
		Footer:      &discordgo.MessageEmbedFooter{Text: "ID | Сумма | Причина | Дата"},
	})
}

func (b *Bot) handleTickets(s *discordgo.Session, i *discordgo.Interaction) {
	userID := targetUser(i)

	ctx, cancel := requestContext()
	defer cancel()

	tickets, err := b.services.Ledger.Tickets(ctx, userID)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	if len(tickets) == 0 {
		b.respondMessage(s, i, fmt.Sprintf("У <@%d> нет билетов.", userID), false)
		return
	}

	parts := make([]string, 0, len(tickets))
	for _, t := range tickets {
		parts = append(parts, fmt.Sprintf("%s: **%d**", t.Kind, t.Count))
	}
	b.respondMessage(s, i, fmt.Sprintf("Билеты <@%d>: %s", userID, strings.Join(parts, ", ")), false)
}

func (b *Bot) handleLeaderboard(s *discordgo.Session, i *discordgo.Interaction) {
	ctx, cancel := requestContext()
	defer cancel()

	top, err := b.services.Ledger.Leaderboard(ctx, leaderboardLimit)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	if len(top) == 0 {
		b.respondMessage(s, i, "Балансов пока нет.", false)
		return
	}

	var sb strings.Builder
	for idx, bal := range top {
		fmt.Fprintf(&sb, "%s <@%d> — `%d`\n", getMedalEmoji(idx), bal.UserID, bal.Amount)
	}
	b.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Таблица лидеров",
		Description: sb.String(),
		Color:       colorGold,
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	})
}

func (b *Bot) handleBank(s *discordgo.Session, i *discordgo.Interaction) {
	ctx, cancel := requestContext()
	defer cancel()

	balance, err := b.services.Ledger.BankBalance(ctx)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("Банк клуба: **%d**", balance), false)
}

func (b *Bot) handleAdjust(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i.ApplicationCommandData())
	userID, ok := opts.user("user")
	if !ok {
		b.respondMessage(s, i, "Укажите пользователя.", true)
		return
	}
	amount, _ := opts.integer("amount")
	reason := valueOrDefault(opts.text("reason"), "manual adjustment")

	ctx, cancel := requestContext()
	defer cancel()

	balance, err := b.services.Ledger.Adjust(ctx, userID, amount, reason, caller(i))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("<@%d>: %+d (%s). Баланс: **%d**", userID, amount, reason, balance), false)
}

func (b *Bot) handleUndo(s *discordgo.Session, i *discordgo.Interaction) {
	id, _ := commandOptions(i.ApplicationCommandData()).integer("id")

	ctx, cancel := requestContext()
	defer cancel()

	action, err := b.services.Ledger.UndoAction(ctx, int(id), caller(i))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("Операция `#%d` (%+d для <@%d>) отменена.", action.ID, action.Delta, action.UserID), false)
}

func (b *Bot) handleBankAdd(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i.ApplicationCommandData())
	amount, _ := opts.integer("amount")
	reason := valueOrDefault(opts.text("reason"), "deposit")

	ctx, cancel := requestContext()
	defer cancel()

	if err := b.services.Ledger.AddToBank(ctx, amount, reason, caller(i)); err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("Банк клуба пополнен на %d.", amount), false)
}

func (b *Bot) handleExportBalances(s *discordgo.Session, i *discordgo.Interaction) {
	b.deferResponse(s, i)

	ctx, cancel := requestContext()
	defer cancel()

	data, err := b.services.Reports.BalancesExcel(ctx)
	if err != nil {
		b.logger.Error("Export error: %v", err)
		msg, _ := errorMessage(err)
		b.editResponse(s, i, "Ошибка экспорта: "+msg)
		return
	}

	b.editResponse(s, i, "Ваш отчет готов!", &discordgo.File{Name: "balances.xlsx", Reader: bytes.NewReader(data)})
}

func (b *Bot) handleSyncSheet(s *discordgo.Session, i *discordgo.Interaction) {
	b.deferResponse(s, i)

	ctx, cancel := requestContext()
	defer cancel()

	url, err := b.services.Reports.SyncLeaderboard(ctx)
	if err != nil {
		msg, known := errorMessage(err)
		if !known {
			b.logger.Error("Sheet sync error: %v", err)
		}
		b.editResponse(s, i, "Ошибка синхронизации: "+msg)
		return
	}

	b.editResponse(s, i, fmt.Sprintf("Таблица успешно обновлена!\nСсылка: %s", url))
}
