package discord

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"clubbot/internal/application"
	"clubbot/internal/models"

	"github.com/bwmarrin/discordgo"
)

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// caller parses the invoking user's snowflake; Discord always sends a
// numeric one.
func caller(i *discordgo.Interaction) int64 {
	id, _ := parseSnowflake(callerID(i))
	return id
}

func (b *Bot) handleTournamentCreate(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i.ApplicationCommandData())

	start := time.Now()
	if raw := opts.text("start"); raw != "" {
		parsed, err := time.ParseInLocation(startTimeLayout, raw, time.Local)
		if err != nil {
			b.respondMessage(s, i, "Ошибка! Формат даты: 2024-05-20 18:00", true)
			return
		}
		start = parsed
	}

	size, _ := opts.integer("size")
	bank, _ := opts.integer("bank")

	ctx, cancel := requestContext()
	defer cancel()

	t, err := b.services.Tournament.CreateTournament(ctx, application.CreateTournamentInput{
		Type:         models.TournamentType(opts.text("type")),
		Size:         int(size),
		StartTime:    start,
		AuthorID:     caller(i),
		BankType:     models.BankType(bank),
		ManualAmount: opts.integerOr("amount", 0),
	})
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	split, _ := application.CalculateBank(t.BankType, t.ManualAmount)
	b.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Турнир #%d создан", t.ID),
		Color: colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Формат", Value: string(t.Type), Inline: true},
			{Name: "Участников", Value: fmt.Sprintf("%d", t.Size), Inline: true},
			{Name: "Начало", Value: t.StartTime.Format(startTimeLayout), Inline: true},
			{Name: "Банк", Value: fmt.Sprintf("%s: %d (автор %d, клуб %d)", bankLabel(t.BankType), split.Total, split.UserPart, split.BankPart)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Запись: /tournament join id:%d", t.ID)},
	})
}

func (b *Bot) handleTournamentList(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i.ApplicationCommandData())

	ctx, cancel := requestContext()
	defer cancel()

	tournaments, err := b.services.Tournament.ListTournaments(ctx, models.TournamentStatus(opts.text("status")))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	if len(tournaments) == 0 {
		b.respondMessage(s, i, "Турниров пока нет.", true)
		return
	}

	var sb strings.Builder
	for _, t := range tournaments {
		fmt.Fprintf(&sb, "`#%d` %s, %d уч., %s, старт %s\n",
			t.ID, t.Type, t.Size, statusLabel(t.Status), t.StartTime.Format(startTimeLayout))
	}
	b.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Турниры",
		Description: truncate(sb.String()),
		Color:       colorBlue,
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	})
}

func (b *Bot) handleTournamentInfo(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i.ApplicationCommandData())
	id, _ := opts.integer("id")

	ctx, cancel := requestContext()
	defer cancel()

	t, err := b.services.Tournament.GetTournament(ctx, int(id))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	participants, err := b.services.Tournament.ListParticipants(ctx, t.ID)
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	var roster strings.Builder
	for _, p := range participants {
		marker := "✅"
		if !p.Confirmed {
			marker = "⏳"
		}
		if !p.Active() {
			marker = "❌"
		}
		name := fmt.Sprintf("<@%d>", p.MemberID())
		if t.IsTeam() && p.TeamID != nil {
			name += fmt.Sprintf(" (%s)", valueOrDefault(p.TeamName, fmt.Sprintf("команда %d", *p.TeamID)))
		}
		fmt.Fprintf(&roster, "%s %s\n", marker, name)
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Статус", Value: statusLabel(t.Status), Inline: true},
		{Name: "Раунд", Value: fmt.Sprintf("%d / %d", t.CurrentRound, t.TotalRounds), Inline: true},
		{Name: "Банк", Value: bankLabel(t.BankType), Inline: true},
		{Name: "Участники", Value: valueOrDefault(truncateField(roster.String()), "—")},
	}
	if t.WinnerID != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Победитель", Value: mention(*t.WinnerID, t.IsTeam())})
	}

	b.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("Турнир #%d (%s, %d уч.)", t.ID, t.Type, t.Size),
		Color:  statusColor(t.Status),
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{Text: "Старт: " + t.StartTime.Format(startTimeLayout)},
	})
}

func (b *Bot) register(s *discordgo.Session, i *discordgo.Interaction, memberID int64) {
	opts := commandOptions(i.ApplicationCommandData())
	id, _ := opts.integer("id")

	in := application.RegisterInput{DiscordUserID: &memberID, TeamName: opts.text("team_name")}
	if teamID, ok := opts.integer("team_id"); ok {
		in.TeamID = &teamID
	}

	ctx, cancel := requestContext()
	defer cancel()

	if _, err := b.services.Tournament.RegisterParticipant(ctx, int(id), in); err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("<@%d> записан на турнир #%d.", memberID, id), false)
}

func (b *Bot) handleTournamentJoin(s *discordgo.Session, i *discordgo.Interaction) {
	b.register(s, i, caller(i))
}

func (b *Bot) handleTournamentAdd(s *discordgo.Session, i *discordgo.Interaction) {
	userID, ok := commandOptions(i.ApplicationCommandData()).user("user")
	if !ok {
		b.respondMessage(s, i, "Укажите участника.", true)
		return
	}
	b.register(s, i, userID)
}

func (b *Bot) unregister(s *discordgo.Session, i *discordgo.Interaction, memberID int64) {
	id, _ := commandOptions(i.ApplicationCommandData()).integer("id")

	ctx, cancel := requestContext()
	defer cancel()

	if err := b.services.Tournament.UnregisterParticipant(ctx, int(id), memberID); err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("<@%d> снят с турнира #%d.", memberID, id), false)
}

func (b *Bot) handleTournamentLeave(s *discordgo.Session, i *discordgo.Interaction) {
	b.unregister(s, i, caller(i))
}

func (b *Bot) handleTournamentKick(s *discordgo.Session, i *discordgo.Interaction) {
	userID, ok := commandOptions(i.ApplicationCommandData()).user("user")
	if !ok {
		b.respondMessage(s, i, "Укажите участника.", true)
		return
	}
	b.unregister(s, i, userID)
}

func (b *Bot) handleTournamentConfirm(s *discordgo.Session, i *discordgo.Interaction) {
	id, _ := commandOptions(i.ApplicationCommandData()).integer("id")

	ctx, cancel := requestContext()
	defer cancel()

	if err := b.services.Tournament.ConfirmParticipant(ctx, int(id), caller(i)); err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, "Участие подтверждено.", true)
}

func (b *Bot) handleTournamentStart(s *discordgo.Session, i *discordgo.Interaction) {
	id, _ := commandOptions(i.ApplicationCommandData()).integer("id")

	ctx, cancel := requestContext()
	defer cancel()

	matches, err := b.services.Tournament.StartRound(ctx, int(id))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	t, err := b.services.Tournament.GetTournament(ctx, int(id))
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	b.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Турнир #%d: раунд %d из %d", t.ID, t.CurrentRound, t.TotalRounds),
		Description: truncate(formatPairs(application.GroupPairs(matches), t.IsTeam())),
		Color:       colorBlue,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Результат: /tournament result match:<ID> winner:<1|2>"},
	})
}

func (b *Bot) handleTournamentPairs(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i.ApplicationCommandData())
	id, _ := opts.integer("id")

	ctx, cancel := requestContext()
	defer cancel()

	t, err := b.services.Tournament.GetTournament(ctx, int(id))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	round := int(opts.integerOr("round", int64(t.CurrentRound)))
	pairs, err := b.services.Tournament.RoundPairs(ctx, t.ID, round)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	if len(pairs) == 0 {
		b.respondMessage(s, i, "В этом раунде нет пар.", true)
		return
	}

	b.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Турнир #%d: пары раунда %d", t.ID, round),
		Description: truncate(formatPairs(pairs, t.IsTeam())),
		Color:       colorBlue,
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	})
}

func (b *Bot) handleTournamentResult(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i.ApplicationCommandData())
	matchID, _ := opts.integer("match")
	winner, _ := opts.integer("winner")

	ctx, cancel := requestContext()
	defer cancel()

	m, err := b.services.Tournament.ReportResult(ctx, int(matchID), int(winner))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	winnerID, _, _ := m.Winner()
	b.respondMessage(s, i, fmt.Sprintf("Матч `#%d` (%s): победа `%d`.", m.ID, m.Mode, winnerID), false)
}

func (b *Bot) handleTournamentAdvance(s *discordgo.Session, i *discordgo.Interaction) {
	id, _ := commandOptions(i.ApplicationCommandData()).integer("id")

	ctx, cancel := requestContext()
	defer cancel()

	res, err := b.services.Tournament.Advance(ctx, int(id))
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	if res.Finished {
		b.respondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Турнир #%d завершён", id),
			Description: fmt.Sprintf("Победитель: `%d`\nВыдать награды: /tournament finish", res.WinnerID),
			Color:       colorGold,
		})
		return
	}

	team := false
	if t, err := b.services.Tournament.GetTournament(ctx, int(id)); err == nil {
		team = t.IsTeam()
	}
	b.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Турнир #%d: раунд %d", id, res.Round+1),
		Description: truncate(formatPairs(application.GroupPairs(res.Matches), team)),
		Color:       colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Прошли дальше", Value: fmt.Sprintf("%d", len(res.Winners)), Inline: true},
			{Name: "Выбыли", Value: fmt.Sprintf("%d", len(res.Losers)), Inline: true},
		},
	})
}

func (b *Bot) handleTournamentFinish(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i.ApplicationCommandData())
	id, _ := opts.integer("id")

	first, err := parseEntrant(opts.text("first"))
	if err != nil {
		b.respondMessage(s, i, "Некорректный ID первого места.", true)
		return
	}
	second, err := parseEntrant(opts.text("second"))
	if err != nil {
		b.respondMessage(s, i, "Некорректный ID второго места.", true)
		return
	}
	var third *int64
	if raw := opts.text("third"); raw != "" {
		v, err := parseEntrant(raw)
		if err != nil {
			b.respondMessage(s, i, "Некорректный ID третьего места.", true)
			return
		}
		third = &v
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := b.services.Tournament.FinishTournament(ctx, int(id), first, second, third); err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("Награды по турниру #%d выданы.", id), false)
}

func (b *Bot) handleTournamentDelete(s *discordgo.Session, i *discordgo.Interaction) {
	id, _ := commandOptions(i.ApplicationCommandData()).integer("id")

	ctx, cancel := requestContext()
	defer cancel()

	if err := b.services.Tournament.DeleteTournament(ctx, int(id), caller(i)); err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("Турнир #%d удалён, открытые ставки возвращены.", id), false)
}

func (b *Bot) handleTournamentExport(s *discordgo.Session, i *discordgo.Interaction) {
	id, _ := commandOptions(i.ApplicationCommandData()).integer("id")
	b.deferResponse(s, i)

	ctx, cancel := requestContext()
	defer cancel()

	data, err := b.services.Reports.TournamentExcel(ctx, int(id))
	if err != nil {
		msg, _ := errorMessage(err)
		b.logger.Error("Export error: %v", err)
		b.editResponse(s, i, "Ошибка экспорта: "+msg)
		return
	}

	b.editResponse(s, i, "Ваш отчет готов!", &discordgo.File{
		Name:   fmt.Sprintf("tournament_%d.xlsx", id),
		Reader: bytes.NewReader(data),
	})
}

func truncateField(v string) string {
	const maxField = 1024
	if len(v) > maxField {
		return strings.ToValidUTF8(v[:maxField-4], "") + "\n..."
	}
	return v
}
