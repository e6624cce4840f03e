package discord

import (
	"fmt"
	"strings"

	"clubbot/internal/application"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) handleBetPlace(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i.ApplicationCommandData())
	tournamentID, _ := opts.integer("tournament")
	pair, _ := opts.integer("pair")
	amount, _ := opts.integer("amount")

	betOn, err := parseEntrant(opts.text("on"))
	if err != nil {
		b.respondMessage(s, i, "Некорректный участник.", true)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	t, err := b.services.Tournament.GetTournament(ctx, int(tournamentID))
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	bet, err := b.services.Betting.PlaceBet(ctx, application.PlaceBetInput{
		TournamentID: t.ID,
		Round:        t.CurrentRound,
		PairIndex:    int(pair) - 1,
		UserID:       caller(i),
		BetOn:        betOn,
		Amount:       amount,
	})
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	stage := application.Stage(bet.Round, t.TotalRounds)
	b.respondMessage(s, i, fmt.Sprintf("Ставка `#%d` принята: %d на %s, при победе %d.",
		bet.ID, bet.Amount, mention(bet.BetOn, t.IsTeam()), application.Payout(bet.Amount, stage)), false)
}

func (b *Bot) handleBetModify(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i.ApplicationCommandData())
	betID, _ := opts.integer("id")
	amount, _ := opts.integer("amount")

	betOn, err := parseEntrant(opts.text("on"))
	if err != nil {
		b.respondMessage(s, i, "Некорректный участник.", true)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	bet, err := b.services.Betting.ModifyBet(ctx, int(betID), betOn, amount, caller(i))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, "Ставка изменена: "+formatBet(bet), true)
}

func (b *Bot) handleBetCancel(s *discordgo.Session, i *discordgo.Interaction) {
	betID, _ := commandOptions(i.ApplicationCommandData()).integer("id")

	ctx, cancel := requestContext()
	defer cancel()

	bet, err := b.services.Betting.GetBet(ctx, int(betID))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	if bet.UserID != caller(i) && !b.isAdmin(callerID(i)) {
		b.respondError(s, i, application.ErrNotBetOwner)
		return
	}

	bet, err = b.services.Betting.CancelBet(ctx, bet.ID)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("Ставка `#%d` отменена, %d возвращено.", bet.ID, bet.Amount), true)
}

func (b *Bot) handleBetList(s *discordgo.Session, i *discordgo.Interaction) {
	ctx, cancel := requestContext()
	defer cancel()

	bets, err := b.services.Betting.UserBets(ctx, caller(i))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	if len(bets) == 0 {
		b.respondMessage(s, i, "У вас нет ставок.", true)
		return
	}

	lines := make([]string, 0, len(bets))
	for idx := range bets {
		lines = append(lines, formatBet(&bets[idx]))
	}
	b.respondMessage(s, i, strings.Join(lines, "\n"), true)
}

func (b *Bot) handleBetBank(s *discordgo.Session, i *discordgo.Interaction) {
	tournamentID, _ := commandOptions(i.ApplicationCommandData()).integer("tournament")

	ctx, cancel := requestContext()
	defer cancel()

	balance, err := b.services.Betting.BetBank(ctx, int(tournamentID))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("Банк ставок турнира #%d: **%d**", tournamentID, balance), false)
}

func (b *Bot) handleBetPayout(s *discordgo.Session, i *discordgo.Interaction) {
	opts := commandOptions(i.ApplicationCommandData())
	tournamentID, _ := opts.integer("tournament")
	pair, _ := opts.integer("pair")

	ctx, cancel := requestContext()
	defer cancel()

	t, err := b.services.Tournament.GetTournament(ctx, int(tournamentID))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	round := int(opts.integerOr("round", int64(t.CurrentRound)))

	winner, decided, err := b.services.Tournament.PairWinner(ctx, t.ID, round, int(pair)-1)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	if !decided {
		b.respondMessage(s, i, "Пара ещё не доиграна.", true)
		return
	}

	settled, err := b.services.Betting.PayoutBets(ctx, t.ID, round, int(pair)-1, winner)
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	var won, paid int64
	for _, bet := range settled {
		if bet.Won != nil && *bet.Won {
			won++
			paid += bet.Payout
		}
	}
	b.respondMessage(s, i, fmt.Sprintf("Пара %d раунда %d: победил %s. Рассчитано ставок: %d, выиграло: %d, выплачено: %d.",
		pair, round, mention(winner, t.IsTeam()), len(settled), won, paid), false)
}

func (b *Bot) handleBetRefund(s *discordgo.Session, i *discordgo.Interaction) {
	tournamentID, _ := commandOptions(i.ApplicationCommandData()).integer("tournament")

	ctx, cancel := requestContext()
	defer cancel()

	refunded, swept, err := b.services.Betting.RefundAllBets(ctx, int(tournamentID), caller(i))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("Возвращено ставок: %d. Остаток банка ставок (%d) переведён в банк клуба.",
		refunded, swept), false)
}
