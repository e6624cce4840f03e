package discord

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"clubbot/internal/application"
	"clubbot/internal/models"

	"github.com/bwmarrin/discordgo"
)

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	m := make(options, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

// commandOptions returns the options of the invoked subcommand, or of the
// command itself when it has none.
func commandOptions(data discordgo.ApplicationCommandInteractionData) options {
	if len(data.Options) == 1 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return optionMap(data.Options[0].Options)
	}
	return optionMap(data.Options)
}

func routeKey(data discordgo.ApplicationCommandInteractionData) string {
	if len(data.Options) == 1 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return data.Name + " " + data.Options[0].Name
	}
	return data.Name
}

func (o options) integer(name string) (int64, bool) {
	opt, ok := o[name]
	if !ok {
		return 0, false
	}
	return opt.IntValue(), true
}

func (o options) integerOr(name string, def int64) int64 {
	if v, ok := o.integer(name); ok {
		return v
	}
	return def
}

func (o options) text(name string) string {
	opt, ok := o[name]
	if !ok {
		return ""
	}
	return opt.StringValue()
}

// user returns the snowflake of a user option.
func (o options) user(name string) (int64, bool) {
	opt, ok := o[name]
	if !ok {
		return 0, false
	}
	id, err := parseSnowflake(fmt.Sprint(opt.Value))
	return id, err == nil
}

func parseSnowflake(id string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", id, err)
	}
	return v, nil
}

// parseEntrant accepts a raw id or a user mention such as <@123> or <@!123>.
func parseEntrant(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimPrefix(strings.TrimSuffix(s[2:], ">"), "!")
	}
	return parseSnowflake(s)
}

var errorMessages = []struct {
	err error
	msg string
}{
	{application.ErrInvalidTournament, "Некорректные параметры турнира: тип duel или team, размер чётный и не меньше 2."},
	{application.ErrInvalidParticipant, "Не указан участник."},
	{application.ErrInvalidBankType, "Неизвестный тип банка (1-4)."},
	{application.ErrManualAmountTooLow, "Сумма банка слишком мала (минимум 15)."},
	{application.ErrInvalidWinner, "Некорректный победитель."},
	{application.ErrInvalidAmount, "Сумма должна быть положительной."},
	{application.ErrNotEnoughParticipants, "Недостаточно участников."},
	{application.ErrOddParticipantCount, "Нечётное количество участников, пары не составить."},
	{application.ErrBetBelowMinimum, "Ставка меньше минимальной для этой стадии."},
	{application.ErrInvalidBetTarget, "Этот участник не играет в выбранной паре."},
	{application.ErrTournamentNotFound, "Турнир не найден."},
	{application.ErrParticipantNotFound, "Участник не найден."},
	{application.ErrMatchNotFound, "Матч не найден."},
	{application.ErrPairNotFound, "Пара не найдена."},
	{application.ErrBetNotFound, "Ставка не найдена."},
	{application.ErrActionNotFound, "Операция не найдена."},
	{application.ErrActionNotUndoable, "Отмену нельзя отменить."},
	{application.ErrAlreadyRegistered, "Вы уже зарегистрированы."},
	{application.ErrTournamentFull, "Турнир заполнен."},
	{application.ErrRegistrationClosed, "Регистрация закрыта."},
	{application.ErrInvalidStatusTransition, "Действие недоступно в текущем статусе турнира."},
	{application.ErrTournamentFinished, "Турнир уже завершён."},
	{application.ErrNoActiveRound, "Раунд ещё не начат."},
	{application.ErrPreviousRoundIncomplete, "Не все матчи текущего раунда сыграны."},
	{application.ErrNoSurvivors, "В раунде не осталось участников."},
	{application.ErrRoundClosed, "Этот раунд уже завершён, результат изменить нельзя."},
	{application.ErrPairUndecided, "Не все матчи пары сыграны."},
	{application.ErrWinnerMismatch, "Победитель не совпадает с результатами матчей."},
	{application.ErrAlreadySettled, "Награды по турниру уже выданы."},
	{application.ErrBetSettled, "Ставка уже рассчитана."},
	{application.ErrBetExists, "У вас уже есть ставка на эту пару."},
	{application.ErrBettingClosed, "Ставки на эту пару закрыты."},
	{application.ErrNotBetOwner, "Это не ваша ставка."},
	{application.ErrSheetsNotConfigured, "Google Sheets не настроен."},
	{application.ErrInsufficientFunds, "Недостаточно средств."},
	{application.ErrInsufficientBankFunds, "Недостаточно средств в банке клуба."},
}

// errorMessage maps engine errors to user text. known is false for
// unexpected failures, which should be logged.
func errorMessage(err error) (msg string, known bool) {
	for _, e := range errorMessages {
		if errors.Is(err, e.err) {
			return e.msg, true
		}
	}
	return "Внутренняя ошибка, попробуйте позже.", false
}

func getMedalEmoji(position int) string {
	switch position {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return "▪️"
	}
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func truncate(msg string) string {
	if len(msg) > maxMessageLength {
		return strings.ToValidUTF8(msg[:maxMessageTruncation], "") + "..."
	}
	return msg
}

func statusLabel(status models.TournamentStatus) string {
	switch status {
	case models.StatusRegistration:
		return "Регистрация"
	case models.StatusActive:
		return "Идёт"
	case models.StatusFinished:
		return "Завершён"
	default:
		return string(status)
	}
}

func statusColor(status models.TournamentStatus) int {
	switch status {
	case models.StatusRegistration:
		return colorGreen
	case models.StatusFinished:
		return colorPurple
	default:
		return colorBlue
	}
}

func bankLabel(bank models.BankType) string {
	switch bank {
	case models.BankUserFunded:
		return "За счёт автора"
	case models.BankMixed:
		return "Смешанный"
	case models.BankClubFunded:
		return "За счёт клуба"
	case models.BankTest:
		return "Тестовый"
	default:
		return "?"
	}
}

func mention(id int64, team bool) string {
	if team {
		return fmt.Sprintf("Команда `%d`", id)
	}
	return fmt.Sprintf("<@%d>", id)
}

func formatPairs(pairs []models.Pair, team bool) string {
	var sb strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&sb, "**Пара %d**: %s vs %s\n", p.Index+1, mention(p.Player1ID, team), mention(p.Player2ID, team))
		for _, m := range p.Matches {
			result := "—"
			if winner, _, ok := m.Winner(); ok {
				result = "победа " + mention(winner, team)
			}
			fmt.Fprintf(&sb, "`#%d` %s / %s: %s\n", m.ID, m.Mode, valueOrDefault(m.MapID, "любая карта"), result)
		}
	}
	return sb.String()
}

func formatBet(bet *models.Bet) string {
	state := "открыта"
	if bet.Won != nil {
		if *bet.Won {
			state = fmt.Sprintf("выиграла (%d)", bet.Payout)
		} else {
			state = "проиграла"
		}
	}
	return fmt.Sprintf("`#%d` турнир %d, раунд %d, пара %d: %d на <@%d>, %s",
		bet.ID, bet.TournamentID, bet.Round, bet.PairIndex+1, bet.Amount, bet.BetOn, state)
}
