package discord

import "github.com/bwmarrin/discordgo"

func intOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionInteger, Name: name, Description: description, Required: required}
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: name, Description: description, Required: required}
}

func userOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionUser, Name: name, Description: description, Required: required}
}

func subcommand(name, description string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     opts,
	}
}

func (b *Bot) newTournamentCommand() *discordgo.ApplicationCommand {
	tournamentID := intOption("id", "ID турнира", true)
	entrant := func(name, description string, required bool) *discordgo.ApplicationCommandOption {
		return stringOption(name, description+" (упоминание или ID)", required)
	}

	return &discordgo.ApplicationCommand{
		Name:        cmdTournament,
		Description: "Турниры",
		Options: []*discordgo.ApplicationCommandOption{
			subcommand("create", "Создать турнир (Только админы)",
				&discordgo.ApplicationCommandOption{
					Type: discordgo.ApplicationCommandOptionString, Name: "type", Description: "Формат", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "1x1", Value: "duel"},
						{Name: "Командный", Value: "team"},
					},
				},
				intOption("size", "Количество участников (чётное)", true),
				&discordgo.ApplicationCommandOption{
					Type: discordgo.ApplicationCommandOptionInteger, Name: "bank", Description: "Тип банка", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "За счёт автора", Value: 1},
						{Name: "Смешанный", Value: 2},
						{Name: "За счёт клуба", Value: 3},
						{Name: "Тестовый", Value: 4},
					},
				},
				intOption("amount", "Сумма банка (для банка автора)", false),
				stringOption("start", "Начало, YYYY-MM-DD HH:MM", false),
			),
			subcommand("list", "Список турниров",
				&discordgo.ApplicationCommandOption{
					Type: discordgo.ApplicationCommandOptionString, Name: "status", Description: "Статус", Required: false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Регистрация", Value: "registration"},
						{Name: "Идёт", Value: "active"},
						{Name: "Завершён", Value: "finished"},
					},
				},
			),
			subcommand("info", "Информация о турнире", tournamentID),
			subcommand("join", "Записаться на турнир", tournamentID,
				intOption("team_id", "ID команды (для командных)", false),
				stringOption("team_name", "Название команды", false),
			),
			subcommand("leave", "Покинуть турнир", tournamentID),
			subcommand("confirm", "Подтвердить участие", tournamentID),
			subcommand("add", "Записать участника (Только админы)", tournamentID,
				userOption("user", "Участник", true),
				intOption("team_id", "ID команды", false),
				stringOption("team_name", "Название команды", false),
			),
			subcommand("kick", "Снять участника (Только админы)", tournamentID, userOption("user", "Участник", true)),
			subcommand("start", "Начать турнир или следующий раунд (Только админы)", tournamentID),
			subcommand("pairs", "Пары раунда", tournamentID, intOption("round", "Раунд (по умолчанию текущий)", false)),
			subcommand("result", "Записать результат матча (Только админы)",
				intOption("match", "ID матча", true),
				&discordgo.ApplicationCommandOption{
					Type: discordgo.ApplicationCommandOptionInteger, Name: "winner", Description: "Победитель", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Первый", Value: 1},
						{Name: "Второй", Value: 2},
					},
				},
			),
			subcommand("advance", "Завершить раунд (Только админы)", tournamentID),
			subcommand("finish", "Выдать награды (Только админы)", tournamentID,
				entrant("first", "1 место", true),
				entrant("second", "2 место", true),
				entrant("third", "3 место", false),
			),
			subcommand("delete", "Удалить турнир и вернуть ставки (Только админы)", tournamentID),
			subcommand("export", "Экспорт турнира в Excel (Только админы)", tournamentID),
		},
	}
}

func (b *Bot) newBetCommand() *discordgo.ApplicationCommand {
	tournamentID := intOption("tournament", "ID турнира", true)
	betID := intOption("id", "ID ставки", true)
	pair := intOption("pair", "Номер пары", true)

	return &discordgo.ApplicationCommand{
		Name:        cmdBet,
		Description: "Ставки на пары",
		Options: []*discordgo.ApplicationCommandOption{
			subcommand("place", "Сделать ставку на пару текущего раунда", tournamentID, pair,
				stringOption("on", "На кого (упоминание или ID)", true),
				intOption("amount", "Сумма", true),
			),
			subcommand("modify", "Изменить ставку", betID,
				stringOption("on", "На кого (упоминание или ID)", true),
				intOption("amount", "Новая сумма", true),
			),
			subcommand("cancel", "Отменить ставку", betID),
			subcommand("list", "Мои ставки"),
			subcommand("bank", "Банк ставок турнира", tournamentID),
			subcommand("payout", "Рассчитать ставки на пару (Только админы)", tournamentID, pair,
				intOption("round", "Раунд (по умолчанию текущий)", false),
			),
			subcommand("refund", "Вернуть все открытые ставки (Только админы)", tournamentID),
		},
	}
}

func (b *Bot) newLedgerCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdBalance,
			Description: "Баланс очков",
			Options:     []*discordgo.ApplicationCommandOption{userOption("user", "Пользователь", false)},
		},
		{
			Name:        cmdHistory,
			Description: "История операций",
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Пользователь", false),
				intOption("limit", "Количество записей", false),
			},
		},
		{
			Name:        cmdTickets,
			Description: "Билеты",
			Options:     []*discordgo.ApplicationCommandOption{userOption("user", "Пользователь", false)},
		},
		{Name: cmdLeaderboard, Description: "Таблица лидеров по очкам"},
		{Name: cmdBank, Description: "Банк клуба"},
		{
			Name:        cmdAdjust,
			Description: "Начислить или списать очки (Только админы)",
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Пользователь", true),
				intOption("amount", "Сумма (отрицательная для списания)", true),
				stringOption("reason", "Причина", false),
			},
		},
		{
			Name:        cmdUndo,
			Description: "Отменить операцию (Только админы)",
			Options:     []*discordgo.ApplicationCommandOption{intOption("id", "ID операции", true)},
		},
		{
			Name:        cmdBankAdd,
			Description: "Пополнить банк клуба (Только админы)",
			Options: []*discordgo.ApplicationCommandOption{
				intOption("amount", "Сумма", true),
				stringOption("reason", "Причина", false),
			},
		},
		{Name: cmdExport, Description: "Экспорт балансов в Excel (Только админы)"},
		{Name: cmdSyncSheet, Description: "Синхронизация с Google Sheet (Только админы)"},
	}
}

func (b *Bot) commands() []*discordgo.ApplicationCommand {
	cmds := []*discordgo.ApplicationCommand{b.newTournamentCommand(), b.newBetCommand()}
	return append(cmds, b.newLedgerCommands()...)
}
