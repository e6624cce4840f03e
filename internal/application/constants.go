package application

import "clubbot/internal/models"

const (
	defaultHistoryLimit     = 10
	defaultLeaderboardLimit = 10

	// Funding policy
	userFundedPercent = 50
	userFundedMinimum = 15
	fixedBankTotal    = 30
	mixedUserPercent  = 25

	// Rewards, in percent of the bank total per member
	firstPlacePercent  = 50
	secondPlacePercent = 25

	// Google Sheets
	sheetsClearRange = "A1:Z1000"
	sheetsStartCell  = "A1"

	// Excel export
	excelParticipantsSheet = "Participants"
	excelMatchesSheet      = "Matches"
	excelBetsSheet         = "Bets"
	excelBalancesSheet     = "Balances"
)

// Mode is a game mode and the maps it can be played on.
type Mode struct {
	Name string
	Maps []string
}

var modeCatalog = []Mode{
	{Name: "Gem Grab", Maps: []string{"Hard Rock Mine", "Crystal Arcade", "Double Swoosh", "Undermine"}},
	{Name: "Brawl Ball", Maps: []string{"Backyard Bowl", "Pinhole Punt", "Triple Dribble", "Sneaky Fields"}},
	{Name: "Knockout", Maps: []string{"Goldarm Gulch", "Belle's Rock", "Flaring Phoenix", "Out in the Open"}},
	{Name: "Heist", Maps: []string{"Safe Zone", "Hot Potato", "Kaboom Canyon", "Bridge Too Far"}},
}

// roundModes is played by every pair, in this order.
var roundModes = []string{"Gem Grab", "Brawl Ball", "Knockout"}

type stageRule struct {
	minBet            int64
	multiplierPercent int64
}

var stageRules = map[int]stageRule{
	1: {minBet: 1, multiplierPercent: 25},
	2: {minBet: 2, multiplierPercent: 50},
	3: {minBet: 3, multiplierPercent: 75},
}

var ticketRewards = map[int]models.TicketKind{
	1: models.TicketGold,
	2: models.TicketNormal,
}
