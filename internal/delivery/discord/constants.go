package discord

import "time"

const (
	// Display limits
	leaderboardLimit     = 10
	historyLimit         = 10
	maxMessageLength     = 2000
	maxMessageTruncation = 1990

	// Embed colors
	colorGold   = 0xFFD700 // Leaderboard
	colorGreen  = 0x2ECC71 // Registration open
	colorPurple = 0x9B59B6 // Finished tournaments
	colorBlue   = 0x3498DB // Info/history

	requestTimeout  = 15 * time.Second
	startTimeLayout = "2006-01-02 15:04"
	footerText      = "Club Tournaments"
)

// Command names.
const (
	cmdTournament  = "tournament"
	cmdBet         = "bet"
	cmdBalance     = "balance"
	cmdHistory     = "history"
	cmdTickets     = "tickets"
	cmdLeaderboard = "leaderboard"
	cmdBank        = "bank"
	cmdAdjust      = "adjust"
	cmdUndo        = "undo"
	cmdBankAdd     = "bank_add"
	cmdExport      = "export_balances"
	cmdSyncSheet   = "sync_sheet"
)
