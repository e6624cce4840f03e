package models

import "time"

// Bet is a wager on one pair of a round. It stays open while Won is nil;
// closing it is terminal.
type Bet struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Round        int       `json:"round" db:"round"`
	PairIndex    int       `json:"pair_index" db:"pair_index"`
	UserID       int64     `json:"user_id" db:"user_id"`
	BetOn        int64     `json:"bet_on" db:"bet_on"`
	Amount       int64     `json:"amount" db:"amount"`
	Won          *bool     `json:"won" db:"won"`
	Payout       int64     `json:"payout" db:"payout"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (b *Bet) IsOpen() bool {
	return b.Won == nil
}

// BetBank is the per-tournament escrow for staked points.
type BetBank struct {
	TournamentID int   `json:"tournament_id" db:"tournament_id"`
	Balance      int64 `json:"balance" db:"balance"`
}
