package models

import "time"

type TournamentType string

const (
	TournamentDuel TournamentType = "duel"
	TournamentTeam TournamentType = "team"
)

type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusFinished     TournamentStatus = "finished"
)

// BankType selects who funds the prize bank of a tournament.
type BankType int

const (
	BankUserFunded BankType = 1
	BankMixed      BankType = 2
	BankClubFunded BankType = 3
	BankTest       BankType = 4
)

func (b BankType) IsTest() bool {
	return b == BankTest
}

type Tournament struct {
	ID            int              `json:"id" db:"id"`
	Type          TournamentType   `json:"type" db:"type"`
	Size          int              `json:"size" db:"size"`
	BankType      BankType         `json:"bank_type" db:"bank_type"`
	ManualAmount  int64            `json:"manual_amount" db:"manual_amount"`
	Status        TournamentStatus `json:"status" db:"status"`
	StartTime     time.Time        `json:"start_time" db:"start_time"`
	AuthorID      int64            `json:"author_id" db:"author_id"`
	CurrentRound  int              `json:"current_round" db:"current_round"`
	TotalRounds   int              `json:"total_rounds" db:"total_rounds"`
	WinnerID      *int64           `json:"winner_id" db:"winner_id"`
	FirstPlaceID  *int64           `json:"first_place_id" db:"first_place_id"`
	SecondPlaceID *int64           `json:"second_place_id" db:"second_place_id"`
	ThirdPlaceID  *int64           `json:"third_place_id" db:"third_place_id"`
	Settled       bool             `json:"settled" db:"settled"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

func (t *Tournament) IsTeam() bool {
	return t.Type == TournamentTeam
}

type Participant struct {
	ID              int    `json:"id" db:"id"`
	TournamentID    int    `json:"tournament_id" db:"tournament_id"`
	DiscordUserID   *int64 `json:"discord_user_id" db:"discord_user_id"`
	PlayerID        *int64 `json:"player_id" db:"player_id"`
	Confirmed       bool   `json:"confirmed" db:"confirmed"`
	TeamID          *int64 `json:"team_id" db:"team_id"`
	TeamName        string `json:"team_name" db:"team_name"`
	EliminatedRound *int   `json:"eliminated_round" db:"eliminated_round"`
}

// Active reports whether the participant is still in the bracket.
func (p *Participant) Active() bool {
	return p.EliminatedRound == nil
}

// MemberID is the individual behind the registration: the Discord user when
// known, otherwise the internal player record.
func (p *Participant) MemberID() int64 {
	if p.DiscordUserID != nil {
		return *p.DiscordUserID
	}
	if p.PlayerID != nil {
		return *p.PlayerID
	}
	return 0
}

// EntrantID is the bracket identity: the team for team tournaments, the
// member otherwise.
func (p *Participant) EntrantID(team bool) int64 {
	if team && p.TeamID != nil {
		return *p.TeamID
	}
	return p.MemberID()
}

type Match struct {
	ID           int    `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	RoundNumber  int    `json:"round_number" db:"round_number"`
	Player1ID    int64  `json:"player1_id" db:"player1_id"`
	Player2ID    int64  `json:"player2_id" db:"player2_id"`
	Mode         string `json:"mode" db:"mode"`
	MapID        string `json:"map_id" db:"map_id"`
	Result       *int   `json:"result" db:"result"`
}

func (m *Match) Decided() bool {
	return m.Result != nil
}

// Winner returns the winning entrant and the loser of a decided match.
func (m *Match) Winner() (winner, loser int64, ok bool) {
	if m.Result == nil {
		return 0, 0, false
	}
	if *m.Result == 1 {
		return m.Player1ID, m.Player2ID, true
	}
	return m.Player2ID, m.Player1ID, true
}

// Pair groups the matches two entrants play against each other in a round.
type Pair struct {
	Index     int     `json:"index"`
	Player1ID int64   `json:"player1_id"`
	Player2ID int64   `json:"player2_id"`
	Matches   []Match `json:"matches"`
}

func (p *Pair) Decided() bool {
	for i := range p.Matches {
		if !p.Matches[i].Decided() {
			return false
		}
	}
	return len(p.Matches) > 0
}

func (p *Pair) Started() bool {
	for i := range p.Matches {
		if p.Matches[i].Decided() {
			return true
		}
	}
	return false
}

func (p *Pair) Has(entrantID int64) bool {
	return p.Player1ID == entrantID || p.Player2ID == entrantID
}
