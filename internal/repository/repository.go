package repository

import (
	"context"
	"database/sql"
	"fmt"

	"clubbot/internal/models"
)

type Ledger interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	LockBalance(ctx context.Context, userID int64) (int64, error)
	AdjustBalance(ctx context.Context, userID, delta int64) (int64, error)
	GetAllBalances(ctx context.Context) ([]models.Balance, error)
	TopBalances(ctx context.Context, limit int) ([]models.Balance, error)

	InsertAction(ctx context.Context, a *models.Action) (int, error)
	GetAction(ctx context.Context, id int) (*models.Action, error)
	GetActions(ctx context.Context, userID int64, limit int) ([]models.Action, error)

	GetBankBalance(ctx context.Context) (int64, error)
	AdjustBank(ctx context.Context, delta int64) (int64, error)
	InsertBankHistory(ctx context.Context, h *models.BankHistory) error

	AddTickets(ctx context.Context, userID int64, kind models.TicketKind, count int) error
	GetTickets(ctx context.Context, userID int64) ([]models.Tickets, error)
}

type Tournament interface {
	Create(ctx context.Context, t *models.Tournament) (int, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, status models.TournamentStatus) ([]models.Tournament, error)
	UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) error
	SetRound(ctx context.Context, id, round, totalRounds int) error
	SetWinner(ctx context.Context, id int, winnerID int64) error
	SetPlacements(ctx context.Context, id int, first, second int64, third *int64) error
	Delete(ctx context.Context, id int) error
}

type Participant interface {
	Add(ctx context.Context, p *models.Participant) (int, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Participant, error)
	Remove(ctx context.Context, tournamentID int, memberID int64) error
	Eliminate(ctx context.Context, tournamentID int, ids []int, round int) error
	Confirm(ctx context.Context, tournamentID int, memberID int64) error
}

type Match interface {
	CreateBatch(ctx context.Context, matches []models.Match) ([]int, error)
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByRound(ctx context.Context, tournamentID, round int) ([]models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Match, error)
	SetResult(ctx context.Context, id, result int) error
}

type Bet interface {
	Create(ctx context.Context, b *models.Bet) (int, error)
	GetByID(ctx context.Context, id int) (*models.Bet, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int) ([]models.Bet, error)
	ListByPair(ctx context.Context, tournamentID, round, pairIndex int) ([]models.Bet, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Bet, error)
	Update(ctx context.Context, id int, betOn, amount int64) error
	Delete(ctx context.Context, id int) error
	Close(ctx context.Context, id int, won bool, payout int64) error

	ResetBank(ctx context.Context, tournamentID int) error
	GetBank(ctx context.Context, tournamentID int) (int64, error)
	AdjustBank(ctx context.Context, tournamentID int, delta int64) (int64, error)
	DeleteBank(ctx context.Context, tournamentID int) (int64, error)
}

// Store is the persistence collaborator of the engine. Operations started
// through WithinTx see a Store bound to one transaction.
type Store interface {
	Ledger() Ledger
	Tournament() Tournament
	Participant() Participant
	Match() Match
	Bet() Bet
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB
	tx *sql.Tx

	ledger      *LedgerPostgres
	tournament  *TournamentPostgres
	participant *ParticipantPostgres
	match       *MatchPostgres
	bet         *BetPostgres
}

func NewRepository(db *sql.DB) *Repository {
	return newRepository(db, nil, db)
}

func newRepository(db *sql.DB, tx *sql.Tx, q queryer) *Repository {
	return &Repository{
		db:          db,
		tx:          tx,
		ledger:      NewLedgerPostgres(q),
		tournament:  NewTournamentPostgres(q),
		participant: NewParticipantPostgres(q),
		match:       NewMatchPostgres(q),
		bet:         NewBetPostgres(q),
	}
}

func (r *Repository) Ledger() Ledger           { return r.ledger }
func (r *Repository) Tournament() Tournament   { return r.tournament }
func (r *Repository) Participant() Participant { return r.participant }
func (r *Repository) Match() Match             { return r.match }
func (r *Repository) Bet() Bet                 { return r.bet }

// WithinTx runs fn in a single transaction. Nested calls reuse the outer one.
func (r *Repository) WithinTx(ctx context.Context, fn func(Store) error) (err error) {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(newRepository(r.db, tx, tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
