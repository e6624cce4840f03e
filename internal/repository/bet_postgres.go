package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clubbot/internal/models"
)

type BetPostgres struct {
	db queryer
}

func NewBetPostgres(db queryer) *BetPostgres {
	return &BetPostgres{db: db}
}

const betColumns = "id, tournament_id, round, pair_index, user_id, bet_on, amount, won, payout, created_at"

func scanBet(row interface{ Scan(...any) error }) (*models.Bet, error) {
	var b models.Bet
	var won sql.NullBool
	err := row.Scan(&b.ID, &b.TournamentID, &b.Round, &b.PairIndex, &b.UserID, &b.BetOn, &b.Amount, &won, &b.Payout, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if won.Valid {
		w := won.Bool
		b.Won = &w
	}
	return &b, nil
}

func (r *BetPostgres) Create(ctx context.Context, b *models.Bet) (int, error) {
	query := `
		INSERT INTO bets (tournament_id, round, pair_index, user_id, bet_on, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, b.TournamentID, b.Round, b.PairIndex, b.UserID, b.BetOn, b.Amount).
		Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert bet: %w", err)
	}
	return b.ID, nil
}

func (r *BetPostgres) GetByID(ctx context.Context, id int) (*models.Bet, error) {
	b, err := scanBet(r.db.QueryRowContext(ctx, "SELECT "+betColumns+" FROM bets WHERE id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d: %w", id, notFound(err))
	}
	return b, nil
}

func (r *BetPostgres) ListByTournament(ctx context.Context, tournamentID int, round *int) ([]models.Bet, error) {
	if round == nil {
		return r.list(ctx, "SELECT "+betColumns+" FROM bets WHERE tournament_id = $1 ORDER BY id", tournamentID)
	}
	return r.list(ctx, "SELECT "+betColumns+" FROM bets WHERE tournament_id = $1 AND round = $2 ORDER BY id",
		tournamentID, *round)
}

func (r *BetPostgres) ListByPair(ctx context.Context, tournamentID, round, pairIndex int) ([]models.Bet, error) {
	return r.list(ctx,
		"SELECT "+betColumns+" FROM bets WHERE tournament_id = $1 AND round = $2 AND pair_index = $3 ORDER BY id",
		tournamentID, round, pairIndex)
}

func (r *BetPostgres) ListByUser(ctx context.Context, userID int64) ([]models.Bet, error) {
	return r.list(ctx, "SELECT "+betColumns+" FROM bets WHERE user_id = $1 ORDER BY id DESC", userID)
}

func (r *BetPostgres) list(ctx context.Context, query string, args ...any) ([]models.Bet, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	defer rows.Close()

	var bets []models.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, *b)
	}
	return bets, rows.Err()
}

// Update, Delete and Close only touch open bets; a settled bet reports
// ErrNotFound.
func (r *BetPostgres) Update(ctx context.Context, id int, betOn, amount int64) error {
	return r.execOpen(ctx, "UPDATE bets SET bet_on = $2, amount = $3 WHERE id = $1 AND won IS NULL", id, betOn, amount)
}

func (r *BetPostgres) Delete(ctx context.Context, id int) error {
	return r.execOpen(ctx, "DELETE FROM bets WHERE id = $1 AND won IS NULL", id)
}

func (r *BetPostgres) Close(ctx context.Context, id int, won bool, payout int64) error {
	return r.execOpen(ctx, "UPDATE bets SET won = $2, payout = $3 WHERE id = $1 AND won IS NULL", id, won, payout)
}

func (r *BetPostgres) execOpen(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to write bet: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BetPostgres) ResetBank(ctx context.Context, tournamentID int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bet_banks (tournament_id, balance) VALUES ($1, 0)
		ON CONFLICT (tournament_id) DO UPDATE SET balance = 0`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to reset bet bank: %w", err)
	}
	return nil
}

func (r *BetPostgres) GetBank(ctx context.Context, tournamentID int) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, "SELECT balance FROM bet_banks WHERE tournament_id = $1", tournamentID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to get bet bank: %w", notFound(err))
	}
	return balance, nil
}

func (r *BetPostgres) AdjustBank(ctx context.Context, tournamentID int, delta int64) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE bet_banks SET balance = balance + $2
		WHERE tournament_id = $1 AND balance + $2 >= 0
		RETURNING balance`, tournamentID, delta).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInsufficientBalance
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust bet bank: %w", err)
	}
	return balance, nil
}

// DeleteBank removes the bet bank and returns what was left in it.
func (r *BetPostgres) DeleteBank(ctx context.Context, tournamentID int) (int64, error) {
	var remainder int64
	err := r.db.QueryRowContext(ctx, "DELETE FROM bet_banks WHERE tournament_id = $1 RETURNING balance", tournamentID).
		Scan(&remainder)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to delete bet bank: %w", err)
	}
	return remainder, nil
}
