package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clubbot/internal/models"
)

type LedgerPostgres struct {
	db queryer
}

func NewLedgerPostgres(db queryer) *LedgerPostgres {
	return &LedgerPostgres{db: db}
}

func (r *LedgerPostgres) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var amount int64
	err := r.db.QueryRowContext(ctx, "SELECT amount FROM balances WHERE user_id = $1", userID).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return amount, nil
}

// LockBalance makes sure the balance row exists and locks it for the rest of
// the transaction.
func (r *LedgerPostgres) LockBalance(ctx context.Context, userID int64) (int64, error) {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO balances (user_id, amount) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure balance row: %w", err)
	}

	var amount int64
	err = r.db.QueryRowContext(ctx, "SELECT amount FROM balances WHERE user_id = $1 FOR UPDATE", userID).Scan(&amount)
	if err != nil {
		return 0, fmt.Errorf("failed to lock balance: %w", err)
	}
	return amount, nil
}

// AdjustBalance adds delta to the balance, never letting it drop below zero.
func (r *LedgerPostgres) AdjustBalance(ctx context.Context, userID, delta int64) (int64, error) {
	query := `
		INSERT INTO balances (user_id, amount) VALUES ($1, GREATEST($2::bigint, 0))
		ON CONFLICT (user_id) DO UPDATE SET amount = GREATEST(balances.amount + $2::bigint, 0), updated_at = NOW()
		RETURNING amount`
	var amount int64
	if err := r.db.QueryRowContext(ctx, query, userID, delta).Scan(&amount); err != nil {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return amount, nil
}

func (r *LedgerPostgres) GetAllBalances(ctx context.Context) ([]models.Balance, error) {
	return r.queryBalances(ctx, "SELECT user_id, amount FROM balances ORDER BY user_id")
}

func (r *LedgerPostgres) TopBalances(ctx context.Context, limit int) ([]models.Balance, error) {
	return r.queryBalances(ctx, "SELECT user_id, amount FROM balances ORDER BY amount DESC, user_id LIMIT $1", limit)
}

func (r *LedgerPostgres) queryBalances(ctx context.Context, query string, args ...any) ([]models.Balance, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var balances []models.Balance
	for rows.Next() {
		var b models.Balance
		if err := rows.Scan(&b.UserID, &b.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (r *LedgerPostgres) InsertAction(ctx context.Context, a *models.Action) (int, error) {
	query := `
		INSERT INTO actions (operation_id, user_id, delta, reason, author_id, is_undo)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, a.OperationID, a.UserID, a.Delta, a.Reason, a.AuthorID, a.IsUndo).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert action: %w", err)
	}
	return a.ID, nil
}

func (r *LedgerPostgres) GetAction(ctx context.Context, id int) (*models.Action, error) {
	var a models.Action
	query := `SELECT id, operation_id, user_id, delta, reason, author_id, is_undo, created_at FROM actions WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&a.ID, &a.OperationID, &a.UserID, &a.Delta, &a.Reason, &a.AuthorID, &a.IsUndo, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get action %d: %w", id, notFound(err))
	}
	return &a, nil
}

func (r *LedgerPostgres) GetActions(ctx context.Context, userID int64, limit int) ([]models.Action, error) {
	query := `
		SELECT id, operation_id, user_id, delta, reason, author_id, is_undo, created_at
		FROM actions WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get actions: %w", err)
	}
	defer rows.Close()

	var actions []models.Action
	for rows.Next() {
		var a models.Action
		if err := rows.Scan(&a.ID, &a.OperationID, &a.UserID, &a.Delta, &a.Reason, &a.AuthorID, &a.IsUndo, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (r *LedgerPostgres) GetBankBalance(ctx context.Context) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, "SELECT balance FROM community_bank WHERE id = 1").Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get bank balance: %w", err)
	}
	return balance, nil
}

// AdjustBank applies delta to the community bank and returns
// ErrInsufficientBalance instead of going below zero.
func (r *LedgerPostgres) AdjustBank(ctx context.Context, delta int64) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx,
		"UPDATE community_bank SET balance = balance + $1 WHERE id = 1 AND balance + $1 >= 0 RETURNING balance", delta).
		Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInsufficientBalance
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust bank: %w", err)
	}
	return balance, nil
}

func (r *LedgerPostgres) InsertBankHistory(ctx context.Context, h *models.BankHistory) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO bank_history (delta, reason, author_id) VALUES ($1, $2, $3) RETURNING id, created_at",
		h.Delta, h.Reason, h.AuthorID).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bank history: %w", err)
	}
	return nil
}

func (r *LedgerPostgres) AddTickets(ctx context.Context, userID int64, kind models.TicketKind, count int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tickets (user_id, kind, count) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, kind) DO UPDATE SET count = tickets.count + $3`, userID, string(kind), count)
	if err != nil {
		return fmt.Errorf("failed to add tickets: %w", err)
	}
	return nil
}

func (r *LedgerPostgres) GetTickets(ctx context.Context, userID int64) ([]models.Tickets, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT user_id, kind, count FROM tickets WHERE user_id = $1 ORDER BY kind", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Tickets
	for rows.Next() {
		var t models.Tickets
		var kind string
		if err := rows.Scan(&t.UserID, &kind, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tickets: %w", err)
		}
		t.Kind = models.TicketKind(kind)
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
