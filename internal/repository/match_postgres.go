package repository

import (
	"context"
	"database/sql"
	"fmt"

	"clubbot/internal/models"
)

type MatchPostgres struct {
	db queryer
}

func NewMatchPostgres(db queryer) *MatchPostgres {
	return &MatchPostgres{db: db}
}

// CreateBatch inserts the matches in order and returns their ids. Run it
// inside WithinTx to keep a round all-or-nothing.
func (r *MatchPostgres) CreateBatch(ctx context.Context, matches []models.Match) ([]int, error) {
	query := `
		INSERT INTO matches (tournament_id, round_number, player1_id, player2_id, mode, map_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	ids := make([]int, 0, len(matches))
	for _, m := range matches {
		var id int
		err := r.db.QueryRowContext(ctx, query, m.TournamentID, m.RoundNumber, m.Player1ID, m.Player2ID, m.Mode, m.MapID).
			Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert match: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

const matchColumns = "id, tournament_id, round_number, player1_id, player2_id, mode, map_id, result"

func scanMatch(row interface{ Scan(...any) error }) (*models.Match, error) {
	var m models.Match
	var result sql.NullInt16
	if err := row.Scan(&m.ID, &m.TournamentID, &m.RoundNumber, &m.Player1ID, &m.Player2ID, &m.Mode, &m.MapID, &result); err != nil {
		return nil, err
	}
	if result.Valid {
		res := int(result.Int16)
		m.Result = &res
	}
	return &m, nil
}

func (r *MatchPostgres) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, err := scanMatch(r.db.QueryRowContext(ctx, "SELECT "+matchColumns+" FROM matches WHERE id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("failed to get match %d: %w", id, notFound(err))
	}
	return m, nil
}

func (r *MatchPostgres) ListByRound(ctx context.Context, tournamentID, round int) ([]models.Match, error) {
	return r.list(ctx, "SELECT "+matchColumns+" FROM matches WHERE tournament_id = $1 AND round_number = $2 ORDER BY id",
		tournamentID, round)
}

func (r *MatchPostgres) ListByTournament(ctx context.Context, tournamentID int) ([]models.Match, error) {
	return r.list(ctx, "SELECT "+matchColumns+" FROM matches WHERE tournament_id = $1 ORDER BY round_number, id",
		tournamentID)
}

func (r *MatchPostgres) list(ctx context.Context, query string, args ...any) ([]models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

func (r *MatchPostgres) SetResult(ctx context.Context, id, result int) error {
	res, err := r.db.ExecContext(ctx, "UPDATE matches SET result = $2 WHERE id = $1", id, result)
	if err != nil {
		return fmt.Errorf("failed to set match result: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
