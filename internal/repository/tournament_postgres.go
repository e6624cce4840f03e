package repository

import (
	"context"
	"database/sql"
	"fmt"

	"clubbot/internal/models"

	"github.com/lib/pq"
)

type TournamentPostgres struct {
	db queryer
}

func NewTournamentPostgres(db queryer) *TournamentPostgres {
	return &TournamentPostgres{db: db}
}

const tournamentColumns = `id, type, size, bank_type, manual_amount, status, start_time, author_id,
	current_round, total_rounds, winner_id, first_place_id, second_place_id, third_place_id, settled, created_at`

func scanTournament(row interface{ Scan(...any) error }) (*models.Tournament, error) {
	var t models.Tournament
	var winner, first, second, third sql.NullInt64
	err := row.Scan(&t.ID, &t.Type, &t.Size, &t.BankType, &t.ManualAmount, &t.Status, &t.StartTime, &t.AuthorID,
		&t.CurrentRound, &t.TotalRounds, &winner, &first, &second, &third, &t.Settled, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.WinnerID = nullableID(winner)
	t.FirstPlaceID = nullableID(first)
	t.SecondPlaceID = nullableID(second)
	t.ThirdPlaceID = nullableID(third)
	return &t, nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func (r *TournamentPostgres) Create(ctx context.Context, t *models.Tournament) (int, error) {
	query := `
		INSERT INTO tournaments (type, size, bank_type, manual_amount, status, start_time, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, t.Type, t.Size, t.BankType, t.ManualAmount, t.Status, t.StartTime, t.AuthorID).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert tournament: %w", err)
	}
	return t.ID, nil
}

func (r *TournamentPostgres) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+tournamentColumns+" FROM tournaments WHERE id = $1", id)
	t, err := scanTournament(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, notFound(err))
	}
	return t, nil
}

// List returns tournaments in the given status, or all of them when status
// is empty.
func (r *TournamentPostgres) List(ctx context.Context, status models.TournamentStatus) ([]models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+tournamentColumns+" FROM tournaments WHERE $1 = '' OR status = $1 ORDER BY id DESC", string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []models.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

func (r *TournamentPostgres) UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) error {
	return r.exec(ctx, "UPDATE tournaments SET status = $2 WHERE id = $1", id, status)
}

func (r *TournamentPostgres) SetRound(ctx context.Context, id, round, totalRounds int) error {
	return r.exec(ctx, "UPDATE tournaments SET current_round = $2, total_rounds = $3 WHERE id = $1", id, round, totalRounds)
}

func (r *TournamentPostgres) SetWinner(ctx context.Context, id int, winnerID int64) error {
	return r.exec(ctx, "UPDATE tournaments SET winner_id = $2 WHERE id = $1", id, winnerID)
}

func (r *TournamentPostgres) SetPlacements(ctx context.Context, id int, first, second int64, third *int64) error {
	return r.exec(ctx, `
		UPDATE tournaments
		SET first_place_id = $2, second_place_id = $3, third_place_id = $4, settled = TRUE
		WHERE id = $1`, id, first, second, third)
}

func (r *TournamentPostgres) Delete(ctx context.Context, id int) error {
	return r.exec(ctx, "DELETE FROM tournaments WHERE id = $1", id)
}

func (r *TournamentPostgres) exec(ctx context.Context, query string, id int, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tournament %d: %w", id, ErrNotFound)
	}
	return nil
}

type ParticipantPostgres struct {
	db queryer
}

func NewParticipantPostgres(db queryer) *ParticipantPostgres {
	return &ParticipantPostgres{db: db}
}

func (r *ParticipantPostgres) Add(ctx context.Context, p *models.Participant) (int, error) {
	query := `
		INSERT INTO participants (tournament_id, discord_user_id, player_id, confirmed, team_id, team_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query, p.TournamentID, p.DiscordUserID, p.PlayerID, p.Confirmed, p.TeamID, p.TeamName).
		Scan(&p.ID)
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert participant: %w", err)
	}
	return p.ID, nil
}

func (r *ParticipantPostgres) ListByTournament(ctx context.Context, tournamentID int) ([]models.Participant, error) {
	query := `
		SELECT id, tournament_id, discord_user_id, player_id, confirmed, team_id, team_name, eliminated_round
		FROM participants WHERE tournament_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		var discordID, playerID, teamID sql.NullInt64
		var eliminated sql.NullInt32
		if err := rows.Scan(&p.ID, &p.TournamentID, &discordID, &playerID, &p.Confirmed, &teamID, &p.TeamName, &eliminated); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.DiscordUserID = nullableID(discordID)
		p.PlayerID = nullableID(playerID)
		p.TeamID = nullableID(teamID)
		if eliminated.Valid {
			round := int(eliminated.Int32)
			p.EliminatedRound = &round
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *ParticipantPostgres) Remove(ctx context.Context, tournamentID int, memberID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM participants WHERE tournament_id = $1 AND (discord_user_id = $2 OR player_id = $2)",
		tournamentID, memberID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Eliminate marks participants as knocked out in the given round. Rows stay
// so team rosters can still be resolved at settlement.
func (r *ParticipantPostgres) Eliminate(ctx context.Context, tournamentID int, ids []int, round int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE participants SET eliminated_round = $3
		WHERE tournament_id = $1 AND id = ANY($2) AND eliminated_round IS NULL`,
		tournamentID, pq.Array(ids), round)
	if err != nil {
		return fmt.Errorf("failed to eliminate participants: %w", err)
	}
	return nil
}

func (r *ParticipantPostgres) Confirm(ctx context.Context, tournamentID int, memberID int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE participants SET confirmed = TRUE WHERE tournament_id = $1 AND (discord_user_id = $2 OR player_id = $2)",
		tournamentID, memberID)
	if err != nil {
		return fmt.Errorf("failed to confirm participant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
