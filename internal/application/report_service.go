package application

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"clubbot/internal/models"
	"clubbot/internal/repository"
	"clubbot/pkg/sheets"

	"github.com/xuri/excelize/v2"
)

const leaderboardSheetTitle = "Club Leaderboard"

type ReportServiceImpl struct {
	store  repository.Store
	sheets sheets.Client
	logger Logger

	mu            sync.Mutex
	spreadsheetID string
}

func NewReportServiceImpl(store repository.Store, sheetsClient sheets.Client, spreadsheetID string, logger Logger) *ReportServiceImpl {
	return &ReportServiceImpl{
		store:         store,
		sheets:        sheetsClient,
		spreadsheetID: spreadsheetID,
		logger:        logger,
	}
}

// TournamentExcel builds an xlsx workbook with the participants, matches
// and bets of a tournament.
func (s *ReportServiceImpl) TournamentExcel(ctx context.Context, tournamentID int) ([]byte, error) {
	t, err := getTournament(ctx, s.store, tournamentID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.Participant().ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.Match().ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	bets, err := s.store.Bet().ListByTournament(ctx, tournamentID, nil)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	var rows [][]interface{}
	rows = append(rows, []interface{}{"ID", "Member", "Team", "Confirmed", "Eliminated in round"})
	for _, p := range participants {
		team := ""
		if t.IsTeam() {
			team = p.TeamName
		}
		eliminated := ""
		if p.EliminatedRound != nil {
			eliminated = fmt.Sprint(*p.EliminatedRound)
		}
		rows = append(rows, []interface{}{p.ID, p.MemberID(), team, p.Confirmed, eliminated})
	}
	if err := writeSheet(f, excelParticipantsSheet, rows); err != nil {
		return nil, err
	}

	rows = [][]interface{}{{"ID", "Round", "Pair", "Player 1", "Player 2", "Mode", "Map", "Winner"}}
	byRound := pairsByRound(matches)
	for _, round := range slices.Sorted(maps.Keys(byRound)) {
		for _, p := range byRound[round] {
			for _, m := range p.Matches {
				winner := ""
				if w, _, ok := m.Winner(); ok {
					winner = fmt.Sprint(w)
				}
				rows = append(rows, []interface{}{m.ID, round, p.Index + 1, m.Player1ID, m.Player2ID, m.Mode, m.MapID, winner})
			}
		}
	}
	if err := writeSheet(f, excelMatchesSheet, rows); err != nil {
		return nil, err
	}

	rows = [][]interface{}{{"ID", "Round", "Pair", "User", "Bet on", "Amount", "Result", "Payout"}}
	for _, b := range bets {
		result := "open"
		if b.Won != nil {
			result = "lost"
			if *b.Won {
				result = "won"
			}
		}
		rows = append(rows, []interface{}{b.ID, b.Round, b.PairIndex + 1, b.UserID, b.BetOn, b.Amount, result, b.Payout})
	}
	if err := writeSheet(f, excelBetsSheet, rows); err != nil {
		return nil, err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// BalancesExcel exports every balance, highest first.
func (s *ReportServiceImpl) BalancesExcel(ctx context.Context) ([]byte, error) {
	rows, err := s.leaderboardRows(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, excelBalancesSheet, rows); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// SyncLeaderboard overwrites the leaderboard spreadsheet with the current
// balances and returns its URL. A spreadsheet is created on first use when
// none is configured.
func (s *ReportServiceImpl) SyncLeaderboard(ctx context.Context) (string, error) {
	if s.sheets == nil {
		return "", ErrSheetsNotConfigured
	}

	rows, err := s.leaderboardRows(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spreadsheetID == "" {
		id, _, err := s.sheets.CreateSpreadsheet(ctx, leaderboardSheetTitle)
		if err != nil {
			return "", err
		}
		if err := s.sheets.MakePublic(ctx, id); err != nil {
			s.logger.Warn("leaderboard spreadsheet %s is not public: %v", id, err)
		}
		s.spreadsheetID = id
	}

	if err := s.sheets.ClearRange(ctx, s.spreadsheetID, sheetsClearRange); err != nil {
		s.logger.Error("failed to clear sheet: %v", err)
	}
	if err := s.sheets.UpdateValues(ctx, s.spreadsheetID, sheetsStartCell, rows); err != nil {
		return "", fmt.Errorf("failed to update leaderboard: %w", err)
	}

	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s", s.spreadsheetID), nil
}

func (s *ReportServiceImpl) leaderboardRows(ctx context.Context) ([][]interface{}, error) {
	balances, err := s.store.Ledger().GetAllBalances(ctx)
	if err != nil {
		return nil, err
	}
	sortBalances(balances)

	rows := [][]interface{}{{"Rank", "User", "Balance"}}
	for i, b := range balances {
		rows = append(rows, []interface{}{i + 1, fmt.Sprint(b.UserID), b.Amount})
	}
	return rows, nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, sheet, err)
		}
	}
	return f.SetColWidth(sheet, "A", "H", 14)
}

func pairsByRound(matches []models.Match) map[int][]models.Pair {
	byRound := make(map[int][]models.Match)
	for _, m := range matches {
		byRound[m.RoundNumber] = append(byRound[m.RoundNumber], m)
	}
	out := make(map[int][]models.Pair, len(byRound))
	for round, ms := range byRound {
		out[round] = GroupPairs(ms)
	}
	return out
}
