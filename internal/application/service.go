package application

import (
	"context"

	"clubbot/internal/models"
	"clubbot/internal/repository"
	"clubbot/pkg/sheets"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Notifier announces tournament progress outside the main chat. Calls are
// best effort and happen after the change is committed.
type Notifier interface {
	RoundStarted(ctx context.Context, t *models.Tournament, pairs []models.Pair)
	TournamentFinished(ctx context.Context, t *models.Tournament, winnerID int64)
	TournamentSettled(ctx context.Context, t *models.Tournament, firstID, secondID int64, thirdID *int64)
}

type nopNotifier struct{}

func (nopNotifier) RoundStarted(context.Context, *models.Tournament, []models.Pair)             {}
func (nopNotifier) TournamentFinished(context.Context, *models.Tournament, int64)               {}
func (nopNotifier) TournamentSettled(context.Context, *models.Tournament, int64, int64, *int64) {}

type Service struct {
	Ledger     *LedgerServiceImpl
	Tournament *TournamentServiceImpl
	Betting    *BettingServiceImpl
	Reports    *ReportServiceImpl
}

type Deps struct {
	Store         repository.Store
	Cache         *repository.BalanceCache
	Sheets        sheets.Client
	SpreadsheetID string
	Notifier      Notifier
	Bracket       *BracketGenerator
	Logger        Logger
}

func NewService(deps Deps) *Service {
	bracket := deps.Bracket
	if bracket == nil {
		bracket = NewBracketGenerator(nil)
	}
	locks := NewKeyedMutex()

	ledger := NewLedgerServiceImpl(deps.Store, deps.Cache, deps.Logger)
	betting := NewBettingServiceImpl(deps.Store, ledger, locks, deps.Logger)
	return &Service{
		Ledger:     ledger,
		Tournament: NewTournamentServiceImpl(deps.Store, ledger, betting, bracket, locks, deps.Notifier, deps.Logger),
		Betting:    betting,
		Reports:    NewReportServiceImpl(deps.Store, deps.Sheets, deps.SpreadsheetID, deps.Logger),
	}
}
