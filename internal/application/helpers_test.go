package application

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"clubbot/internal/models"

	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

type recordingNotifier struct {
	rounds  []int
	winners []int64
	settled []int
}

func (n *recordingNotifier) RoundStarted(_ context.Context, t *models.Tournament, _ []models.Pair) {
	n.rounds = append(n.rounds, t.CurrentRound)
}

func (n *recordingNotifier) TournamentFinished(_ context.Context, _ *models.Tournament, winnerID int64) {
	n.winners = append(n.winners, winnerID)
}

func (n *recordingNotifier) TournamentSettled(_ context.Context, t *models.Tournament, _, _ int64, _ *int64) {
	n.settled = append(n.settled, t.ID)
}

type fixture struct {
	ctx      context.Context
	store    *memStore
	svc      *Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	notifier := &recordingNotifier{}
	svc := NewService(Deps{
		Store:    store,
		Notifier: notifier,
		Bracket:  NewBracketGenerator(rand.NewPCG(1, 2)),
		Logger:   nopLogger{},
	})
	return &fixture{ctx: context.Background(), store: store, svc: svc, notifier: notifier}
}

func (f *fixture) tournament(t *testing.T, typ models.TournamentType, size int, bank models.BankType, amount int64) *models.Tournament {
	t.Helper()
	tr, err := f.svc.Tournament.CreateTournament(f.ctx, CreateTournamentInput{
		Type:         typ,
		Size:         size,
		StartTime:    time.Now().Add(time.Hour),
		AuthorID:     authorID,
		BankType:     bank,
		ManualAmount: amount,
	})
	require.NoError(t, err)
	return tr
}

func (f *fixture) register(t *testing.T, tournamentID int, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		_, err := f.svc.Tournament.RegisterParticipant(f.ctx, tournamentID, RegisterInput{DiscordUserID: ptr(id)})
		require.NoError(t, err)
	}
}

func (f *fixture) registerTeam(t *testing.T, tournamentID int, teamID int64, members ...int64) {
	t.Helper()
	for _, id := range members {
		_, err := f.svc.Tournament.RegisterParticipant(f.ctx, tournamentID, RegisterInput{
			DiscordUserID: ptr(id),
			TeamID:        ptr(teamID),
			TeamName:      "team",
		})
		require.NoError(t, err)
	}
}

// decide reports side for every match of the given matches.
func (f *fixture) decide(t *testing.T, matches []models.Match, side int) {
	t.Helper()
	for _, m := range matches {
		_, err := f.svc.Tournament.ReportResult(f.ctx, m.ID, side)
		require.NoError(t, err)
	}
}

func (f *fixture) fund(t *testing.T, userID, amount int64) {
	t.Helper()
	_, err := f.svc.Ledger.Adjust(f.ctx, userID, amount, "seed", authorID)
	require.NoError(t, err)
}

func (f *fixture) balance(userID int64) int64 {
	return f.store.d.balances[userID]
}

func (f *fixture) setTotalRounds(tournamentID, total int) {
	tr := f.store.d.tournaments[tournamentID]
	tr.TotalRounds = total
	f.store.d.tournaments[tournamentID] = tr
}

const authorID int64 = 900

func ptr[T any](v T) *T {
	return &v
}
