package application

import (
	"testing"

	"clubbot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage(t *testing.T) {
	tests := []struct {
		round, total, stage int
	}{
		{1, 4, 1}, {2, 4, 1}, {3, 4, 2}, {4, 4, 3},
		{1, 5, 1}, {2, 5, 1}, {3, 5, 1}, {4, 5, 2}, {5, 5, 3},
		{1, 3, 1}, {2, 3, 2}, {3, 3, 3},
		{1, 2, 2}, {2, 2, 3},
		{1, 1, 3},
		{1, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.stage, Stage(tt.round, tt.total), "round %d of %d", tt.round, tt.total)
	}
}

func TestPayout(t *testing.T) {
	assert.Equal(t, int64(12), Payout(10, 1))
	assert.Equal(t, int64(15), Payout(10, 2))
	assert.Equal(t, int64(17), Payout(10, 3))
	assert.Equal(t, int64(1), Payout(1, 1))

	minBet, pct := StageRules(2)
	assert.Equal(t, int64(2), minBet)
	assert.Equal(t, int64(50), pct)
}

const (
	alice int64 = 50
	bob   int64 = 51
	carol int64 = 52
)

type bettingSetup struct {
	*fixture
	tr    *models.Tournament
	pairs []models.Pair
}

// newBettingSetup starts round 1 of a 4-entrant duel and funds the bettors.
func newBettingSetup(t *testing.T, bank models.BankType) *bettingSetup {
	t.Helper()
	f := newFixture(t)
	tr := f.tournament(t, models.TournamentDuel, 4, bank, 0)
	f.register(t, tr.ID, 1, 2, 3, 4)
	matches, err := f.svc.Tournament.StartRound(f.ctx, tr.ID)
	require.NoError(t, err)
	for _, id := range []int64{alice, bob, carol} {
		f.fund(t, id, 100)
	}
	return &bettingSetup{fixture: f, tr: tr, pairs: GroupPairs(matches)}
}

func (b *bettingSetup) place(t *testing.T, user int64, pair int, on int64, amount int64) *models.Bet {
	t.Helper()
	bet, err := b.svc.Betting.PlaceBet(b.ctx, PlaceBetInput{
		TournamentID: b.tr.ID, Round: 1, PairIndex: pair, UserID: user, BetOn: on, Amount: amount,
	})
	require.NoError(t, err)
	return bet
}

// decidePair reports side for every match of pair i.
func (b *bettingSetup) decidePair(t *testing.T, i, side int) {
	t.Helper()
	b.decide(t, b.pairs[i].Matches, side)
}

func (b *bettingSetup) betBank() int64 {
	return b.store.d.betBanks[b.tr.ID]
}

func TestPlaceBet_BelowMinimumMutatesNothing(t *testing.T) {
	b := newBettingSetup(t, models.BankClubFunded)

	_, err := b.svc.Betting.PlaceBet(b.ctx, PlaceBetInput{
		TournamentID: b.tr.ID, Round: 1, PairIndex: 0, UserID: alice, BetOn: b.pairs[0].Player1ID, Amount: 1,
	})
	assert.ErrorIs(t, err, ErrBetBelowMinimum)
	assert.Equal(t, int64(100), b.balance(alice))
	assert.Zero(t, b.betBank())
	assert.Empty(t, b.store.d.bets)
}

func TestPlaceBet_Validation(t *testing.T) {
	b := newBettingSetup(t, models.BankClubFunded)
	p := b.pairs[0]

	tests := []struct {
		name string
		in   PlaceBetInput
		err  error
	}{
		{"foreign target", PlaceBetInput{PairIndex: 0, UserID: alice, BetOn: b.pairs[1].Player1ID, Amount: 5}, ErrInvalidBetTarget},
		{"unknown pair", PlaceBetInput{PairIndex: 7, UserID: alice, BetOn: p.Player1ID, Amount: 5}, ErrPairNotFound},
		{"not enough balance", PlaceBetInput{PairIndex: 0, UserID: alice, BetOn: p.Player1ID, Amount: 500}, ErrInsufficientFunds},
		{"zero amount", PlaceBetInput{PairIndex: 0, UserID: alice, BetOn: p.Player1ID}, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.TournamentID = b.tr.ID
			tt.in.Round = 1
			_, err := b.svc.Betting.PlaceBet(b.ctx, tt.in)
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.Empty(t, b.store.d.bets)
	assert.Equal(t, int64(100), b.balance(alice))

	b.place(t, alice, 0, p.Player1ID, 5)
	_, err := b.svc.Betting.PlaceBet(b.ctx, PlaceBetInput{
		TournamentID: b.tr.ID, Round: 1, PairIndex: 0, UserID: alice, BetOn: p.Player2ID, Amount: 5,
	})
	assert.ErrorIs(t, err, ErrBetExists)

	_, err = b.svc.Tournament.ReportResult(b.ctx, p.Matches[0].ID, 1)
	require.NoError(t, err)
	_, err = b.svc.Betting.PlaceBet(b.ctx, PlaceBetInput{
		TournamentID: b.tr.ID, Round: 1, PairIndex: 0, UserID: bob, BetOn: p.Player2ID, Amount: 5,
	})
	assert.ErrorIs(t, err, ErrBettingClosed)
}

func TestPlaceBet_EscrowsStake(t *testing.T) {
	b := newBettingSetup(t, models.BankClubFunded)

	bet := b.place(t, alice, 0, b.pairs[0].Player1ID, 10)
	assert.True(t, bet.IsOpen())
	assert.Equal(t, int64(90), b.balance(alice))
	assert.Equal(t, int64(10), b.betBank())

	bets, err := b.svc.Betting.UserBets(b.ctx, alice)
	require.NoError(t, err)
	assert.Len(t, bets, 1)
}

func TestPayoutBets_Stage1Formula(t *testing.T) {
	b := newBettingSetup(t, models.BankClubFunded)
	b.setTotalRounds(b.tr.ID, 4)
	p := b.pairs[0]

	b.place(t, alice, 0, p.Player1ID, 10)
	b.place(t, bob, 0, p.Player2ID, 10)
	assert.Equal(t, int64(20), b.betBank())

	b.decidePair(t, 0, 1)
	settled, err := b.svc.Betting.PayoutBets(b.ctx, b.tr.ID, 1, 0, p.Player1ID)
	require.NoError(t, err)
	require.Len(t, settled, 2)

	for _, bet := range settled {
		require.NotNil(t, bet.Won)
		if bet.UserID == alice {
			assert.True(t, *bet.Won)
			assert.Equal(t, int64(12), bet.Payout)
		} else {
			assert.False(t, *bet.Won)
			assert.Zero(t, bet.Payout)
		}
	}
	assert.Equal(t, int64(102), b.balance(alice))
	assert.Equal(t, int64(90), b.balance(bob))
	assert.Equal(t, int64(8), b.betBank())

	again, err := b.svc.Betting.PayoutBets(b.ctx, b.tr.ID, 1, 0, p.Player1ID)
	require.NoError(t, err)
	assert.Empty(t, again, "closed bets stay closed")
	assert.Equal(t, int64(102), b.balance(alice))
}

func TestPayoutBets_ShortfallFromCommunityBank(t *testing.T) {
	f := newFixture(t)
	tr := f.tournament(t, models.TournamentDuel, 2, models.BankClubFunded, 0)
	f.register(t, tr.ID, 1, 2)
	_, err := f.svc.Tournament.StartRound(f.ctx, tr.ID)
	require.NoError(t, err)
	f.fund(t, alice, 100)

	bet, err := f.svc.Betting.PlaceBet(f.ctx, PlaceBetInput{TournamentID: tr.ID, Round: 1, PairIndex: 0, UserID: alice, BetOn: 1, Amount: 10})
	require.NoError(t, err)
	pairs, err := f.svc.Tournament.RoundPairs(f.ctx, tr.ID, 1)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	side := 1
	if pairs[0].Player2ID == bet.BetOn {
		side = 2
	}
	f.decide(t, pairs[0].Matches, side)

	_, err = f.svc.Betting.PayoutBets(f.ctx, tr.ID, 1, 0, 1)
	assert.ErrorIs(t, err, ErrInsufficientBankFunds)
	assert.Equal(t, int64(90), f.balance(alice))
	assert.Equal(t, int64(10), f.store.d.betBanks[tr.ID])
	assert.True(t, f.store.d.bets[0].IsOpen())

	require.NoError(t, f.svc.Ledger.AddToBank(f.ctx, 20, "donation", authorID))
	settled, err := f.svc.Betting.PayoutBets(f.ctx, tr.ID, 1, 0, 1)
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.Equal(t, int64(17), settled[0].Payout)
	assert.Equal(t, int64(107), f.balance(alice))
	assert.Zero(t, f.store.d.betBanks[tr.ID])
	assert.Equal(t, int64(13), f.store.d.bank)
}

func TestCancelBet_RestoresBalance(t *testing.T) {
	b := newBettingSetup(t, models.BankClubFunded)
	bet := b.place(t, alice, 0, b.pairs[0].Player1ID, 10)

	_, err := b.svc.Betting.CancelBet(b.ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.balance(alice))
	assert.Zero(t, b.betBank())

	_, err = b.svc.Betting.CancelBet(b.ctx, bet.ID)
	assert.ErrorIs(t, err, ErrBetNotFound)
}

func TestCancelBet_SettledIsFinal(t *testing.T) {
	b := newBettingSetup(t, models.BankClubFunded)
	bet := b.place(t, alice, 0, b.pairs[0].Player1ID, 10)
	b.decidePair(t, 0, 2)
	_, err := b.svc.Betting.PayoutBets(b.ctx, b.tr.ID, 1, 0, b.pairs[0].Player2ID)
	require.NoError(t, err)

	_, err = b.svc.Betting.CancelBet(b.ctx, bet.ID)
	assert.ErrorIs(t, err, ErrBetSettled)
	_, err = b.svc.Betting.ModifyBet(b.ctx, bet.ID, b.pairs[0].Player1ID, 20, alice)
	assert.ErrorIs(t, err, ErrBetSettled)
}

func TestModifyBet(t *testing.T) {
	b := newBettingSetup(t, models.BankClubFunded)
	p := b.pairs[0]
	bet := b.place(t, alice, 0, p.Player1ID, 5)

	modified, err := b.svc.Betting.ModifyBet(b.ctx, bet.ID, p.Player2ID, 8, alice)
	require.NoError(t, err)
	assert.Equal(t, p.Player2ID, modified.BetOn)
	assert.Equal(t, int64(92), b.balance(alice))
	assert.Equal(t, int64(8), b.betBank())

	_, err = b.svc.Betting.ModifyBet(b.ctx, bet.ID, p.Player2ID, 3, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(97), b.balance(alice))
	assert.Equal(t, int64(3), b.betBank())

	_, err = b.svc.Betting.ModifyBet(b.ctx, bet.ID, p.Player2ID, 10, bob)
	assert.ErrorIs(t, err, ErrNotBetOwner)

	_, err = b.svc.Betting.ModifyBet(b.ctx, bet.ID, p.Player2ID, 1, alice)
	assert.ErrorIs(t, err, ErrBetBelowMinimum)

	_, err = b.svc.Betting.ModifyBet(b.ctx, bet.ID, p.Player2ID, 500, alice)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = b.svc.Betting.ModifyBet(b.ctx, bet.ID, b.pairs[1].Player1ID, 3, alice)
	assert.ErrorIs(t, err, ErrInvalidBetTarget)

	assert.Equal(t, int64(97), b.balance(alice))
	assert.Equal(t, int64(3), b.betBank())
	stored, err := b.svc.Betting.GetBet(b.ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.Amount)
}

func TestTestModeBetsAreInert(t *testing.T) {
	b := newBettingSetup(t, models.BankTest)
	p := b.pairs[0]

	won := b.place(t, alice, 0, p.Player1ID, 10)
	b.place(t, bob, 0, p.Player2ID, 10)
	cancelled := b.place(t, carol, 1, b.pairs[1].Player1ID, 10)

	_, err := b.svc.Betting.CancelBet(b.ctx, cancelled.ID)
	require.NoError(t, err)
	_, err = b.svc.Betting.ModifyBet(b.ctx, won.ID, p.Player1ID, 40, alice)
	require.NoError(t, err)
	b.decidePair(t, 0, 1)
	settled, err := b.svc.Betting.PayoutBets(b.ctx, b.tr.ID, 1, 0, p.Player1ID)
	require.NoError(t, err)
	assert.Len(t, settled, 2)

	for _, id := range []int64{alice, bob, carol} {
		assert.Equal(t, int64(100), b.balance(id))
	}
	assert.Zero(t, b.betBank())
}

func TestRefundAllBets(t *testing.T) {
	b := newBettingSetup(t, models.BankClubFunded)
	b.setTotalRounds(b.tr.ID, 4)

	b.place(t, alice, 0, b.pairs[0].Player1ID, 10)
	b.place(t, bob, 0, b.pairs[0].Player2ID, 10)
	b.place(t, carol, 1, b.pairs[1].Player1ID, 10)
	b.decidePair(t, 0, 1)
	_, err := b.svc.Betting.PayoutBets(b.ctx, b.tr.ID, 1, 0, b.pairs[0].Player1ID)
	require.NoError(t, err)

	refunded, swept, err := b.svc.Betting.RefundAllBets(b.ctx, b.tr.ID, authorID)
	require.NoError(t, err)
	assert.Equal(t, 1, refunded)
	assert.Equal(t, int64(8), swept)

	assert.Equal(t, int64(100), b.balance(carol))
	assert.Equal(t, int64(8), b.store.d.bank)
	assert.NotContains(t, b.store.d.betBanks, b.tr.ID)
	last := b.store.d.bankHistory[len(b.store.d.bankHistory)-1]
	assert.Equal(t, int64(8), last.Delta)
	assert.Equal(t, authorID, last.AuthorID)

	_, err = b.svc.Betting.PlaceBet(b.ctx, PlaceBetInput{
		TournamentID: b.tr.ID, Round: 1, PairIndex: 1, UserID: carol, BetOn: b.pairs[1].Player1ID, Amount: 5,
	})
	assert.ErrorIs(t, err, ErrBettingClosed)
}

func TestPayoutBets_KeepsOtherPairsStakes(t *testing.T) {
	b := newBettingSetup(t, models.BankClubFunded)
	require.NoError(t, b.svc.Ledger.AddToBank(b.ctx, 20, "donation", authorID))

	b.place(t, alice, 0, b.pairs[0].Player1ID, 10)
	open := b.place(t, carol, 1, b.pairs[1].Player1ID, 10)
	b.decidePair(t, 0, 1)

	settled, err := b.svc.Betting.PayoutBets(b.ctx, b.tr.ID, 1, 0, b.pairs[0].Player1ID)
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.Equal(t, int64(15), settled[0].Payout)
	assert.Equal(t, int64(105), b.balance(alice))
	assert.Equal(t, int64(10), b.betBank(), "carol's stake stays in the bet bank")
	assert.Equal(t, int64(15), b.store.d.bank)

	_, err = b.svc.Betting.CancelBet(b.ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.balance(carol))
	assert.Zero(t, b.betBank())

	require.NoError(t, b.svc.Tournament.DeleteTournament(b.ctx, b.tr.ID, authorID))
	assert.NotContains(t, b.store.d.tournaments, b.tr.ID)
}

func TestPayoutBets_EmptyCommunityBankLeavesOpenStakes(t *testing.T) {
	b := newBettingSetup(t, models.BankClubFunded)

	b.place(t, alice, 0, b.pairs[0].Player1ID, 10)
	open := b.place(t, carol, 1, b.pairs[1].Player1ID, 10)
	b.decidePair(t, 0, 1)

	_, err := b.svc.Betting.PayoutBets(b.ctx, b.tr.ID, 1, 0, b.pairs[0].Player1ID)
	assert.ErrorIs(t, err, ErrInsufficientBankFunds)
	assert.Equal(t, int64(20), b.betBank())

	_, err = b.svc.Betting.CancelBet(b.ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.balance(carol))
	require.NoError(t, b.svc.Tournament.DeleteTournament(b.ctx, b.tr.ID, authorID))
}

func TestCancelBet_ShortBetBankDrawsFromCommunityBank(t *testing.T) {
	b := newBettingSetup(t, models.BankClubFunded)
	require.NoError(t, b.svc.Ledger.AddToBank(b.ctx, 20, "donation", authorID))
	bet := b.place(t, carol, 1, b.pairs[1].Player1ID, 10)
	b.store.d.betBanks[b.tr.ID] = 4

	_, err := b.svc.Betting.CancelBet(b.ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.balance(carol))
	assert.Zero(t, b.betBank())
	assert.Equal(t, int64(14), b.store.d.bank)
}

func TestPayoutBets_Validation(t *testing.T) {
	b := newBettingSetup(t, models.BankClubFunded)
	bet := b.place(t, alice, 0, b.pairs[0].Player1ID, 10)

	_, err := b.svc.Betting.PayoutBets(b.ctx, b.tr.ID, 1, 0, b.pairs[0].Player1ID)
	assert.ErrorIs(t, err, ErrPairUndecided)

	b.decidePair(t, 0, 1)
	_, err = b.svc.Betting.PayoutBets(b.ctx, b.tr.ID, 1, 0, 999)
	assert.ErrorIs(t, err, ErrInvalidBetTarget)
	_, err = b.svc.Betting.PayoutBets(b.ctx, b.tr.ID, 1, 0, b.pairs[0].Player2ID)
	assert.ErrorIs(t, err, ErrWinnerMismatch)
	_, err = b.svc.Betting.PayoutBets(b.ctx, b.tr.ID, 1, 5, b.pairs[0].Player1ID)
	assert.ErrorIs(t, err, ErrPairNotFound)

	stored, err := b.svc.Betting.GetBet(b.ctx, bet.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOpen())
	assert.Equal(t, int64(90), b.balance(alice))
}
