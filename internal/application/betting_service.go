package application

import (
	"context"
	"errors"
	"fmt"

	"clubbot/internal/models"
	"clubbot/internal/repository"
)

type BettingServiceImpl struct {
	store  repository.Store
	ledger *LedgerServiceImpl
	locks  *KeyedMutex
	logger Logger
}

func NewBettingServiceImpl(store repository.Store, ledger *LedgerServiceImpl, locks *KeyedMutex, logger Logger) *BettingServiceImpl {
	return &BettingServiceImpl{
		store:  store,
		ledger: ledger,
		locks:  locks,
		logger: logger,
	}
}

// Stage buckets a round: 3 for the final, 2 for the semifinal, 1 otherwise.
func Stage(round, totalRounds int) int {
	switch {
	case totalRounds >= 4 && round <= totalRounds-3:
		return 1
	case round == totalRounds:
		return 3
	case round == totalRounds-1:
		return 2
	default:
		return 1
	}
}

// StageRules returns the minimum bet and the payout multiplier in percent.
func StageRules(stage int) (minBet, multiplierPercent int64) {
	r, ok := stageRules[stage]
	if !ok {
		r = stageRules[1]
	}
	return r.minBet, r.multiplierPercent
}

// Payout is floor(amount * (1 + multiplier)).
func Payout(amount int64, stage int) int64 {
	_, pct := StageRules(stage)
	return amount * (100 + pct) / 100
}

type PlaceBetInput struct {
	TournamentID int
	Round        int
	PairIndex    int
	UserID       int64
	BetOn        int64
	Amount       int64
}

// openPair loads the pair a bet refers to and checks it still takes bets.
func openPair(ctx context.Context, st repository.Store, t *models.Tournament, round, pairIndex int) (*models.Pair, error) {
	if t.Status == models.StatusFinished {
		return nil, ErrBettingClosed
	}
	matches, err := st.Match().ListByRound(ctx, t.ID, round)
	if err != nil {
		return nil, err
	}
	pairs := GroupPairs(matches)
	if pairIndex < 0 || pairIndex >= len(pairs) {
		return nil, ErrPairNotFound
	}
	if pairs[pairIndex].Started() {
		return nil, ErrBettingClosed
	}
	return &pairs[pairIndex], nil
}

func (s *BettingServiceImpl) PlaceBet(ctx context.Context, in PlaceBetInput) (*models.Bet, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	unlock := s.locks.Lock(in.TournamentID)
	defer unlock()

	bet := &models.Bet{
		TournamentID: in.TournamentID,
		Round:        in.Round,
		PairIndex:    in.PairIndex,
		UserID:       in.UserID,
		BetOn:        in.BetOn,
		Amount:       in.Amount,
	}
	err := s.ledger.inTx(ctx, func(st repository.Store, writes balanceWrites) error {
		t, err := getTournament(ctx, st, in.TournamentID)
		if err != nil {
			return err
		}

		minBet, _ := StageRules(Stage(in.Round, t.TotalRounds))
		if in.Amount < minBet {
			return fmt.Errorf("%w: minimum is %d", ErrBetBelowMinimum, minBet)
		}

		pair, err := openPair(ctx, st, t, in.Round, in.PairIndex)
		if err != nil {
			return err
		}
		if !pair.Has(in.BetOn) {
			return ErrInvalidBetTarget
		}

		existing, err := st.Bet().ListByPair(ctx, t.ID, in.Round, in.PairIndex)
		if err != nil {
			return err
		}
		for i := range existing {
			if existing[i].UserID == in.UserID && existing[i].IsOpen() {
				return ErrBetExists
			}
		}

		if _, err := st.Bet().GetBank(ctx, t.ID); err != nil {
			return mapNotFound(err, ErrBettingClosed)
		}

		if _, err := st.Bet().Create(ctx, bet); err != nil {
			return err
		}
		if t.BankType.IsTest() {
			return nil
		}

		reason := fmt.Sprintf("bet #%d on tournament #%d", bet.ID, t.ID)
		if _, err := s.ledger.debit(ctx, st, writes, in.UserID, in.Amount, reason, in.UserID); err != nil {
			return err
		}
		_, err = st.Bet().AdjustBank(ctx, t.ID, in.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bet %d: user %d staked %d on %d (tournament %d, round %d, pair %d)",
		bet.ID, bet.UserID, bet.Amount, bet.BetOn, bet.TournamentID, bet.Round, bet.PairIndex)
	return bet, nil
}

// decidedPair returns the pair at pairIndex after checking that all of its
// matches are decided in favor of winnerID.
func decidedPair(ctx context.Context, st repository.Store, tournamentID, round, pairIndex int, winnerID int64) (*models.Pair, error) {
	matches, err := st.Match().ListByRound(ctx, tournamentID, round)
	if err != nil {
		return nil, err
	}
	pairs := GroupPairs(matches)
	if pairIndex < 0 || pairIndex >= len(pairs) {
		return nil, ErrPairNotFound
	}
	pair := &pairs[pairIndex]
	if !pair.Has(winnerID) {
		return nil, ErrInvalidBetTarget
	}
	winner, _, ok := PairResult(*pair)
	if !ok {
		return nil, ErrPairUndecided
	}
	if winner != winnerID {
		return nil, ErrWinnerMismatch
	}
	return pair, nil
}

// openStakes sums the stakes of open bets outside the given pair. The bet
// bank keeps them in reserve for refunds.
func openStakes(bets []models.Bet, round, pairIndex int) int64 {
	var total int64
	for _, b := range bets {
		if b.IsOpen() && (b.Round != round || b.PairIndex != pairIndex) {
			total += b.Amount
		}
	}
	return total
}

// PayoutBets settles every open bet on a decided pair against its winner.
// Winnings come from the bet bank without touching the stakes of other open
// bets; a shortfall is drawn from the community bank.
func (s *BettingServiceImpl) PayoutBets(ctx context.Context, tournamentID, round, pairIndex int, winnerID int64) ([]models.Bet, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	var settled []models.Bet
	err := s.ledger.inTx(ctx, func(st repository.Store, writes balanceWrites) error {
		t, err := getTournament(ctx, st, tournamentID)
		if err != nil {
			return err
		}
		if _, err := decidedPair(ctx, st, tournamentID, round, pairIndex, winnerID); err != nil {
			return err
		}
		stage := Stage(round, t.TotalRounds)

		all, err := st.Bet().ListByTournament(ctx, tournamentID, nil)
		if err != nil {
			return err
		}
		reserved := openStakes(all, round, pairIndex)

		bets, err := st.Bet().ListByPair(ctx, tournamentID, round, pairIndex)
		if err != nil {
			return err
		}
		for _, b := range bets {
			if !b.IsOpen() {
				continue
			}
			won := b.BetOn == winnerID
			var payout int64
			if won {
				payout = Payout(b.Amount, stage)
			}

			if won && !t.BankType.IsTest() {
				if err := s.drawFromBetBank(ctx, st, t.ID, payout, reserved, b.UserID); err != nil {
					return err
				}
				reason := fmt.Sprintf("bet #%d won", b.ID)
				if _, err := s.ledger.adjust(ctx, st, writes, b.UserID, payout, reason, b.UserID, false); err != nil {
					return err
				}
			}

			if err := st.Bet().Close(ctx, b.ID, won, payout); err != nil {
				return err
			}
			b.Won = &won
			b.Payout = payout
			settled = append(settled, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament %d round %d pair %d: %d bets settled for winner %d",
		tournamentID, round, pairIndex, len(settled), winnerID)
	return settled, nil
}

// drawFromBetBank takes amount out of the bet bank, leaving reserved in it,
// and covers the rest from the community bank.
func (s *BettingServiceImpl) drawFromBetBank(ctx context.Context, st repository.Store, tournamentID int, amount, reserved, userID int64) error {
	balance, err := st.Bet().GetBank(ctx, tournamentID)
	if err != nil {
		return err
	}
	take := min(amount, max(balance-reserved, 0))
	if take > 0 {
		if _, err := st.Bet().AdjustBank(ctx, tournamentID, -take); err != nil {
			return err
		}
	}

	shortfall := amount - take
	if shortfall == 0 {
		return nil
	}
	reason := fmt.Sprintf("bet bank #%d shortfall", tournamentID)
	ok, err := s.ledger.spendFromBank(ctx, st, shortfall, reason, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientBankFunds
	}
	return nil
}

// loadOpenBet locks the bet's tournament and returns the bet, which must
// still be open. The returned unlock must be called.
func (s *BettingServiceImpl) loadOpenBet(ctx context.Context, betID int) (*models.Bet, func(), error) {
	b, err := s.store.Bet().GetByID(ctx, betID)
	if err != nil {
		return nil, nil, mapNotFound(err, ErrBetNotFound)
	}
	unlock := s.locks.Lock(b.TournamentID)

	b, err = s.store.Bet().GetByID(ctx, betID)
	if err != nil {
		unlock()
		return nil, nil, mapNotFound(err, ErrBetNotFound)
	}
	if !b.IsOpen() {
		unlock()
		return nil, nil, ErrBetSettled
	}
	return b, unlock, nil
}

// CancelBet deletes an open bet and returns the stake to the bettor.
func (s *BettingServiceImpl) CancelBet(ctx context.Context, betID int) (*models.Bet, error) {
	b, unlock, err := s.loadOpenBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.ledger.inTx(ctx, func(st repository.Store, writes balanceWrites) error {
		t, err := getTournament(ctx, st, b.TournamentID)
		if err != nil {
			return err
		}
		return s.refund(ctx, st, writes, t, b, b.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bet %d canceled, %d returned to %d", b.ID, b.Amount, b.UserID)
	return b, nil
}

func (s *BettingServiceImpl) refund(ctx context.Context, st repository.Store, writes balanceWrites,
	t *models.Tournament, b *models.Bet, authorID int64) error {
	if err := st.Bet().Delete(ctx, b.ID); err != nil {
		return mapNotFound(err, ErrBetNotFound)
	}
	if t.BankType.IsTest() {
		return nil
	}

	if err := s.drawFromBetBank(ctx, st, t.ID, b.Amount, 0, authorID); err != nil {
		return err
	}
	reason := fmt.Sprintf("bet #%d refund", b.ID)
	_, err := s.ledger.adjust(ctx, st, writes, b.UserID, b.Amount, reason, authorID, false)
	return err
}

// ModifyBet changes the target and stake of an open bet, settling the
// stake difference between the bettor and the bet bank.
func (s *BettingServiceImpl) ModifyBet(ctx context.Context, betID int, newBetOn, newAmount, userID int64) (*models.Bet, error) {
	if newAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	b, unlock, err := s.loadOpenBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if b.UserID != userID {
		return nil, ErrNotBetOwner
	}

	err = s.ledger.inTx(ctx, func(st repository.Store, writes balanceWrites) error {
		t, err := getTournament(ctx, st, b.TournamentID)
		if err != nil {
			return err
		}

		minBet, _ := StageRules(Stage(b.Round, t.TotalRounds))
		if newAmount < minBet {
			return fmt.Errorf("%w: minimum is %d", ErrBetBelowMinimum, minBet)
		}
		pair, err := openPair(ctx, st, t, b.Round, b.PairIndex)
		if err != nil {
			return err
		}
		if !pair.Has(newBetOn) {
			return ErrInvalidBetTarget
		}

		diff := newAmount - b.Amount
		if diff != 0 && !t.BankType.IsTest() {
			reason := fmt.Sprintf("bet #%d changed", b.ID)
			if diff > 0 {
				if _, err := s.ledger.debit(ctx, st, writes, userID, diff, reason, userID); err != nil {
					return err
				}
				if _, err := st.Bet().AdjustBank(ctx, t.ID, diff); err != nil {
					return err
				}
			} else {
				if err := s.drawFromBetBank(ctx, st, t.ID, -diff, 0, userID); err != nil {
					return err
				}
				if _, err := s.ledger.adjust(ctx, st, writes, userID, -diff, reason, userID, false); err != nil {
					return err
				}
			}
		}

		return st.Bet().Update(ctx, b.ID, newBetOn, newAmount)
	})
	if err != nil {
		return nil, err
	}

	b.BetOn = newBetOn
	b.Amount = newAmount
	s.logger.Info("bet %d changed to %d on %d", b.ID, newAmount, newBetOn)
	return b, nil
}

// RefundAllBets returns every open stake of a tournament, then closes its
// bet bank and sweeps the remainder into the community bank.
func (s *BettingServiceImpl) RefundAllBets(ctx context.Context, tournamentID int, adminID int64) (int, int64, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	var refunded int
	var swept int64
	err := s.ledger.inTx(ctx, func(st repository.Store, writes balanceWrites) error {
		t, err := getTournament(ctx, st, tournamentID)
		if err != nil {
			return err
		}
		refunded, swept, err = s.refundAll(ctx, st, writes, t, adminID)
		return err
	})
	if err != nil {
		return 0, 0, err
	}

	s.logger.Info("tournament %d: %d bets refunded by %d, %d swept to the bank", tournamentID, refunded, adminID, swept)
	return refunded, swept, nil
}

func (s *BettingServiceImpl) refundAll(ctx context.Context, st repository.Store, writes balanceWrites,
	t *models.Tournament, adminID int64) (int, int64, error) {
	bets, err := st.Bet().ListByTournament(ctx, t.ID, nil)
	if err != nil {
		return 0, 0, err
	}

	var refunded int
	for i := range bets {
		if !bets[i].IsOpen() {
			continue
		}
		if err := s.refund(ctx, st, writes, t, &bets[i], adminID); err != nil {
			return 0, 0, err
		}
		refunded++
	}

	remainder, err := st.Bet().DeleteBank(ctx, t.ID)
	if err != nil {
		return 0, 0, err
	}
	if remainder > 0 {
		reason := fmt.Sprintf("bet bank #%d closed", t.ID)
		if err := s.ledger.addToBank(ctx, st, remainder, reason, adminID); err != nil {
			return 0, 0, err
		}
	}
	return refunded, remainder, nil
}

func (s *BettingServiceImpl) GetBet(ctx context.Context, betID int) (*models.Bet, error) {
	b, err := s.store.Bet().GetByID(ctx, betID)
	if err != nil {
		return nil, mapNotFound(err, ErrBetNotFound)
	}
	return b, nil
}

func (s *BettingServiceImpl) ListBets(ctx context.Context, tournamentID int, round *int) ([]models.Bet, error) {
	return s.store.Bet().ListByTournament(ctx, tournamentID, round)
}

func (s *BettingServiceImpl) UserBets(ctx context.Context, userID int64) ([]models.Bet, error) {
	return s.store.Bet().ListByUser(ctx, userID)
}

func (s *BettingServiceImpl) BetBank(ctx context.Context, tournamentID int) (int64, error) {
	balance, err := s.store.Bet().GetBank(ctx, tournamentID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	return balance, err
}
