package application

import (
	"context"
	"fmt"

	"clubbot/internal/models"
	"clubbot/internal/repository"
)

// BankSplit is the prize bank of a tournament and who pays for it.
type BankSplit struct {
	Total    int64
	UserPart int64
	BankPart int64
}

// CalculateBank applies the funding policy of bankType.
func CalculateBank(bankType models.BankType, manualAmount int64) (BankSplit, error) {
	var total, userPercent int64
	switch bankType {
	case models.BankUserFunded:
		if manualAmount < userFundedMinimum {
			return BankSplit{}, fmt.Errorf("%w: minimum is %d", ErrManualAmountTooLow, userFundedMinimum)
		}
		total, userPercent = manualAmount, userFundedPercent
	case models.BankMixed:
		total, userPercent = fixedBankTotal, mixedUserPercent
	case models.BankClubFunded:
		total, userPercent = fixedBankTotal, 0
	case models.BankTest:
		return BankSplit{}, nil
	default:
		return BankSplit{}, ErrInvalidBankType
	}

	userPart := percentOf(total, userPercent)
	return BankSplit{Total: total, UserPart: userPart, BankPart: total - userPart}, nil
}

// chargeBankContribution takes the user part from the payer and the bank
// part from the community bank. Callers run it in a transaction so a failed
// second leg undoes the first.
func (s *TournamentServiceImpl) chargeBankContribution(ctx context.Context, st repository.Store, writes balanceWrites,
	payerID int64, split BankSplit, reason string) error {
	if split.UserPart > 0 {
		if _, err := s.ledger.debit(ctx, st, writes, payerID, split.UserPart, reason, payerID); err != nil {
			return err
		}
	}
	if split.BankPart > 0 {
		ok, err := s.ledger.spendFromBank(ctx, st, split.BankPart, reason, payerID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientBankFunds
		}
	}
	return nil
}

// distributeRewards pays every first-place member half of the bank plus a
// gold ticket and every second-place member a quarter plus a normal ticket.
func (s *TournamentServiceImpl) distributeRewards(ctx context.Context, st repository.Store, writes balanceWrites,
	tournamentID int, bankTotal int64, first, second []int64, authorID int64) error {
	places := []struct {
		place   int
		members []int64
		percent int64
	}{
		{1, first, firstPlacePercent},
		{2, second, secondPlacePercent},
	}

	for _, pl := range places {
		reward := percentOf(bankTotal, pl.percent)
		reason := fmt.Sprintf("tournament #%d place %d", tournamentID, pl.place)
		for _, userID := range pl.members {
			if reward > 0 {
				if _, err := s.ledger.adjust(ctx, st, writes, userID, reward, reason, authorID, false); err != nil {
					return err
				}
			}
			if err := st.Ledger().AddTickets(ctx, userID, ticketRewards[pl.place], 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// FinishTournament settles a tournament exactly once: it charges the
// funding, pays the placements and marks the tournament finished.
func (s *TournamentServiceImpl) FinishTournament(ctx context.Context, tournamentID int, firstID, secondID int64, thirdID *int64) error {
	if firstID == secondID {
		return fmt.Errorf("%w: first and second place must differ", ErrInvalidWinner)
	}

	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	var t *models.Tournament
	var split BankSplit
	err := s.ledger.inTx(ctx, func(st repository.Store, writes balanceWrites) error {
		var err error
		if t, err = getTournament(ctx, st, tournamentID); err != nil {
			return err
		}
		if t.Settled {
			return ErrAlreadySettled
		}
		if t.Status == models.StatusRegistration {
			return ErrInvalidStatusTransition
		}

		if split, err = CalculateBank(t.BankType, t.ManualAmount); err != nil {
			return err
		}

		if !t.BankType.IsTest() {
			reason := fmt.Sprintf("tournament #%d bank", t.ID)
			if err := s.chargeBankContribution(ctx, st, writes, t.AuthorID, split, reason); err != nil {
				return err
			}

			participants, err := st.Participant().ListByTournament(ctx, t.ID)
			if err != nil {
				return err
			}
			first := entrantMembers(participants, t.IsTeam(), firstID)
			second := entrantMembers(participants, t.IsTeam(), secondID)
			if len(first) == 0 || len(second) == 0 {
				return ErrParticipantNotFound
			}
			if err := s.distributeRewards(ctx, st, writes, t.ID, split.Total, first, second, t.AuthorID); err != nil {
				return err
			}
		}

		if err := st.Tournament().SetPlacements(ctx, t.ID, firstID, secondID, thirdID); err != nil {
			return err
		}
		if t.WinnerID == nil {
			if err := st.Tournament().SetWinner(ctx, t.ID, firstID); err != nil {
				return err
			}
		}
		if t.Status != models.StatusFinished {
			return st.Tournament().UpdateStatus(ctx, t.ID, models.StatusFinished)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("tournament %d settled: bank %d (user %d, club %d), first %d, second %d",
		tournamentID, split.Total, split.UserPart, split.BankPart, firstID, secondID)
	t.Status = models.StatusFinished
	t.Settled = true
	s.notifier.TournamentSettled(ctx, t, firstID, secondID, thirdID)
	return nil
}
