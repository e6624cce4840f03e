package application

import (
	"context"
	"errors"
	"fmt"

	"clubbot/internal/models"
	"clubbot/internal/repository"

	"github.com/google/uuid"
)

type LedgerServiceImpl struct {
	store  repository.Store
	cache  *repository.BalanceCache
	logger Logger
}

func NewLedgerServiceImpl(store repository.Store, cache *repository.BalanceCache, logger Logger) *LedgerServiceImpl {
	if cache == nil {
		cache = repository.NewBalanceCache()
	}
	return &LedgerServiceImpl{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// balanceWrites collects balances written inside a transaction. Their cache
// entries are dropped once the transaction has committed.
type balanceWrites map[int64]int64

func (s *LedgerServiceImpl) invalidate(writes balanceWrites) {
	for userID := range writes {
		s.cache.Delete(userID)
	}
}

// inTx runs fn in a transaction and invalidates the balances it wrote.
func (s *LedgerServiceImpl) inTx(ctx context.Context, fn func(st repository.Store, writes balanceWrites) error) error {
	writes := make(balanceWrites)
	err := s.store.WithinTx(ctx, func(st repository.Store) error {
		return fn(st, writes)
	})
	if err != nil {
		return err
	}
	s.invalidate(writes)
	return nil
}

// adjust applies delta with a floor of zero and logs the applied delta. It
// must run inside a transaction.
func (s *LedgerServiceImpl) adjust(ctx context.Context, st repository.Store, writes balanceWrites,
	userID, delta int64, reason string, authorID int64, isUndo bool) (int64, error) {
	current, err := st.Ledger().LockBalance(ctx, userID)
	if err != nil {
		return 0, err
	}

	balance, err := st.Ledger().AdjustBalance(ctx, userID, delta)
	if err != nil {
		return 0, err
	}

	_, err = st.Ledger().InsertAction(ctx, &models.Action{
		OperationID: uuid.NewString(),
		UserID:      userID,
		Delta:       balance - current,
		Reason:      reason,
		AuthorID:    authorID,
		IsUndo:      isUndo,
	})
	if err != nil {
		return 0, err
	}

	writes[userID] = balance
	return balance, nil
}

// debit takes amount from the user or fails without touching the balance.
func (s *LedgerServiceImpl) debit(ctx context.Context, st repository.Store, writes balanceWrites,
	userID, amount int64, reason string, authorID int64) (int64, error) {
	current, err := st.Ledger().LockBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	if current < amount {
		return 0, ErrInsufficientFunds
	}
	return s.adjust(ctx, st, writes, userID, -amount, reason, authorID, false)
}

func (s *LedgerServiceImpl) addToBank(ctx context.Context, st repository.Store, amount int64, reason string, authorID int64) error {
	if _, err := st.Ledger().AdjustBank(ctx, amount); err != nil {
		return err
	}
	return st.Ledger().InsertBankHistory(ctx, &models.BankHistory{Delta: amount, Reason: reason, AuthorID: authorID})
}

func (s *LedgerServiceImpl) spendFromBank(ctx context.Context, st repository.Store, amount int64, reason string, authorID int64) (bool, error) {
	_, err := st.Ledger().AdjustBank(ctx, -amount)
	if errors.Is(err, repository.ErrInsufficientBalance) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := st.Ledger().InsertBankHistory(ctx, &models.BankHistory{Delta: -amount, Reason: reason, AuthorID: authorID}); err != nil {
		return false, err
	}
	return true, nil
}

// Adjust changes a balance by delta, clamping at zero.
func (s *LedgerServiceImpl) Adjust(ctx context.Context, userID, delta int64, reason string, authorID int64) (int64, error) {
	var balance int64
	err := s.inTx(ctx, func(st repository.Store, writes balanceWrites) error {
		var err error
		balance, err = s.adjust(ctx, st, writes, userID, delta, reason, authorID, false)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to adjust balance of %d: %w", userID, err)
	}
	s.logger.Info("balance of %d changed by %d (%s), now %d", userID, delta, reason, balance)
	return balance, nil
}

// Debit fails with ErrInsufficientFunds when the balance cannot cover amount.
func (s *LedgerServiceImpl) Debit(ctx context.Context, userID, amount int64, reason string, authorID int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := s.inTx(ctx, func(st repository.Store, writes balanceWrites) error {
		var err error
		balance, err = s.debit(ctx, st, writes, userID, amount, reason, authorID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *LedgerServiceImpl) Balance(ctx context.Context, userID int64) (int64, error) {
	if amount, ok := s.cache.Get(userID); ok {
		return amount, nil
	}
	gen := s.cache.Generation()
	amount, err := s.store.Ledger().GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.cache.SetIfCurrent(userID, amount, gen)
	return amount, nil
}

func (s *LedgerServiceImpl) BankBalance(ctx context.Context) (int64, error) {
	return s.store.Ledger().GetBankBalance(ctx)
}

func (s *LedgerServiceImpl) AddToBank(ctx context.Context, amount int64, reason string, authorID int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.store.WithinTx(ctx, func(st repository.Store) error {
		return s.addToBank(ctx, st, amount, reason, authorID)
	})
}

// SpendFromBank reports false and leaves the bank untouched when amount
// exceeds the bank balance.
func (s *LedgerServiceImpl) SpendFromBank(ctx context.Context, amount int64, reason string, authorID int64) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	var ok bool
	err := s.store.WithinTx(ctx, func(st repository.Store) error {
		var err error
		ok, err = s.spendFromBank(ctx, st, amount, reason, authorID)
		return err
	})
	return ok, err
}

// UndoAction reverts a logged balance change. The revert is clamped like any
// other adjustment and logged as an undo entry.
func (s *LedgerServiceImpl) UndoAction(ctx context.Context, actionID int, authorID int64) (*models.Action, error) {
	var undone *models.Action
	err := s.inTx(ctx, func(st repository.Store, writes balanceWrites) error {
		action, err := st.Ledger().GetAction(ctx, actionID)
		if err != nil {
			return mapNotFound(err, ErrActionNotFound)
		}
		if action.IsUndo {
			return ErrActionNotUndoable
		}
		reason := fmt.Sprintf("undo #%d", action.ID)
		if _, err := s.adjust(ctx, st, writes, action.UserID, -action.Delta, reason, authorID, true); err != nil {
			return err
		}
		undone = action
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("action %d undone by %d", actionID, authorID)
	return undone, nil
}

func (s *LedgerServiceImpl) AddTicket(ctx context.Context, userID int64, kind models.TicketKind, reason string, authorID int64) error {
	if err := s.store.Ledger().AddTickets(ctx, userID, kind, 1); err != nil {
		return err
	}
	s.logger.Info("%s ticket granted to %d by %d (%s)", kind, userID, authorID, reason)
	return nil
}

func (s *LedgerServiceImpl) Tickets(ctx context.Context, userID int64) ([]models.Tickets, error) {
	return s.store.Ledger().GetTickets(ctx, userID)
}

func (s *LedgerServiceImpl) History(ctx context.Context, userID int64, limit int) ([]models.Action, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.Ledger().GetActions(ctx, userID, limit)
}

func (s *LedgerServiceImpl) Leaderboard(ctx context.Context, limit int) ([]models.Balance, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	return s.store.Ledger().TopBalances(ctx, limit)
}

// ResyncCache reloads every balance from storage into the cache. A snapshot
// overtaken by a concurrent write is skipped until the next run.
func (s *LedgerServiceImpl) ResyncCache(ctx context.Context) (int, error) {
	gen := s.cache.Generation()
	balances, err := s.store.Ledger().GetAllBalances(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load balances: %w", err)
	}
	if !s.cache.LoadAll(balances, gen) {
		s.logger.Debug("balance snapshot outdated by a write, keeping cache")
	}
	return s.cache.Size(), nil
}
