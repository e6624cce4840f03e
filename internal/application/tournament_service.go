package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clubbot/internal/models"
	"clubbot/internal/repository"
)

type TournamentServiceImpl struct {
	store    repository.Store
	ledger   *LedgerServiceImpl
	betting  *BettingServiceImpl
	bracket  *BracketGenerator
	locks    *KeyedMutex
	notifier Notifier
	logger   Logger
}

func NewTournamentServiceImpl(store repository.Store, ledger *LedgerServiceImpl, betting *BettingServiceImpl,
	bracket *BracketGenerator, locks *KeyedMutex, notifier Notifier, logger Logger) *TournamentServiceImpl {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &TournamentServiceImpl{
		store:    store,
		ledger:   ledger,
		betting:  betting,
		bracket:  bracket,
		locks:    locks,
		notifier: notifier,
		logger:   logger,
	}
}

type CreateTournamentInput struct {
	Type         models.TournamentType
	Size         int
	StartTime    time.Time
	AuthorID     int64
	BankType     models.BankType
	ManualAmount int64
}

// AdvanceResult describes what Advance did with a completed round.
type AdvanceResult struct {
	Round    int
	Winners  []int64
	Losers   []int64
	Finished bool
	WinnerID int64
	Matches  []models.Match
}

func (s *TournamentServiceImpl) CreateTournament(ctx context.Context, in CreateTournamentInput) (*models.Tournament, error) {
	if in.Type != models.TournamentDuel && in.Type != models.TournamentTeam {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidTournament, in.Type)
	}
	if in.Size < 2 || in.Size%2 != 0 {
		return nil, fmt.Errorf("%w: size must be even and at least 2", ErrInvalidTournament)
	}
	if _, err := CalculateBank(in.BankType, in.ManualAmount); err != nil {
		return nil, err
	}

	t := &models.Tournament{
		Type:         in.Type,
		Size:         in.Size,
		BankType:     in.BankType,
		ManualAmount: in.ManualAmount,
		Status:       models.StatusRegistration,
		StartTime:    in.StartTime,
		AuthorID:     in.AuthorID,
	}
	err := s.store.WithinTx(ctx, func(st repository.Store) error {
		if _, err := st.Tournament().Create(ctx, t); err != nil {
			return err
		}
		return st.Bet().ResetBank(ctx, t.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.Info("tournament %d created by %d (%s, size %d, bank type %d)", t.ID, t.AuthorID, t.Type, t.Size, t.BankType)
	return t, nil
}

func (s *TournamentServiceImpl) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	return getTournament(ctx, s.store, id)
}

func (s *TournamentServiceImpl) ListTournaments(ctx context.Context, status models.TournamentStatus) ([]models.Tournament, error) {
	return s.store.Tournament().List(ctx, status)
}

func getTournament(ctx context.Context, st repository.Store, id int) (*models.Tournament, error) {
	t, err := st.Tournament().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrTournamentNotFound)
	}
	return t, nil
}

type RegisterInput struct {
	DiscordUserID *int64
	PlayerID      *int64
	TeamID        *int64
	TeamName      string
}

func (s *TournamentServiceImpl) RegisterParticipant(ctx context.Context, tournamentID int, in RegisterInput) (*models.Participant, error) {
	if in.DiscordUserID == nil && in.PlayerID == nil {
		return nil, ErrInvalidParticipant
	}

	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	t, err := getTournament(ctx, s.store, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusRegistration {
		return nil, ErrRegistrationClosed
	}
	if t.IsTeam() && in.TeamID == nil {
		return nil, fmt.Errorf("%w: team tournaments need a team", ErrInvalidParticipant)
	}

	participants, err := s.store.Participant().ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	p := &models.Participant{
		TournamentID:  tournamentID,
		DiscordUserID: in.DiscordUserID,
		PlayerID:      in.PlayerID,
		TeamID:        in.TeamID,
		TeamName:      in.TeamName,
	}
	if !t.IsTeam() {
		p.TeamID = nil
		p.TeamName = ""
	}

	entrants := activeEntrants(participants, t.IsTeam())
	newEntrant := true
	for _, id := range entrants {
		if id == p.EntrantID(t.IsTeam()) {
			newEntrant = false
			break
		}
	}
	if newEntrant && len(entrants) >= t.Size {
		return nil, ErrTournamentFull
	}

	if _, err := s.store.Participant().Add(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}

	s.logger.Info("participant %d registered for tournament %d", p.MemberID(), tournamentID)
	return p, nil
}

// UnregisterParticipant removes a member while registration is open. Once
// the bracket exists the entrant set is fixed until the tournament ends.
func (s *TournamentServiceImpl) UnregisterParticipant(ctx context.Context, tournamentID int, memberID int64) error {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	t, err := getTournament(ctx, s.store, tournamentID)
	if err != nil {
		return err
	}
	switch t.Status {
	case models.StatusRegistration:
	case models.StatusFinished:
		return ErrTournamentFinished
	default:
		return ErrRegistrationClosed
	}
	if err := s.store.Participant().Remove(ctx, tournamentID, memberID); err != nil {
		return mapNotFound(err, ErrParticipantNotFound)
	}
	s.logger.Info("participant %d left tournament %d", memberID, tournamentID)
	return nil
}

func (s *TournamentServiceImpl) ConfirmParticipant(ctx context.Context, tournamentID int, memberID int64) error {
	if err := s.store.Participant().Confirm(ctx, tournamentID, memberID); err != nil {
		return mapNotFound(err, ErrParticipantNotFound)
	}
	return nil
}

func (s *TournamentServiceImpl) ListParticipants(ctx context.Context, tournamentID int) ([]models.Participant, error) {
	if _, err := getTournament(ctx, s.store, tournamentID); err != nil {
		return nil, err
	}
	return s.store.Participant().ListByTournament(ctx, tournamentID)
}

// Activate closes registration early.
func (s *TournamentServiceImpl) Activate(ctx context.Context, tournamentID int) error {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	t, err := getTournament(ctx, s.store, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != models.StatusRegistration {
		return ErrInvalidStatusTransition
	}
	return s.store.Tournament().UpdateStatus(ctx, tournamentID, models.StatusActive)
}

// StartRound generates the next round over the surviving entrants. The
// first round also closes registration.
func (s *TournamentServiceImpl) StartRound(ctx context.Context, tournamentID int) ([]models.Match, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	var t *models.Tournament
	var matches []models.Match
	err := s.store.WithinTx(ctx, func(st repository.Store) error {
		var err error
		if t, err = getTournament(ctx, st, tournamentID); err != nil {
			return err
		}
		if t.CurrentRound > 0 {
			if _, err := s.eliminate(ctx, st, t); err != nil {
				return err
			}
		}
		matches, err = s.startRound(ctx, st, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament %d: round %d started with %d matches", tournamentID, t.CurrentRound, len(matches))
	s.notifier.RoundStarted(ctx, t, GroupPairs(matches))
	return matches, nil
}

// startRound generates and stores round CurrentRound+1 and bumps the
// counter. t is updated in place.
func (s *TournamentServiceImpl) startRound(ctx context.Context, st repository.Store, t *models.Tournament) ([]models.Match, error) {
	if t.Status == models.StatusFinished {
		return nil, ErrTournamentFinished
	}

	if t.CurrentRound > 0 {
		previous, err := st.Match().ListByRound(ctx, t.ID, t.CurrentRound)
		if err != nil {
			return nil, err
		}
		if _, _, ok := RoundWinners(previous); !ok {
			return nil, ErrPreviousRoundIncomplete
		}
	}

	participants, err := st.Participant().ListByTournament(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	entrants := activeEntrants(participants, t.IsTeam())

	round := t.CurrentRound + 1
	matches, err := s.bracket.Generate(t.ID, round, entrants)
	if err != nil {
		return nil, err
	}

	ids, err := st.Match().CreateBatch(ctx, matches)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		matches[i].ID = ids[i]
	}

	totalRounds := t.TotalRounds
	if round == 1 {
		totalRounds = roundsFor(len(entrants))
	}
	if err := st.Tournament().SetRound(ctx, t.ID, round, totalRounds); err != nil {
		return nil, err
	}
	if t.Status == models.StatusRegistration {
		if err := st.Tournament().UpdateStatus(ctx, t.ID, models.StatusActive); err != nil {
			return nil, err
		}
		t.Status = models.StatusActive
	}

	t.CurrentRound = round
	t.TotalRounds = totalRounds
	return matches, nil
}

// ReportResult stores the winner side of a match of the current round,
// overwriting any earlier report. It never advances the round.
func (s *TournamentServiceImpl) ReportResult(ctx context.Context, matchID, winner int) (*models.Match, error) {
	if winner != 1 && winner != 2 {
		return nil, ErrInvalidWinner
	}

	m, err := s.store.Match().GetByID(ctx, matchID)
	if err != nil {
		return nil, mapNotFound(err, ErrMatchNotFound)
	}

	unlock := s.locks.Lock(m.TournamentID)
	defer unlock()

	t, err := getTournament(ctx, s.store, m.TournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status == models.StatusFinished {
		return nil, ErrTournamentFinished
	}
	if m.RoundNumber != t.CurrentRound {
		return nil, ErrRoundClosed
	}

	if err := s.store.Match().SetResult(ctx, matchID, winner); err != nil {
		return nil, mapNotFound(err, ErrMatchNotFound)
	}
	m.Result = &winner

	s.logger.Debug("match %d of tournament %d: side %d won", matchID, m.TournamentID, winner)
	return m, nil
}

// RoundPairs returns the pairs of a round with their matches.
func (s *TournamentServiceImpl) RoundPairs(ctx context.Context, tournamentID, round int) ([]models.Pair, error) {
	matches, err := s.store.Match().ListByRound(ctx, tournamentID, round)
	if err != nil {
		return nil, err
	}
	return GroupPairs(matches), nil
}

// ComputeRoundWinners reports ok=false while any match of the round is
// undecided.
func (s *TournamentServiceImpl) ComputeRoundWinners(ctx context.Context, tournamentID, round int) (winners, losers []int64, ok bool, err error) {
	matches, err := s.store.Match().ListByRound(ctx, tournamentID, round)
	if err != nil {
		return nil, nil, false, err
	}
	winners, losers, ok = RoundWinners(matches)
	return winners, losers, ok, nil
}

// PairWinner resolves one pair of a round once all its matches are decided.
func (s *TournamentServiceImpl) PairWinner(ctx context.Context, tournamentID, round, pairIndex int) (int64, bool, error) {
	pairs, err := s.RoundPairs(ctx, tournamentID, round)
	if err != nil {
		return 0, false, err
	}
	if pairIndex < 0 || pairIndex >= len(pairs) {
		return 0, false, ErrPairNotFound
	}
	winner, _, ok := PairResult(pairs[pairIndex])
	return winner, ok, nil
}

// Advance closes the current round: losers are eliminated, then either the
// next round starts or the last survivor wins the tournament.
func (s *TournamentServiceImpl) Advance(ctx context.Context, tournamentID int) (*AdvanceResult, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	var t *models.Tournament
	res := &AdvanceResult{}
	err := s.store.WithinTx(ctx, func(st repository.Store) error {
		var err error
		if t, err = getTournament(ctx, st, tournamentID); err != nil {
			return err
		}
		if t.Status != models.StatusActive {
			return ErrInvalidStatusTransition
		}
		if t.CurrentRound == 0 {
			return ErrNoActiveRound
		}
		res.Round = t.CurrentRound

		matches, err := st.Match().ListByRound(ctx, t.ID, t.CurrentRound)
		if err != nil {
			return err
		}
		var ok bool
		if res.Winners, res.Losers, ok = RoundWinners(matches); !ok {
			return ErrPreviousRoundIncomplete
		}

		survivors, err := s.eliminate(ctx, st, t)
		if err != nil {
			return err
		}

		switch len(survivors) {
		case 0:
			return ErrNoSurvivors
		case 1:
			res.Finished = true
			res.WinnerID = survivors[0]
			if err := st.Tournament().SetWinner(ctx, t.ID, res.WinnerID); err != nil {
				return err
			}
			return st.Tournament().UpdateStatus(ctx, t.ID, models.StatusFinished)
		}

		res.Matches, err = s.startRound(ctx, st, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	if res.Finished {
		t.Status = models.StatusFinished
		t.WinnerID = &res.WinnerID
		s.logger.Info("tournament %d finished, winner %d", tournamentID, res.WinnerID)
		s.notifier.TournamentFinished(ctx, t, res.WinnerID)
		return res, nil
	}

	s.logger.Info("tournament %d advanced to round %d with %d entrants", tournamentID, t.CurrentRound, len(res.Winners))
	s.notifier.RoundStarted(ctx, t, GroupPairs(res.Matches))
	return res, nil
}

// eliminate knocks out every active participant whose entrant did not win
// the current round and returns the surviving entrants.
func (s *TournamentServiceImpl) eliminate(ctx context.Context, st repository.Store, t *models.Tournament) ([]int64, error) {
	matches, err := st.Match().ListByRound(ctx, t.ID, t.CurrentRound)
	if err != nil {
		return nil, err
	}
	winners, _, ok := RoundWinners(matches)
	if !ok {
		return nil, ErrPreviousRoundIncomplete
	}
	won := make(map[int64]bool, len(winners))
	for _, id := range winners {
		won[id] = true
	}

	participants, err := st.Participant().ListByTournament(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	var out []int
	for i := range participants {
		p := &participants[i]
		if p.Active() && !won[p.EntrantID(t.IsTeam())] {
			out = append(out, p.ID)
			round := t.CurrentRound
			p.EliminatedRound = &round
		}
	}
	if err := st.Participant().Eliminate(ctx, t.ID, out, t.CurrentRound); err != nil {
		return nil, err
	}
	return activeEntrants(participants, t.IsTeam()), nil
}

// DeleteTournament refunds open bets and removes the tournament with all of
// its matches, participants and bets.
func (s *TournamentServiceImpl) DeleteTournament(ctx context.Context, tournamentID int, adminID int64) error {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	err := s.ledger.inTx(ctx, func(st repository.Store, writes balanceWrites) error {
		t, err := getTournament(ctx, st, tournamentID)
		if err != nil {
			return err
		}
		if _, _, err := s.betting.refundAll(ctx, st, writes, t, adminID); err != nil {
			return err
		}
		return st.Tournament().Delete(ctx, tournamentID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("tournament %d deleted by %d", tournamentID, adminID)
	return nil
}
