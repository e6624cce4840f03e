package application

import (
	"context"
	"maps"
	"slices"
	"sort"
	"time"

	"clubbot/internal/models"
	"clubbot/internal/repository"
)

// memStore is an in-memory repository.Store. WithinTx restores a snapshot
// when fn fails, which is enough to observe all-or-nothing behavior.
type memStore struct {
	d    *memData
	inTx bool
}

type ticketKey struct {
	userID int64
	kind   models.TicketKind
}

type memData struct {
	nextID int

	balances    map[int64]int64
	actions     []models.Action
	bank        int64
	bankHistory []models.BankHistory
	tickets     map[ticketKey]int

	tournaments  map[int]models.Tournament
	participants []models.Participant
	matches      []models.Match
	bets         []models.Bet
	betBanks     map[int]int64

	// failures makes the named operation return the error.
	failures map[string]error
}

func newMemStore() *memStore {
	return &memStore{d: &memData{
		balances:    make(map[int64]int64),
		tickets:     make(map[ticketKey]int),
		tournaments: make(map[int]models.Tournament),
		betBanks:    make(map[int]int64),
		failures:    make(map[string]error),
	}}
}

func (d *memData) clone() *memData {
	return &memData{
		nextID:       d.nextID,
		balances:     maps.Clone(d.balances),
		actions:      slices.Clone(d.actions),
		bank:         d.bank,
		bankHistory:  slices.Clone(d.bankHistory),
		tickets:      maps.Clone(d.tickets),
		tournaments:  maps.Clone(d.tournaments),
		participants: slices.Clone(d.participants),
		matches:      slices.Clone(d.matches),
		bets:         slices.Clone(d.bets),
		betBanks:     maps.Clone(d.betBanks),
		failures:     d.failures,
	}
}

func (d *memData) id() int {
	d.nextID++
	return d.nextID
}

func (d *memData) fail(op string) error {
	return d.failures[op]
}

func (s *memStore) Ledger() repository.Ledger           { return memLedger{s.d} }
func (s *memStore) Tournament() repository.Tournament   { return memTournament{s.d} }
func (s *memStore) Participant() repository.Participant { return memParticipant{s.d} }
func (s *memStore) Match() repository.Match             { return memMatch{s.d} }
func (s *memStore) Bet() repository.Bet                 { return memBet{s.d} }

func (s *memStore) WithinTx(_ context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	snapshot := s.d.clone()
	if err := fn(&memStore{d: s.d, inTx: true}); err != nil {
		*s.d = *snapshot
		return err
	}
	return nil
}

type memLedger struct{ d *memData }

func (l memLedger) GetBalance(_ context.Context, userID int64) (int64, error) {
	return l.d.balances[userID], nil
}

func (l memLedger) LockBalance(_ context.Context, userID int64) (int64, error) {
	if err := l.d.fail("Ledger.LockBalance"); err != nil {
		return 0, err
	}
	return l.d.balances[userID], nil
}

func (l memLedger) AdjustBalance(_ context.Context, userID, delta int64) (int64, error) {
	if err := l.d.fail("Ledger.AdjustBalance"); err != nil {
		return 0, err
	}
	l.d.balances[userID] = max(l.d.balances[userID]+delta, 0)
	return l.d.balances[userID], nil
}

func (l memLedger) GetAllBalances(context.Context) ([]models.Balance, error) {
	var out []models.Balance
	for _, id := range slices.Sorted(maps.Keys(l.d.balances)) {
		out = append(out, models.Balance{UserID: id, Amount: l.d.balances[id]})
	}
	return out, nil
}

func (l memLedger) TopBalances(ctx context.Context, limit int) ([]models.Balance, error) {
	all, _ := l.GetAllBalances(ctx)
	sortBalances(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (l memLedger) InsertAction(_ context.Context, a *models.Action) (int, error) {
	if err := l.d.fail("Ledger.InsertAction"); err != nil {
		return 0, err
	}
	a.ID = l.d.id()
	a.CreatedAt = time.Now()
	l.d.actions = append(l.d.actions, *a)
	return a.ID, nil
}

func (l memLedger) GetAction(_ context.Context, id int) (*models.Action, error) {
	for _, a := range l.d.actions {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (l memLedger) GetActions(_ context.Context, userID int64, limit int) ([]models.Action, error) {
	var out []models.Action
	for i := len(l.d.actions) - 1; i >= 0 && len(out) < limit; i-- {
		if l.d.actions[i].UserID == userID {
			out = append(out, l.d.actions[i])
		}
	}
	return out, nil
}

func (l memLedger) GetBankBalance(context.Context) (int64, error) {
	return l.d.bank, nil
}

func (l memLedger) AdjustBank(_ context.Context, delta int64) (int64, error) {
	if l.d.bank+delta < 0 {
		return 0, repository.ErrInsufficientBalance
	}
	l.d.bank += delta
	return l.d.bank, nil
}

func (l memLedger) InsertBankHistory(_ context.Context, h *models.BankHistory) error {
	h.ID = l.d.id()
	l.d.bankHistory = append(l.d.bankHistory, *h)
	return nil
}

func (l memLedger) AddTickets(_ context.Context, userID int64, kind models.TicketKind, count int) error {
	l.d.tickets[ticketKey{userID, kind}] += count
	return nil
}

func (l memLedger) GetTickets(_ context.Context, userID int64) ([]models.Tickets, error) {
	var out []models.Tickets
	for _, kind := range []models.TicketKind{models.TicketGold, models.TicketNormal} {
		if n := l.d.tickets[ticketKey{userID, kind}]; n > 0 {
			out = append(out, models.Tickets{UserID: userID, Kind: kind, Count: n})
		}
	}
	return out, nil
}

type memTournament struct{ d *memData }

func (r memTournament) Create(_ context.Context, t *models.Tournament) (int, error) {
	t.ID = r.d.id()
	t.CreatedAt = time.Now()
	r.d.tournaments[t.ID] = *t
	return t.ID, nil
}

func (r memTournament) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	t, ok := r.d.tournaments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r memTournament) List(_ context.Context, status models.TournamentStatus) ([]models.Tournament, error) {
	var out []models.Tournament
	for _, id := range slices.Sorted(maps.Keys(r.d.tournaments)) {
		if t := r.d.tournaments[id]; status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r memTournament) update(id int, fn func(t *models.Tournament)) error {
	t, ok := r.d.tournaments[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&t)
	r.d.tournaments[id] = t
	return nil
}

func (r memTournament) UpdateStatus(_ context.Context, id int, status models.TournamentStatus) error {
	return r.update(id, func(t *models.Tournament) { t.Status = status })
}

func (r memTournament) SetRound(_ context.Context, id, round, totalRounds int) error {
	if err := r.d.fail("Tournament.SetRound"); err != nil {
		return err
	}
	return r.update(id, func(t *models.Tournament) {
		t.CurrentRound = round
		t.TotalRounds = totalRounds
	})
}

func (r memTournament) SetWinner(_ context.Context, id int, winnerID int64) error {
	return r.update(id, func(t *models.Tournament) { t.WinnerID = &winnerID })
}

func (r memTournament) SetPlacements(_ context.Context, id int, first, second int64, third *int64) error {
	return r.update(id, func(t *models.Tournament) {
		t.FirstPlaceID = &first
		t.SecondPlaceID = &second
		t.ThirdPlaceID = third
		t.Settled = true
	})
}

func (r memTournament) Delete(_ context.Context, id int) error {
	if _, ok := r.d.tournaments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d.tournaments, id)
	delete(r.d.betBanks, id)
	r.d.participants = slices.DeleteFunc(r.d.participants, func(p models.Participant) bool { return p.TournamentID == id })
	r.d.matches = slices.DeleteFunc(r.d.matches, func(m models.Match) bool { return m.TournamentID == id })
	r.d.bets = slices.DeleteFunc(r.d.bets, func(b models.Bet) bool { return b.TournamentID == id })
	return nil
}

type memParticipant struct{ d *memData }

func (r memParticipant) Add(_ context.Context, p *models.Participant) (int, error) {
	for _, e := range r.d.participants {
		if e.TournamentID == p.TournamentID && e.MemberID() == p.MemberID() {
			return 0, repository.ErrDuplicate
		}
	}
	p.ID = r.d.id()
	r.d.participants = append(r.d.participants, *p)
	return p.ID, nil
}

func (r memParticipant) ListByTournament(_ context.Context, tournamentID int) ([]models.Participant, error) {
	var out []models.Participant
	for _, p := range r.d.participants {
		if p.TournamentID == tournamentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memParticipant) Remove(_ context.Context, tournamentID int, memberID int64) error {
	n := len(r.d.participants)
	r.d.participants = slices.DeleteFunc(r.d.participants, func(p models.Participant) bool {
		return p.TournamentID == tournamentID && p.MemberID() == memberID
	})
	if len(r.d.participants) == n {
		return repository.ErrNotFound
	}
	return nil
}

func (r memParticipant) Eliminate(_ context.Context, tournamentID int, ids []int, round int) error {
	for i := range r.d.participants {
		p := &r.d.participants[i]
		if p.TournamentID == tournamentID && p.EliminatedRound == nil && slices.Contains(ids, p.ID) {
			rnd := round
			p.EliminatedRound = &rnd
		}
	}
	return nil
}

func (r memParticipant) Confirm(_ context.Context, tournamentID int, memberID int64) error {
	for i := range r.d.participants {
		p := &r.d.participants[i]
		if p.TournamentID == tournamentID && p.MemberID() == memberID {
			p.Confirmed = true
			return nil
		}
	}
	return repository.ErrNotFound
}

type memMatch struct{ d *memData }

func (r memMatch) CreateBatch(_ context.Context, matches []models.Match) ([]int, error) {
	var ids []int
	for _, m := range matches {
		m.ID = r.d.id()
		r.d.matches = append(r.d.matches, m)
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (r memMatch) GetByID(_ context.Context, id int) (*models.Match, error) {
	for _, m := range r.d.matches {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memMatch) ListByRound(_ context.Context, tournamentID, round int) ([]models.Match, error) {
	var out []models.Match
	for _, m := range r.d.matches {
		if m.TournamentID == tournamentID && m.RoundNumber == round {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memMatch) ListByTournament(_ context.Context, tournamentID int) ([]models.Match, error) {
	var out []models.Match
	for _, m := range r.d.matches {
		if m.TournamentID == tournamentID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

func (r memMatch) SetResult(_ context.Context, id, result int) error {
	for i := range r.d.matches {
		if r.d.matches[i].ID == id {
			res := result
			r.d.matches[i].Result = &res
			return nil
		}
	}
	return repository.ErrNotFound
}

type memBet struct{ d *memData }

func (r memBet) Create(_ context.Context, b *models.Bet) (int, error) {
	if err := r.d.fail("Bet.Create"); err != nil {
		return 0, err
	}
	b.ID = r.d.id()
	b.CreatedAt = time.Now()
	r.d.bets = append(r.d.bets, *b)
	return b.ID, nil
}

func (r memBet) GetByID(_ context.Context, id int) (*models.Bet, error) {
	for _, b := range r.d.bets {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memBet) filter(keep func(b models.Bet) bool) []models.Bet {
	var out []models.Bet
	for _, b := range r.d.bets {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func (r memBet) ListByTournament(_ context.Context, tournamentID int, round *int) ([]models.Bet, error) {
	return r.filter(func(b models.Bet) bool {
		return b.TournamentID == tournamentID && (round == nil || b.Round == *round)
	}), nil
}

func (r memBet) ListByPair(_ context.Context, tournamentID, round, pairIndex int) ([]models.Bet, error) {
	return r.filter(func(b models.Bet) bool {
		return b.TournamentID == tournamentID && b.Round == round && b.PairIndex == pairIndex
	}), nil
}

func (r memBet) ListByUser(_ context.Context, userID int64) ([]models.Bet, error) {
	return r.filter(func(b models.Bet) bool { return b.UserID == userID }), nil
}

func (r memBet) open(id int) *models.Bet {
	for i := range r.d.bets {
		if r.d.bets[i].ID == id && r.d.bets[i].IsOpen() {
			return &r.d.bets[i]
		}
	}
	return nil
}

func (r memBet) Update(_ context.Context, id int, betOn, amount int64) error {
	b := r.open(id)
	if b == nil {
		return repository.ErrNotFound
	}
	b.BetOn, b.Amount = betOn, amount
	return nil
}

func (r memBet) Delete(_ context.Context, id int) error {
	if r.open(id) == nil {
		return repository.ErrNotFound
	}
	r.d.bets = slices.DeleteFunc(r.d.bets, func(b models.Bet) bool { return b.ID == id })
	return nil
}

func (r memBet) Close(_ context.Context, id int, won bool, payout int64) error {
	b := r.open(id)
	if b == nil {
		return repository.ErrNotFound
	}
	b.Won, b.Payout = &won, payout
	return nil
}

func (r memBet) ResetBank(_ context.Context, tournamentID int) error {
	r.d.betBanks[tournamentID] = 0
	return nil
}

func (r memBet) GetBank(_ context.Context, tournamentID int) (int64, error) {
	balance, ok := r.d.betBanks[tournamentID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return balance, nil
}

func (r memBet) AdjustBank(_ context.Context, tournamentID int, delta int64) (int64, error) {
	if err := r.d.fail("Bet.AdjustBank"); err != nil {
		return 0, err
	}
	balance, ok := r.d.betBanks[tournamentID]
	if !ok || balance+delta < 0 {
		return 0, repository.ErrInsufficientBalance
	}
	r.d.betBanks[tournamentID] = balance + delta
	return balance + delta, nil
}

func (r memBet) DeleteBank(_ context.Context, tournamentID int) (int64, error) {
	balance := r.d.betBanks[tournamentID]
	delete(r.d.betBanks, tournamentID)
	return balance, nil
}
