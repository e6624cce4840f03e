package application

import (
	"math/rand/v2"
	"sync"

	"clubbot/internal/models"
)

// BracketGenerator pairs entrants at random and lays out the matches of a
// round. It is safe for concurrent use.
type BracketGenerator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	modes []string
	maps  map[string][]string
}

// NewBracketGenerator uses src for every random choice; a nil src seeds
// from the runtime.
func NewBracketGenerator(src rand.Source) *BracketGenerator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	maps := make(map[string][]string, len(modeCatalog))
	for _, m := range modeCatalog {
		maps[m.Name] = m.Maps
	}
	return &BracketGenerator{
		rng:   rand.New(src),
		modes: roundModes,
		maps:  maps,
	}
}

// Generate returns the matches of one round in pair-major, mode-minor order.
func (g *BracketGenerator) Generate(tournamentID, round int, entrants []int64) ([]models.Match, error) {
	if len(entrants) < 2 {
		return nil, ErrNotEnoughParticipants
	}
	if len(entrants)%2 != 0 {
		return nil, ErrOddParticipantCount
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	shuffled := make([]int64, len(entrants))
	copy(shuffled, entrants)
	g.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	matches := make([]models.Match, 0, len(shuffled)/2*len(g.modes))
	for i := 0; i+1 < len(shuffled); i += 2 {
		for _, mode := range g.modes {
			matches = append(matches, models.Match{
				TournamentID: tournamentID,
				RoundNumber:  round,
				Player1ID:    shuffled[i],
				Player2ID:    shuffled[i+1],
				Mode:         mode,
				MapID:        g.pickMap(mode),
			})
		}
	}
	return matches, nil
}

func (g *BracketGenerator) pickMap(mode string) string {
	pool := g.maps[mode]
	if len(pool) == 0 {
		return ""
	}
	return pool[g.rng.IntN(len(pool))]
}

// GroupPairs rebuilds the pairs of a round from its matches. Pair indexes
// follow the first appearance of each (player1, player2) tuple.
func GroupPairs(matches []models.Match) []models.Pair {
	type key struct{ p1, p2 int64 }
	index := make(map[key]int)
	var pairs []models.Pair
	for _, m := range matches {
		k := key{m.Player1ID, m.Player2ID}
		i, ok := index[k]
		if !ok {
			i = len(pairs)
			index[k] = i
			pairs = append(pairs, models.Pair{Index: i, Player1ID: m.Player1ID, Player2ID: m.Player2ID})
		}
		pairs[i].Matches = append(pairs[i].Matches, m)
	}
	return pairs
}

// PairResult resolves a decided pair by majority of its match results. A
// tied pair goes to whoever won the last match.
func PairResult(p models.Pair) (winner, loser int64, ok bool) {
	if !p.Decided() {
		return 0, 0, false
	}
	var wins1, wins2 int
	for i := range p.Matches {
		if *p.Matches[i].Result == 1 {
			wins1++
		} else {
			wins2++
		}
	}
	switch {
	case wins1 > wins2:
		return p.Player1ID, p.Player2ID, true
	case wins2 > wins1:
		return p.Player2ID, p.Player1ID, true
	}
	last := p.Matches[len(p.Matches)-1]
	return last.Winner()
}

// RoundWinners returns one winner and one loser per pair, or ok=false while
// any match of the round is undecided.
func RoundWinners(matches []models.Match) (winners, losers []int64, ok bool) {
	if len(matches) == 0 {
		return nil, nil, false
	}
	for i := range matches {
		if !matches[i].Decided() {
			return nil, nil, false
		}
	}
	for _, p := range GroupPairs(matches) {
		w, l, _ := PairResult(p)
		winners = append(winners, w)
		losers = append(losers, l)
	}
	return winners, losers, true
}
