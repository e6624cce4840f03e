package application

import (
	"errors"
	"math/bits"
	"sort"

	"clubbot/internal/models"
	"clubbot/internal/repository"
)

// activeEntrants returns the distinct bracket identities still in play, in
// registration order.
func activeEntrants(participants []models.Participant, team bool) []int64 {
	seen := make(map[int64]bool)
	var entrants []int64
	for i := range participants {
		p := &participants[i]
		if !p.Active() {
			continue
		}
		id := p.EntrantID(team)
		if seen[id] {
			continue
		}
		seen[id] = true
		entrants = append(entrants, id)
	}
	return entrants
}

// entrantMembers expands an entrant into the individuals behind it.
func entrantMembers(participants []models.Participant, team bool, entrantID int64) []int64 {
	if !team {
		return []int64{entrantID}
	}
	var members []int64
	for i := range participants {
		p := &participants[i]
		if p.TeamID != nil && *p.TeamID == entrantID {
			members = append(members, p.MemberID())
		}
	}
	return members
}

// roundsFor is ceil(log2(n)) for n >= 1.
func roundsFor(entrants int) int {
	if entrants <= 1 {
		return 0
	}
	return bits.Len(uint(entrants - 1))
}

func percentOf(amount, percent int64) int64 {
	return amount * percent / 100
}

// mapNotFound turns the persistence not-found error into the domain one.
func mapNotFound(err, domain error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain
	}
	return err
}

func sortBalances(balances []models.Balance) {
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].Amount != balances[j].Amount {
			return balances[i].Amount > balances[j].Amount
		}
		return balances[i].UserID < balances[j].UserID
	})
}
