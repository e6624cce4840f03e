package repository

import (
	"sync"

	"clubbot/internal/models"
)

// BalanceCache keeps committed balances in memory for read-heavy commands.
// Writers drop entries after their transaction commits; readers fill them
// from the database. Every Delete bumps the generation, and fills started
// under an older generation are discarded so a slow reader cannot put back
// a balance that a later commit replaced.
type BalanceCache struct {
	mu         sync.RWMutex
	balances   map[int64]int64 // user ID -> balance
	generation uint64
}

func NewBalanceCache() *BalanceCache {
	return &BalanceCache{
		balances: make(map[int64]int64),
	}
}

func (c *BalanceCache) Get(userID int64) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	amount, found := c.balances[userID]
	return amount, found
}

// Generation must be read before loading the value passed to SetIfCurrent
// or LoadAll.
func (c *BalanceCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// SetIfCurrent stores amount unless an entry was deleted since gen.
func (c *BalanceCache) SetIfCurrent(userID, amount int64, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.balances[userID] = amount
	return true
}

func (c *BalanceCache) Delete(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.balances, userID)
	c.generation++
}

// LoadAll replaces the cache contents with a fresh snapshot (cache warming).
// It reports false and keeps the current contents when a write landed
// after gen was read.
func (c *BalanceCache) LoadAll(balances []models.Balance, gen uint64) bool {
	fresh := make(map[int64]int64, len(balances))
	for _, b := range balances {
		fresh[b.UserID] = b.Amount
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.balances = fresh
	return true
}

func (c *BalanceCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.balances)
}
