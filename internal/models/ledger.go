package models

import "time"

type Balance struct {
	UserID int64 `json:"user_id" db:"user_id"`
	Amount int64 `json:"amount" db:"amount"`
}

// Action is an append-only ledger entry describing one balance change.
type Action struct {
	ID          int       `json:"id" db:"id"`
	OperationID string    `json:"operation_id" db:"operation_id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	Delta       int64     `json:"delta" db:"delta"`
	Reason      string    `json:"reason" db:"reason"`
	AuthorID    int64     `json:"author_id" db:"author_id"`
	IsUndo      bool      `json:"is_undo" db:"is_undo"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type BankHistory struct {
	ID        int       `json:"id" db:"id"`
	Delta     int64     `json:"delta" db:"delta"`
	Reason    string    `json:"reason" db:"reason"`
	AuthorID  int64     `json:"author_id" db:"author_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type TicketKind string

const (
	TicketGold   TicketKind = "gold"
	TicketNormal TicketKind = "normal"
)

type Tickets struct {
	UserID int64      `json:"user_id" db:"user_id"`
	Kind   TicketKind `json:"kind" db:"kind"`
	Count  int        `json:"count" db:"count"`
}
