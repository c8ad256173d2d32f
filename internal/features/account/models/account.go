package models

import (
	"time"

	"github.com/samber/lo"
)

type OrderStatus string

const (
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
)

type TopupStatus string

const (
	TopupPending  TopupStatus = "pending"
	TopupApproved TopupStatus = "approved"
)

// Order is an append-only purchase record. Price is a snapshot taken
// at purchase time and is never recomputed.
type Order struct {
	OrderID   string      `json:"order_id"`
	ItemCode  string      `json:"item_code"`
	GameID    string      `json:"game_id"`
	ServerID  string      `json:"server_id"`
	Price     int64       `json:"price"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// Topup is an append-only deposit record. It transitions
// pending -> approved only through an explicit admin decision.
type Topup struct {
	Amount     int64       `json:"amount"`
	Status     TopupStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	ApprovedAt *time.Time  `json:"approved_at,omitempty"`
}

// NewPendingTopup builds a deposit record awaiting admin review.
func NewPendingTopup(amount int64) Topup {
	return Topup{Amount: amount, Status: TopupPending, CreatedAt: time.Now()}
}

// Account is a ledger-tracked identity. Balance is in minor currency
// units and never goes negative. Accounts are created on first
// authorized contact and never deleted.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle"`
	Balance   int64     `json:"balance"`
	Orders    []Order   `json:"orders"`
	Topups    []Topup   `json:"topups"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPendingTopup reports whether any top-up is still awaiting an
// admin decision.
func (a *Account) HasPendingTopup() bool {
	return lo.SomeBy(a.Topups, func(t Topup) bool {
		return t.Status == TopupPending
	})
}

// PendingTopups returns every top-up still awaiting an admin decision.
func (a *Account) PendingTopups() []Topup {
	return lo.Filter(a.Topups, func(t Topup, _ int) bool {
		return t.Status == TopupPending
	})
}

// LatestPendingIndex returns the index of the most recent pending
// top-up with the given amount, scanning newest first, or -1. This is
// the compatibility fallback for amount-matched approvals; it is
// ambiguous when two pending entries share an amount.
func (a *Account) LatestPendingIndex(amount int64) int {
	for i := len(a.Topups) - 1; i >= 0; i-- {
		if a.Topups[i].Status == TopupPending && a.Topups[i].Amount == amount {
			return i
		}
	}
	return -1
}
