package domain

import (
	"time"

	"github.com/google/uuid"
)

const maxPINAttempts = 3

// Wallet is the one-to-one cash/points account of a Member. Balance and
// Points are integer minor-currency and reward-point units and are never
// negative; every mutation is paired with exactly one Transaction row.
type Wallet struct {
	ID          uuid.UUID `json:"id"`
	MemberID    uuid.UUID `json:"member_id"`
	Balance     int64     `json:"balance"` // minor units (sen)
	Points      int64     `json:"points"`
	Locked      bool      `json:"locked"`
	PINAttempts int       `json:"-"` // failed spend-PIN entries since last success
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CanSpend reports whether the merchant-payment flow may debit this wallet.
func (w *Wallet) CanSpend() bool {
	return !w.Locked && w.PINAttempts < maxPINAttempts
}
