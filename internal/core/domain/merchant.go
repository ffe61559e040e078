package domain

import (
	"time"

	"github.com/google/uuid"
)

// Merchant is a QR-spend acceptor. CashbackRate is the percentage of each
// sale the merchant gives up to fund the spending-reward split.
type Merchant struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	WalletID     uuid.UUID `json:"wallet_id"`
	CashbackRate float64   `json:"cashback_rate"` // percent, 0..100
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
