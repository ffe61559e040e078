package domain

import (
	"time"

	"github.com/google/uuid"
)

// SystemType selects which ledger a transaction row belongs to.
type SystemType string

const (
	SystemCash    SystemType = "CASH"
	SystemPoint   SystemType = "POINT"
	SystemGateway SystemType = "GATEWAY" // rows tracked against an external bill
)

// EntryType is the direction of the balance movement.
type EntryType string

const (
	EntryCredit EntryType = "CREDIT"
	EntryDebit  EntryType = "DEBIT"
	EntryNone   EntryType = "N/A" // gateway rows before settlement
)

// Description is the closed enum of business reasons a row can exist.
type Description string

const (
	DescVIPCommission Description = "VIP_COMMISSION"
	DescSpendReward   Description = "SPEND_REWARD"
	DescSpendCashback Description = "SPEND_CASHBACK" // spender's own points share
	DescSpendPayment  Description = "SPEND_PAYMENT"
	DescMerchantSale  Description = "MERCHANT_SALE"
	DescTopup         Description = "TOPUP"
	DescVIPPurchase   Description = "VIP_PURCHASE"
	DescTransfer      Description = "TRANSFER"
)

// Status is the lifecycle state of a transaction. Transitions are monotonic:
// IN_PROGRESS may move to exactly one terminal state and is never revisited.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
	StatusExpired    Status = "EXPIRED"
)

// Transaction is an immutable ledger entry. Only the status field and the
// gateway bill code are ever updated after insert, both by reconciliation.
type Transaction struct {
	ID                   uuid.UUID   `json:"id"`
	WalletID             uuid.UUID   `json:"wallet_id"`
	SystemType           SystemType  `json:"system_type"`
	Type                 EntryType   `json:"type"`
	Description          Description `json:"description"`
	Status               Status      `json:"status"`
	Amount               int64       `json:"amount"` // non-negative, minor units
	CounterpartyWalletID *uuid.UUID  `json:"counterparty_wallet_id,omitempty"`
	BillCode             *string     `json:"bill_code,omitempty"`
	MemberID             *uuid.UUID  `json:"member_id,omitempty"` // who triggered the movement, for audit
	CreatedAt            time.Time   `json:"created_at"`
	ProcessedAt          *time.Time  `json:"processed_at,omitempty"`
}

// IsTerminal returns true once the transaction can no longer change state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusSuccess ||
		t.Status == StatusFailed ||
		t.Status == StatusExpired
}
