package ports

import (
	"context"
	"time"

	"referral-rewards-backend/internal/core/domain"

	"github.com/google/uuid"
)

// --- Ledger Store (combined operations) ---

// LedgerEntry describes one balance mutation and the ledger row that records it.
type LedgerEntry struct {
	WalletID             uuid.UUID
	SystemType           domain.SystemType
	Description          domain.Description
	Amount               int64
	MemberID             *uuid.UUID // originating member, for audit
	CounterpartyWalletID *uuid.UUID
}

// LedgerService applies balance mutations and their ledger rows as one unit.
// A mutation without its row, or a row without its mutation, must be
// structurally impossible.
type LedgerService interface {
	ApplyCreditWithLedger(ctx context.Context, entry LedgerEntry) (*domain.Transaction, error)
	ApplyDebitWithLedger(ctx context.Context, entry LedgerEntry) (*domain.Transaction, error)
	// Transfer debits one wallet and credits another in a single database
	// transaction, writing one row per side.
	Transfer(ctx context.Context, fromWalletID, toWalletID uuid.UUID, amount int64, triggeredBy uuid.UUID) (*domain.Transaction, *domain.Transaction, error)
}

// --- Commission Engine ---

// CommissionService walks the upline of a triggering member and credits
// eligible ancestors per the mode's tier table.
type CommissionService interface {
	Distribute(ctx context.Context, trigger *domain.Member, baseAmount int64, mode domain.CommissionMode) ([]domain.AppliedPayout, error)
}

// --- Spending flow ---

// SpendRequest is a validated merchant QR payment.
type SpendRequest struct {
	MemberID   uuid.UUID
	MerchantID uuid.UUID
	Amount     int64
}

// SpendResult reports the split applied to one spend.
type SpendResult struct {
	Payment       *domain.Transaction
	SpenderPoints int64
	CharityShare  int64
	Payouts       []domain.AppliedPayout
}

// SpendService executes the merchant QR spend: debit, merchant settlement,
// reward split, then the commission walk in spending-reward mode.
type SpendService interface {
	ProcessSpend(ctx context.Context, req SpendRequest) (*SpendResult, error)
}

// --- Billing (gateway-tracked payments) ---

// BillingService creates gateway bills and their IN_PROGRESS ledger rows.
// Gateway failure is a hard error on this interactive path.
type BillingService interface {
	CreateTopupBill(ctx context.Context, memberID uuid.UUID, amount int64) (*domain.Transaction, error)
	CreateVIPBill(ctx context.Context, memberID uuid.UUID) (*domain.Transaction, error)
}

// --- External payment gateway ---

// BillState is the three-way outcome the provider reports for a bill.
type BillState int

const (
	BillPending BillState = iota
	BillPaid
	BillFailed
)

// BillRequest carries the fields needed to open a bill with the provider.
type BillRequest struct {
	Name        string
	Description string
	Amount      int64 // minor units
	ExternalRef string
}

// GatewayClient talks to the external bill-payment provider.
type GatewayClient interface {
	CreateBill(ctx context.Context, req BillRequest) (string, error)
	BillStatus(ctx context.Context, billCode string) (BillState, error)
}

// --- Notification sink ---

// Notifier emits commission/reward events to the notification sink.
// Delivery is fire-and-forget: it must never block or fail the caller.
type Notifier interface {
	Notify(eventType string, amount int64, memberID uuid.UUID)
}

// --- Charity aggregate ---

// CharityCounter accumulates the charitable share of spends in an external
// counter. Best-effort; failures are logged, not propagated.
type CharityCounter interface {
	Add(ctx context.Context, amount int64) error
	Total(ctx context.Context) (int64, error)
}

// --- Authentication ---

// AuthService defines member registration and login.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Member, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds validated input for member registration.
type RegisterRequest struct {
	Username     string
	Password     string
	FullName     string
	ReferralCode string // upline's code; empty for a root member
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT session tokens.
type TokenService interface {
	Generate(memberID uuid.UUID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	MemberID uuid.UUID
	Username string
}

// --- Rate limiting ---

// RateLimitStore counts requests per key within a fixed window.
type RateLimitStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}
