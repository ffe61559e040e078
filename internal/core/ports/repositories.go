package ports

import (
	"context"
	"time"

	"referral-rewards-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MemberRepository defines persistence for members, including the read-only
// referral graph accessor used by the commission walk.
type MemberRepository interface {
	Create(ctx context.Context, member *domain.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	GetByUsername(ctx context.Context, username string) (*domain.Member, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.Member, error)
	// Referrer returns the direct upline of the given member, or nil when the
	// member is a root (or missing). One hop at a time; the walk is the
	// caller's concern.
	Referrer(ctx context.Context, memberID uuid.UUID) (*domain.Member, error)
	// PromoteToVIP flips type to VIP and stamps vip_at, only if the member is
	// still a plain user. Returns false when the member was already VIP.
	PromoteToVIP(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error)
}

// WalletRepository defines persistence for wallets. All balance mutations are
// single-statement conditional updates so concurrent credits and debits never
// lose updates; read-modify-write at the application layer is not offered.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByMemberID(ctx context.Context, memberID uuid.UUID) (*domain.Wallet, error)
	// Credit atomically increments the cash balance.
	Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error
	// Debit atomically decrements the cash balance; it fails without mutating
	// anything when the balance would go negative.
	Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error
	// CreditPoints atomically increments the points balance.
	CreditPoints(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error
}

// TransactionRepository defines persistence for ledger rows.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	FindByStatus(ctx context.Context, status domain.Status) ([]domain.Transaction, error)
	FindByBillCode(ctx context.Context, code string) (*domain.Transaction, error)
	// MarkTerminal performs the storage-level check-and-set IN_PROGRESS -> status.
	// It returns false when the row was already terminal, which makes
	// double-delivery of the same gateway confirmation safe.
	MarkTerminal(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.Status) (bool, error)
	// ListByWallet returns a wallet's history, newest first.
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, error)
}

// MerchantRepository defines persistence for QR-spend merchants.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
