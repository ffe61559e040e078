package postgres

import (
	"context"
	"errors"
	"fmt"

	"referral-rewards-backend/internal/core/domain"
	"referral-rewards-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
//
// Balance mutations are single-statement conditional updates. The row-level
// lock the UPDATE takes is the only serialization point, so concurrent
// commission credits and owner debits on the same wallet cannot lose updates.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, member_id, balance, points, locked, pin_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.MemberID, w.Balance, w.Points,
		w.Locked, w.PINAttempts, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID.
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, member_id, balance, points, locked, pin_attempts, created_at, updated_at
		FROM wallets WHERE id = $1`

	return r.scanWallet(r.pool.QueryRow(ctx, query, id))
}

// GetByMemberID fetches the wallet owned by a member.
func (r *WalletRepo) GetByMemberID(ctx context.Context, memberID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, member_id, balance, points, locked, pin_attempts, created_at, updated_at
		FROM wallets WHERE member_id = $1`

	return r.scanWallet(r.pool.QueryRow(ctx, query, memberID))
}

// Credit atomically increments the cash balance within a database transaction.
func (r *WalletRepo) Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error {
	query := `UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, amount, walletID)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrNotFound("wallet")
	}
	return nil
}

// Debit atomically decrements the cash balance. The balance guard lives in the
// WHERE clause: a debit that would underflow matches no row and leaves state
// unchanged.
func (r *WalletRepo) Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error {
	query := `UPDATE wallets SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1`

	tag, err := tx.Exec(ctx, query, amount, walletID)
	if err != nil {
		return fmt.Errorf("debit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing wallet from an underflow.
		existing, lookupErr := r.GetByID(ctx, walletID)
		if lookupErr != nil {
			return lookupErr
		}
		if existing == nil {
			return apperror.ErrNotFound("wallet")
		}
		return apperror.ErrInsufficientFunds()
	}
	return nil
}

// CreditPoints atomically increments the points balance.
func (r *WalletRepo) CreditPoints(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error {
	query := `UPDATE wallets SET points = points + $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, amount, walletID)
	if err != nil {
		return fmt.Errorf("credit wallet points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrNotFound("wallet")
	}
	return nil
}

// scanWallet is a helper to scan a single row into a Wallet.
func (r *WalletRepo) scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.MemberID, &w.Balance, &w.Points,
		&w.Locked, &w.PINAttempts, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
