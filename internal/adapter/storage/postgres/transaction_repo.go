package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"referral-rewards-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository. Ledger rows are
// append-only; the only updates ever issued are the terminal-status CAS and
// nothing else.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, wallet_id, system_type, entry_type, description, status, amount, counterparty_wallet_id, bill_code, member_id, created_at, processed_at`

// Create inserts a new ledger row within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, wallet_id, system_type, entry_type, description, status, amount, counterparty_wallet_id, bill_code, member_id, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.SystemType, t.Type, t.Description, t.Status,
		t.Amount, t.CounterpartyWalletID, t.BillCode, t.MemberID,
		t.CreatedAt, t.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE id = $1`, transactionColumns)
	return r.scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// FindByStatus returns all transactions in the given status, oldest first,
// so the reconciler drives bills in creation order.
func (r *TransactionRepo) FindByStatus(ctx context.Context, status domain.Status) ([]domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE status = $1 ORDER BY created_at ASC`, transactionColumns)

	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("find transactions by status: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// FindByBillCode fetches the transaction correlated to an external bill.
func (r *TransactionRepo) FindByBillCode(ctx context.Context, code string) (*domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE bill_code = $1`, transactionColumns)
	return r.scanTransaction(r.pool.QueryRow(ctx, query, code))
}

// MarkTerminal performs the check-and-set IN_PROGRESS -> status transition.
// The status guard in the WHERE clause is the system's idempotency barrier:
// of two racing confirmations exactly one observes RowsAffected == 1.
func (r *TransactionRepo) MarkTerminal(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.Status) (bool, error) {
	now := time.Now().UTC()
	query := `UPDATE transactions SET status = $1, processed_at = $2
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, status, now, id, domain.StatusInProgress)
	if err != nil {
		return false, fmt.Errorf("mark transaction terminal: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByWallet returns a wallet's ledger history, newest first.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE wallet_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, transactionColumns)

	rows, err := r.pool.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions by wallet: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *TransactionRepo) collect(rows pgx.Rows) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.WalletID, &t.SystemType, &t.Type, &t.Description, &t.Status,
			&t.Amount, &t.CounterpartyWalletID, &t.BillCode, &t.MemberID,
			&t.CreatedAt, &t.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.WalletID, &t.SystemType, &t.Type, &t.Description, &t.Status,
		&t.Amount, &t.CounterpartyWalletID, &t.BillCode, &t.MemberID,
		&t.CreatedAt, &t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
