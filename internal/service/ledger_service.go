package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"referral-rewards-backend/internal/core/domain"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService. Every balance mutation
// and its ledger row are committed in one database transaction; a mutation
// without its row (or the reverse) cannot be observed.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		log:        log,
	}
}

// ApplyCreditWithLedger credits a wallet and records the ledger row as one unit.
// SystemPoint entries land on the points balance, everything else on cash.
func (s *LedgerServiceImpl) ApplyCreditWithLedger(ctx context.Context, entry ports.LedgerEntry) (*domain.Transaction, error) {
	if entry.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if entry.SystemType == domain.SystemPoint {
		err = s.walletRepo.CreditPoints(ctx, dbTx, entry.WalletID, entry.Amount)
	} else {
		err = s.walletRepo.Credit(ctx, dbTx, entry.WalletID, entry.Amount)
	}
	if err != nil {
		return nil, s.classify(err, "credit wallet")
	}

	txn := s.buildRow(entry, domain.EntryCredit)
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger row: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Debug().
		Str("wallet_id", entry.WalletID.String()).
		Str("description", string(entry.Description)).
		Int64("amount", entry.Amount).
		Msg("credit applied")

	return txn, nil
}

// ApplyDebitWithLedger debits a wallet and records the ledger row as one unit.
// An underflow fails with InsufficientFunds and leaves state unchanged.
func (s *LedgerServiceImpl) ApplyDebitWithLedger(ctx context.Context, entry ports.LedgerEntry) (*domain.Transaction, error) {
	if entry.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.walletRepo.Debit(ctx, dbTx, entry.WalletID, entry.Amount); err != nil {
		return nil, s.classify(err, "debit wallet")
	}

	txn := s.buildRow(entry, domain.EntryDebit)
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger row: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Debug().
		Str("wallet_id", entry.WalletID.String()).
		Str("description", string(entry.Description)).
		Int64("amount", entry.Amount).
		Msg("debit applied")

	return txn, nil
}

// Transfer debits one wallet and credits another in a single database
// transaction, one row per side, each referencing the other wallet.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, fromWalletID, toWalletID uuid.UUID, amount int64, triggeredBy uuid.UUID) (*domain.Transaction, *domain.Transaction, error) {
	if amount <= 0 {
		return nil, nil, apperror.ErrInvalidAmount()
	}
	if fromWalletID == toWalletID {
		return nil, nil, apperror.Validation("cannot transfer to the same wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.walletRepo.Debit(ctx, dbTx, fromWalletID, amount); err != nil {
		return nil, nil, s.classify(err, "transfer debit")
	}
	if err := s.walletRepo.Credit(ctx, dbTx, toWalletID, amount); err != nil {
		return nil, nil, s.classify(err, "transfer credit")
	}

	debitRow := s.buildRow(ports.LedgerEntry{
		WalletID:             fromWalletID,
		SystemType:           domain.SystemCash,
		Description:          domain.DescTransfer,
		Amount:               amount,
		MemberID:             &triggeredBy,
		CounterpartyWalletID: &toWalletID,
	}, domain.EntryDebit)
	creditRow := s.buildRow(ports.LedgerEntry{
		WalletID:             toWalletID,
		SystemType:           domain.SystemCash,
		Description:          domain.DescTransfer,
		Amount:               amount,
		MemberID:             &triggeredBy,
		CounterpartyWalletID: &fromWalletID,
	}, domain.EntryCredit)

	if err := s.txRepo.Create(ctx, dbTx, debitRow); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("create debit row: %w", err))
	}
	if err := s.txRepo.Create(ctx, dbTx, creditRow); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("create credit row: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("from", fromWalletID.String()).
		Str("to", toWalletID.String()).
		Int64("amount", amount).
		Msg("transfer applied")

	return debitRow, creditRow, nil
}

func (s *LedgerServiceImpl) buildRow(entry ports.LedgerEntry, entryType domain.EntryType) *domain.Transaction {
	now := time.Now().UTC()
	return &domain.Transaction{
		ID:                   uuid.New(),
		WalletID:             entry.WalletID,
		SystemType:           entry.SystemType,
		Type:                 entryType,
		Description:          entry.Description,
		Status:               domain.StatusSuccess,
		Amount:               entry.Amount,
		CounterpartyWalletID: entry.CounterpartyWalletID,
		MemberID:             entry.MemberID,
		CreatedAt:            now,
		ProcessedAt:          &now,
	}
}

// classify keeps AppError taxonomy intact and wraps everything else.
func (s *LedgerServiceImpl) classify(err error, op string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.InternalError(fmt.Errorf("%s: %w", op, err))
}
