package service

import (
	"context"
	"fmt"
	"time"

	"referral-rewards-backend/internal/core/domain"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BillingServiceImpl opens gateway bills and records their IN_PROGRESS
// ledger rows. No balance moves here; the reconciliation scheduler applies
// the effects once the gateway confirms payment.
type BillingServiceImpl struct {
	memberRepo ports.MemberRepository
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	gateway    ports.GatewayClient
	vipPrice   int64
	log        zerolog.Logger
}

// NewBillingService creates a new BillingServiceImpl.
func NewBillingService(
	memberRepo ports.MemberRepository,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	gateway ports.GatewayClient,
	vipPrice int64,
	log zerolog.Logger,
) *BillingServiceImpl {
	return &BillingServiceImpl{
		memberRepo: memberRepo,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		gateway:    gateway,
		vipPrice:   vipPrice,
		log:        log,
	}
}

// CreateTopupBill opens a gateway bill for a wallet top-up. The gateway call
// happens first; if the provider is down the member gets an immediate error
// and nothing is recorded.
func (s *BillingServiceImpl) CreateTopupBill(ctx context.Context, memberID uuid.UUID, amount int64) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	return s.openBill(ctx, memberID, wallet.ID, amount, domain.DescTopup, "Wallet Top-up")
}

// CreateVIPBill opens a gateway bill for the VIP package. Members who are
// already VIP are rejected before touching the gateway.
func (s *BillingServiceImpl) CreateVIPBill(ctx context.Context, memberID uuid.UUID) (*domain.Transaction, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if member == nil {
		return nil, apperror.ErrNotFound("member")
	}
	if member.IsVIP() {
		return nil, apperror.Validation("member is already VIP")
	}

	wallet, err := s.walletRepo.GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	return s.openBill(ctx, memberID, wallet.ID, s.vipPrice, domain.DescVIPPurchase, "VIP Package")
}

func (s *BillingServiceImpl) openBill(ctx context.Context, memberID, walletID uuid.UUID, amount int64, desc domain.Description, billName string) (*domain.Transaction, error) {
	txnID := uuid.New()

	billCode, err := s.gateway.CreateBill(ctx, ports.BillRequest{
		Name:        billName,
		Description: fmt.Sprintf("%s for member %s", billName, memberID),
		Amount:      amount,
		ExternalRef: txnID.String(),
	})
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:          txnID,
		WalletID:    walletID,
		SystemType:  domain.SystemGateway,
		Type:        domain.EntryNone,
		Description: desc,
		Status:      domain.StatusInProgress,
		Amount:      amount,
		BillCode:    &billCode,
		MemberID:    &memberID,
		CreatedAt:   time.Now().UTC(),
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record bill: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("bill_code", billCode).
		Str("member_id", memberID.String()).
		Str("description", string(desc)).
		Int64("amount", amount).
		Msg("gateway bill opened")

	return txn, nil
}
