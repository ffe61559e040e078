package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"referral-rewards-backend/internal/core/domain"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

type reconcileTestDeps struct {
	svc        *ReconcileService
	txRepo     *mocks.MockTransactionRepository
	memberRepo *mocks.MockMemberRepository
	walletRepo *mocks.MockWalletRepository
	transactor *mocks.MockDBTransactor
	gateway    *mocks.MockGatewayClient
	commission *mocks.MockCommissionService
	notifier   *mocks.MockNotifier
	ctrl       *gomock.Controller
}

func setupReconcileService(t *testing.T) *reconcileTestDeps {
	ctrl := gomock.NewController(t)
	d := &reconcileTestDeps{
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		memberRepo: mocks.NewMockMemberRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		gateway:    mocks.NewMockGatewayClient(ctrl),
		commission: mocks.NewMockCommissionService(ctrl),
		notifier:   mocks.NewMockNotifier(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewReconcileService(
		d.txRepo, d.memberRepo, d.walletRepo, d.transactor,
		d.gateway, d.commission, d.notifier,
		10*time.Second, 5*time.Minute, zerolog.Nop(),
	)
	return d
}

func pendingBill(desc domain.Description, age time.Duration) domain.Transaction {
	billCode := "bill-" + uuid.NewString()[:8]
	memberID := uuid.New()
	return domain.Transaction{
		ID:          uuid.New(),
		WalletID:    uuid.New(),
		SystemType:  domain.SystemGateway,
		Type:        domain.EntryNone,
		Description: desc,
		Status:      domain.StatusInProgress,
		Amount:      25000,
		BillCode:    &billCode,
		MemberID:    &memberID,
		CreatedAt:   time.Now().UTC().Add(-age),
	}
}

func TestReconcileService_Tick_TopupPaid(t *testing.T) {
	d := setupReconcileService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := pendingBill(domain.DescTopup, time.Minute)
	tx := &mockTx{}

	d.txRepo.EXPECT().FindByStatus(ctx, domain.StatusInProgress).Return([]domain.Transaction{txn}, nil)
	d.gateway.EXPECT().BillStatus(ctx, *txn.BillCode).Return(ports.BillPaid, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().MarkTerminal(ctx, tx, txn.ID, domain.StatusSuccess).Return(true, nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, txn.WalletID, txn.Amount).Return(nil)
	d.notifier.EXPECT().Notify(EventWalletTopup, txn.Amount, *txn.MemberID)

	d.svc.Tick(ctx)
}

func TestReconcileService_Tick_AlreadyTerminalIsNoOp(t *testing.T) {
	d := setupReconcileService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := pendingBill(domain.DescTopup, time.Minute)
	tx := &mockTx{}

	d.txRepo.EXPECT().FindByStatus(ctx, domain.StatusInProgress).Return([]domain.Transaction{txn}, nil)
	d.gateway.EXPECT().BillStatus(ctx, *txn.BillCode).Return(ports.BillPaid, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	// Lost the check-and-set race: no credit, no notification.
	d.txRepo.EXPECT().MarkTerminal(ctx, tx, txn.ID, domain.StatusSuccess).Return(false, nil)

	d.svc.Tick(ctx)
}

func TestReconcileService_Tick_VIPPaidDistributesOnce(t *testing.T) {
	d := setupReconcileService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := pendingBill(domain.DescVIPPurchase, time.Minute)
	tx := &mockTx{}
	member := &domain.Member{ID: *txn.MemberID, Type: domain.MemberTypeVIP}

	d.txRepo.EXPECT().FindByStatus(ctx, domain.StatusInProgress).Return([]domain.Transaction{txn}, nil)
	d.gateway.EXPECT().BillStatus(ctx, *txn.BillCode).Return(ports.BillPaid, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().MarkTerminal(ctx, tx, txn.ID, domain.StatusSuccess).Return(true, nil)
	d.memberRepo.EXPECT().PromoteToVIP(ctx, tx, *txn.MemberID, gomock.Any()).Return(true, nil)
	d.memberRepo.EXPECT().GetByID(ctx, *txn.MemberID).Return(member, nil)
	d.notifier.EXPECT().Notify(EventVIPActivated, txn.Amount, member.ID)
	d.commission.EXPECT().Distribute(ctx, member, txn.Amount, gomock.Any()).Return(nil, nil)

	d.svc.Tick(ctx)
}

func TestReconcileService_Tick_VIPAlreadyPromotedSkipsCommission(t *testing.T) {
	d := setupReconcileService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := pendingBill(domain.DescVIPPurchase, time.Minute)
	tx := &mockTx{}

	d.txRepo.EXPECT().FindByStatus(ctx, domain.StatusInProgress).Return([]domain.Transaction{txn}, nil)
	d.gateway.EXPECT().BillStatus(ctx, *txn.BillCode).Return(ports.BillPaid, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().MarkTerminal(ctx, tx, txn.ID, domain.StatusSuccess).Return(true, nil)
	d.memberRepo.EXPECT().PromoteToVIP(ctx, tx, *txn.MemberID, gomock.Any()).Return(false, nil)

	d.svc.Tick(ctx)
}

func TestReconcileService_Tick_FailedBill(t *testing.T) {
	d := setupReconcileService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := pendingBill(domain.DescTopup, time.Minute)
	tx := &mockTx{}

	d.txRepo.EXPECT().FindByStatus(ctx, domain.StatusInProgress).Return([]domain.Transaction{txn}, nil)
	d.gateway.EXPECT().BillStatus(ctx, *txn.BillCode).Return(ports.BillFailed, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().MarkTerminal(ctx, tx, txn.ID, domain.StatusFailed).Return(true, nil)

	d.svc.Tick(ctx)
}

func TestReconcileService_Tick_PendingWithinWindowWaits(t *testing.T) {
	d := setupReconcileService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := pendingBill(domain.DescTopup, time.Minute)

	d.txRepo.EXPECT().FindByStatus(ctx, domain.StatusInProgress).Return([]domain.Transaction{txn}, nil)
	d.gateway.EXPECT().BillStatus(ctx, *txn.BillCode).Return(ports.BillPending, nil)

	d.svc.Tick(ctx)
}

func TestReconcileService_Tick_PendingPastCeilingExpires(t *testing.T) {
	d := setupReconcileService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := pendingBill(domain.DescTopup, 6*time.Minute)
	tx := &mockTx{}

	d.txRepo.EXPECT().FindByStatus(ctx, domain.StatusInProgress).Return([]domain.Transaction{txn}, nil)
	d.gateway.EXPECT().BillStatus(ctx, *txn.BillCode).Return(ports.BillPending, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	// Expiry is terminal with no side effect: no wallet credit expected.
	d.txRepo.EXPECT().MarkTerminal(ctx, tx, txn.ID, domain.StatusExpired).Return(true, nil)

	d.svc.Tick(ctx)
}

func TestReconcileService_Tick_GatewayErrorRetriesNextTick(t *testing.T) {
	d := setupReconcileService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := pendingBill(domain.DescTopup, time.Minute)

	d.txRepo.EXPECT().FindByStatus(ctx, domain.StatusInProgress).Return([]domain.Transaction{txn}, nil)
	d.gateway.EXPECT().BillStatus(ctx, *txn.BillCode).Return(ports.BillPending, errors.New("gateway timeout"))

	d.svc.Tick(ctx)
}

func TestReconcileService_Tick_SkipsRowsWithoutBillCode(t *testing.T) {
	d := setupReconcileService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := pendingBill(domain.DescTopup, time.Minute)
	txn.BillCode = nil

	d.txRepo.EXPECT().FindByStatus(ctx, domain.StatusInProgress).Return([]domain.Transaction{txn}, nil)

	d.svc.Tick(ctx)
}
