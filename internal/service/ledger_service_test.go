package service

import (
	"context"
	"errors"
	"testing"

	"referral-rewards-backend/internal/core/domain"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/internal/core/ports/mocks"
	"referral-rewards-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

type ledgerTestDeps struct {
	svc        *LedgerServiceImpl
	walletRepo *mocks.MockWalletRepository
	txRepo     *mocks.MockTransactionRepository
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupLedgerService(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewLedgerService(d.walletRepo, d.txRepo, d.transactor, zerolog.Nop())
	return d
}

func TestLedgerService_ApplyCreditWithLedger_Cash(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	memberID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, walletID, int64(5000)).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, row *domain.Transaction) error {
			assert.Equal(t, walletID, row.WalletID)
			assert.Equal(t, domain.EntryCredit, row.Type)
			assert.Equal(t, domain.StatusSuccess, row.Status)
			assert.Equal(t, int64(5000), row.Amount)
			return nil
		})

	txn, err := d.svc.ApplyCreditWithLedger(ctx, ports.LedgerEntry{
		WalletID:    walletID,
		SystemType:  domain.SystemCash,
		Description: domain.DescVIPCommission,
		Amount:      5000,
		MemberID:    &memberID,
	})
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.Equal(t, domain.DescVIPCommission, txn.Description)
	assert.NotNil(t, txn.ProcessedAt)
}

func TestLedgerService_ApplyCreditWithLedger_Points(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().CreditPoints(ctx, tx, walletID, int64(250)).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	txn, err := d.svc.ApplyCreditWithLedger(ctx, ports.LedgerEntry{
		WalletID:    walletID,
		SystemType:  domain.SystemPoint,
		Description: domain.DescSpendCashback,
		Amount:      250,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SystemPoint, txn.SystemType)
}

func TestLedgerService_ApplyCreditWithLedger_InvalidAmount(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	txn, err := d.svc.ApplyCreditWithLedger(context.Background(), ports.LedgerEntry{
		WalletID:   uuid.New(),
		SystemType: domain.SystemCash,
		Amount:     0,
	})
	assert.Nil(t, txn)
	assertAppError(t, err, "LED_003")
}

func TestLedgerService_ApplyDebitWithLedger_InsufficientFunds(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().Debit(ctx, tx, walletID, int64(9999)).Return(apperror.ErrInsufficientFunds())

	txn, err := d.svc.ApplyDebitWithLedger(ctx, ports.LedgerEntry{
		WalletID:    walletID,
		SystemType:  domain.SystemCash,
		Description: domain.DescSpendPayment,
		Amount:      9999,
	})
	assert.Nil(t, txn)
	assertAppError(t, err, "LED_001")
}

func TestLedgerService_ApplyDebitWithLedger_Success(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().Debit(ctx, tx, walletID, int64(1200)).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	txn, err := d.svc.ApplyDebitWithLedger(ctx, ports.LedgerEntry{
		WalletID:    walletID,
		SystemType:  domain.SystemCash,
		Description: domain.DescSpendPayment,
		Amount:      1200,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryDebit, txn.Type)
}

func TestLedgerService_Transfer_Success(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	from := uuid.New()
	to := uuid.New()
	member := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().Debit(ctx, tx, from, int64(3000)).Return(nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, to, int64(3000)).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil).Times(2)

	debitRow, creditRow, err := d.svc.Transfer(ctx, from, to, 3000, member)
	require.NoError(t, err)
	require.NotNil(t, debitRow)
	require.NotNil(t, creditRow)
	assert.Equal(t, from, debitRow.WalletID)
	assert.Equal(t, to, creditRow.WalletID)
	require.NotNil(t, debitRow.CounterpartyWalletID)
	assert.Equal(t, to, *debitRow.CounterpartyWalletID)
	require.NotNil(t, creditRow.CounterpartyWalletID)
	assert.Equal(t, from, *creditRow.CounterpartyWalletID)
}

func TestLedgerService_Transfer_SameWallet(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	id := uuid.New()
	_, _, err := d.svc.Transfer(context.Background(), id, id, 100, uuid.New())
	assertAppError(t, err, "LED_003")
}

func TestLedgerService_Transfer_DebitFailureStopsCredit(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	from := uuid.New()
	to := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().Debit(ctx, tx, from, int64(500)).Return(errors.New("connection reset"))

	_, _, err := d.svc.Transfer(ctx, from, to, 500, uuid.New())
	require.Error(t, err)
}
