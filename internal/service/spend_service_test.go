package service

import (
	"context"
	"testing"
	"time"

	"referral-rewards-backend/internal/core/domain"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/internal/core/ports/mocks"
	"referral-rewards-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type spendTestDeps struct {
	svc          *SpendServiceImpl
	memberRepo   *mocks.MockMemberRepository
	walletRepo   *mocks.MockWalletRepository
	merchantRepo *mocks.MockMerchantRepository
	ledger       *mocks.MockLedgerService
	commission   *mocks.MockCommissionService
	charity      *mocks.MockCharityCounter
	notifier     *mocks.MockNotifier
	ctrl         *gomock.Controller
}

func setupSpendService(t *testing.T) *spendTestDeps {
	ctrl := gomock.NewController(t)
	d := &spendTestDeps{
		memberRepo:   mocks.NewMockMemberRepository(ctrl),
		walletRepo:   mocks.NewMockWalletRepository(ctrl),
		merchantRepo: mocks.NewMockMerchantRepository(ctrl),
		ledger:       mocks.NewMockLedgerService(ctrl),
		commission:   mocks.NewMockCommissionService(ctrl),
		charity:      mocks.NewMockCharityCounter(ctrl),
		notifier:     mocks.NewMockNotifier(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewSpendService(
		d.memberRepo, d.walletRepo, d.merchantRepo,
		d.ledger, d.commission, d.charity, d.notifier,
		time.Minute, zerolog.Nop(),
	)
	return d
}

func activeMerchant(rate float64) *domain.Merchant {
	return &domain.Merchant{
		ID:           uuid.New(),
		Name:         "Kopi Corner",
		WalletID:     uuid.New(),
		CashbackRate: rate,
		Active:       true,
	}
}

func TestSpendService_ProcessSpend_FullSplit(t *testing.T) {
	d := setupSpendService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	member := plainMember()
	wallet := &domain.Wallet{ID: uuid.New(), MemberID: member.ID, Balance: 50000}
	merchant := activeMerchant(10)

	d.memberRepo.EXPECT().GetByID(ctx, member.ID).Return(member, nil)
	d.walletRepo.EXPECT().GetByMemberID(ctx, member.ID).Return(wallet, nil)
	d.merchantRepo.EXPECT().GetByID(ctx, merchant.ID).Return(merchant, nil)

	// 10000 spend at 10% cashback rate:
	// merchant discount 6% of rate -> 60, net settlement 9940
	// spender points 50% of rate -> 500
	// charity 2% of rate -> 20
	d.ledger.EXPECT().ApplyDebitWithLedger(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, entry ports.LedgerEntry) (*domain.Transaction, error) {
			assert.Equal(t, wallet.ID, entry.WalletID)
			assert.Equal(t, domain.DescSpendPayment, entry.Description)
			assert.Equal(t, int64(10000), entry.Amount)
			require.NotNil(t, entry.CounterpartyWalletID)
			assert.Equal(t, merchant.WalletID, *entry.CounterpartyWalletID)
			return &domain.Transaction{ID: uuid.New(), Amount: entry.Amount}, nil
		})
	d.ledger.EXPECT().ApplyCreditWithLedger(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, entry ports.LedgerEntry) (*domain.Transaction, error) {
			assert.Equal(t, merchant.WalletID, entry.WalletID)
			assert.Equal(t, domain.DescMerchantSale, entry.Description)
			assert.Equal(t, int64(9940), entry.Amount)
			return &domain.Transaction{ID: uuid.New()}, nil
		})
	d.ledger.EXPECT().ApplyCreditWithLedger(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, entry ports.LedgerEntry) (*domain.Transaction, error) {
			assert.Equal(t, wallet.ID, entry.WalletID)
			assert.Equal(t, domain.SystemPoint, entry.SystemType)
			assert.Equal(t, domain.DescSpendCashback, entry.Description)
			assert.Equal(t, int64(500), entry.Amount)
			return &domain.Transaction{ID: uuid.New()}, nil
		})
	d.notifier.EXPECT().Notify(EventCashbackEarned, int64(500), member.ID)
	d.charity.EXPECT().Add(ctx, int64(20)).Return(nil)
	d.commission.EXPECT().Distribute(ctx, member, int64(10000), gomock.Any()).Return([]domain.AppliedPayout{}, nil)

	result, err := d.svc.ProcessSpend(ctx, ports.SpendRequest{
		MemberID:   member.ID,
		MerchantID: merchant.ID,
		Amount:     10000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.SpenderPoints)
	assert.Equal(t, int64(20), result.CharityShare)
}

func TestSpendService_ProcessSpend_LockedWallet(t *testing.T) {
	d := setupSpendService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	member := plainMember()
	wallet := &domain.Wallet{ID: uuid.New(), MemberID: member.ID, Locked: true}

	d.memberRepo.EXPECT().GetByID(ctx, member.ID).Return(member, nil)
	d.walletRepo.EXPECT().GetByMemberID(ctx, member.ID).Return(wallet, nil)

	_, err := d.svc.ProcessSpend(ctx, ports.SpendRequest{
		MemberID: member.ID, MerchantID: uuid.New(), Amount: 100,
	})
	assertAppError(t, err, "LED_004")
}

func TestSpendService_ProcessSpend_PINAttemptsExhausted(t *testing.T) {
	d := setupSpendService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	member := plainMember()
	wallet := &domain.Wallet{ID: uuid.New(), MemberID: member.ID, PINAttempts: 3}

	d.memberRepo.EXPECT().GetByID(ctx, member.ID).Return(member, nil)
	d.walletRepo.EXPECT().GetByMemberID(ctx, member.ID).Return(wallet, nil)

	_, err := d.svc.ProcessSpend(ctx, ports.SpendRequest{
		MemberID: member.ID, MerchantID: uuid.New(), Amount: 100,
	})
	assertAppError(t, err, "LED_004")
}

func TestSpendService_ProcessSpend_InsufficientFundsStopsEverything(t *testing.T) {
	d := setupSpendService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	member := plainMember()
	wallet := &domain.Wallet{ID: uuid.New(), MemberID: member.ID, Balance: 50}
	merchant := activeMerchant(10)

	d.memberRepo.EXPECT().GetByID(ctx, member.ID).Return(member, nil)
	d.walletRepo.EXPECT().GetByMemberID(ctx, member.ID).Return(wallet, nil)
	d.merchantRepo.EXPECT().GetByID(ctx, merchant.ID).Return(merchant, nil)
	d.ledger.EXPECT().ApplyDebitWithLedger(ctx, gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	_, err := d.svc.ProcessSpend(ctx, ports.SpendRequest{
		MemberID: member.ID, MerchantID: merchant.ID, Amount: 10000,
	})
	assertAppError(t, err, "LED_001")
}

func TestSpendService_ProcessSpend_InactiveMerchant(t *testing.T) {
	d := setupSpendService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	member := plainMember()
	wallet := &domain.Wallet{ID: uuid.New(), MemberID: member.ID}
	merchant := activeMerchant(10)
	merchant.Active = false

	d.memberRepo.EXPECT().GetByID(ctx, member.ID).Return(member, nil)
	d.walletRepo.EXPECT().GetByMemberID(ctx, member.ID).Return(wallet, nil)
	d.merchantRepo.EXPECT().GetByID(ctx, merchant.ID).Return(merchant, nil)

	_, err := d.svc.ProcessSpend(ctx, ports.SpendRequest{
		MemberID: member.ID, MerchantID: merchant.ID, Amount: 100,
	})
	assertAppError(t, err, "LED_003")
}

func TestSpendService_ProcessSpend_CharityFailureDoesNotFailSpend(t *testing.T) {
	d := setupSpendService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	member := plainMember()
	wallet := &domain.Wallet{ID: uuid.New(), MemberID: member.ID, Balance: 50000}
	merchant := activeMerchant(10)

	d.memberRepo.EXPECT().GetByID(ctx, member.ID).Return(member, nil)
	d.walletRepo.EXPECT().GetByMemberID(ctx, member.ID).Return(wallet, nil)
	d.merchantRepo.EXPECT().GetByID(ctx, merchant.ID).Return(merchant, nil)
	d.ledger.EXPECT().ApplyDebitWithLedger(ctx, gomock.Any()).Return(&domain.Transaction{ID: uuid.New()}, nil)
	d.ledger.EXPECT().ApplyCreditWithLedger(ctx, gomock.Any()).Return(&domain.Transaction{ID: uuid.New()}, nil).Times(2)
	d.notifier.EXPECT().Notify(EventCashbackEarned, gomock.Any(), member.ID)
	d.charity.EXPECT().Add(ctx, gomock.Any()).Return(assert.AnError)
	d.commission.EXPECT().Distribute(ctx, member, int64(10000), gomock.Any()).Return(nil, nil)

	result, err := d.svc.ProcessSpend(ctx, ports.SpendRequest{
		MemberID: member.ID, MerchantID: merchant.ID, Amount: 10000,
	})
	require.NoError(t, err)
	assert.Zero(t, result.CharityShare)
}

func TestSpendService_MerchantCacheServesRepeatLookups(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockMerchantRepository(ctrl)
	cache := newMerchantCache(repo, time.Minute)
	merchant := activeMerchant(8)

	ctx := context.Background()
	repo.EXPECT().GetByID(ctx, merchant.ID).Return(merchant, nil).Times(1)

	for i := 0; i < 3; i++ {
		got, err := cache.Get(ctx, merchant.ID)
		require.NoError(t, err)
		assert.Equal(t, merchant.ID, got.ID)
	}
}
