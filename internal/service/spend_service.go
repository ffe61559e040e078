package service

import (
	"context"
	"sync"
	"time"

	"referral-rewards-backend/internal/core/domain"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// merchantCache memoizes merchant lookups for the QR spend path. Cashback
// rates change rarely; a short TTL keeps the hot path off the database.
type merchantCache struct {
	repo ports.MerchantRepository
	ttl  time.Duration

	mu      sync.Mutex
	entries map[uuid.UUID]merchantCacheEntry
}

type merchantCacheEntry struct {
	merchant *domain.Merchant
	fetched  time.Time
}

func newMerchantCache(repo ports.MerchantRepository, ttl time.Duration) *merchantCache {
	return &merchantCache{
		repo:    repo,
		ttl:     ttl,
		entries: make(map[uuid.UUID]merchantCacheEntry),
	}
}

func (c *merchantCache) Get(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	c.mu.Lock()
	entry, ok := c.entries[id]
	c.mu.Unlock()
	if ok && time.Since(entry.fetched) < c.ttl {
		return entry.merchant, nil
	}

	merchant, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if merchant != nil {
		c.mu.Lock()
		c.entries[id] = merchantCacheEntry{merchant: merchant, fetched: time.Now()}
		c.mu.Unlock()
	}
	return merchant, nil
}

// SpendServiceImpl executes merchant QR payments: debit the spender, settle
// the merchant, split the cashback rate into its fixed shares, then run the
// commission walk in spending-reward mode.
type SpendServiceImpl struct {
	memberRepo ports.MemberRepository
	walletRepo ports.WalletRepository
	ledger     ports.LedgerService
	commission ports.CommissionService
	charity    ports.CharityCounter
	notifier   ports.Notifier
	merchants  *merchantCache
	log        zerolog.Logger
}

// NewSpendService creates a new SpendServiceImpl.
func NewSpendService(
	memberRepo ports.MemberRepository,
	walletRepo ports.WalletRepository,
	merchantRepo ports.MerchantRepository,
	ledger ports.LedgerService,
	commission ports.CommissionService,
	charity ports.CharityCounter,
	notifier ports.Notifier,
	merchantCacheTTL time.Duration,
	log zerolog.Logger,
) *SpendServiceImpl {
	return &SpendServiceImpl{
		memberRepo: memberRepo,
		walletRepo: walletRepo,
		ledger:     ledger,
		commission: commission,
		charity:    charity,
		notifier:   notifier,
		merchants:  newMerchantCache(merchantRepo, merchantCacheTTL),
		log:        log,
	}
}

// ProcessSpend debits the spender for the full amount, credits the merchant
// net of its discount share, then applies the reward split. The payment and
// settlement are each their own atomic ledger operation; a failed debit
// (insufficient funds, locked wallet) leaves everything untouched.
func (s *SpendServiceImpl) ProcessSpend(ctx context.Context, req ports.SpendRequest) (*ports.SpendResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	member, err := s.memberRepo.GetByID(ctx, req.MemberID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if member == nil {
		return nil, apperror.ErrNotFound("member")
	}

	wallet, err := s.walletRepo.GetByMemberID(ctx, req.MemberID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if !wallet.CanSpend() {
		return nil, apperror.ErrWalletLocked()
	}

	merchant, err := s.merchants.Get(ctx, req.MerchantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	if !merchant.Active {
		return nil, apperror.Validation("merchant is not accepting payments")
	}

	payment, err := s.ledger.ApplyDebitWithLedger(ctx, ports.LedgerEntry{
		WalletID:             wallet.ID,
		SystemType:           domain.SystemCash,
		Description:          domain.DescSpendPayment,
		Amount:               req.Amount,
		MemberID:             &member.ID,
		CounterpartyWalletID: &merchant.WalletID,
	})
	if err != nil {
		return nil, err
	}

	discount := rateShare(req.Amount, merchant.CashbackRate, domain.MerchantShareOfRate)
	if net := req.Amount - discount; net > 0 {
		if _, err := s.ledger.ApplyCreditWithLedger(ctx, ports.LedgerEntry{
			WalletID:             merchant.WalletID,
			SystemType:           domain.SystemCash,
			Description:          domain.DescMerchantSale,
			Amount:               net,
			MemberID:             &member.ID,
			CounterpartyWalletID: &wallet.ID,
		}); err != nil {
			return nil, err
		}
	}

	result := &ports.SpendResult{Payment: payment}
	s.applySpendRewards(ctx, wallet, member, merchant.CashbackRate, req.Amount, result)
	return result, nil
}

// applySpendRewards splits the merchant cashback rate into the spender's
// points share, the charitable share, and the upline commission walk. The
// payment has already settled; reward failures are logged and the remaining
// shares still apply.
func (s *SpendServiceImpl) applySpendRewards(ctx context.Context, wallet *domain.Wallet, member *domain.Member, cashbackRate float64, amount int64, result *ports.SpendResult) {
	log := s.log.With().
		Str("member_id", member.ID.String()).
		Int64("amount", amount).
		Float64("cashback_rate", cashbackRate).
		Logger()

	if points := rateShare(amount, cashbackRate, domain.SpenderShareOfRate); points > 0 {
		if _, err := s.ledger.ApplyCreditWithLedger(ctx, ports.LedgerEntry{
			WalletID:    wallet.ID,
			SystemType:  domain.SystemPoint,
			Description: domain.DescSpendCashback,
			Amount:      points,
			MemberID:    &member.ID,
		}); err != nil {
			log.Error().Err(err).Msg("spender points credit failed")
		} else {
			result.SpenderPoints = points
			s.notifier.Notify(EventCashbackEarned, points, member.ID)
		}
	}

	if share := rateShare(amount, cashbackRate, domain.CharityShareOfRate); share > 0 {
		if err := s.charity.Add(ctx, share); err != nil {
			log.Error().Err(err).Msg("charity counter update failed")
		} else {
			result.CharityShare = share
		}
	}

	payouts, err := s.commission.Distribute(ctx, member, amount, domain.SpendingRewardMode(cashbackRate))
	if err != nil {
		// Levels already credited stand; the spend itself has settled.
		log.Error().Err(err).Int("levels_paid", len(payouts)).Msg("spending commission walk aborted")
	}
	result.Payouts = payouts
}

// rateShare computes share% of the cashback rate, applied to the amount, in
// minor units. Sub-cent results are dust and return 0.
func rateShare(amount int64, cashbackRate, share float64) int64 {
	raw := float64(amount) * cashbackRate * share / 100 / 100
	if raw/100 < 0.01 {
		return 0
	}
	return int64(raw)
}
