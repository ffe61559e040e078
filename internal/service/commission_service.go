package service

import (
	"context"
	"fmt"

	"referral-rewards-backend/internal/core/domain"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notification event types emitted on the sink.
const (
	EventCommissionPaid = "COMMISSION_PAID"
	EventCashbackEarned = "CASHBACK_EARNED"
	EventWalletTopup    = "WALLET_TOPUP"
	EventVIPActivated   = "VIP_ACTIVATED"
)

// CommissionServiceImpl walks the referral upline of a triggering member and
// credits eligible ancestors according to the mode's tier table.
type CommissionServiceImpl struct {
	memberRepo ports.MemberRepository
	walletRepo ports.WalletRepository
	ledger     ports.LedgerService
	notifier   ports.Notifier
	log        zerolog.Logger
}

// NewCommissionService creates a new CommissionServiceImpl.
func NewCommissionService(
	memberRepo ports.MemberRepository,
	walletRepo ports.WalletRepository,
	ledger ports.LedgerService,
	notifier ports.Notifier,
	log zerolog.Logger,
) *CommissionServiceImpl {
	return &CommissionServiceImpl{
		memberRepo: memberRepo,
		walletRepo: walletRepo,
		ledger:     ledger,
		notifier:   notifier,
		log:        log,
	}
}

// Distribute walks up the referral chain from the trigger, at most
// domain.TierLevels steps, crediting each eligible ancestor per the mode.
// Each level is its own ledger transaction; a skipped level never stops the
// walk, but a storage failure does, and the payouts already applied stand.
// A repeated member in the chain means corrupt referral data: the walk stops
// there and what was paid so far is kept.
func (s *CommissionServiceImpl) Distribute(ctx context.Context, trigger *domain.Member, baseAmount int64, mode domain.CommissionMode) ([]domain.AppliedPayout, error) {
	if trigger == nil {
		return nil, apperror.Validation("trigger member is required")
	}
	if baseAmount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	log := s.log.With().
		Str("mode", mode.Name).
		Str("trigger_id", trigger.ID.String()).
		Int64("base_amount", baseAmount).
		Logger()

	payouts := make([]domain.AppliedPayout, 0, domain.TierLevels)
	visited := map[uuid.UUID]struct{}{trigger.ID: {}}
	current := trigger

	for level := 1; level <= domain.TierLevels; level++ {
		ancestor, err := s.memberRepo.Referrer(ctx, current.ID)
		if err != nil {
			log.Error().Err(err).Int("level", level).Msg("upline lookup failed, aborting walk")
			return payouts, apperror.ErrDatabaseError(fmt.Errorf("referrer at level %d: %w", level, err))
		}
		if ancestor == nil {
			// Reached a root member.
			break
		}
		if _, seen := visited[ancestor.ID]; seen {
			log.Warn().
				Str("member_id", ancestor.ID.String()).
				Int("level", level).
				Msg("referral cycle detected, stopping walk")
			break
		}
		visited[ancestor.ID] = struct{}{}

		if !mode.Eligible(level, ancestor) {
			log.Debug().Int("level", level).Str("member_id", ancestor.ID.String()).Msg("ancestor not eligible")
			current = ancestor
			continue
		}

		amount := mode.Payout(level, baseAmount)
		if amount == 0 {
			log.Debug().Int("level", level).Msg("payout below dust floor")
			current = ancestor
			continue
		}

		wallet, err := s.walletRepo.GetByMemberID(ctx, ancestor.ID)
		if err != nil {
			log.Error().Err(err).Int("level", level).Msg("wallet lookup failed, aborting walk")
			return payouts, apperror.ErrDatabaseError(fmt.Errorf("wallet at level %d: %w", level, err))
		}
		if wallet == nil {
			log.Warn().Int("level", level).Str("member_id", ancestor.ID.String()).Msg("ancestor has no wallet, skipping level")
			current = ancestor
			continue
		}

		if _, err := s.ledger.ApplyCreditWithLedger(ctx, ports.LedgerEntry{
			WalletID:    wallet.ID,
			SystemType:  mode.SystemType,
			Description: mode.Description,
			Amount:      amount,
			MemberID:    &trigger.ID,
		}); err != nil {
			log.Error().Err(err).Int("level", level).Msg("credit failed, aborting walk")
			return payouts, err
		}

		payouts = append(payouts, domain.AppliedPayout{
			Level:    level,
			MemberID: ancestor.ID,
			WalletID: wallet.ID,
			Amount:   amount,
		})
		s.notifier.Notify(EventCommissionPaid, amount, ancestor.ID)

		current = ancestor
	}

	log.Info().Int("levels_paid", len(payouts)).Msg("commission walk completed")
	return payouts, nil
}
