package service

import (
	"context"
	"time"

	"referral-rewards-backend/internal/core/domain"
	"referral-rewards-backend/internal/core/ports"

	"github.com/rs/zerolog"
)

// ReconcileService is the scheduler that settles gateway-tracked
// transactions. It polls the provider for every IN_PROGRESS row with a bill
// code and drives each one to exactly one terminal status. The SUCCESS
// transition is a storage-level check-and-set, so concurrent ticks or a
// doubled gateway confirmation apply side effects once.
type ReconcileService struct {
	txRepo     ports.TransactionRepository
	memberRepo ports.MemberRepository
	walletRepo ports.WalletRepository
	transactor ports.DBTransactor
	gateway    ports.GatewayClient
	commission ports.CommissionService
	notifier   ports.Notifier

	pollInterval time.Duration
	billExpiry   time.Duration
	log          zerolog.Logger
}

// NewReconcileService creates a new ReconcileService.
func NewReconcileService(
	txRepo ports.TransactionRepository,
	memberRepo ports.MemberRepository,
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	gateway ports.GatewayClient,
	commission ports.CommissionService,
	notifier ports.Notifier,
	pollInterval time.Duration,
	billExpiry time.Duration,
	log zerolog.Logger,
) *ReconcileService {
	return &ReconcileService{
		txRepo:       txRepo,
		memberRepo:   memberRepo,
		walletRepo:   walletRepo,
		transactor:   transactor,
		gateway:      gateway,
		commission:   commission,
		notifier:     notifier,
		pollInterval: pollInterval,
		billExpiry:   billExpiry,
		log:          log,
	}
}

// Run drives the polling loop until the context is cancelled. Errors inside
// a tick are logged and retried on the next tick; the loop itself never
// stops on its own.
func (s *ReconcileService) Run(ctx context.Context) {
	s.log.Info().
		Dur("poll_interval", s.pollInterval).
		Dur("bill_expiry", s.billExpiry).
		Msg("reconciliation scheduler started")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reconciliation scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick reconciles every pending gateway transaction once.
func (s *ReconcileService) Tick(ctx context.Context) {
	pending, err := s.txRepo.FindByStatus(ctx, domain.StatusInProgress)
	if err != nil {
		s.log.Error().Err(err).Msg("listing pending transactions failed")
		return
	}

	for i := range pending {
		txn := &pending[i]
		if txn.BillCode == nil {
			continue
		}
		s.reconcile(ctx, txn)
	}
}

func (s *ReconcileService) reconcile(ctx context.Context, txn *domain.Transaction) {
	log := s.log.With().
		Str("transaction_id", txn.ID.String()).
		Str("bill_code", *txn.BillCode).
		Str("description", string(txn.Description)).
		Logger()

	state, err := s.gateway.BillStatus(ctx, *txn.BillCode)
	if err != nil {
		// Gateway trouble is not a state transition. Retry next tick.
		log.Warn().Err(err).Msg("gateway poll failed, will retry")
		return
	}

	switch state {
	case ports.BillPaid:
		s.settle(ctx, txn, log)
	case ports.BillFailed:
		if s.markTerminal(ctx, txn, domain.StatusFailed, log) {
			log.Info().Msg("bill failed at gateway")
		}
	case ports.BillPending:
		if time.Since(txn.CreatedAt) > s.billExpiry {
			if s.markTerminal(ctx, txn, domain.StatusExpired, log) {
				log.Info().Msg("bill expired without payment")
			}
		}
	}
}

// settle applies the paid transition and its business side effect. The
// status flip and the balance/member mutation commit together; the VIP
// commission walk runs after commit since each of its levels is its own
// transaction anyway.
func (s *ReconcileService) settle(ctx context.Context, txn *domain.Transaction, log zerolog.Logger) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("begin settle tx failed")
		return
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	transitioned, err := s.txRepo.MarkTerminal(ctx, dbTx, txn.ID, domain.StatusSuccess)
	if err != nil {
		log.Error().Err(err).Msg("success transition failed")
		return
	}
	if !transitioned {
		// Another tick or delivery got here first.
		log.Debug().Msg("transaction already terminal, skipping")
		return
	}

	var promoted bool
	switch txn.Description {
	case domain.DescTopup:
		if err := s.walletRepo.Credit(ctx, dbTx, txn.WalletID, txn.Amount); err != nil {
			log.Error().Err(err).Msg("top-up credit failed, rolling back")
			return
		}
	case domain.DescVIPPurchase:
		if txn.MemberID == nil {
			log.Error().Msg("vip purchase row has no member, rolling back")
			return
		}
		promoted, err = s.memberRepo.PromoteToVIP(ctx, dbTx, *txn.MemberID, time.Now().UTC())
		if err != nil {
			log.Error().Err(err).Msg("vip promotion failed, rolling back")
			return
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("commit settle tx failed")
		return
	}

	switch txn.Description {
	case domain.DescTopup:
		if txn.MemberID != nil {
			s.notifier.Notify(EventWalletTopup, txn.Amount, *txn.MemberID)
		}
		log.Info().Int64("amount", txn.Amount).Msg("top-up settled")
	case domain.DescVIPPurchase:
		log.Info().Bool("promoted", promoted).Msg("vip purchase settled")
		if promoted {
			s.distributeVIPCommission(ctx, txn, log)
		}
	}
}

func (s *ReconcileService) distributeVIPCommission(ctx context.Context, txn *domain.Transaction, log zerolog.Logger) {
	member, err := s.memberRepo.GetByID(ctx, *txn.MemberID)
	if err != nil || member == nil {
		log.Error().Err(err).Msg("loading promoted member failed, commission not distributed")
		return
	}

	s.notifier.Notify(EventVIPActivated, txn.Amount, member.ID)

	payouts, err := s.commission.Distribute(ctx, member, txn.Amount, domain.VIPRegistrationMode())
	if err != nil {
		log.Error().Err(err).Int("levels_paid", len(payouts)).Msg("vip commission walk aborted")
		return
	}
	log.Info().Int("levels_paid", len(payouts)).Msg("vip commission distributed")
}

func (s *ReconcileService) markTerminal(ctx context.Context, txn *domain.Transaction, status domain.Status, log zerolog.Logger) bool {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("begin terminal tx failed")
		return false
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	transitioned, err := s.txRepo.MarkTerminal(ctx, dbTx, txn.ID, status)
	if err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("terminal transition failed")
		return false
	}
	if err := dbTx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("commit terminal tx failed")
		return false
	}
	return transitioned
}
