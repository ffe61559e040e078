package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"referral-rewards-backend/internal/core/domain"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	memberRepo ports.MemberRepository
	walletRepo ports.WalletRepository
	hashSvc    ports.HashService
	tokenSvc   ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	memberRepo ports.MemberRepository,
	walletRepo ports.WalletRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		memberRepo: memberRepo,
		walletRepo: walletRepo,
		hashSvc:    hashSvc,
		tokenSvc:   tokenSvc,
	}
}

// Register creates a member with an empty wallet. When a referral code is
// given it must resolve to an existing member; that member becomes the
// upline and is fixed for life.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.Member, error) {
	existing, err := s.memberRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	var referredBy *uuid.UUID
	if req.ReferralCode != "" {
		upline, err := s.memberRepo.GetByReferralCode(ctx, req.ReferralCode)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("resolve referral code: %w", err))
		}
		if upline == nil {
			return nil, apperror.ErrReferralCodeUnknown()
		}
		referredBy = &upline.ID
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	referralCode, err := generateRandomHex(4) // 8 hex chars
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate referral code: %w", err))
	}

	now := time.Now().UTC()
	member := &domain.Member{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		ReferralCode: referralCode,
		ReferredBy:   referredBy,
		Type:         domain.MemberTypeUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create member: %w", err))
	}

	wallet := &domain.Wallet{
		ID:        uuid.New(),
		MemberID:  member.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	return member, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	member, err := s.memberRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find member: %w", err))
	}
	if member == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, member.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(member.ID, member.Username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}

// generateRandomHex generates a random hex string of n bytes.
func generateRandomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
