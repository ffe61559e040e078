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

// MemberRepo implements ports.MemberRepository.
type MemberRepo struct {
	pool Pool
}

// NewMemberRepo creates a new MemberRepo.
func NewMemberRepo(pool Pool) *MemberRepo {
	return &MemberRepo{pool: pool}
}

const memberColumns = `id, username, password_hash, full_name, referral_code, referred_by, member_type, vip_at, created_at, updated_at`

// Create inserts a new member.
func (r *MemberRepo) Create(ctx context.Context, m *domain.Member) error {
	query := `INSERT INTO members (id, username, password_hash, full_name, referral_code, referred_by, member_type, vip_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.Username, m.PasswordHash, m.FullName,
		m.ReferralCode, m.ReferredBy, m.Type, m.VIPAt,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetByID fetches a member by UUID.
func (r *MemberRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	query := fmt.Sprintf(`SELECT %s FROM members WHERE id = $1`, memberColumns)
	return r.scanMember(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername fetches a member by username.
func (r *MemberRepo) GetByUsername(ctx context.Context, username string) (*domain.Member, error) {
	query := fmt.Sprintf(`SELECT %s FROM members WHERE username = $1`, memberColumns)
	return r.scanMember(r.pool.QueryRow(ctx, query, username))
}

// GetByReferralCode fetches a member by its opaque referral code.
func (r *MemberRepo) GetByReferralCode(ctx context.Context, code string) (*domain.Member, error) {
	query := fmt.Sprintf(`SELECT %s FROM members WHERE referral_code = $1`, memberColumns)
	return r.scanMember(r.pool.QueryRow(ctx, query, code))
}

// Referrer returns the direct upline of a member via the referred_by pointer.
// Returns nil, nil for roots, missing members, and dangling pointers; the
// commission walk treats all three as end-of-chain.
func (r *MemberRepo) Referrer(ctx context.Context, memberID uuid.UUID) (*domain.Member, error) {
	query := `SELECT p.id, p.username, p.password_hash, p.full_name, p.referral_code, p.referred_by, p.member_type, p.vip_at, p.created_at, p.updated_at
		FROM members m JOIN members p ON p.id = m.referred_by
		WHERE m.id = $1`
	return r.scanMember(r.pool.QueryRow(ctx, query, memberID))
}

// PromoteToVIP flips a member to VIP exactly once. The member_type guard in
// the WHERE clause makes a second confirmation of the same VIP payment a
// no-op at the storage layer.
func (r *MemberRepo) PromoteToVIP(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE members SET member_type = $1, vip_at = $2, updated_at = NOW()
		WHERE id = $3 AND member_type = $4`

	tag, err := tx.Exec(ctx, query, domain.MemberTypeVIP, at, id, domain.MemberTypeUser)
	if err != nil {
		return false, fmt.Errorf("promote member to vip: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanMember is a helper to scan a single row into a Member.
func (r *MemberRepo) scanMember(row pgx.Row) (*domain.Member, error) {
	m := &domain.Member{}
	err := row.Scan(
		&m.ID, &m.Username, &m.PasswordHash, &m.FullName,
		&m.ReferralCode, &m.ReferredBy, &m.Type, &m.VIPAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan member: %w", err)
	}
	return m, nil
}
