package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemberType distinguishes ordinary users from paying VIP members.
type MemberType string

const (
	MemberTypeUser MemberType = "USER"
	MemberTypeVIP  MemberType = "VIP"
)

// Member is one node in the referral tree. ReferredBy points at the direct
// referrer (level-1 upline) and is set at most once, at registration.
// Historical bad writes can make the chain cyclic, so traversal must carry
// its own cycle guard and never trust the data to be acyclic.
type Member struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never expose
	FullName     string     `json:"full_name"`
	ReferralCode string     `json:"referral_code"` // unique, immutable after first assignment
	ReferredBy   *uuid.UUID `json:"referred_by,omitempty"`
	Type         MemberType `json:"type"`
	VIPAt        *time.Time `json:"vip_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsVIP returns true once the member's VIP purchase has been confirmed.
func (m *Member) IsVIP() bool {
	return m.Type == MemberTypeVIP
}
