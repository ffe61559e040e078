package domain

import "github.com/google/uuid"

// TierLevels is the hard bound on the upline walk. It matches the length of
// both tier tables; the engine never visits more ancestors than this.
const TierLevels = 20

// vipRegistrationTiers are the per-level percentages paid out of a confirmed
// VIP package purchase.
var vipRegistrationTiers = []float64{
	20, 2, 2, 2,
	1.2, 1.2,
	0.8, 0.8,
	0.4, 0.4,
	0.2, 0.2,
	0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1,
}

// spendingRewardTiers are the per-level percentages for merchant-spend
// commission. Flat 2% at every level; the effective rate is further scaled by
// the merchant's cashback rate.
var spendingRewardTiers = []float64{
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
}

// Spending-reward split: fixed shares of the merchant cashback rate,
// independent of the tier tables.
const (
	SpenderShareOfRate  = 50.0 // credited to the spender's points balance
	CharityShareOfRate  = 2.0  // forwarded to the external charity counter
	MerchantShareOfRate = 6.0  // merchant discount
)

// CommissionMode is the tagged variant selecting ledger semantics for one
// walk: which tier table applies, how the percentage is scaled, which
// description lands on the ledger rows, and which ancestors are eligible.
type CommissionMode struct {
	Name        string
	Description Description
	SystemType  SystemType

	tiers []float64
	scale float64
	gate  func(level int, ancestor *Member) bool
}

// VIPRegistrationMode pays commission on a confirmed VIP purchase. Every
// level is gated on the ancestor being VIP; there is no per-level gate in
// this mode.
func VIPRegistrationMode() CommissionMode {
	return CommissionMode{
		Name:        "vip-registration",
		Description: DescVIPCommission,
		SystemType:  SystemCash,
		tiers:       vipRegistrationTiers,
		scale:       1,
		gate: func(_ int, ancestor *Member) bool {
			return ancestor.IsVIP()
		},
	}
}

// SpendingRewardMode pays commission on a merchant QR spend. The tier
// percentage is scaled by cashbackRate/100 before being applied to the spend
// amount. The VIP gate applies only below level 3; deeper levels pay any
// ancestor. This asymmetry with VIPRegistrationMode is deliberate and must
// not be unified.
func SpendingRewardMode(cashbackRate float64) CommissionMode {
	return CommissionMode{
		Name:        "spending-reward",
		Description: DescSpendReward,
		SystemType:  SystemCash,
		tiers:       spendingRewardTiers,
		scale:       cashbackRate / 100,
		gate: func(level int, ancestor *Member) bool {
			if level < 3 {
				return ancestor.IsVIP()
			}
			return true
		},
	}
}

// Percentage returns the tier percentage for a 1-based upline level.
// Levels beyond the table pay 0% but do not terminate the walk.
func (m CommissionMode) Percentage(level int) float64 {
	if level < 1 || level > len(m.tiers) {
		return 0
	}
	return m.tiers[level-1]
}

// Eligible reports whether an ancestor at the given level receives a payout.
func (m CommissionMode) Eligible(level int, ancestor *Member) bool {
	return m.gate(level, ancestor)
}

// Payout computes the commission in minor units for one level. Amounts that
// round below one cent are dust and return 0; the caller skips them without
// touching the ledger.
func (m CommissionMode) Payout(level int, baseAmount int64) int64 {
	raw := float64(baseAmount) * m.Percentage(level) * m.scale / 100
	if raw/100 < 0.01 {
		return 0
	}
	return int64(raw)
}

// AppliedPayout records one credited upline level, returned by the engine
// for auditing and tests.
type AppliedPayout struct {
	Level    int
	MemberID uuid.UUID
	WalletID uuid.UUID
	Amount   int64
}
