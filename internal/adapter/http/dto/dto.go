package dto

import (
	"time"

	"referral-rewards-backend/internal/core/domain"
)

// RegisterRequest is the request body for member registration.
type RegisterRequest struct {
	Username     string `json:"username" binding:"required,min=3,max=50"`
	Password     string `json:"password" binding:"required,min=8,max=128"`
	FullName     string `json:"full_name" binding:"required,min=1,max=100"`
	ReferralCode string `json:"referral_code,omitempty" binding:"omitempty,len=8"`
}

// LoginRequest is the request body for member login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	MemberID     string `json:"member_id"`
	Username     string `json:"username"`
	ReferralCode string `json:"referral_code"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// TopupRequest is the request body for a wallet top-up bill.
type TopupRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"` // minor units
}

// SpendRequest is the request body for a merchant QR payment.
type SpendRequest struct {
	MerchantID string `json:"merchant_id" binding:"required,uuid"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
}

// TransferRequest is the request body for a member-to-member transfer.
type TransferRequest struct {
	ToMemberID string `json:"to_member_id" binding:"required,uuid"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
}

// WalletResponse reports a member's balances.
type WalletResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  int64  `json:"balance"`
	Points   int64  `json:"points"`
	Locked   bool   `json:"locked"`
}

// TransactionResponse is one ledger row.
type TransactionResponse struct {
	ID          string  `json:"id"`
	SystemType  string  `json:"system_type"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Amount      int64   `json:"amount"`
	BillCode    *string `json:"bill_code,omitempty"`
	CreatedAt   string  `json:"created_at"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

// BillResponse reports a freshly opened gateway bill.
type BillResponse struct {
	TransactionID string `json:"transaction_id"`
	BillCode      string `json:"bill_code"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
}

// SpendResponse reports the outcome of a merchant QR payment.
type SpendResponse struct {
	PaymentID     string `json:"payment_id"`
	Amount        int64  `json:"amount"`
	SpenderPoints int64  `json:"spender_points"`
	CharityShare  int64  `json:"charity_share"`
	LevelsPaid    int    `json:"levels_paid"`
}

// CharityResponse reports the accumulated charity pool.
type CharityResponse struct {
	Total int64 `json:"total"`
}

// ToTransactionResponse maps a ledger row to its API shape.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          t.ID.String(),
		SystemType:  string(t.SystemType),
		Type:        string(t.Type),
		Description: string(t.Description),
		Status:      string(t.Status),
		Amount:      t.Amount,
		BillCode:    t.BillCode,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.ProcessedAt != nil {
		s := t.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}
