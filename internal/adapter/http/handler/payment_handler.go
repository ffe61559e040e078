package handler

import (
	"referral-rewards-backend/internal/adapter/http/dto"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/pkg/apperror"
	"referral-rewards-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles merchant spends, top-up bills and VIP purchases.
type PaymentHandler struct {
	spendSvc   ports.SpendService
	billingSvc ports.BillingService
	txRepo     ports.TransactionRepository
	charity    ports.CharityCounter
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(spendSvc ports.SpendService, billingSvc ports.BillingService, txRepo ports.TransactionRepository, charity ports.CharityCounter) *PaymentHandler {
	return &PaymentHandler{
		spendSvc:   spendSvc,
		billingSvc: billingSvc,
		txRepo:     txRepo,
		charity:    charity,
	}
}

// Spend handles POST /api/v1/payments/spend.
func (h *PaymentHandler) Spend(c *gin.Context) {
	memberID, ok := memberFromContext(c)
	if !ok {
		return
	}

	var req dto.SpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	merchantID, err := uuid.Parse(req.MerchantID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid merchant id"))
		return
	}

	result, err := h.spendSvc.ProcessSpend(c.Request.Context(), ports.SpendRequest{
		MemberID:   memberID,
		MerchantID: merchantID,
		Amount:     req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.SpendResponse{
		PaymentID:     result.Payment.ID.String(),
		Amount:        result.Payment.Amount,
		SpenderPoints: result.SpenderPoints,
		CharityShare:  result.CharityShare,
		LevelsPaid:    len(result.Payouts),
	})
}

// Topup handles POST /api/v1/payments/topup.
func (h *PaymentHandler) Topup(c *gin.Context) {
	memberID, ok := memberFromContext(c)
	if !ok {
		return
	}

	var req dto.TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	txn, err := h.billingSvc.CreateTopupBill(c.Request.Context(), memberID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.BillResponse{
		TransactionID: txn.ID.String(),
		BillCode:      *txn.BillCode,
		Amount:        txn.Amount,
		Status:        string(txn.Status),
	})
}

// PurchaseVIP handles POST /api/v1/payments/vip.
func (h *PaymentHandler) PurchaseVIP(c *gin.Context) {
	memberID, ok := memberFromContext(c)
	if !ok {
		return
	}

	txn, err := h.billingSvc.CreateVIPBill(c.Request.Context(), memberID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.BillResponse{
		TransactionID: txn.ID.String(),
		BillCode:      *txn.BillCode,
		Amount:        txn.Amount,
		Status:        string(txn.Status),
	})
}

// GetTransaction handles GET /api/v1/payments/:id. Members poll this to see
// a bill settle once reconciliation has run.
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	if _, ok := memberFromContext(c); !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	txn, err := h.txRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	if txn == nil {
		response.Error(c, apperror.ErrNotFound("transaction"))
		return
	}

	response.OK(c, dto.ToTransactionResponse(txn))
}

// CharityTotal handles GET /api/v1/charity.
func (h *PaymentHandler) CharityTotal(c *gin.Context) {
	total, err := h.charity.Total(c.Request.Context())
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	response.OK(c, dto.CharityResponse{Total: total})
}
