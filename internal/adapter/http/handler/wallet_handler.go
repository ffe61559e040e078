package handler

import (
	"strconv"

	"referral-rewards-backend/internal/adapter/http/dto"
	"referral-rewards-backend/internal/adapter/http/middleware"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/pkg/apperror"
	"referral-rewards-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet balance, history and transfers.
type WalletHandler struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	ledgerSvc  ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletRepo ports.WalletRepository, txRepo ports.TransactionRepository, ledgerSvc ports.LedgerService) *WalletHandler {
	return &WalletHandler{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		ledgerSvc:  ledgerSvc,
	}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	memberID, ok := memberFromContext(c)
	if !ok {
		return
	}

	wallet, err := h.walletRepo.GetByMemberID(c.Request.Context(), memberID)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	if wallet == nil {
		response.Error(c, apperror.ErrNotFound("wallet"))
		return
	}

	response.OK(c, dto.WalletResponse{
		WalletID: wallet.ID.String(),
		Balance:  wallet.Balance,
		Points:   wallet.Points,
		Locked:   wallet.Locked,
	})
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	memberID, ok := memberFromContext(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	wallet, err := h.walletRepo.GetByMemberID(c.Request.Context(), memberID)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	if wallet == nil {
		response.Error(c, apperror.ErrNotFound("wallet"))
		return
	}

	rows, err := h.txRepo.ListByWallet(c.Request.Context(), wallet.ID, limit, offset)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}

	out := make([]dto.TransactionResponse, 0, len(rows))
	for i := range rows {
		out = append(out, dto.ToTransactionResponse(&rows[i]))
	}
	response.OK(c, out)
}

// Transfer handles POST /api/v1/wallet/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	memberID, ok := memberFromContext(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	toMemberID, err := uuid.Parse(req.ToMemberID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid recipient id"))
		return
	}

	fromWallet, err := h.walletRepo.GetByMemberID(c.Request.Context(), memberID)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	if fromWallet == nil {
		response.Error(c, apperror.ErrNotFound("wallet"))
		return
	}
	if !fromWallet.CanSpend() {
		response.Error(c, apperror.ErrWalletLocked())
		return
	}

	toWallet, err := h.walletRepo.GetByMemberID(c.Request.Context(), toMemberID)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	if toWallet == nil {
		response.Error(c, apperror.ErrNotFound("recipient wallet"))
		return
	}

	debitRow, _, err := h.ledgerSvc.Transfer(c.Request.Context(), fromWallet.ID, toWallet.ID, req.Amount, memberID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToTransactionResponse(debitRow))
}

// memberFromContext pulls the authenticated member id set by JWTAuth.
func memberFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxMemberID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}
