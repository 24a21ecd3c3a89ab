package handler

import (
	"errors"
	"io"
	"net/http"

	"wallet-service/internal/adapter/http/dto"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"
	"wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet-related endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Create handles POST /api/v1/wallets. The body is optional.
func (h *WalletHandler) Create(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, bindError(err))
		return
	}

	wallet, err := h.walletSvc.Create(c.Request.Context(), req.Balance)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewWalletResponse(wallet))
}

// GetBalance handles GET /api/v1/wallets/:id.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	id, ok := walletID(c)
	if !ok {
		return
	}

	wallet, err := h.walletSvc.GetBalance(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewWalletResponse(wallet))
}

// ApplyOperation handles POST /api/v1/wallets/:id/operation.
func (h *WalletHandler) ApplyOperation(c *gin.Context) {
	id, ok := walletID(c)
	if !ok {
		return
	}

	var req dto.OperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	wallet, err := h.walletSvc.ApplyOperation(c.Request.Context(), id, req.ToOperation())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewWalletResponse(wallet))
}

// walletID parses the :id path parameter, writing a 422 when it is not a UUID.
func walletID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func bindError(err error) *apperror.AppError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ErrPayloadTooLarge()
	}
	return apperror.Validation(dto.BindingErrorMessage(err))
}
