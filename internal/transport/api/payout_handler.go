package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PayoutHandler struct {
	payoutSvs PayoutServicer
}

func NewPayoutHandler(payoutSvs PayoutServicer) *PayoutHandler {
	return &PayoutHandler{
		payoutSvs: payoutSvs,
	}
}

type PayoutCreateParams struct {
	Amount      decimal.Decimal `binding:"required"           json:"amount"`
	Currency    string          `binding:"omitempty,currency" json:"currency"`
	Method      string          `binding:"required,max=50"    json:"method"`
	Destination string          `binding:"required,max=255"   json:"destination"`
}

type PayoutResponse struct {
	ID          int64               `json:"id"`
	Amount      float64             `json:"amount"`
	Currency    string              `json:"currency"`
	Method      string              `json:"method"`
	Destination string              `json:"destination"`
	Status      domain.PayoutStatus `json:"status"`
	Reference   string              `json:"reference,omitempty"`
	Notes       string              `json:"notes,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	ProcessedAt *time.Time          `json:"processed_at,omitempty"`
}

// Create POST RouteGroup + PayoutsRoute. Заявка на вывод средств. Баланс здесь
// проверяется консультативно, решающая проверка - при одобрении.
func (h *PayoutHandler) Create(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params PayoutCreateParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	request, err := h.payoutSvs.Create(reqCtx, service.CreatePayoutArgs{
		UserID:      currentUserID,
		Amount:      params.Amount,
		Currency:    params.Currency,
		Method:      params.Method,
		Destination: params.Destination,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount):
			c.AbortWithStatus(http.StatusUnprocessableEntity)
		case errors.Is(err, domain.ErrInsufficientFunds):
			c.AbortWithStatus(http.StatusPaymentRequired)
		case errors.Is(err, domain.ErrWalletNotFound):
			c.AbortWithStatus(http.StatusPaymentRequired)
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		}
		return
	}
	c.JSON(http.StatusCreated, payoutResponse(request))
}

// Index GET RouteGroup + PayoutsRoute. Заявки текущего юзера, новые первыми.
func (h *PayoutHandler) Index(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	requests, err := h.payoutSvs.GetByUserID(reqCtx, currentUserID)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}
	if len(requests) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, payoutResponses(requests))
}

// Pending GET RouteGroup + AdminPayoutsRoute. Очередь заявок на рассмотрение.
func (h *PayoutHandler) Pending(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	requests, err := h.payoutSvs.GetPending(reqCtx)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}
	if len(requests) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, payoutResponses(requests))
}

type PayoutResolveParams struct {
	Notes string `binding:"omitempty,max=500" json:"notes"`
}

// Approve POST RouteGroup + AdminPayoutApproveRoute. Одобрение с одновременным
// списанием: при нехватке средств заявка остается pending.
func (h *PayoutHandler) Approve(c *gin.Context) {
	requestID := parseIDParam(c, "id")
	if requestID == 0 {
		c.AbortWithStatus(http.StatusUnprocessableEntity)
		return
	}

	var params PayoutResolveParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	request, err := h.payoutSvs.Approve(reqCtx, requestID, params.Notes)
	if err != nil {
		h.renderResolveError(c, err)
		return
	}
	c.JSON(http.StatusOK, payoutResponse(request))
}

// Reject POST RouteGroup + AdminPayoutRejectRoute.
func (h *PayoutHandler) Reject(c *gin.Context) {
	requestID := parseIDParam(c, "id")
	if requestID == 0 {
		c.AbortWithStatus(http.StatusUnprocessableEntity)
		return
	}

	var params PayoutResolveParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	request, err := h.payoutSvs.Reject(reqCtx, requestID, params.Notes)
	if err != nil {
		h.renderResolveError(c, err)
		return
	}
	c.JSON(http.StatusOK, payoutResponse(request))
}

type PayoutTransferParams struct {
	Reference string `binding:"required,max=255" json:"reference"`
}

// ConfirmTransfer POST RouteGroup + AdminPayoutTransferRoute. Фиксация фактической
// выплаты по одобренной заявке.
func (h *PayoutHandler) ConfirmTransfer(c *gin.Context) {
	requestID := parseIDParam(c, "id")
	if requestID == 0 {
		c.AbortWithStatus(http.StatusUnprocessableEntity)
		return
	}

	var params PayoutTransferParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	request, err := h.payoutSvs.ConfirmTransfer(reqCtx, requestID, params.Reference)
	if err != nil {
		h.renderResolveError(c, err)
		return
	}
	c.JSON(http.StatusOK, payoutResponse(request))
}

func (h *PayoutHandler) renderResolveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrPayoutNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, domain.ErrPayoutNotPending):
		_ = c.AbortWithError(http.StatusConflict, errors.New("payout request already resolved")).
			SetType(gin.ErrorTypePublic)
	case errors.Is(err, domain.ErrPayoutInsufficientFunds):
		_ = c.AbortWithError(http.StatusPaymentRequired, errors.New("wallet balance below requested amount")).
			SetType(gin.ErrorTypePublic)
	default:
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
	}
}

func payoutResponse(request *domain.PayoutRequest) PayoutResponse {
	return PayoutResponse{
		ID:          request.ID,
		Amount:      request.Amount.InexactFloat64(),
		Currency:    request.Currency,
		Method:      request.Method,
		Destination: request.Destination,
		Status:      request.Status,
		Reference:   request.Reference,
		Notes:       request.Notes,
		CreatedAt:   request.CreatedAt,
		ProcessedAt: request.ProcessedAt,
	}
}

func payoutResponses(requests []domain.PayoutRequest) []PayoutResponse {
	response := make([]PayoutResponse, len(requests))
	for i, request := range requests {
		response[i] = payoutResponse(&request)
	}
	return response
}
