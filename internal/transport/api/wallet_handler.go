package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/avkozlov/edumarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	walletSvs WalletServicer
	txSvs     TransactionServicer
	payments  PaymentInitiator
}

func NewWalletHandler(walletSvs WalletServicer, txSvs TransactionServicer, payments PaymentInitiator) *WalletHandler {
	return &WalletHandler{
		walletSvs: walletSvs,
		txSvs:     txSvs,
		payments:  payments,
	}
}

type WalletResponse struct {
	ID       int64   `json:"id"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
	IsActive bool    `json:"is_active"`
}

// Show GET RouteGroup + WalletRoute. Кошелек создается лениво при первом обращении.
func (h *WalletHandler) Show(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	wallet, err := h.walletSvs.GetOrCreate(reqCtx, currentUserID)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, &WalletResponse{
		ID:       wallet.ID,
		Balance:  wallet.Balance.InexactFloat64(),
		Currency: wallet.Currency,
		IsActive: wallet.IsActive,
	})
}

type HistoryParams struct {
	Type  string `binding:"omitempty,oneof=deposit withdrawal purchase refund commission" form:"type"`
	Page  uint   `binding:"omitempty,min=1"                                               form:"page"`
	Limit uint   `binding:"omitempty,max=100"                                             form:"limit"`
}

type TransactionResponse struct {
	ID          int64                    `json:"id"`
	Type        domain.TransactionType   `json:"type"`
	Amount      float64                  `json:"amount"`
	Currency    string                   `json:"currency"`
	Status      domain.TransactionStatus `json:"status"`
	Method      domain.PaymentMethod     `json:"method"`
	Description string                   `json:"description,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	ProcessedAt *time.Time               `json:"processed_at,omitempty"`
}

// History GET RouteGroup + WalletHistoryRoute. Страница истории транзакций,
// опционально отфильтрованная по типу.
func (h *WalletHandler) History(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params HistoryParams
	if bindErr := c.ShouldBindQuery(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transactions, err := h.walletSvs.History(reqCtx, currentUserID, repoargs.TransactionFilter{
		Type:  domain.TransactionType(params.Type),
		Page:  params.Page,
		Limit: params.Limit,
	})
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	if len(transactions) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	response := make([]TransactionResponse, len(transactions))
	for i, txn := range transactions {
		response[i] = transactionResponse(&txn)
	}
	c.JSON(http.StatusOK, response)
}

type DepositParams struct {
	Amount   decimal.Decimal `binding:"required"                    json:"amount"`
	Method   string          `binding:"required,oneof=stripe paypal" json:"method"`
	Currency string          `binding:"omitempty,currency"          json:"currency"`
}

type DepositResponse struct {
	TransactionID int64  `json:"transaction_id"`
	ProviderRef   string `json:"provider_ref"`
	Status        string `json:"status"`
}

// Deposit POST RouteGroup + DepositRoute. Создает платеж на стороне шлюза и pending
// транзакцию пополнения. Баланс изменится после подтверждения итога платежа
// (вебхук, confirm или фоновая сверка).
func (h *WalletHandler) Deposit(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params DepositParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}
	if !params.Amount.IsPositive() {
		c.AbortWithStatus(http.StatusUnprocessableEntity)
		return
	}
	if params.Currency == "" {
		params.Currency = service.DefaultCurrency
	}
	method := domain.PaymentMethod(params.Method)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	providerRef, payErr := h.payments.CreatePayment(reqCtx, method, params.Amount, params.Currency, "wallet deposit")
	if payErr != nil {
		_ = c.AbortWithError(http.StatusBadGateway, payErr).SetType(gin.ErrorTypePrivate)
		return
	}

	txn, err := h.txSvs.Process(reqCtx, service.ProcessArgs{
		UserID:      currentUserID,
		Type:        domain.TransactionDeposit,
		Amount:      params.Amount,
		Currency:    params.Currency,
		Method:      method,
		ProviderRef: providerRef,
		Description: "wallet deposit",
		Outcome:     domain.OutcomePending,
	})
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusCreated, &DepositResponse{
		TransactionID: txn.ID,
		ProviderRef:   txn.ProviderRef,
		Status:        string(txn.Status),
	})
}

type ConfirmDepositParams struct {
	ProviderRef string `binding:"required"                     json:"provider_ref"`
	Method      string `binding:"required,oneof=stripe paypal" json:"method"`
}

// ConfirmDeposit POST RouteGroup + DepositConfirmRoute. Клиентский пуш подтверждения:
// сервер сам спрашивает провайдера о фактическом статусе, слову клиента не верит.
func (h *WalletHandler) ConfirmDeposit(c *gin.Context) {
	var params ConfirmDepositParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if err := h.payments.Confirm(reqCtx, domain.PaymentMethod(params.Method), params.ProviderRef); err != nil {
		_ = c.AbortWithError(http.StatusBadGateway, err).SetType(gin.ErrorTypePrivate)
		return
	}
	c.AbortWithStatus(http.StatusOK)
}

func transactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          txn.ID,
		Type:        txn.Type,
		Amount:      txn.Amount.InexactFloat64(),
		Currency:    txn.Currency,
		Status:      txn.Status,
		Method:      txn.Method,
		Description: txn.Description,
		CreatedAt:   txn.CreatedAt,
		ProcessedAt: txn.ProcessedAt,
	}
}
