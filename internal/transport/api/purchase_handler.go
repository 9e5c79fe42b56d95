package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/service"
	"github.com/gin-gonic/gin"
)

type PurchaseHandler struct {
	purchaseSvs PurchaseServicer
}

func NewPurchaseHandler(purchaseSvs PurchaseServicer) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseSvs: purchaseSvs,
	}
}

type PurchaseParams struct {
	Type            string     `binding:"required,oneof=full_course pdf_only video_only" json:"type"`
	Method          string     `binding:"required,oneof=wallet stripe paypal"            json:"method"`
	AccessExpiresAt *time.Time `binding:"omitempty"                                      json:"access_expires_at"`
}

type PurchaseResponse struct {
	ID              int64                 `json:"id"`
	CourseID        int64                 `json:"course_id"`
	Type            domain.PurchaseType   `json:"type"`
	Amount          float64               `json:"amount"`
	Currency        string                `json:"currency"`
	Method          domain.PaymentMethod  `json:"method"`
	Status          domain.PurchaseStatus `json:"status"`
	ProviderRef     string                `json:"provider_ref,omitempty"`
	AccessGranted   bool                  `json:"access_granted"`
	AccessExpiresAt *time.Time            `json:"access_expires_at,omitempty"`
	PurchasedAt     *time.Time            `json:"purchased_at,omitempty"`
	RefundedAt      *time.Time            `json:"refunded_at,omitempty"`
}

// Purchase POST RouteGroup + PurchaseRoute. Кошельковая оплата дает доступ сразу,
// шлюзовая - после подтверждения итога платежа.
func (h *PurchaseHandler) Purchase(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	courseID := parseIDParam(c, "courseID")
	if courseID == 0 {
		c.AbortWithStatus(http.StatusUnprocessableEntity)
		return
	}

	var params PurchaseParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	purchase, err := h.purchaseSvs.PurchaseCourse(reqCtx, service.PurchaseCourseArgs{
		UserID:          currentUserID,
		CourseID:        courseID,
		Type:            domain.PurchaseType(params.Type),
		Method:          domain.PaymentMethod(params.Method),
		AccessExpiresAt: params.AccessExpiresAt,
	})
	if err != nil {
		h.renderPurchaseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, purchaseResponse(purchase))
}

func (h *PurchaseHandler) renderPurchaseError(c *gin.Context, err error) {
	var alreadyPurchased *domain.AlreadyPurchasedError
	switch {
	case errors.As(err, &alreadyPurchased):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":       "already purchased",
			"purchase_id": alreadyPurchased.Purchase.ID,
		})
	case errors.Is(err, domain.ErrInsufficientFunds):
		c.AbortWithStatus(http.StatusPaymentRequired)
	case errors.Is(err, domain.ErrCourseNotForSale):
		_ = c.AbortWithError(http.StatusUnprocessableEntity, errors.New("course is not for sale")).
			SetType(gin.ErrorTypePublic)
	case errors.Is(err, domain.ErrRecordNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	default:
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
	}
}

type CartParams struct {
	CourseIDs []int64 `binding:"required,min=1,dive,min=1" json:"course_ids"`
}

type CartResponse struct {
	Purchased []PurchaseResponse `json:"purchased"`
	SkippedID []int64            `json:"skipped_ids,omitempty"`
	Total     float64            `json:"total"`
}

// PurchaseCart POST RouteGroup + CartPurchaseRoute. Оплата корзины кошельком:
// одно списание общей суммы, уже купленное и снятое с продажи пропускается.
func (h *PurchaseHandler) PurchaseCart(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params CartParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	result, err := h.purchaseSvs.PurchaseCart(reqCtx, currentUserID, params.CourseIDs)
	if err != nil {
		h.renderPurchaseError(c, err)
		return
	}

	response := CartResponse{
		Purchased: make([]PurchaseResponse, len(result.Purchased)),
		SkippedID: result.SkippedID,
		Total:     result.Total.InexactFloat64(),
	}
	for i, purchase := range result.Purchased {
		response.Purchased[i] = purchaseResponse(&purchase)
	}
	c.JSON(http.StatusCreated, response)
}

type DownloadResponse struct {
	FileID        int64      `json:"file_id"`
	Filename      string     `json:"filename"`
	FileType      string     `json:"file_type"`
	FileURL       string     `json:"file_url"`
	DownloadCount int64      `json:"download_count"`
	LastDownload  *time.Time `json:"last_downloaded,omitempty"`
}

// Download POST RouteGroup + DownloadRoute. Отдает ссылку на файл из снимка покупки
// и ведет счетчик скачиваний.
func (h *PurchaseHandler) Download(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	courseID := parseIDParam(c, "courseID")
	fileID := parseIDParam(c, "fileID")
	if courseID == 0 || fileID == 0 {
		c.AbortWithStatus(http.StatusUnprocessableEntity)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	file, err := h.purchaseSvs.Download(reqCtx, currentUserID, courseID, fileID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAccessExpired):
			_ = c.AbortWithError(http.StatusGone, errors.New("access expired")).SetType(gin.ErrorTypePublic)
		case errors.Is(err, domain.ErrPurchaseNotFound), errors.Is(err, domain.ErrRecordNotFound):
			c.AbortWithStatus(http.StatusNotFound)
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		}
		return
	}

	c.JSON(http.StatusOK, &DownloadResponse{
		FileID:        file.FileID,
		Filename:      file.Filename,
		FileType:      file.FileType,
		FileURL:       file.FileURL,
		DownloadCount: file.DownloadCount,
		LastDownload:  file.LastDownloaded,
	})
}

// Index GET RouteGroup + PurchasesRoute.
func (h *PurchaseHandler) Index(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	purchases, err := h.purchaseSvs.GetByUserID(reqCtx, currentUserID)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	if len(purchases) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	response := make([]PurchaseResponse, len(purchases))
	for i, purchase := range purchases {
		response[i] = purchaseResponse(&purchase)
	}
	c.JSON(http.StatusOK, response)
}

// Refund POST RouteGroup + RefundRoute. Возврат в пределах окна: доступ отзывается,
// кошельковые покупки возвращаются на баланс.
func (h *PurchaseHandler) Refund(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	purchaseID := parseIDParam(c, "id")
	if purchaseID == 0 {
		c.AbortWithStatus(http.StatusUnprocessableEntity)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	purchase, err := h.purchaseSvs.Refund(reqCtx, currentUserID, purchaseID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRefundWindowExpired):
			_ = c.AbortWithError(http.StatusGone, errors.New("refund window expired")).SetType(gin.ErrorTypePublic)
		case errors.Is(err, domain.ErrPurchaseNotFound), errors.Is(err, domain.ErrRecordNotFound):
			c.AbortWithStatus(http.StatusNotFound)
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		}
		return
	}
	c.JSON(http.StatusOK, purchaseResponse(purchase))
}

func purchaseResponse(purchase *domain.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:              purchase.ID,
		CourseID:        purchase.CourseID,
		Type:            purchase.Type,
		Amount:          purchase.Amount.InexactFloat64(),
		Currency:        purchase.Currency,
		Method:          purchase.Method,
		Status:          purchase.Status,
		ProviderRef:     purchase.ProviderRef,
		AccessGranted:   purchase.AccessGranted,
		AccessExpiresAt: purchase.AccessExpiresAt,
		PurchasedAt:     purchase.PurchasedAt,
		RefundedAt:      purchase.RefundedAt,
	}
}
