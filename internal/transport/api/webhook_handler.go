package api

import (
	"context"
	"net/http"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/gin-gonic/gin"
)

// SignatureHeader - HMAC подпись сырого тела вебхука, hex.
const SignatureHeader = "X-Webhook-Signature"

type WebhookHandler struct {
	webhooks WebhookSink
	outcomes OutcomeReporter
}

func NewWebhookHandler(webhooks WebhookSink, outcomes OutcomeReporter) *WebhookHandler {
	return &WebhookHandler{
		webhooks: webhooks,
		outcomes: outcomes,
	}
}

// Handle POST RouteGroup + WebhookRoute. Подпись проверяется по сырому телу до
// какого-либо парсинга. На невалидную подпись отвечаем одинаковым 400 без
// деталей - нечего подсказывать перебирающему.
func (h *WebhookHandler) Handle(c *gin.Context) {
	method := domain.PaymentMethod(c.Param("provider"))

	body, err := c.GetRawData()
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	if verifyErr := h.webhooks.Verify(method, body, c.GetHeader(SignatureHeader)); verifyErr != nil {
		_ = c.Error(verifyErr).SetType(gin.ErrorTypePrivate)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	event, parseErr := h.webhooks.ParseEvent(method, body)
	if parseErr != nil {
		_ = c.Error(parseErr).SetType(gin.ErrorTypePrivate)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	// событие без терминального итога или без ссылки просто подтверждаем,
	// провайдеру незачем его ретраить.
	if event.Outcome == domain.OutcomePending || event.ProviderRef == "" {
		c.AbortWithStatus(http.StatusOK)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if applyErr := h.outcomes.ReportOutcome(reqCtx, event.ProviderRef, event.Outcome); applyErr != nil {
		// 5xx заставит провайдера доставить событие повторно.
		_ = c.AbortWithError(http.StatusInternalServerError, applyErr).SetType(gin.ErrorTypePrivate)
		return
	}
	c.AbortWithStatus(http.StatusOK)
}
