package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Adapter прячет зоопарк провайдеров за одним фасадом: диспатчит создание платежа
// по методу и приводит ответы провайдеров к каноническому итогу
// (succeeded/failed/pending) для леджера.
type Adapter struct {
	providers    map[domain.PaymentMethod]Provider
	transactions TransactionProcessor
	purchases    PurchaseFinalizer
	logger       *logrus.Entry
}

func NewAdapter(logger *logrus.Logger, providers ...Provider) *Adapter {
	byMethod := make(map[domain.PaymentMethod]Provider, len(providers))
	for _, p := range providers {
		byMethod[p.Method()] = p
	}
	return &Adapter{
		providers: byMethod,
		logger:    logger.WithField("component", "payments.Adapter"),
	}
}

// Bind привязывает адаптер к сервисному слою. Вызывается после сборки сервисов:
// покупкам нужен шлюз, адаптеру - леджер, цикл разрывается поздней привязкой.
func (a *Adapter) Bind(transactions TransactionProcessor, purchases PurchaseFinalizer) {
	a.transactions = transactions
	a.purchases = purchases
}

// CreatePayment создает платеж у провайдера и возвращает providerRef.
func (a *Adapter) CreatePayment(
	ctx context.Context,
	method domain.PaymentMethod,
	amount decimal.Decimal,
	currency, description string,
) (string, error) {
	provider, ok := a.providers[method]
	if !ok {
		return "", NewUnknownProviderError(method)
	}
	providerRef, err := provider.CreatePayment(ctx, amount, currency, description)
	if err != nil {
		return "", fmt.Errorf("[payments/%s] create payment: %w", method, err)
	}
	return providerRef, nil
}

// Confirm запрашивает у провайдера фактический статус платежа и проводит итог
// через леджер. Вызывается и из сверки, и из ручного confirm-а.
func (a *Adapter) Confirm(ctx context.Context, method domain.PaymentMethod, providerRef string) error {
	provider, ok := a.providers[method]
	if !ok {
		return NewUnknownProviderError(method)
	}
	outcome, err := provider.VerifyPayment(ctx, providerRef)
	if err != nil {
		return fmt.Errorf("[payments/%s] verify %s: %w", method, providerRef, err)
	}
	return a.ReportOutcome(ctx, providerRef, outcome)
}

// ReportOutcome применяет канонический итог: сначала леджер (движение денег),
// затем доводка покупки. Pending не трогает ничего. Повторная доставка того же
// итога безопасна - оба шага идемпотентны.
func (a *Adapter) ReportOutcome(ctx context.Context, providerRef string, outcome domain.PaymentOutcome) error {
	if outcome == domain.OutcomePending {
		return nil
	}

	txn, err := a.transactions.ProcessProviderOutcome(ctx, providerRef, outcome)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			// Провайдер прислал ref, которого у нас нет. Логируем и глотаем:
			// ретраи вебхука тут ничего не исправят.
			a.logger.WithField("providerRef", providerRef).Warn("outcome for unknown provider ref")
			return nil
		}
		return fmt.Errorf("[payments] process outcome %s: %w", providerRef, err)
	}

	if txn.Type != domain.TransactionPurchase {
		return nil
	}

	switch outcome {
	case domain.OutcomeSucceeded:
		if _, finErr := a.purchases.FinalizePaid(ctx, providerRef); finErr != nil {
			return fmt.Errorf("[payments] finalize purchase %s: %w", providerRef, finErr)
		}
	case domain.OutcomeFailed:
		if failErr := a.purchases.FailByProviderRef(ctx, providerRef); failErr != nil {
			return fmt.Errorf("[payments] fail purchase %s: %w", providerRef, failErr)
		}
	case domain.OutcomePending:
	}

	a.logger.WithFields(logrus.Fields{
		"providerRef": providerRef,
		"outcome":     outcome,
		"type":        txn.Type,
	}).Info("payment outcome applied")
	return nil
}
