package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	defaultServiceTimeout          = 3 * time.Second
	defaultVerifyTimeout           = 10 * time.Second
	defaultLimitPerIteration uint  = 100
	defaultReconcileWorkers  uint  = 10
	defaultPollInterval            = 15 * time.Second
)

// Reconciler - фоновая сверка зависших платежей. Вебхук может потеряться,
// поэтому pending-транзакции внешних шлюзов периодически опрашиваются напрямую
// у провайдера, и терминальные итоги доводятся через леджер.
type Reconciler struct {
	adapter           *Adapter
	transactions      TransactionProcessor
	l                 *logrus.Entry
	limitPerIteration uint
	workers           uint
	pollInterval      time.Duration
}

func NewReconciler(adapter *Adapter, transactions TransactionProcessor, l *logrus.Logger) *Reconciler {
	loggerEntry := l.WithFields(logrus.Fields{
		"component": "payments",
		"module":    "reconciler",
	})

	return &Reconciler{
		adapter:           adapter,
		transactions:      transactions,
		l:                 loggerEntry,
		limitPerIteration: defaultLimitPerIteration,
		workers:           defaultReconcileWorkers,
		pollInterval:      defaultPollInterval,
	}
}

// SetLimitPerIteration устанавливает кол-во транзакций, сверяемых за одну итерацию.
func (r *Reconciler) SetLimitPerIteration(limit uint) *Reconciler {
	r.limitPerIteration = limit
	return r
}

// SetWorkers устанавливает кол-во воркеров, опрашивающих провайдеров.
func (r *Reconciler) SetWorkers(workers uint) *Reconciler {
	r.workers = workers
	return r
}

// SetPollInterval устанавливает паузу между итерациями сверки.
func (r *Reconciler) SetPollInterval(interval time.Duration) *Reconciler {
	r.pollInterval = interval
	return r
}

// Run запускает цикл сверки до отмены контекста.
//
// Алгоритм работы:
//  1. В каждой итерации через сервисный слой запрашивается список pending-транзакций
//     внешних шлюзов. Объем лимитируется через SetLimitPerIteration.
//  2. Для итерации создаются N воркеров (SetWorkers), каждый спрашивает у своего
//     провайдера фактический статус платежа.
//  3. Терминальные итоги применяются через адаптер: леджер, затем доводка покупки.
func (r *Reconciler) Run(ctx context.Context) {
	r.l.WithFields(logrus.Fields{
		"limitPerIteration": r.limitPerIteration,
		"workers":           r.workers,
		"pollInterval":      r.pollInterval,
	}).Info("Starting")

	for {
		select {
		case <-ctx.Done():
			r.l.Info("Got stop signal, exiting...")
			return
		default:
			if err := r.reconcile(ctx); err != nil && !errors.Is(err, ErrNoPending) {
				r.l.WithError(err).Error("reconcile error")
			}
			select {
			case <-ctx.Done():
			case <-time.After(r.pollInterval):
			}
		}
	}
}

// reconcile выполняет одну итерацию: выборка pending, опрос провайдеров, применение итогов.
func (r *Reconciler) reconcile(ctx context.Context) error {
	pending, pendingErr := r.produce(ctx)
	if pendingErr != nil {
		return fmt.Errorf("reconcile: %w", pendingErr)
	}

	results := r.runWorkers(ctx, pending)

	for _, result := range results {
		if result.Error != nil || result.Outcome == domain.OutcomePending {
			continue
		}
		reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
		applyErr := r.adapter.ReportOutcome(reqCtx, result.ProviderRef, result.Outcome)
		cancel()
		if applyErr != nil {
			r.l.WithError(applyErr).WithField("providerRef", result.ProviderRef).Error("apply outcome")
		}
	}
	return nil
}

// reconcileResult представляет результат опроса провайдера по одной транзакции.
type reconcileResult struct {
	WorkerID    uint
	ProviderRef string
	Outcome     domain.PaymentOutcome
	Error       error
}

// runWorkers запускает параллельных воркеров для опроса провайдеров и ожидает конца их работы.
// Реализует паттерн fan-out/fan-in.
func (r *Reconciler) runWorkers(ctx context.Context, pending []domain.Transaction) []reconcileResult {
	var taskCh = make(chan *domain.Transaction, len(pending))

	for _, txn := range pending {
		taskCh <- &txn
	}
	close(taskCh)

	wg := new(sync.WaitGroup)
	wg.Add(int(r.workers)) //nolint:gosec

	var resultCh = make(chan *reconcileResult, len(pending))

	for i := range r.workers {
		go r.worker(ctx, wg, i+1, taskCh, resultCh)
	}
	wg.Wait()

	close(resultCh)

	var results = make([]reconcileResult, 0, len(pending))
	for result := range resultCh {
		l := r.l.WithFields(logrus.Fields{
			"worker":      result.WorkerID,
			"providerRef": result.ProviderRef,
		})
		if result.Error != nil {
			l.WithError(result.Error).Error("verify payment")
		} else {
			l.WithField("outcome", result.Outcome).Debug("verified")
		}
		results = append(results, *result)
	}
	return results
}

// worker опрашивает провайдеров по транзакциям из канала и отправляет результаты.
func (r *Reconciler) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	workerID uint,
	taskCh <-chan *domain.Transaction,
	resultCh chan<- *reconcileResult,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-taskCh:
			if !ok {
				return
			}
			resultCh <- r.verifyTask(ctx, workerID, task)
		}
	}
}

func (r *Reconciler) verifyTask(ctx context.Context, workerID uint, task *domain.Transaction) *reconcileResult {
	result := reconcileResult{
		WorkerID:    workerID,
		ProviderRef: task.ProviderRef,
	}

	provider, ok := r.adapter.providers[task.Method]
	if !ok {
		result.Error = NewUnknownProviderError(task.Method)
		return &result
	}

	reqCtx, cancel := context.WithTimeout(ctx, defaultVerifyTimeout)
	defer cancel()

	outcome, err := provider.VerifyPayment(reqCtx, task.ProviderRef)
	if err != nil {
		result.Error = err
		return &result
	}
	result.Outcome = outcome
	return &result
}

// produce получает список pending-транзакций внешних шлюзов.
// Возвращает ErrNoPending, если сверять нечего.
func (r *Reconciler) produce(ctx context.Context) ([]domain.Transaction, error) {
	produceCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	pending, pendingErr := r.transactions.PendingGateway(produceCtx, r.limitPerIteration)
	if pendingErr != nil {
		return nil, fmt.Errorf("produce: %w", pendingErr)
	}

	if len(pending) == 0 {
		return nil, ErrNoPending
	}
	return pending, nil
}
