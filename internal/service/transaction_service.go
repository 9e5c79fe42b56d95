package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/avkozlov/edumarket/pkg/uow"
	"github.com/shopspring/decimal"
)

// TransactionService проводит транзакции через леджер. Единственный компонент,
// которому позволено менять баланс кошелька.
type TransactionService struct {
	uow    uow.UOW
	txRepo TransactionRepository
}

func NewTransactionService(u uow.UOW) (*TransactionService, error) {
	txRepo, txRepoErr := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if txRepoErr != nil {
		return nil, txRepoErr
	}
	return &TransactionService{
		uow:    u,
		txRepo: txRepo,
	}, nil
}

type ProcessArgs struct {
	UserID          int64
	Type            domain.TransactionType
	Amount          decimal.Decimal
	Currency        string
	Method          domain.PaymentMethod
	ProviderRef     string
	RelatedCourseID int64
	RelatedUserID   int64
	Description     string
	Outcome         domain.PaymentOutcome
}

// Process проводит предложенную транзакцию.
//
// Правила:
//   - сумма должна быть строго положительной;
//   - итог succeeded дает completed транзакцию и знаковое изменение баланса
//     (deposit/refund - кредит, withdrawal/purchase/commission - дебет);
//     дебет через внешний шлюз баланс не трогает - деньги ушли провайдеру напрямую;
//   - итог pending оставляет транзакцию в ожидании, failed - проводит без изменения баланса;
//   - по внешней ссылке провайдера операция идемпотентна: повторная доставка того же
//     события возвращает уже существующую транзакцию и не трогает баланс.
//
// Дебет и запись транзакции выполняются в одной транзакции БД: при нехватке средств
// не остается никакого частичного состояния.
func (s *TransactionService) Process(ctx context.Context, args ProcessArgs) (*domain.Transaction, error) {
	if !args.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if args.Currency == "" {
		args.Currency = DefaultCurrency
	}

	var result *domain.Transaction
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		walletRepo, walletRepoErr := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
		if walletRepoErr != nil {
			return walletRepoErr //nolint:wrapcheck
		}
		txRepo, txRepoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		if txRepoErr != nil {
			return txRepoErr //nolint:wrapcheck
		}

		wallet, walletErr := walletRepo.GetOrCreate(c, args.UserID, args.Currency)
		if walletErr != nil {
			return walletErr //nolint:wrapcheck
		}

		if args.ProviderRef != "" {
			existing, findErr := txRepo.FindByProviderRef(c, args.ProviderRef)
			if findErr != nil && !errors.Is(findErr, domain.ErrRecordNotFound) {
				return findErr //nolint:wrapcheck
			}
			if existing != nil {
				settled, settleErr := s.settleExisting(c, walletRepo, txRepo, existing, args.Outcome)
				if settleErr != nil {
					return settleErr
				}
				result = settled
				return nil
			}
		}

		created, createErr := s.createNew(c, walletRepo, txRepo, wallet, args)
		if createErr != nil {
			return createErr
		}
		result = created
		return nil
	})

	if txErr != nil {
		// Проигравший гонку вставки по ключу идемпотентности возвращает строку победителя.
		if args.ProviderRef != "" &&
			(errors.Is(txErr, domain.ErrDuplicateKey) || errors.Is(txErr, domain.ErrTransactionNotPending)) {
			existing, findErr := s.txRepo.FindByProviderRef(ctx, args.ProviderRef)
			if findErr != nil {
				return nil, fmt.Errorf("processing transaction: %w", findErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("processing transaction: %w", txErr)
	}
	return result, nil
}

// ProcessProviderOutcome применяет канонический итог платежа к транзакции, найденной
// по внешней ссылке. Путь вебхуков и фоновой сверки: на этом этапе известна только
// ссылка провайдера, не юзер.
func (s *TransactionService) ProcessProviderOutcome(
	ctx context.Context,
	providerRef string,
	outcome domain.PaymentOutcome,
) (*domain.Transaction, error) {
	var result *domain.Transaction
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		walletRepo, walletRepoErr := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
		if walletRepoErr != nil {
			return walletRepoErr //nolint:wrapcheck
		}
		txRepo, txRepoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		if txRepoErr != nil {
			return txRepoErr //nolint:wrapcheck
		}

		existing, findErr := txRepo.FindByProviderRef(c, providerRef)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}
		settled, settleErr := s.settleExisting(c, walletRepo, txRepo, existing, outcome)
		if settleErr != nil {
			return settleErr
		}
		result = settled
		return nil
	})

	if txErr != nil {
		// Параллельная доставка того же события: победитель уже провел транзакцию.
		if errors.Is(txErr, domain.ErrTransactionNotPending) {
			existing, findErr := s.txRepo.FindByProviderRef(ctx, providerRef)
			if findErr != nil {
				return nil, fmt.Errorf("processing provider outcome %s: %w", providerRef, findErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("processing provider outcome %s: %w", providerRef, txErr)
	}
	return result, nil
}

// PendingGateway возвращает pending транзакции внешних шлюзов для фоновой сверки,
// старые первыми.
func (s *TransactionService) PendingGateway(ctx context.Context, limit uint) ([]domain.Transaction, error) {
	transactions, err := s.txRepo.GetPendingByMethods(
		ctx,
		[]domain.PaymentMethod{domain.MethodStripe, domain.MethodPayPal},
		limit,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return transactions, nil
}

// Cancel отменяет транзакцию юзера, пока она в ожидании. Завершенная транзакция
// не отменяется - возврат денег идет только через рефанд покупки.
func (s *TransactionService) Cancel(ctx context.Context, userID, transactionID int64) (*domain.Transaction, error) {
	var result *domain.Transaction
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		walletRepo, walletRepoErr := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
		if walletRepoErr != nil {
			return walletRepoErr //nolint:wrapcheck
		}
		txRepo, txRepoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		if txRepoErr != nil {
			return txRepoErr //nolint:wrapcheck
		}

		transaction, findErr := txRepo.FindByID(c, transactionID)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}
		wallet, walletErr := walletRepo.FindByID(c, transaction.WalletID)
		if walletErr != nil {
			return walletErr //nolint:wrapcheck
		}
		if wallet.UserID != userID {
			return domain.ErrRecordNotFound
		}

		cancelled, cancelErr := txRepo.UpdatePendingStatus(c, transactionID, domain.TransactionStatusCancelled)
		if cancelErr != nil {
			return cancelErr //nolint:wrapcheck
		}
		result = cancelled
		return nil
	})

	if txErr != nil {
		return nil, fmt.Errorf("cancelling transaction %d: %w", transactionID, txErr)
	}
	return result, nil
}

// settleExisting доводит существующую транзакцию до терминального статуса по итогу платежа.
// Не pending транзакция возвращается как есть - идемпотентный no-op для повторных доставок.
func (s *TransactionService) settleExisting(
	ctx context.Context,
	walletRepo WalletRepository,
	txRepo TransactionRepository,
	existing *domain.Transaction,
	outcome domain.PaymentOutcome,
) (*domain.Transaction, error) {
	if existing.Status != domain.TransactionStatusPending || outcome == domain.OutcomePending {
		return existing, nil
	}

	switch outcome {
	case domain.OutcomeSucceeded:
		// Сначала переводим статус: условный UPDATE по pending выявляет параллельного
		// победителя до того, как баланс будет затронут.
		completed, updateErr := txRepo.UpdatePendingStatus(ctx, existing.ID, domain.TransactionStatusCompleted)
		if updateErr != nil {
			return nil, updateErr //nolint:wrapcheck
		}
		if affectsWallet(completed.Type, completed.Method) {
			if applyErr := applyBalanceEffect(ctx, walletRepo, completed); applyErr != nil {
				return nil, applyErr
			}
		}
		return completed, nil
	case domain.OutcomeFailed:
		failed, updateErr := txRepo.UpdatePendingStatus(ctx, existing.ID, domain.TransactionStatusFailed)
		if updateErr != nil {
			return nil, updateErr //nolint:wrapcheck
		}
		return failed, nil
	default:
		return existing, nil
	}
}

func (s *TransactionService) createNew(
	ctx context.Context,
	walletRepo WalletRepository,
	txRepo TransactionRepository,
	wallet *domain.Wallet,
	args ProcessArgs,
) (*domain.Transaction, error) {
	status := statusForOutcome(args.Outcome)

	createArgs := repoargs.TransactionCreate{
		WalletID:        wallet.ID,
		Type:            args.Type,
		Amount:          args.Amount,
		Currency:        args.Currency,
		Description:     args.Description,
		Status:          status,
		Method:          args.Method,
		ProviderRef:     args.ProviderRef,
		RelatedCourseID: args.RelatedCourseID,
		RelatedUserID:   args.RelatedUserID,
	}

	if status == domain.TransactionStatusCompleted && affectsWallet(args.Type, args.Method) {
		// Дебет идет первым: при нехватке средств транзакция БД откатывается
		// и никакой записи не остается.
		effect := &domain.Transaction{WalletID: wallet.ID, Type: args.Type, Amount: args.Amount}
		if applyErr := applyBalanceEffect(ctx, walletRepo, effect); applyErr != nil {
			return nil, applyErr
		}
	}

	created, createErr := txRepo.Create(ctx, createArgs)
	if createErr != nil {
		return nil, createErr //nolint:wrapcheck
	}
	return created, nil
}

// affectsWallet сообщает, двигает ли завершение транзакции баланс кошелька.
// Кредиты (deposit/refund) всегда зачисляются в кошелек. Дебеты списываются
// только при оплате кошельком: покупку через внешний шлюз оплачивает провайдер,
// леджер лишь фиксирует ее завершение.
func affectsWallet(transactionType domain.TransactionType, method domain.PaymentMethod) bool {
	return transactionType.IsCredit() || method == domain.MethodWallet
}

// applyBalanceEffect применяет знаковый эффект завершенной транзакции к балансу.
func applyBalanceEffect(ctx context.Context, walletRepo WalletRepository, transaction *domain.Transaction) error {
	var err error
	if transaction.Type.IsCredit() {
		_, err = walletRepo.Credit(ctx, transaction.WalletID, transaction.Amount)
	} else {
		_, err = walletRepo.Debit(ctx, transaction.WalletID, transaction.Amount)
	}
	return err //nolint:wrapcheck
}

func statusForOutcome(outcome domain.PaymentOutcome) domain.TransactionStatus {
	switch outcome {
	case domain.OutcomeSucceeded:
		return domain.TransactionStatusCompleted
	case domain.OutcomeFailed:
		return domain.TransactionStatusFailed
	default:
		return domain.TransactionStatusPending
	}
}
