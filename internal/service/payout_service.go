package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/avkozlov/edumarket/pkg/uow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutService - воркфлоу вывода средств учителем: заявка -> решение админа.
type PayoutService struct {
	uow        uow.UOW
	payoutRepo PayoutRepository
	walletRepo WalletRepository
}

func NewPayoutService(u uow.UOW) (*PayoutService, error) {
	payoutRepo, payoutRepoErr := uow.GetRepositoryAs[PayoutRepository](u, uow.RepositoryName(repoargs.PayoutRepoName))
	if payoutRepoErr != nil {
		return nil, payoutRepoErr
	}
	walletRepo, walletRepoErr := uow.GetRepositoryAs[WalletRepository](u, uow.RepositoryName(repoargs.WalletRepoName))
	if walletRepoErr != nil {
		return nil, walletRepoErr
	}
	return &PayoutService{
		uow:        u,
		payoutRepo: payoutRepo,
		walletRepo: walletRepo,
	}, nil
}

type CreatePayoutArgs struct {
	UserID      int64
	Amount      decimal.Decimal
	Currency    string
	Method      string
	Destination string
}

// Create создает заявку на вывод. Баланс здесь проверяется лишь консультативно:
// решающая проверка произойдет в момент одобрения.
func (s *PayoutService) Create(ctx context.Context, args CreatePayoutArgs) (*domain.PayoutRequest, error) {
	if !args.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	wallet, walletErr := s.walletRepo.FindByUserID(ctx, args.UserID)
	if walletErr != nil {
		return nil, walletErr //nolint:wrapcheck
	}
	if wallet.Balance.LessThan(args.Amount) {
		return nil, domain.ErrInsufficientFunds
	}
	if args.Currency == "" {
		args.Currency = wallet.Currency
	}

	request, createErr := s.payoutRepo.Create(ctx, repoargs.PayoutCreate{
		UserID:      args.UserID,
		Amount:      args.Amount,
		Currency:    args.Currency,
		Method:      args.Method,
		Destination: args.Destination,
	})
	if createErr != nil {
		return nil, fmt.Errorf("creating payout request: %w", createErr)
	}
	return request, nil
}

// Approve одобряет заявку.
//
// Критичная операция воркфлоу: баланс перепроверяется в момент одобрения, и перепроверка
// с самим списанием - одна транзакция БД (условный UPDATE баланса плюс строковая
// блокировка заявки). Два параллельных одобрения на сумму больше баланса не могут
// пройти оба: проигравший получает ErrPayoutInsufficientFunds, его заявка ОСТАЕТСЯ
// pending и никогда молча не понижается.
func (s *PayoutService) Approve(ctx context.Context, requestID int64, notes string) (*domain.PayoutRequest, error) {
	var result *domain.PayoutRequest
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		payoutRepo, payoutRepoErr := uow.GetAs[PayoutRepository](tx, uow.RepositoryName(repoargs.PayoutRepoName))
		if payoutRepoErr != nil {
			return payoutRepoErr //nolint:wrapcheck
		}
		walletRepo, walletRepoErr := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
		if walletRepoErr != nil {
			return walletRepoErr //nolint:wrapcheck
		}
		txRepo, txRepoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		if txRepoErr != nil {
			return txRepoErr //nolint:wrapcheck
		}

		request, findErr := payoutRepo.FindForUpdate(c, requestID)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}
		if request.Status != domain.PayoutStatusPending {
			return domain.ErrPayoutNotPending
		}

		wallet, walletErr := walletRepo.FindByUserID(c, request.UserID)
		if walletErr != nil {
			return walletErr //nolint:wrapcheck
		}

		if _, debitErr := walletRepo.Debit(c, wallet.ID, request.Amount); debitErr != nil {
			if errors.Is(debitErr, domain.ErrInsufficientFunds) {
				return domain.ErrPayoutInsufficientFunds
			}
			return debitErr //nolint:wrapcheck
		}

		if _, createErr := txRepo.Create(c, repoargs.TransactionCreate{
			WalletID:      wallet.ID,
			Type:          domain.TransactionWithdrawal,
			Amount:        request.Amount,
			Currency:      request.Currency,
			Description:   fmt.Sprintf("Payout request %d", request.ID),
			Status:        domain.TransactionStatusCompleted,
			Method:        domain.MethodWallet,
			RelatedUserID: request.UserID,
		}); createErr != nil {
			return createErr //nolint:wrapcheck
		}

		reference := uuid.NewString()
		resolved, resolveErr := payoutRepo.Resolve(c, request.ID, domain.PayoutStatusApproved, reference, notes)
		if resolveErr != nil {
			return resolveErr //nolint:wrapcheck
		}
		result = resolved
		return nil
	})

	if txErr != nil {
		return nil, fmt.Errorf("approving payout request %d: %w", requestID, txErr)
	}
	return result, nil
}

// Reject отклоняет pending заявку. Леджер не затрагивается.
func (s *PayoutService) Reject(ctx context.Context, requestID int64, notes string) (*domain.PayoutRequest, error) {
	request, err := s.payoutRepo.Resolve(ctx, requestID, domain.PayoutStatusRejected, "", notes)
	if err != nil {
		return nil, fmt.Errorf("rejecting payout request %d: %w", requestID, err)
	}
	return request, nil
}

// ConfirmTransfer - отдельное административное подтверждение внешнего перевода:
// approved -> paid. Деньги уже списаны при одобрении.
func (s *PayoutService) ConfirmTransfer(ctx context.Context, requestID int64, reference string) (*domain.PayoutRequest, error) {
	request, err := s.payoutRepo.MarkPaid(ctx, requestID, reference)
	if err != nil {
		return nil, fmt.Errorf("confirming payout request %d: %w", requestID, err)
	}
	return request, nil
}

// GetByUserID возвращает заявки учителя, новые первыми.
func (s *PayoutService) GetByUserID(ctx context.Context, userID int64) ([]domain.PayoutRequest, error) {
	requests, err := s.payoutRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return requests, nil
}

// GetPending возвращает очередь заявок на решение админа, старые первыми.
func (s *PayoutService) GetPending(ctx context.Context) ([]domain.PayoutRequest, error) {
	requests, err := s.payoutRepo.GetByStatus(ctx, domain.PayoutStatusPending)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return requests, nil
}
