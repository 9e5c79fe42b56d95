package service

import (
	"context"
	"fmt"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/avkozlov/edumarket/pkg/uow"
	"github.com/shopspring/decimal"
)

const (
	// DefaultCurrency - валюта лениво создаваемых кошельков. Кошелек одновалютный,
	// конвертаций система не делает.
	DefaultCurrency = "EUR"

	DefaultHistoryLimit uint = 20
	MaxHistoryLimit     uint = 100
)

// WalletService - единственная точка чтения кошелька и его истории. Все мутации
// баланса проходят через TransactionService.
type WalletService struct {
	uow        uow.UOW
	walletRepo WalletRepository
	txRepo     TransactionRepository
}

func NewWalletService(u uow.UOW) (*WalletService, error) {
	walletRepo, walletRepoErr := uow.GetRepositoryAs[WalletRepository](u, uow.RepositoryName(repoargs.WalletRepoName))
	if walletRepoErr != nil {
		return nil, walletRepoErr
	}
	txRepo, txRepoErr := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if txRepoErr != nil {
		return nil, txRepoErr
	}
	return &WalletService{
		uow:        u,
		walletRepo: walletRepo,
		txRepo:     txRepo,
	}, nil
}

// GetOrCreate возвращает кошелек юзера, создавая его при первом обращении. Идемпотентен.
func (s *WalletService) GetOrCreate(ctx context.Context, userID int64) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetOrCreate(ctx, userID, DefaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("get or create wallet: %w", err)
	}
	return wallet, nil
}

// CanAfford - консультативная проверка баланса. Баланс может измениться между этой
// проверкой и реальным списанием, поэтому списание перепроверяет сумму атомарно.
func (s *WalletService) CanAfford(ctx context.Context, userID int64, amount decimal.Decimal) (bool, error) {
	if !amount.IsPositive() {
		return false, domain.ErrInvalidAmount
	}
	wallet, err := s.walletRepo.FindByUserID(ctx, userID)
	if err != nil {
		return false, err //nolint:wrapcheck
	}
	return wallet.IsActive && wallet.Balance.GreaterThanOrEqual(amount), nil
}

// History возвращает страницу транзакций кошелька в обратном хронологическом порядке,
// опционально отфильтрованную по типу.
func (s *WalletService) History(
	ctx context.Context,
	userID int64,
	filter repoargs.TransactionFilter,
) ([]domain.Transaction, error) {
	if filter.Limit == 0 {
		filter.Limit = DefaultHistoryLimit
	}
	if filter.Limit > MaxHistoryLimit {
		filter.Limit = MaxHistoryLimit
	}

	wallet, walletErr := s.walletRepo.FindByUserID(ctx, userID)
	if walletErr != nil {
		return nil, walletErr //nolint:wrapcheck
	}

	transactions, err := s.txRepo.GetHistory(ctx, wallet.ID, filter)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return transactions, nil
}
