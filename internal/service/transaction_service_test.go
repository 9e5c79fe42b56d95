package service

import (
	"context"
	"testing"
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/avkozlov/edumarket/internal/service/mocks"
	"github.com/avkozlov/edumarket/pkg/uow"
	uowmocks "github.com/avkozlov/edumarket/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type TransactionServiceTestSuite struct {
	suite.Suite
	mockCtrl       *gomock.Controller
	mockUOW        *uowmocks.MockUOW
	mockTX         *uowmocks.MockTX
	mockWalletRepo *mocks.MockWalletRepository
	mockTxRepo     *mocks.MockTransactionRepository
	txService      *TransactionService
}

func TestTransactionServiceSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}

func (s *TransactionServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockWalletRepo = mocks.NewMockWalletRepository(s.mockCtrl)
	s.mockTxRepo = mocks.NewMockTransactionRepository(s.mockCtrl)

	// Мок получения репозитория из uow. Выполняется в инициализации сервиса.
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTxRepo, nil).AnyTimes()

	// Мок получения репозиториев внутри транзакции uow.
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.WalletRepoName)).
		Return(s.mockWalletRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTxRepo, nil).AnyTimes()

	txService, servErr := NewTransactionService(s.mockUOW)
	s.Require().NoError(servErr)
	s.txService = txService
}

func (s *TransactionServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

// expectDo настраивает мок UOW обертку: колбек выполняется с mockTX.
func (s *TransactionServiceTestSuite) expectDo(times int) {
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(s.T().Context(), s.mockTX)
		},
	).Times(times)
}

func (s *TransactionServiceTestSuite) TestProcessRejectsNonPositiveAmount() {
	cases := []struct {
		name   string
		amount decimal.Decimal
	}{
		{name: "zero", amount: decimal.Zero},
		{name: "negative", amount: decimal.NewFromInt(-10)},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			_, err := s.txService.Process(s.T().Context(), ProcessArgs{
				UserID:  1,
				Type:    domain.TransactionDeposit,
				Amount:  t.amount,
				Method:  domain.MethodWallet,
				Outcome: domain.OutcomeSucceeded,
			})
			s.Require().ErrorIs(err, domain.ErrInvalidAmount)
		})
	}
}

func (s *TransactionServiceTestSuite) TestProcessDepositCreditsWallet() {
	amount := decimal.NewFromInt(100)
	wallet := &domain.Wallet{ID: 10, UserID: 1, Balance: decimal.Zero, Currency: "EUR", IsActive: true}

	s.expectDo(1)
	s.mockWalletRepo.EXPECT().GetOrCreate(gomock.Any(), int64(1), "EUR").Return(wallet, nil)
	s.mockWalletRepo.EXPECT().Credit(gomock.Any(), wallet.ID, amount).
		Return(&domain.Wallet{ID: 10, Balance: amount}, nil)
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.TransactionCreate) (*domain.Transaction, error) {
			s.Equal(domain.TransactionStatusCompleted, args.Status)
			s.Equal(wallet.ID, args.WalletID)
			return &domain.Transaction{
				ID:       1,
				WalletID: args.WalletID,
				Type:     args.Type,
				Amount:   args.Amount,
				Status:   args.Status,
			}, nil
		})

	txn, err := s.txService.Process(s.T().Context(), ProcessArgs{
		UserID:  1,
		Type:    domain.TransactionDeposit,
		Amount:  amount,
		Method:  domain.MethodWallet,
		Outcome: domain.OutcomeSucceeded,
	})
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusCompleted, txn.Status)
	s.True(txn.Amount.Equal(amount))
}

func (s *TransactionServiceTestSuite) TestProcessPurchaseInsufficientFunds() {
	amount := decimal.NewFromInt(500)
	wallet := &domain.Wallet{ID: 10, UserID: 1, Balance: decimal.NewFromInt(40), Currency: "EUR", IsActive: true}

	s.expectDo(1)
	s.mockWalletRepo.EXPECT().GetOrCreate(gomock.Any(), int64(1), "EUR").Return(wallet, nil)
	s.mockWalletRepo.EXPECT().Debit(gomock.Any(), wallet.ID, amount).
		Return(nil, domain.ErrInsufficientFunds)
	// дебет не прошел - записи транзакции быть не должно.
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.txService.Process(s.T().Context(), ProcessArgs{
		UserID:  1,
		Type:    domain.TransactionPurchase,
		Amount:  amount,
		Method:  domain.MethodWallet,
		Outcome: domain.OutcomeSucceeded,
	})
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)
}

func (s *TransactionServiceTestSuite) TestProcessIdempotentReplay() {
	const deliveries = 3
	amount := decimal.NewFromInt(100)
	wallet := &domain.Wallet{ID: 10, UserID: 1, Balance: amount, Currency: "EUR", IsActive: true}
	processedAt := time.Now()
	settled := &domain.Transaction{
		ID:          42,
		WalletID:    wallet.ID,
		Type:        domain.TransactionDeposit,
		Amount:      amount,
		Status:      domain.TransactionStatusCompleted,
		Method:      domain.MethodStripe,
		ProviderRef: "pi_42",
		ProcessedAt: &processedAt,
	}

	s.expectDo(deliveries)
	s.mockWalletRepo.EXPECT().GetOrCreate(gomock.Any(), int64(1), "EUR").
		Return(wallet, nil).Times(deliveries)
	s.mockTxRepo.EXPECT().FindByProviderRef(gomock.Any(), "pi_42").
		Return(settled, nil).Times(deliveries)

	// повторная доставка не трогает ни баланс, ни статус.
	s.mockWalletRepo.EXPECT().Credit(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.mockTxRepo.EXPECT().UpdatePendingStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	for range deliveries {
		txn, err := s.txService.Process(s.T().Context(), ProcessArgs{
			UserID:      1,
			Type:        domain.TransactionDeposit,
			Amount:      amount,
			Method:      domain.MethodStripe,
			ProviderRef: "pi_42",
			Outcome:     domain.OutcomeSucceeded,
		})
		s.Require().NoError(err)
		s.Equal(settled.ID, txn.ID)
		s.Equal(domain.TransactionStatusCompleted, txn.Status)
	}
}

func (s *TransactionServiceTestSuite) TestProcessProviderOutcomeSettlesPending() {
	amount := decimal.NewFromInt(100)
	pending := &domain.Transaction{
		ID:          7,
		WalletID:    10,
		Type:        domain.TransactionDeposit,
		Amount:      amount,
		Status:      domain.TransactionStatusPending,
		Method:      domain.MethodStripe,
		ProviderRef: "pi_7",
	}
	completed := &domain.Transaction{
		ID:          7,
		WalletID:    10,
		Type:        domain.TransactionDeposit,
		Amount:      amount,
		Status:      domain.TransactionStatusCompleted,
		Method:      domain.MethodStripe,
		ProviderRef: "pi_7",
	}

	s.expectDo(1)
	s.mockTxRepo.EXPECT().FindByProviderRef(gomock.Any(), "pi_7").Return(pending, nil)

	// статус переводится раньше движения денег.
	statusUpdated := s.mockTxRepo.EXPECT().
		UpdatePendingStatus(gomock.Any(), pending.ID, domain.TransactionStatusCompleted).
		Return(completed, nil)
	s.mockWalletRepo.EXPECT().Credit(gomock.Any(), int64(10), amount).
		Return(&domain.Wallet{ID: 10, Balance: amount}, nil).
		After(statusUpdated)

	txn, err := s.txService.ProcessProviderOutcome(s.T().Context(), "pi_7", domain.OutcomeSucceeded)
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusCompleted, txn.Status)
}

func (s *TransactionServiceTestSuite) TestProcessProviderOutcomeGatewayPurchaseSkipsWallet() {
	// Покупка оплачена картой на стороне провайдера: завершение транзакции
	// не должно трогать кошелек - даже пустой кошелек не мешает проведению.
	amount := decimal.NewFromInt(250)
	pending := &domain.Transaction{
		ID:          9,
		WalletID:    10,
		Type:        domain.TransactionPurchase,
		Amount:      amount,
		Status:      domain.TransactionStatusPending,
		Method:      domain.MethodStripe,
		ProviderRef: "pi_9",
	}
	completed := &domain.Transaction{
		ID:          9,
		WalletID:    10,
		Type:        domain.TransactionPurchase,
		Amount:      amount,
		Status:      domain.TransactionStatusCompleted,
		Method:      domain.MethodStripe,
		ProviderRef: "pi_9",
	}

	s.expectDo(1)
	s.mockTxRepo.EXPECT().FindByProviderRef(gomock.Any(), "pi_9").Return(pending, nil)
	s.mockTxRepo.EXPECT().
		UpdatePendingStatus(gomock.Any(), pending.ID, domain.TransactionStatusCompleted).
		Return(completed, nil)
	s.mockWalletRepo.EXPECT().Debit(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.mockWalletRepo.EXPECT().Credit(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	txn, err := s.txService.ProcessProviderOutcome(s.T().Context(), "pi_9", domain.OutcomeSucceeded)
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusCompleted, txn.Status)
}

func (s *TransactionServiceTestSuite) TestProcessProviderOutcomeFailedKeepsBalance() {
	pending := &domain.Transaction{
		ID:          8,
		WalletID:    10,
		Type:        domain.TransactionDeposit,
		Amount:      decimal.NewFromInt(100),
		Status:      domain.TransactionStatusPending,
		Method:      domain.MethodPayPal,
		ProviderRef: "order_8",
	}

	s.expectDo(1)
	s.mockTxRepo.EXPECT().FindByProviderRef(gomock.Any(), "order_8").Return(pending, nil)
	s.mockTxRepo.EXPECT().
		UpdatePendingStatus(gomock.Any(), pending.ID, domain.TransactionStatusFailed).
		Return(&domain.Transaction{ID: 8, Status: domain.TransactionStatusFailed}, nil)
	s.mockWalletRepo.EXPECT().Credit(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.mockWalletRepo.EXPECT().Debit(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	txn, err := s.txService.ProcessProviderOutcome(s.T().Context(), "order_8", domain.OutcomeFailed)
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusFailed, txn.Status)
}

func (s *TransactionServiceTestSuite) TestProcessRaceLoserReturnsWinnerRow() {
	amount := decimal.NewFromInt(100)
	winner := &domain.Transaction{
		ID:          77,
		WalletID:    10,
		Type:        domain.TransactionDeposit,
		Amount:      amount,
		Status:      domain.TransactionStatusCompleted,
		Method:      domain.MethodStripe,
		ProviderRef: "pi_77",
	}

	// конкурентная вставка: победитель уже записал строку по этому provider_ref.
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).Return(domain.ErrDuplicateKey)
	s.mockTxRepo.EXPECT().FindByProviderRef(gomock.Any(), "pi_77").Return(winner, nil)

	txn, err := s.txService.Process(s.T().Context(), ProcessArgs{
		UserID:      1,
		Type:        domain.TransactionDeposit,
		Amount:      amount,
		Method:      domain.MethodStripe,
		ProviderRef: "pi_77",
		Outcome:     domain.OutcomeSucceeded,
	})
	s.Require().NoError(err)
	s.Equal(winner.ID, txn.ID)
}

func (s *TransactionServiceTestSuite) TestCancel() {
	pending := &domain.Transaction{
		ID:       5,
		WalletID: 10,
		Type:     domain.TransactionDeposit,
		Amount:   decimal.NewFromInt(50),
		Status:   domain.TransactionStatusPending,
	}
	wallet := &domain.Wallet{ID: 10, UserID: 1}

	s.expectDo(2)

	// чужая транзакция.
	s.mockTxRepo.EXPECT().FindByID(gomock.Any(), pending.ID).Return(pending, nil).Times(2)
	s.mockWalletRepo.EXPECT().FindByID(gomock.Any(), wallet.ID).Return(wallet, nil).Times(2)

	_, err := s.txService.Cancel(s.T().Context(), 999, pending.ID)
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)

	// своя pending транзакция отменяется.
	s.mockTxRepo.EXPECT().
		UpdatePendingStatus(gomock.Any(), pending.ID, domain.TransactionStatusCancelled).
		Return(&domain.Transaction{ID: 5, Status: domain.TransactionStatusCancelled}, nil)

	cancelled, cancelErr := s.txService.Cancel(s.T().Context(), 1, pending.ID)
	s.Require().NoError(cancelErr)
	s.Equal(domain.TransactionStatusCancelled, cancelled.Status)
}
