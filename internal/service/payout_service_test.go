package service

import (
	"context"
	"testing"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/avkozlov/edumarket/internal/service/mocks"
	"github.com/avkozlov/edumarket/pkg/uow"
	uowmocks "github.com/avkozlov/edumarket/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PayoutServiceTestSuite struct {
	suite.Suite
	mockUOW        *uowmocks.MockUOW
	mockTX         *uowmocks.MockTX
	mockPayoutRepo *mocks.MockPayoutRepository
	mockWalletRepo *mocks.MockWalletRepository
	mockTxRepo     *mocks.MockTransactionRepository
	payoutService  *PayoutService
}

func TestPayoutServiceSuite(t *testing.T) {
	suite.Run(t, new(PayoutServiceTestSuite))
}

func (s *PayoutServiceTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(mockCtrl)
	s.mockTX = uowmocks.NewMockTX(mockCtrl)
	s.mockPayoutRepo = mocks.NewMockPayoutRepository(mockCtrl)
	s.mockWalletRepo = mocks.NewMockWalletRepository(mockCtrl)
	s.mockTxRepo = mocks.NewMockTransactionRepository(mockCtrl)

	// Мок получения репозиториев из uow. Выполняется в инициализации сервиса.
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.PayoutRepoName)).
		Return(s.mockPayoutRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.WalletRepoName)).
		Return(s.mockWalletRepo, nil).AnyTimes()

	// Мок получения репозиториев внутри транзакции uow.
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.PayoutRepoName)).
		Return(s.mockPayoutRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.WalletRepoName)).
		Return(s.mockWalletRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTxRepo, nil).AnyTimes()

	payoutService, servErr := NewPayoutService(s.mockUOW)
	s.Require().NoError(servErr)
	s.payoutService = payoutService
}

func (s *PayoutServiceTestSuite) expectDo(times int) {
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(s.T().Context(), s.mockTX)
		},
	).Times(times)
}

func (s *PayoutServiceTestSuite) TestCreate() {
	wallet := &domain.Wallet{ID: 10, UserID: 2, Balance: decimal.NewFromInt(100), Currency: "EUR", IsActive: true}
	s.mockWalletRepo.EXPECT().FindByUserID(gomock.Any(), int64(2)).Return(wallet, nil).AnyTimes()

	s.Run("ok with wallet currency", func() {
		s.mockPayoutRepo.EXPECT().
			Create(gomock.Any(), gomock.Eq(repoargs.PayoutCreate{
				UserID:      2,
				Amount:      decimal.NewFromInt(100),
				Currency:    "EUR",
				Method:      "bank_transfer",
				Destination: "DE89370400440532013000",
			})).
			Return(&domain.PayoutRequest{ID: 1, Status: domain.PayoutStatusPending}, nil)

		request, err := s.payoutService.Create(s.T().Context(), CreatePayoutArgs{
			UserID:      2,
			Amount:      decimal.NewFromInt(100),
			Method:      "bank_transfer",
			Destination: "DE89370400440532013000",
		})
		s.Require().NoError(err)
		s.Equal(domain.PayoutStatusPending, request.Status)
	})

	s.Run("non positive amount", func() {
		_, err := s.payoutService.Create(s.T().Context(), CreatePayoutArgs{UserID: 2, Amount: decimal.Zero})
		s.Require().ErrorIs(err, domain.ErrInvalidAmount)
	})

	s.Run("advisory balance check", func() {
		_, err := s.payoutService.Create(s.T().Context(), CreatePayoutArgs{
			UserID: 2,
			Amount: decimal.NewFromInt(101),
		})
		s.Require().ErrorIs(err, domain.ErrInsufficientFunds)
	})
}

func (s *PayoutServiceTestSuite) TestApprove() {
	pending := &domain.PayoutRequest{
		ID:       1,
		UserID:   2,
		Amount:   decimal.NewFromInt(100),
		Currency: "EUR",
		Status:   domain.PayoutStatusPending,
	}
	wallet := &domain.Wallet{ID: 10, UserID: 2, Balance: decimal.NewFromInt(150), Currency: "EUR", IsActive: true}

	s.expectDo(1)
	s.mockPayoutRepo.EXPECT().FindForUpdate(gomock.Any(), pending.ID).Return(pending, nil)
	s.mockWalletRepo.EXPECT().FindByUserID(gomock.Any(), pending.UserID).Return(wallet, nil)
	s.mockWalletRepo.EXPECT().Debit(gomock.Any(), wallet.ID, pending.Amount).
		Return(&domain.Wallet{ID: 10, Balance: decimal.NewFromInt(50)}, nil)
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.TransactionCreate) (*domain.Transaction, error) {
			s.Equal(domain.TransactionWithdrawal, args.Type)
			s.Equal(domain.TransactionStatusCompleted, args.Status)
			s.Equal(pending.UserID, args.RelatedUserID)
			return &domain.Transaction{ID: 5}, nil
		})
	s.mockPayoutRepo.EXPECT().
		Resolve(gomock.Any(), pending.ID, domain.PayoutStatusApproved, gomock.Not(""), "ok").
		DoAndReturn(func(_ context.Context, id int64, status domain.PayoutStatus, reference, notes string) (*domain.PayoutRequest, error) {
			return &domain.PayoutRequest{ID: id, Status: status, Reference: reference, Notes: notes}, nil
		})

	request, err := s.payoutService.Approve(s.T().Context(), pending.ID, "ok")
	s.Require().NoError(err)
	s.Equal(domain.PayoutStatusApproved, request.Status)
	s.NotEmpty(request.Reference)
}

func (s *PayoutServiceTestSuite) TestApproveNotPending() {
	resolved := &domain.PayoutRequest{ID: 1, UserID: 2, Status: domain.PayoutStatusApproved}

	s.expectDo(1)
	s.mockPayoutRepo.EXPECT().FindForUpdate(gomock.Any(), resolved.ID).Return(resolved, nil)

	_, err := s.payoutService.Approve(s.T().Context(), resolved.ID, "")
	s.Require().ErrorIs(err, domain.ErrPayoutNotPending)
}

func (s *PayoutServiceTestSuite) TestApproveInsufficientFundsKeepsPending() {
	pending := &domain.PayoutRequest{
		ID:       1,
		UserID:   2,
		Amount:   decimal.NewFromInt(500),
		Currency: "EUR",
		Status:   domain.PayoutStatusPending,
	}
	wallet := &domain.Wallet{ID: 10, UserID: 2, Balance: decimal.NewFromInt(100), Currency: "EUR", IsActive: true}

	s.expectDo(1)
	s.mockPayoutRepo.EXPECT().FindForUpdate(gomock.Any(), pending.ID).Return(pending, nil)
	s.mockWalletRepo.EXPECT().FindByUserID(gomock.Any(), pending.UserID).Return(wallet, nil)
	s.mockWalletRepo.EXPECT().Debit(gomock.Any(), wallet.ID, pending.Amount).
		Return(nil, domain.ErrInsufficientFunds)
	// заявка не резолвится: она остается pending и видна админу.
	s.mockPayoutRepo.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := s.payoutService.Approve(s.T().Context(), pending.ID, "")
	s.Require().ErrorIs(err, domain.ErrPayoutInsufficientFunds)
}

func (s *PayoutServiceTestSuite) TestReject() {
	s.mockPayoutRepo.EXPECT().
		Resolve(gomock.Any(), int64(1), domain.PayoutStatusRejected, "", "fraud suspicion").
		Return(&domain.PayoutRequest{ID: 1, Status: domain.PayoutStatusRejected, Notes: "fraud suspicion"}, nil)

	request, err := s.payoutService.Reject(s.T().Context(), 1, "fraud suspicion")
	s.Require().NoError(err)
	s.Equal(domain.PayoutStatusRejected, request.Status)
}

func (s *PayoutServiceTestSuite) TestConfirmTransfer() {
	s.mockPayoutRepo.EXPECT().
		MarkPaid(gomock.Any(), int64(1), "SEPA-42").
		Return(&domain.PayoutRequest{ID: 1, Status: domain.PayoutStatusPaid, Reference: "SEPA-42"}, nil)

	request, err := s.payoutService.ConfirmTransfer(s.T().Context(), 1, "SEPA-42")
	s.Require().NoError(err)
	s.Equal(domain.PayoutStatusPaid, request.Status)

	// подтверждать можно только одобренную заявку - репозиторий отвечает отказом.
	s.mockPayoutRepo.EXPECT().
		MarkPaid(gomock.Any(), int64(2), "SEPA-43").
		Return(nil, domain.ErrPayoutNotPending)

	_, err = s.payoutService.ConfirmTransfer(s.T().Context(), 2, "SEPA-43")
	s.Require().ErrorIs(err, domain.ErrPayoutNotPending)
}

func (s *PayoutServiceTestSuite) TestQueues() {
	s.mockPayoutRepo.EXPECT().GetByUserID(gomock.Any(), int64(2)).
		Return([]domain.PayoutRequest{{ID: 2}, {ID: 1}}, nil)
	s.mockPayoutRepo.EXPECT().GetByStatus(gomock.Any(), domain.PayoutStatusPending).
		Return([]domain.PayoutRequest{{ID: 1, Status: domain.PayoutStatusPending}}, nil)

	mine, err := s.payoutService.GetByUserID(s.T().Context(), 2)
	s.Require().NoError(err)
	s.Len(mine, 2)

	queue, err := s.payoutService.GetPending(s.T().Context())
	s.Require().NoError(err)
	s.Len(queue, 1)
}
