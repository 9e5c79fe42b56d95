package payments

import (
	"io"
	"testing"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/transport/payments/mocks"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type AdapterTestSuite struct {
	suite.Suite
	ctrl             *gomock.Controller
	mockProvider     *mocks.MockProvider
	mockTransactions *mocks.MockTransactionProcessor
	mockPurchases    *mocks.MockPurchaseFinalizer
	adapter          *Adapter
}

func TestAdapterSuite(t *testing.T) {
	suite.Run(t, new(AdapterTestSuite))
}

func (s *AdapterTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockProvider = mocks.NewMockProvider(s.ctrl)
	s.mockTransactions = mocks.NewMockTransactionProcessor(s.ctrl)
	s.mockPurchases = mocks.NewMockPurchaseFinalizer(s.ctrl)

	s.mockProvider.EXPECT().Method().Return(domain.MethodStripe).AnyTimes()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s.adapter = NewAdapter(logger, s.mockProvider)
	s.adapter.Bind(s.mockTransactions, s.mockPurchases)
}

func (s *AdapterTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AdapterTestSuite) TestCreatePayment() {
	amount := decimal.NewFromInt(50)

	s.mockProvider.EXPECT().
		CreatePayment(gomock.Any(), amount, "EUR", "Course").
		Return("pi_1", nil)

	ref, err := s.adapter.CreatePayment(s.T().Context(), domain.MethodStripe, amount, "EUR", "Course")
	s.Require().NoError(err)
	s.Equal("pi_1", ref)
}

func (s *AdapterTestSuite) TestCreatePaymentUnknownProvider() {
	_, err := s.adapter.CreatePayment(s.T().Context(), domain.MethodPayPal, decimal.NewFromInt(50), "EUR", "Course")

	var unknownProvider *UnknownProviderError
	s.Require().ErrorAs(err, &unknownProvider)
	s.Equal(domain.MethodPayPal, unknownProvider.Method)
}

// TestConfirm Итог платежа спрашивается у провайдера, а не берется со слов клиента.
func (s *AdapterTestSuite) TestConfirm() {
	s.mockProvider.EXPECT().
		VerifyPayment(gomock.Any(), "pi_1").
		Return(domain.OutcomeSucceeded, nil)
	s.mockTransactions.EXPECT().
		ProcessProviderOutcome(gomock.Any(), "pi_1", domain.OutcomeSucceeded).
		Return(&domain.Transaction{ID: 1, Type: domain.TransactionDeposit}, nil)

	s.Require().NoError(s.adapter.Confirm(s.T().Context(), domain.MethodStripe, "pi_1"))
}

func (s *AdapterTestSuite) TestReportOutcomePendingIsNoOp() {
	// ни леджер, ни покупки не трогаются.
	s.Require().NoError(s.adapter.ReportOutcome(s.T().Context(), "pi_1", domain.OutcomePending))
}

func (s *AdapterTestSuite) TestReportOutcomePurchaseSucceeded() {
	s.mockTransactions.EXPECT().
		ProcessProviderOutcome(gomock.Any(), "pi_1", domain.OutcomeSucceeded).
		Return(&domain.Transaction{ID: 1, Type: domain.TransactionPurchase}, nil)
	s.mockPurchases.EXPECT().
		FinalizePaid(gomock.Any(), "pi_1").
		Return(&domain.Purchase{ID: 1, Status: domain.PurchaseStatusCompleted}, nil)

	s.Require().NoError(s.adapter.ReportOutcome(s.T().Context(), "pi_1", domain.OutcomeSucceeded))
}

func (s *AdapterTestSuite) TestReportOutcomePurchaseFailed() {
	s.mockTransactions.EXPECT().
		ProcessProviderOutcome(gomock.Any(), "pi_1", domain.OutcomeFailed).
		Return(&domain.Transaction{ID: 1, Type: domain.TransactionPurchase}, nil)
	s.mockPurchases.EXPECT().
		FailByProviderRef(gomock.Any(), "pi_1").
		Return(nil)

	s.Require().NoError(s.adapter.ReportOutcome(s.T().Context(), "pi_1", domain.OutcomeFailed))
}

func (s *AdapterTestSuite) TestReportOutcomeDepositSkipsPurchaseStep() {
	s.mockTransactions.EXPECT().
		ProcessProviderOutcome(gomock.Any(), "pi_1", domain.OutcomeSucceeded).
		Return(&domain.Transaction{ID: 1, Type: domain.TransactionDeposit}, nil)
	s.mockPurchases.EXPECT().FinalizePaid(gomock.Any(), gomock.Any()).Times(0)

	s.Require().NoError(s.adapter.ReportOutcome(s.T().Context(), "pi_1", domain.OutcomeSucceeded))
}

// TestReportOutcomeUnknownRef Ссылка, которой у нас нет - лог и подтверждение:
// ретраи провайдера тут ничего не исправят.
func (s *AdapterTestSuite) TestReportOutcomeUnknownRef() {
	s.mockTransactions.EXPECT().
		ProcessProviderOutcome(gomock.Any(), "pi_ghost", domain.OutcomeSucceeded).
		Return(nil, domain.ErrRecordNotFound)

	s.Require().NoError(s.adapter.ReportOutcome(s.T().Context(), "pi_ghost", domain.OutcomeSucceeded))
}
