package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/avkozlov/edumarket/internal/service"
	"github.com/avkozlov/edumarket/internal/service/tokens"
	"github.com/avkozlov/edumarket/internal/transport/api/mocks"
	"github.com/avkozlov/edumarket/internal/transport/api/testutils"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type WalletHandlerTestSuite struct {
	suite.Suite
	router                 *gin.Engine
	mockWalletService      *mocks.MockWalletServicer
	mockTransactionService *mocks.MockTransactionServicer
	mockPayments           *mocks.MockPaymentInitiator
	jwtSecret              []byte
	userToken              string
	userID                 int64
}

func TestWalletHandlerSuite(t *testing.T) {
	suite.Run(t, new(WalletHandlerTestSuite))
}

func (s *WalletHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())

	s.mockWalletService = mocks.NewMockWalletServicer(mockCtrl)
	s.mockTransactionService = mocks.NewMockTransactionServicer(mockCtrl)
	s.mockPayments = mocks.NewMockPaymentInitiator(mockCtrl)
	s.jwtSecret = []byte("super secret key")
	s.userID = 1

	token, tokenErr := tokens.GenerateUserJWT(s.userID, domain.RoleStudent, time.Hour, s.jwtSecret)
	s.Require().NoError(tokenErr)
	s.userToken = token

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router, routerErr := New(RouterArgs{
		Logger:             logger,
		WalletService:      s.mockWalletService,
		TransactionService: s.mockTransactionService,
		Payments:           s.mockPayments,
		JWTSecretKey:       s.jwtSecret,
	})
	s.Require().NoError(routerErr)
	s.router = router
}

func (s *WalletHandlerTestSuite) authHeader() func(*testutils.RequestOptions) {
	return testutils.WithHeader("Authorization", "Bearer "+s.userToken)
}

func (s *WalletHandlerTestSuite) TestShow() {
	wallet := &domain.Wallet{
		ID:       10,
		UserID:   s.userID,
		Balance:  decimal.NewFromFloat(99.5),
		Currency: "EUR",
		IsActive: true,
	}
	s.mockWalletService.EXPECT().GetOrCreate(gomock.Any(), s.userID).Return(wallet, nil)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    RouteGroup + WalletRoute,
	}, s.authHeader())
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var payload WalletResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&payload))
	s.Equal(wallet.ID, payload.ID)
	s.InDelta(99.5, payload.Balance, 0.0001)
	s.Equal("EUR", payload.Currency)
	s.True(payload.IsActive)
}

func (s *WalletHandlerTestSuite) TestShowUnauthorized() {
	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    RouteGroup + WalletRoute,
	})
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *WalletHandlerTestSuite) TestHistory() {
	transactions := []domain.Transaction{
		{ID: 2, Type: domain.TransactionDeposit, Amount: decimal.NewFromInt(100), Status: domain.TransactionStatusCompleted},
		{ID: 1, Type: domain.TransactionPurchase, Amount: decimal.NewFromInt(50), Status: domain.TransactionStatusCompleted},
	}

	s.mockWalletService.EXPECT().
		History(gomock.Any(), s.userID, repoargs.TransactionFilter{Type: domain.TransactionDeposit, Limit: 10}).
		Return(transactions, nil)
	s.mockWalletService.EXPECT().
		History(gomock.Any(), s.userID, repoargs.TransactionFilter{}).
		Return([]domain.Transaction{}, nil)

	cases := []struct {
		name       string
		query      string
		wantStatus int
		wantLen    int
	}{
		{name: "filtered page", query: "?type=deposit&limit=10", wantStatus: http.StatusOK, wantLen: 2},
		{name: "empty history", query: "", wantStatus: http.StatusNoContent},
		{name: "unknown type", query: "?type=teleport", wantStatus: http.StatusBadRequest},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodGet,
				URL:    RouteGroup + WalletHistoryRoute + t.query,
			}, s.authHeader())
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Require().Equal(t.wantStatus, resp.StatusCode)
			if t.wantLen > 0 {
				var payload []TransactionResponse
				s.Require().NoError(json.NewDecoder(resp.Body).Decode(&payload))
				s.Len(payload, t.wantLen)
			}
		})
	}
}

func (s *WalletHandlerTestSuite) TestDeposit() {
	amount := decimal.NewFromInt(100)

	s.mockPayments.EXPECT().
		CreatePayment(gomock.Any(), domain.MethodStripe, amount, service.DefaultCurrency, "wallet deposit").
		Return("pi_1", nil)
	// pending транзакция создается с итогом pending и ссылкой провайдера.
	s.mockTransactionService.EXPECT().
		Process(gomock.Any(), service.ProcessArgs{
			UserID:      s.userID,
			Type:        domain.TransactionDeposit,
			Amount:      amount,
			Currency:    service.DefaultCurrency,
			Method:      domain.MethodStripe,
			ProviderRef: "pi_1",
			Description: "wallet deposit",
			Outcome:     domain.OutcomePending,
		}).
		Return(&domain.Transaction{
			ID:          7,
			Status:      domain.TransactionStatusPending,
			ProviderRef: "pi_1",
		}, nil)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodPost,
		URL:    RouteGroup + DepositRoute,
		Body:   bytes.NewReader([]byte(`{"amount":100,"method":"stripe"}`)),
	}, s.authHeader())
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var payload DepositResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&payload))
	s.Equal(int64(7), payload.TransactionID)
	s.Equal("pi_1", payload.ProviderRef)
	s.Equal(string(domain.TransactionStatusPending), payload.Status)
}

func (s *WalletHandlerTestSuite) TestDepositValidation() {
	cases := []struct {
		name       string
		payload    string
		wantStatus int
	}{
		{name: "negative amount", payload: `{"amount":-5,"method":"stripe"}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "wallet is not a gateway", payload: `{"amount":100,"method":"wallet"}`, wantStatus: http.StatusBadRequest},
		{name: "bad currency", payload: `{"amount":100,"method":"stripe","currency":"evro"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed body", payload: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + DepositRoute,
				Body:   bytes.NewReader([]byte(t.payload)),
			}, s.authHeader())
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

func (s *WalletHandlerTestSuite) TestDepositGatewayDown() {
	s.mockPayments.EXPECT().
		CreatePayment(gomock.Any(), domain.MethodPayPal, gomock.Any(), service.DefaultCurrency, "wallet deposit").
		Return("", fmt.Errorf("gateway timeout"))

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodPost,
		URL:    RouteGroup + DepositRoute,
		Body:   bytes.NewReader([]byte(`{"amount":100,"method":"paypal"}`)),
	}, s.authHeader())
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Equal(http.StatusBadGateway, resp.StatusCode)
}

func (s *WalletHandlerTestSuite) TestConfirmDeposit() {
	s.mockPayments.EXPECT().
		Confirm(gomock.Any(), domain.MethodStripe, "pi_1").
		Return(nil)
	s.mockPayments.EXPECT().
		Confirm(gomock.Any(), domain.MethodStripe, "pi_down").
		Return(fmt.Errorf("gateway timeout"))

	cases := []struct {
		name       string
		payload    string
		wantStatus int
	}{
		{name: "ok", payload: `{"provider_ref":"pi_1","method":"stripe"}`, wantStatus: http.StatusOK},
		{name: "gateway down", payload: `{"provider_ref":"pi_down","method":"stripe"}`, wantStatus: http.StatusBadGateway},
		{name: "missing ref", payload: `{"method":"stripe"}`, wantStatus: http.StatusBadRequest},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + DepositConfirmRoute,
				Body:   bytes.NewReader([]byte(t.payload)),
			}, s.authHeader())
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}
