package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
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

type PayoutHandlerTestSuite struct {
	suite.Suite
	router            *gin.Engine
	mockPayoutService *mocks.MockPayoutServicer
	jwtSecret         []byte
	teacherToken      string
	adminToken        string
	teacherID         int64
}

func TestPayoutHandlerSuite(t *testing.T) {
	suite.Run(t, new(PayoutHandlerTestSuite))
}

func (s *PayoutHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())

	s.mockPayoutService = mocks.NewMockPayoutServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")
	s.teacherID = 2

	teacherToken, teacherErr := tokens.GenerateUserJWT(s.teacherID, domain.RoleTeacher, time.Hour, s.jwtSecret)
	s.Require().NoError(teacherErr)
	s.teacherToken = teacherToken

	adminToken, adminErr := tokens.GenerateUserJWT(99, domain.RoleAdmin, time.Hour, s.jwtSecret)
	s.Require().NoError(adminErr)
	s.adminToken = adminToken

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router, routerErr := New(RouterArgs{
		Logger:        logger,
		PayoutService: s.mockPayoutService,
		JWTSecretKey:  s.jwtSecret,
	})
	s.Require().NoError(routerErr)
	s.router = router
}

func (s *PayoutHandlerTestSuite) withToken(token string) func(*testutils.RequestOptions) {
	return testutils.WithHeader("Authorization", "Bearer "+token)
}

func (s *PayoutHandlerTestSuite) TestCreate() {
	s.mockPayoutService.EXPECT().
		Create(gomock.Any(), service.CreatePayoutArgs{
			UserID:      s.teacherID,
			Amount:      decimal.NewFromInt(100),
			Method:      "bank_transfer",
			Destination: "DE89370400440532013000",
		}).
		Return(&domain.PayoutRequest{
			ID:     1,
			Amount: decimal.NewFromInt(100),
			Status: domain.PayoutStatusPending,
		}, nil)
	s.mockPayoutService.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrInsufficientFunds)

	okPayload := `{"amount":100,"method":"bank_transfer","destination":"DE89370400440532013000"}`
	poorPayload := `{"amount":10000,"method":"bank_transfer","destination":"DE89370400440532013000"}`

	cases := []struct {
		name       string
		payload    string
		wantStatus int
	}{
		{name: "ok", payload: okPayload, wantStatus: http.StatusCreated},
		{name: "balance below requested", payload: poorPayload, wantStatus: http.StatusPaymentRequired},
		{name: "missing destination", payload: `{"amount":100,"method":"bank_transfer"}`, wantStatus: http.StatusBadRequest},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + PayoutsRoute,
				Body:   bytes.NewReader([]byte(t.payload)),
			}, s.withToken(s.teacherToken))
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

// TestPayoutRoutesForbiddenForStudent Выплаты запрашивают только преподаватели.
func (s *PayoutHandlerTestSuite) TestPayoutRoutesForbiddenForStudent() {
	studentToken, tokenErr := tokens.GenerateUserJWT(5, domain.RoleStudent, time.Hour, s.jwtSecret)
	s.Require().NoError(tokenErr)

	cases := []struct {
		name   string
		method string
	}{
		{name: "create", method: http.MethodPost},
		{name: "index", method: http.MethodGet},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: t.method,
				URL:    RouteGroup + PayoutsRoute,
				Body:   bytes.NewReader([]byte(`{"amount":100,"method":"bank_transfer","destination":"DE89"}`)),
			}, s.withToken(studentToken))
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(http.StatusForbidden, resp.StatusCode)
		})
	}
}

// TestAdminRoutesForbiddenForTeacher Админские роуты закрыты для остальных ролей.
func (s *PayoutHandlerTestSuite) TestAdminRoutesForbiddenForTeacher() {
	cases := []struct {
		name   string
		method string
		url    string
	}{
		{name: "pending queue", method: http.MethodGet, url: RouteGroup + AdminPayoutsRoute},
		{name: "approve", method: http.MethodPost, url: "/api/admin/payouts/1/approve"},
		{name: "reject", method: http.MethodPost, url: "/api/admin/payouts/1/reject"},
		{name: "transfer", method: http.MethodPost, url: "/api/admin/payouts/1/transfer"},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: t.method,
				URL:    t.url,
				Body:   bytes.NewReader([]byte(`{}`)),
			}, s.withToken(s.teacherToken))
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(http.StatusForbidden, resp.StatusCode)
		})
	}
}

func (s *PayoutHandlerTestSuite) TestPending() {
	s.mockPayoutService.EXPECT().
		GetPending(gomock.Any()).
		Return([]domain.PayoutRequest{{ID: 1, Status: domain.PayoutStatusPending}}, nil)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    RouteGroup + AdminPayoutsRoute,
	}, s.withToken(s.adminToken))
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var payload []PayoutResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&payload))
	s.Len(payload, 1)
}

func (s *PayoutHandlerTestSuite) TestApprove() {
	s.mockPayoutService.EXPECT().
		Approve(gomock.Any(), int64(1), "looks fine").
		Return(&domain.PayoutRequest{ID: 1, Status: domain.PayoutStatusApproved, Notes: "looks fine"}, nil)
	s.mockPayoutService.EXPECT().
		Approve(gomock.Any(), int64(2), "").
		Return(nil, domain.ErrPayoutNotPending)
	s.mockPayoutService.EXPECT().
		Approve(gomock.Any(), int64(3), "").
		Return(nil, domain.ErrPayoutInsufficientFunds)
	s.mockPayoutService.EXPECT().
		Approve(gomock.Any(), int64(4), "").
		Return(nil, domain.ErrPayoutNotFound)

	cases := []struct {
		name       string
		url        string
		payload    string
		wantStatus int
	}{
		{name: "ok", url: "/api/admin/payouts/1/approve", payload: `{"notes":"looks fine"}`, wantStatus: http.StatusOK},
		{name: "already resolved", url: "/api/admin/payouts/2/approve", payload: `{}`, wantStatus: http.StatusConflict},
		{name: "balance below requested", url: "/api/admin/payouts/3/approve", payload: `{}`, wantStatus: http.StatusPaymentRequired},
		{name: "unknown request", url: "/api/admin/payouts/4/approve", payload: `{}`, wantStatus: http.StatusNotFound},
		{name: "bad id", url: "/api/admin/payouts/abc/approve", payload: `{}`, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    t.url,
				Body:   bytes.NewReader([]byte(t.payload)),
			}, s.withToken(s.adminToken))
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

func (s *PayoutHandlerTestSuite) TestReject() {
	s.mockPayoutService.EXPECT().
		Reject(gomock.Any(), int64(1), "fraud suspicion").
		Return(&domain.PayoutRequest{ID: 1, Status: domain.PayoutStatusRejected, Notes: "fraud suspicion"}, nil)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodPost,
		URL:    "/api/admin/payouts/1/reject",
		Body:   bytes.NewReader([]byte(`{"notes":"fraud suspicion"}`)),
	}, s.withToken(s.adminToken))
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var payload PayoutResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&payload))
	s.Equal(domain.PayoutStatusRejected, payload.Status)
}

func (s *PayoutHandlerTestSuite) TestConfirmTransfer() {
	s.mockPayoutService.EXPECT().
		ConfirmTransfer(gomock.Any(), int64(1), "SEPA-42").
		Return(&domain.PayoutRequest{ID: 1, Status: domain.PayoutStatusPaid, Reference: "SEPA-42"}, nil)

	cases := []struct {
		name       string
		payload    string
		wantStatus int
	}{
		{name: "ok", payload: `{"reference":"SEPA-42"}`, wantStatus: http.StatusOK},
		{name: "missing reference", payload: `{}`, wantStatus: http.StatusBadRequest},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    "/api/admin/payouts/1/transfer",
				Body:   bytes.NewReader([]byte(t.payload)),
			}, s.withToken(s.adminToken))
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

func (s *PayoutHandlerTestSuite) TestIndexEmpty() {
	s.mockPayoutService.EXPECT().
		GetByUserID(gomock.Any(), s.teacherID).
		Return([]domain.PayoutRequest{}, nil)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    RouteGroup + PayoutsRoute,
	}, s.withToken(s.teacherToken))
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Equal(http.StatusNoContent, resp.StatusCode)
}
