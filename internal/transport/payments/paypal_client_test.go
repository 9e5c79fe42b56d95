package payments

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/transport/payments/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	testPayPalClientID     = "client-id"
	testPayPalClientSecret = "client-secret"
)

type PayPalClientTestSuite struct {
	suite.Suite
	server *httptest.Server
}

func TestPayPalClientSuite(t *testing.T) {
	suite.Run(t, new(PayPalClientTestSuite))
}

func (s *PayPalClientTestSuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
}

func (s *PayPalClientTestSuite) requireBasicAuth(r *http.Request) {
	id, secret, ok := r.BasicAuth()
	s.Require().True(ok)
	s.Equal(testPayPalClientID, id)
	s.Equal(testPayPalClientSecret, secret)
}

func (s *PayPalClientTestSuite) TestCreatePayment() {
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal(RouteOrders, r.URL.Path)
		s.requireBasicAuth(r)

		var payload struct {
			Intent        string `json:"intent"`
			PurchaseUnits []struct {
				Description string `json:"description"`
				Amount      struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"purchase_units"`
		}
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&payload))
		s.Equal("CAPTURE", payload.Intent)
		s.Require().Len(payload.PurchaseUnits, 1)
		// сумма уходит провайдеру строкой с двумя знаками.
		s.Equal("49.90", payload.PurchaseUnits[0].Amount.Value)
		s.Equal("EUR", payload.PurchaseUnits[0].Amount.CurrencyCode)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		s.Require().NoError(json.NewEncoder(w).Encode(dto.CheckoutOrder{
			ID:     "order_123",
			Status: dto.OrderStatusCreated,
		}))
	}))

	client := NewPayPalClient(s.server.URL, testPayPalClientID, testPayPalClientSecret, time.Second)
	ref, err := client.CreatePayment(s.T().Context(), decimal.NewFromFloat(49.9), "EUR", "Course")
	s.Require().NoError(err)
	s.Equal("order_123", ref)
}

func (s *PayPalClientTestSuite) TestVerifyPayment() {
	type tcase struct {
		name        string
		providerRef string
		orderStatus string
		wantOutcome domain.PaymentOutcome
	}

	cases := []tcase{
		{name: "completed", providerRef: "order_done", orderStatus: dto.OrderStatusCompleted, wantOutcome: domain.OutcomeSucceeded},
		{name: "voided", providerRef: "order_void", orderStatus: dto.OrderStatusVoided, wantOutcome: domain.OutcomeFailed},
		{name: "still created", providerRef: "order_new", orderStatus: dto.OrderStatusCreated, wantOutcome: domain.OutcomePending},
	}

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rc *tcase
		for _, c := range cases {
			if r.URL.Path == RouteOrders+"/"+c.providerRef {
				rc = &c
				break
			}
		}
		s.Require().NotNilf(rc, "тест для пути %s не найден", r.URL.Path) //nolint:testifylint
		s.requireBasicAuth(r)

		w.Header().Set("Content-Type", "application/json")
		s.Require().NoError(json.NewEncoder(w).Encode(dto.CheckoutOrder{
			ID:     rc.providerRef,
			Status: rc.orderStatus,
		}))
	}))

	client := NewPayPalClient(s.server.URL, testPayPalClientID, testPayPalClientSecret, time.Second)

	for _, t := range cases {
		s.Run(t.name, func() {
			outcome, err := client.VerifyPayment(s.T().Context(), t.providerRef)
			s.Require().NoError(err)
			s.Equal(t.wantOutcome, outcome)
		})
	}
}

// TestVerifyPaymentCapturesApprovedOrder Одобренный юзером ордер добивается capture-ом.
func (s *PayPalClientTestSuite) TestVerifyPaymentCapturesApprovedOrder() {
	const providerRef = "order_approved"
	var captured bool

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == RouteOrders+"/"+providerRef:
			s.Require().NoError(json.NewEncoder(w).Encode(dto.CheckoutOrder{
				ID:     providerRef,
				Status: dto.OrderStatusApproved,
			}))
		case r.Method == http.MethodPost && r.URL.Path == fmt.Sprintf(RouteOrderCapture, providerRef):
			captured = true
			w.WriteHeader(http.StatusCreated)
			s.Require().NoError(json.NewEncoder(w).Encode(dto.CheckoutOrder{
				ID:     providerRef,
				Status: dto.OrderStatusCompleted,
			}))
		default:
			s.Failf("unexpected request", "%s %s", r.Method, r.URL.Path)
		}
	}))

	client := NewPayPalClient(s.server.URL, testPayPalClientID, testPayPalClientSecret, time.Second)
	outcome, err := client.VerifyPayment(s.T().Context(), providerRef)
	s.Require().NoError(err)
	s.Equal(domain.OutcomeSucceeded, outcome)
	s.True(captured)
}
