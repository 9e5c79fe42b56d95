package api

import (
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	RouteGroup = "/api"

	RegisterRoute = "/user/register"
	LoginRoute    = "/user/login"

	WalletRoute         = "/user/wallet"
	WalletHistoryRoute  = "/user/wallet/history"
	DepositRoute        = "/user/wallet/deposit"
	DepositConfirmRoute = "/user/wallet/deposit/confirm"

	PurchaseRoute     = "/courses/:courseID/purchase"
	CartPurchaseRoute = "/cart/purchase"
	DownloadRoute     = "/courses/:courseID/files/:fileID/download"
	PurchasesRoute    = "/user/purchases"
	RefundRoute       = "/purchases/:id/refund"

	PayoutsRoute             = "/user/payouts"
	AdminPayoutsRoute        = "/admin/payouts"
	AdminPayoutApproveRoute  = "/admin/payouts/:id/approve"
	AdminPayoutRejectRoute   = "/admin/payouts/:id/reject"
	AdminPayoutTransferRoute = "/admin/payouts/:id/transfer"

	WebhookRoute = "/webhooks/:provider"
)

type RouterArgs struct {
	Logger             *logrus.Logger
	UserService        UserServicer
	WalletService      WalletServicer
	TransactionService TransactionServicer
	PurchaseService    PurchaseServicer
	PayoutService      PayoutServicer
	Payments           PaymentInitiator
	Webhooks           WebhookSink
	Outcomes           OutcomeReporter
	JWTSecretKey       []byte
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	authHandler := NewAuthHandler(args.UserService)
	walletHandler := NewWalletHandler(args.WalletService, args.TransactionService, args.Payments)
	purchaseHandler := NewPurchaseHandler(args.PurchaseService)
	payoutHandler := NewPayoutHandler(args.PayoutService)
	webhookHandler := NewWebhookHandler(args.Webhooks, args.Outcomes)

	api := r.Group(RouteGroup)

	api.POST(RegisterRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Register)
	api.POST(LoginRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Login)

	// вебхуки аутентифицируются подписью, не токеном.
	api.POST(WebhookRoute, webhookHandler.Handle)

	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют авторизованного пользователя.
	api.GET(WalletRoute, walletHandler.Show)
	api.GET(WalletHistoryRoute, walletHandler.History)
	api.POST(DepositRoute, walletHandler.Deposit)
	api.POST(DepositConfirmRoute, walletHandler.ConfirmDeposit)

	api.POST(PurchaseRoute, purchaseHandler.Purchase)
	api.POST(CartPurchaseRoute, purchaseHandler.PurchaseCart)
	api.POST(DownloadRoute, purchaseHandler.Download)
	api.GET(PurchasesRoute, purchaseHandler.Index)
	api.POST(RefundRoute, purchaseHandler.Refund)

	// выплаты запрашивают только преподаватели.
	payouts := api.Group("", middlewares.RoleRequired(domain.RoleTeacher))
	payouts.POST(PayoutsRoute, payoutHandler.Create)
	payouts.GET(PayoutsRoute, payoutHandler.Index)

	admin := api.Group("", middlewares.RoleRequired(domain.RoleAdmin))
	admin.GET(AdminPayoutsRoute, payoutHandler.Pending)
	admin.POST(AdminPayoutApproveRoute, payoutHandler.Approve)
	admin.POST(AdminPayoutRejectRoute, payoutHandler.Reject)
	admin.POST(AdminPayoutTransferRoute, payoutHandler.ConfirmTransfer)

	return r, nil
}
