package app

import (
	"context"
	"fmt"

	"github.com/avkozlov/edumarket/internal/repository/repoargs"

	"github.com/avkozlov/edumarket/internal/transport/payments"

	"github.com/avkozlov/edumarket/pkg/uow"

	"github.com/avkozlov/edumarket/internal/config"
	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/pgrepo"
	"github.com/avkozlov/edumarket/internal/service"
	"github.com/avkozlov/edumarket/internal/service/psswd"
	"github.com/avkozlov/edumarket/internal/transport/api"
	"github.com/sirupsen/logrus"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	"os/signal"
	"syscall"

	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Infof("Starting app on %s", a.Config.RunAddress)
	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		return fmt.Errorf("app run: %s", uowErr.Error())
	}

	stripe := payments.NewStripeClient(a.Config.StripeAddress, a.Config.StripeAPIKey, a.Config.GatewayTimeout)
	paypal := payments.NewPayPalClient(
		a.Config.PayPalAddress,
		a.Config.PayPalClientID,
		a.Config.PayPalClientSecret,
		a.Config.GatewayTimeout,
	)

	adapter := payments.NewAdapter(a.Logger, stripe, paypal)

	services, sErr := service.Factory(unitOfWork, psswd.New(), adapter, []byte(a.Config.JWTUserSecret))
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}
	adapter.Bind(services.TransactionService, services.PurchaseService)

	webhooks := payments.NewWebhookVerifier(map[domain.PaymentMethod]string{
		domain.MethodStripe: a.Config.StripeWebhookSecret,
		domain.MethodPayPal: a.Config.PayPalWebhookSecret,
	})

	router, routerErr := api.New(api.RouterArgs{
		Logger:             a.Logger,
		UserService:        services.UserService,
		WalletService:      services.WalletService,
		TransactionService: services.TransactionService,
		PurchaseService:    services.PurchaseService,
		PayoutService:      services.PayoutService,
		Payments:           adapter,
		Webhooks:           webhooks,
		Outcomes:           adapter,
		JWTSecretKey:       []byte(a.Config.JWTUserSecret),
	})
	if routerErr != nil {
		return fmt.Errorf("app run: %s", routerErr.Error())
	}

	errChan := make(chan error, 1)

	go func() {
		if runErr := router.Run(a.Config.RunAddress); runErr != nil {
			errChan <- runErr
		}
	}()

	reconciler := payments.NewReconciler(adapter, services.TransactionService, a.Logger).
		SetWorkers(5).            //nolint:mnd
		SetLimitPerIteration(50). //nolint:mnd
		SetPollInterval(a.Config.ReconcileInterval)

	go reconciler.Run(notifyCtx)

	select {
	case <-notifyCtx.Done():
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.UserRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewUserRepository(dbtx)
		},
		repoargs.WalletRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewWalletRepository(dbtx)
		},
		repoargs.TransactionRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewTransactionRepository(dbtx)
		},
		repoargs.PurchaseRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewPurchaseRepository(dbtx)
		},
		repoargs.PayoutRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewPayoutRepository(dbtx)
		},
		repoargs.CourseRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewCourseRepository(dbtx)
		},
	}

	for name, factoryFn := range factories {
		if regErr := unitOfWork.Register(uow.RepositoryName(name), factoryFn); regErr != nil {
			return nil, fmt.Errorf("init UOW: %s", regErr.Error())
		}
	}

	return unitOfWork, nil
}
