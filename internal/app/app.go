package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsdevblog/groph-topup/internal/config"
	"github.com/fsdevblog/groph-topup/internal/repository/dbrepo"
	"github.com/fsdevblog/groph-topup/internal/repository/redisrepo"
	"github.com/fsdevblog/groph-topup/internal/service"
	"github.com/fsdevblog/groph-topup/internal/transport/api"
	"github.com/fsdevblog/groph-topup/internal/transport/gateway"
	"github.com/fsdevblog/groph-topup/internal/transport/gateway/client"
	"github.com/fsdevblog/groph-topup/pkg/uow"
	"github.com/sirupsen/logrus"
)

const (
	processorWorkers = 5
	processorLimit   = 50
	shutdownTimeout  = 10 * time.Second
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

	a.Logger.WithFields(logrus.Fields{
		"address":   a.Config.RunAddress,
		"driver":    a.Config.DatabaseDriver,
		"gateway":   a.Config.GatewayBaseURL,
		"reconcile": a.Config.ReconcileInterval.String(),
		"redis":     a.Config.RedisAddress != "",
	}).Info("starting app")

	conn, connErr := dbrepo.Connect(notifyCtx, a.Config.DatabaseDriver, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initUOW(conn, a.Config.DatabaseDriver)
	if uowErr != nil {
		return fmt.Errorf("app run: %s", uowErr.Error())
	}

	gatewayClient := client.New(client.Config{
		BaseURL:     a.Config.GatewayBaseURL,
		MerchantID:  a.Config.MerchantID,
		Token:       a.Config.MerchantToken,
		ReturnURL:   a.Config.ReturnURL,
		CallbackURL: a.Config.CallbackURL,
	}, a.Logger)

	services, sErr := service.Factory(unitOfWork, gatewayClient)
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	routerArgs := api.RouterArgs{
		Logger:           a.Logger,
		BalanceService:   services.BalanceService,
		OrderService:     services.OrderService,
		CallbackVerifier: gatewayClient.Signer(),
		CheckCooldown:    a.Config.CheckCooldown,
		JWTSecretKey:     []byte(a.Config.JWTUserSecret),
	}

	if a.Config.RedisAddress != "" {
		rdb, redisErr := redisrepo.Connect(notifyCtx, a.Config.RedisAddress)
		if redisErr != nil {
			return fmt.Errorf("app run: %s", redisErr.Error())
		}
		defer rdb.Close()
		routerArgs.Cooldown = redisrepo.NewCooldown(rdb, a.Logger)
	}

	router, routerErr := api.New(routerArgs)
	if routerErr != nil {
		return fmt.Errorf("app run: %s", routerErr.Error())
	}

	if a.Config.ReconcileInterval > 0 {
		processor := gateway.NewProcessor(services.OrderService, a.Logger).
			SetWorkers(processorWorkers).
			SetLimitPerIteration(processorLimit).
			SetInterval(a.Config.ReconcileInterval)

		go processor.Run(notifyCtx)
	} else {
		a.Logger.Warn("background reconciliation is disabled")
	}

	srv := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second, //nolint:mnd
	}

	errChan := make(chan error, 1)
	go func() {
		if runErr := srv.ListenAndServe(); runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			errChan <- runErr
		}
	}()

	select {
	case <-notifyCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.WithError(err).Error("http server shutdown")
		}
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

func initUOW(conn *sql.DB, driver string) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)
	if err := dbrepo.RegisterRepositories(unitOfWork, dbrepo.Dialect{Driver: driver}); err != nil {
		return nil, fmt.Errorf("init UOW: %s", err.Error())
	}
	return unitOfWork, nil
}
