package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/fsdevblog/groph-topup/internal/repository/dbrepo"
	"github.com/fsdevblog/groph-topup/internal/transport/gateway/client"
	"github.com/fsdevblog/groph-topup/pkg/uow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

// fakeGateway шлюз, который всегда выдает ссылку и отвечает на проверку значением paid.
type fakeGateway struct {
	paid   atomic.Bool
	checks atomic.Int32
}

func (f *fakeGateway) CreatePaymentLink(
	_ context.Context,
	orderCode string,
	_ decimal.Decimal,
	_ string,
) (*client.PayLinkResult, error) {
	return &client.PayLinkResult{Success: true, GatewayOrderID: "GW-" + orderCode, PayURL: "https://pay/" + orderCode}, nil
}

func (f *fakeGateway) CheckDeposit(_ context.Context, _ string) (*client.DepositResult, error) {
	f.checks.Add(1)
	return &client.DepositResult{Paid: f.paid.Load()}, nil
}

type StoreIntegrationSuite struct {
	suite.Suite
	gateway  *fakeGateway
	services *AppServices
}

func TestStoreIntegrationSuite(t *testing.T) {
	suite.Run(t, new(StoreIntegrationSuite))
}

func (s *StoreIntegrationSuite) SetupTest() {
	l := logrus.New()
	l.SetOutput(io.Discard)

	db, err := dbrepo.ConnectWithConfig(
		context.Background(),
		dbrepo.DriverSQLite,
		filepath.Join(s.T().TempDir(), "topup.db"),
		l,
		dbrepo.ConnectConfig{MaxAttempts: 1, RetryInterval: time.Millisecond},
	)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })

	unitOfWork := uow.NewUnitOfWork(db)
	s.Require().NoError(dbrepo.RegisterRepositories(unitOfWork, dbrepo.Dialect{Driver: dbrepo.DriverSQLite}))

	s.gateway = new(fakeGateway)
	services, err := Factory(unitOfWork, s.gateway)
	s.Require().NoError(err)
	s.services = services
}

func (s *StoreIntegrationSuite) balance(userID int64) decimal.Decimal {
	balance, err := s.services.BalanceService.GetBalance(context.Background(), userID)
	s.Require().NoError(err)
	return balance
}

func (s *StoreIntegrationSuite) TestTopUpScenario() {
	ctx := context.Background()
	balances := s.services.BalanceService
	orders := s.services.OrderService

	_, err := balances.EnsureUser(ctx, 42, "alice")
	s.Require().NoError(err)
	s.True(s.balance(42).IsZero())

	order, err := orders.CreateOrder(ctx, 42, decimal.NewFromInt(5))
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPending, order.Status)
	s.False(order.Credited)
	s.Equal("GW-"+order.Code, order.GatewayOrderID)

	outcome, err := orders.CheckAndCredit(ctx, order.Code, 42)
	s.Require().NoError(err)
	s.Equal(domain.CreditOutcomeNotPaid, outcome)
	s.True(s.balance(42).IsZero())

	s.gateway.paid.Store(true)
	outcome, err = orders.CheckAndCredit(ctx, order.Code, 42)
	s.Require().NoError(err)
	s.Equal(domain.CreditOutcomeCredited, outcome)
	s.Equal("5", s.balance(42).String())

	list, err := orders.GetByUserID(ctx, 42)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(domain.OrderStatusPaid, list[0].Status)
	s.True(list[0].Credited)
	s.NotNil(list[0].PaidAt)

	checks := s.gateway.checks.Load()
	outcome, err = orders.CheckAndCredit(ctx, order.Code, 42)
	s.Require().NoError(err)
	s.Equal(domain.CreditOutcomeAlreadyCredited, outcome)
	s.Equal("5", s.balance(42).String())
	s.Equal(checks, s.gateway.checks.Load())

	pending, err := orders.OrdersForReconciliation(ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)

	ok, err := balances.Spend(ctx, 42, ActionZDZ2)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("0.5", s.balance(42).String())

	ok, err = balances.Spend(ctx, 42, ActionDDZ)
	s.Require().NoError(err)
	s.False(ok)
	s.Equal("0.5", s.balance(42).String())
}

func (s *StoreIntegrationSuite) TestOwnershipEnforced() {
	ctx := context.Background()
	s.gateway.paid.Store(true)

	order, err := s.services.OrderService.CreateOrder(ctx, 1, decimal.NewFromInt(10))
	s.Require().NoError(err)

	outcome, err := s.services.OrderService.CheckAndCredit(ctx, order.Code, 2)
	s.Require().ErrorIs(err, domain.ErrOwnerConflict)
	s.Empty(outcome)
	s.True(s.balance(1).IsZero())
	s.True(s.balance(2).IsZero())

	list, err := s.services.OrderService.GetByUserID(ctx, 1)
	s.Require().NoError(err)
	s.False(list[0].Credited)
	s.Equal(int32(0), s.gateway.checks.Load())

	_, err = s.services.OrderService.CheckAndCredit(ctx, "cz_unknown", 1)
	s.Require().ErrorIs(err, domain.ErrOrderNotFound)
}

func (s *StoreIntegrationSuite) TestConcurrentCreditIsIdempotent() {
	ctx := context.Background()
	s.gateway.paid.Store(true)

	order, err := s.services.OrderService.CreateOrder(ctx, 7, decimal.RequireFromString("12.5"))
	s.Require().NoError(err)

	const callers = 8
	var (
		wg       sync.WaitGroup
		credited atomic.Int32
		already  atomic.Int32
		failed   atomic.Int32
	)
	wg.Add(callers)
	for i := range callers {
		go func() {
			defer wg.Done()
			var outcome domain.CreditOutcome
			var callErr error
			if i%2 == 0 {
				outcome, callErr = s.services.OrderService.CheckAndCredit(ctx, order.Code, 7)
			} else {
				outcome, callErr = s.services.OrderService.Reconcile(ctx, order.Code)
			}
			switch {
			case callErr != nil:
				failed.Add(1)
			case outcome == domain.CreditOutcomeCredited:
				credited.Add(1)
			case outcome == domain.CreditOutcomeAlreadyCredited:
				already.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failed.Load())
	s.Equal(int32(1), credited.Load())
	s.Equal(int32(callers-1), already.Load())
	s.Equal("12.5", s.balance(7).String())
}

func (s *StoreIntegrationSuite) TestConcurrentDeductNeverNegative() {
	ctx := context.Background()
	s.gateway.paid.Store(true)

	order, err := s.services.OrderService.CreateOrder(ctx, 9, decimal.NewFromInt(10))
	s.Require().NoError(err)
	_, err = s.services.OrderService.CheckAndCredit(ctx, order.Code, 9)
	s.Require().NoError(err)

	const spenders = 20
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		failed    atomic.Int32
	)
	wg.Add(spenders)
	for range spenders {
		go func() {
			defer wg.Done()
			ok, deductErr := s.services.BalanceService.DeductIfEnough(ctx, 9, decimal.RequireFromString("1.5"))
			if deductErr != nil {
				failed.Add(1)
				return
			}
			if ok {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failed.Load())
	// 10 / 1.5 = 6 успешных списаний, остаток 1.
	s.Equal(int32(6), succeeded.Load())
	s.Equal("1", s.balance(9).String())
}

func (s *StoreIntegrationSuite) TestAmountBounds() {
	ctx := context.Background()
	for _, amount := range []string{"2.99", "10000.01"} {
		_, err := s.services.OrderService.CreateOrder(ctx, 3, decimal.RequireFromString(amount))
		var validationErr *domain.ValidationError
		s.Require().ErrorAs(err, &validationErr, amount)
	}
	for _, amount := range []string{"3", "10000"} {
		_, err := s.services.OrderService.CreateOrder(ctx, 3, decimal.RequireFromString(amount))
		s.Require().NoError(err, amount)
	}

	list, err := s.services.OrderService.GetByUserID(ctx, 3)
	s.Require().NoError(err)
	s.Len(list, 2)
}
