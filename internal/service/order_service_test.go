package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/fsdevblog/groph-topup/internal/repository/repoargs"
	"github.com/fsdevblog/groph-topup/internal/service/mocks"
	"github.com/fsdevblog/groph-topup/internal/transport/gateway/client"
	"github.com/fsdevblog/groph-topup/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-topup/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type OrderServiceTestSuite struct {
	suite.Suite
	mockCtrl      *gomock.Controller
	mockUOW       *uowmocks.MockUOW
	mockTX        *uowmocks.MockTX
	mockOrderRepo *mocks.MockOrderRepository
	mockUserRepo  *mocks.MockUserRepository
	mockGateway   *mocks.MockGateway
	orderService  *OrderService
	now           time.Time
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func (s *OrderServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockOrderRepo = mocks.NewMockOrderRepository(s.mockCtrl)
	s.mockUserRepo = mocks.NewMockUserRepository(s.mockCtrl)
	s.mockGateway = mocks.NewMockGateway(s.mockCtrl)

	// Мок получения репозитория из uow. Выполняется в инициализации сервиса.
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.OrderRepoName)).
		Return(s.mockOrderRepo, nil).AnyTimes()

	orderService, servErr := NewOrderService(s.mockUOW, s.mockGateway)
	s.Require().NoError(servErr)

	s.now = time.Unix(1700000000, 0)
	orderService.now = func() time.Time { return s.now }
	s.orderService = orderService
}

func (s *OrderServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

// expectTx настраивает uow.Do на выполнение fn с мок-транзакцией.
func (s *OrderServiceTestSuite) expectTx() {
	s.mockUOW.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		})
}

func (s *OrderServiceTestSuite) expectTxRepos() {
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.OrderRepoName)).Return(s.mockOrderRepo, nil)
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.UserRepoName)).Return(s.mockUserRepo, nil)
}

func (s *OrderServiceTestSuite) TestCreateOrder_AmountOutOfBounds() {
	for _, amount := range []string{"2.99", "10000.01", "0", "-5"} {
		order, err := s.orderService.CreateOrder(context.Background(), 42, decimal.RequireFromString(amount))
		s.Nil(order, amount)

		var validationErr *domain.ValidationError
		s.Require().ErrorAs(err, &validationErr, amount)
		s.Equal("amount", validationErr.Field)
	}
}

func (s *OrderServiceTestSuite) TestCreateOrder_Success() {
	for _, amount := range []string{"3", "10000"} {
		amt := decimal.RequireFromString(amount)
		var code string

		s.mockGateway.EXPECT().
			CreatePaymentLink(gomock.Any(), gomock.Any(), amt, "TG充值_42").
			DoAndReturn(func(_ context.Context, orderCode string, _ decimal.Decimal, _ string) (*client.PayLinkResult, error) {
				code = orderCode
				return &client.PayLinkResult{Success: true, GatewayOrderID: "GW-1", PayURL: "https://pay/1"}, nil
			})
		s.expectTx()
		s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.OrderRepoName)).Return(s.mockOrderRepo, nil)
		s.mockOrderRepo.EXPECT().
			CreateOrder(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
				s.Equal(code, args.Code)
				s.Equal(int64(42), args.UserID)
				s.True(amt.Equal(args.Amount))
				s.Equal("GW-1", args.GatewayOrderID)
				s.Equal("https://pay/1", args.PayURL)
				s.True(s.now.Equal(args.CreatedAt))
				return &domain.Order{
					Code:           args.Code,
					UserID:         args.UserID,
					Amount:         args.Amount,
					GatewayOrderID: args.GatewayOrderID,
					PayURL:         args.PayURL,
					Status:         domain.OrderStatusPending,
					CreatedAt:      args.CreatedAt,
				}, nil
			})

		order, err := s.orderService.CreateOrder(context.Background(), 42, amt)
		s.Require().NoError(err)
		s.Equal(domain.OrderStatusPending, order.Status)
		s.False(order.Credited)
		s.Regexp(regexp.MustCompile(`^cz_42_1700000000_[0-9a-f]{12}$`), order.Code)
	}
}

func (s *OrderServiceTestSuite) TestCreateOrder_GatewayRejected() {
	raw := map[string]any{"status": "fail", "msg": "merchant disabled"}
	s.mockGateway.EXPECT().
		CreatePaymentLink(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&client.PayLinkResult{Success: false, Raw: raw}, nil)

	order, err := s.orderService.CreateOrder(context.Background(), 1, decimal.NewFromInt(5))
	s.Nil(order)
	s.Require().ErrorIs(err, domain.ErrGatewayRejected)
	s.False(domain.IsTransient(err))

	var gwErr *domain.GatewayError
	s.Require().ErrorAs(err, &gwErr)
	s.Equal("merchant disabled", gwErr.Response["msg"])
}

func (s *OrderServiceTestSuite) TestCreateOrder_GatewayErrors() {
	for _, kind := range []error{domain.ErrGatewayAuth, domain.ErrGatewayTransport} {
		s.mockGateway.EXPECT().
			CreatePaymentLink(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, domain.NewGatewayError(kind, nil, errors.New("boom")))

		order, err := s.orderService.CreateOrder(context.Background(), 1, decimal.NewFromInt(5))
		s.Nil(order)
		s.Require().ErrorIs(err, kind)
		s.Equal(kind == domain.ErrGatewayTransport, domain.IsTransient(err))
	}
}

func (s *OrderServiceTestSuite) TestCheckAndCredit_NotFound() {
	s.mockOrderRepo.EXPECT().FindByCode(gomock.Any(), "cz_x").Return(nil, domain.ErrRecordNotFound)

	outcome, err := s.orderService.CheckAndCredit(context.Background(), "cz_x", 1)
	s.Empty(outcome)
	s.Require().ErrorIs(err, domain.ErrOrderNotFound)
}

func (s *OrderServiceTestSuite) TestCheckAndCredit_OwnerConflict() {
	s.mockOrderRepo.EXPECT().FindByCode(gomock.Any(), "cz_x").
		Return(&domain.Order{Code: "cz_x", UserID: 1}, nil)

	outcome, err := s.orderService.CheckAndCredit(context.Background(), "cz_x", 2)
	s.Empty(outcome)
	s.Require().ErrorIs(err, domain.ErrOwnerConflict)
}

func (s *OrderServiceTestSuite) TestCheckAndCredit_AlreadyCredited() {
	s.mockOrderRepo.EXPECT().FindByCode(gomock.Any(), "cz_x").
		Return(&domain.Order{Code: "cz_x", UserID: 1, Status: domain.OrderStatusPaid, Credited: true}, nil)

	outcome, err := s.orderService.CheckAndCredit(context.Background(), "cz_x", 1)
	s.Require().NoError(err)
	s.Equal(domain.CreditOutcomeAlreadyCredited, outcome)
}

func (s *OrderServiceTestSuite) TestCheckAndCredit_NotPaid() {
	s.mockOrderRepo.EXPECT().FindByCode(gomock.Any(), "cz_x").
		Return(&domain.Order{Code: "cz_x", UserID: 1, Status: domain.OrderStatusPending}, nil)
	s.mockGateway.EXPECT().CheckDeposit(gomock.Any(), "cz_x").Return(&client.DepositResult{Paid: false}, nil)

	outcome, err := s.orderService.CheckAndCredit(context.Background(), "cz_x", 1)
	s.Require().NoError(err)
	s.Equal(domain.CreditOutcomeNotPaid, outcome)
}

func (s *OrderServiceTestSuite) TestCheckAndCredit_Transient() {
	s.mockOrderRepo.EXPECT().FindByCode(gomock.Any(), "cz_x").
		Return(&domain.Order{Code: "cz_x", UserID: 1, Status: domain.OrderStatusPending}, nil)
	s.mockGateway.EXPECT().CheckDeposit(gomock.Any(), "cz_x").
		Return(nil, domain.NewGatewayError(domain.ErrGatewayTransport, nil, context.DeadlineExceeded))

	outcome, err := s.orderService.CheckAndCredit(context.Background(), "cz_x", 1)
	s.Empty(outcome)
	s.True(domain.IsTransient(err))
}

func (s *OrderServiceTestSuite) TestCheckAndCredit_Credits() {
	order := &domain.Order{
		Code:   "cz_x",
		UserID: 1,
		Amount: decimal.RequireFromString("5.5"),
		Status: domain.OrderStatusPending,
	}
	s.mockOrderRepo.EXPECT().FindByCode(gomock.Any(), "cz_x").Return(order, nil)
	s.mockGateway.EXPECT().CheckDeposit(gomock.Any(), "cz_x").Return(&client.DepositResult{Paid: true}, nil)

	s.expectTx()
	s.expectTxRepos()
	locked := *order
	gomock.InOrder(
		s.mockOrderRepo.EXPECT().FindByCodeForUpdate(gomock.Any(), "cz_x").Return(&locked, nil),
		s.mockOrderRepo.EXPECT().MarkPaidCredited(gomock.Any(), "cz_x", s.now).Return(nil),
		s.mockUserRepo.EXPECT().LockBalance(gomock.Any(), int64(1)).Return(decimal.RequireFromString("1.25"), nil),
		s.mockUserRepo.EXPECT().UpdateBalance(gomock.Any(), int64(1), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ int64, balance decimal.Decimal) error {
				s.True(decimal.RequireFromString("6.75").Equal(balance), balance.String())
				return nil
			}),
	)

	outcome, err := s.orderService.CheckAndCredit(context.Background(), "cz_x", 1)
	s.Require().NoError(err)
	s.Equal(domain.CreditOutcomeCredited, outcome)
}

// TestReconcile_RaceLost второй конкурентный вызов видит под блокировкой уже зачисленный заказ.
func (s *OrderServiceTestSuite) TestReconcile_RaceLost() {
	s.mockOrderRepo.EXPECT().FindByCode(gomock.Any(), "cz_x").
		Return(&domain.Order{Code: "cz_x", UserID: 1, Amount: decimal.NewFromInt(5)}, nil)
	s.mockGateway.EXPECT().CheckDeposit(gomock.Any(), "cz_x").Return(&client.DepositResult{Paid: true}, nil)

	s.expectTx()
	s.expectTxRepos()
	s.mockOrderRepo.EXPECT().FindByCodeForUpdate(gomock.Any(), "cz_x").
		Return(&domain.Order{Code: "cz_x", UserID: 1, Status: domain.OrderStatusPaid, Credited: true}, nil)

	outcome, err := s.orderService.Reconcile(context.Background(), "cz_x")
	s.Require().NoError(err)
	s.Equal(domain.CreditOutcomeAlreadyCredited, outcome)
}

func (s *OrderServiceTestSuite) TestCredit_RollbackOnBalanceError() {
	s.mockOrderRepo.EXPECT().FindByCode(gomock.Any(), "cz_x").
		Return(&domain.Order{Code: "cz_x", UserID: 1, Amount: decimal.NewFromInt(5)}, nil)
	s.mockGateway.EXPECT().CheckDeposit(gomock.Any(), "cz_x").Return(&client.DepositResult{Paid: true}, nil)

	s.expectTx()
	s.expectTxRepos()
	s.mockOrderRepo.EXPECT().FindByCodeForUpdate(gomock.Any(), "cz_x").
		Return(&domain.Order{Code: "cz_x", UserID: 1, Amount: decimal.NewFromInt(5)}, nil)
	s.mockOrderRepo.EXPECT().MarkPaidCredited(gomock.Any(), "cz_x", gomock.Any()).Return(nil)
	s.mockUserRepo.EXPECT().LockBalance(gomock.Any(), int64(1)).Return(decimal.Zero, domain.ErrUnknown)

	outcome, err := s.orderService.Reconcile(context.Background(), "cz_x")
	s.Empty(outcome)
	s.Require().ErrorIs(err, domain.ErrUnknown)
}

func (s *OrderServiceTestSuite) TestOrdersForReconciliation() {
	expected := []domain.Order{{Code: "cz_a"}}
	s.mockOrderRepo.EXPECT().
		GetForReconciliation(gomock.Any(), s.now.Add(-defaultReconcileWindow), uint(50)).
		Return(expected, nil)

	orders, err := s.orderService.OrdersForReconciliation(context.Background(), 50)
	s.Require().NoError(err)
	s.Equal(expected, orders)
}
